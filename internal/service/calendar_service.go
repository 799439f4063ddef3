package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clubconnect-api/internal/dto"
	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

// AgendaDays is the length of the agenda view.
const AgendaDays = 30

type calendarSource interface {
	ListAll(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, error)
}

type calendarCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CalendarService turns cover occurrences into calendar events for a
// visible date range.
type CalendarService struct {
	covers calendarSource
	cache  calendarCache
	ttl    time.Duration
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewCalendarService constructs the service. cache may be nil.
func NewCalendarService(covers calendarSource, cache calendarCache, loc *time.Location, ttl time.Duration, logger *zap.Logger) *CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{covers: covers, cache: cache, ttl: ttl, loc: loc, logger: logger, now: time.Now}
}

// CalendarRange returns the first and last date (inclusive) visible in view
// around anchor. Weeks run Monday to Sunday.
func CalendarRange(view dto.CalendarView, anchor time.Time) (time.Time, time.Time, error) {
	day := models.DateOnly(anchor)
	switch view {
	case dto.CalendarViewDay:
		return day, day, nil
	case dto.CalendarViewWeek:
		offset := (int(day.Weekday()) + 6) % 7
		from := day.AddDate(0, 0, -offset)
		return from, from.AddDate(0, 0, 6), nil
	case dto.CalendarViewMonth:
		from := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, -1), nil
	case dto.CalendarViewAgenda:
		return day, day.AddDate(0, 0, AgendaDays-1), nil
	}
	return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "view must be one of day, week, month, agenda")
}

// Events returns the events visible for query, grouped per day when a
// per-day limit is requested.
func (s *CalendarService) Events(ctx context.Context, query dto.CalendarQuery) (*dto.CalendarResponse, error) {
	if query.View == "" {
		query.View = dto.CalendarViewWeek
	}
	if query.Date.IsZero() {
		query.Date = s.now().In(s.loc)
	}
	if query.MaxPerDay < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "max_per_day must not be negative")
	}
	from, to, err := CalendarRange(query.View, query.Date)
	if err != nil {
		return nil, err
	}

	key := calendarCacheKey(query, from, to)
	if s.cache != nil {
		var cached dto.CalendarResponse
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	events, err := s.load(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	resp := &dto.CalendarResponse{
		View:   query.View,
		From:   from.Format(dateLayout),
		To:     to.Format(dateLayout),
		Events: events,
	}
	if query.MaxPerDay > 0 {
		resp.Days = groupByDay(events, from, to, query.MaxPerDay)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.ttl); err != nil {
			s.logger.Warn("calendar cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return resp, nil
}

// DayEvents returns every event on date, backing the overflow popover.
func (s *CalendarService) DayEvents(ctx context.Context, date time.Time, query dto.CalendarQuery) ([]dto.CalendarEvent, error) {
	day := models.DateOnly(date)
	return s.load(ctx, query, day, day)
}

func (s *CalendarService) load(ctx context.Context, query dto.CalendarQuery, from, to time.Time) ([]dto.CalendarEvent, error) {
	occurrences, err := s.covers.ListAll(ctx, models.CoverOccurrenceFilter{
		From:      &from,
		To:        &to,
		SchoolID:  query.SchoolID,
		ClubID:    query.ClubID,
		TeacherID: query.TeacherID,
	})
	if err != nil {
		return nil, err
	}
	events := make([]dto.CalendarEvent, 0, len(occurrences))
	for _, occ := range occurrences {
		events = append(events, toCalendarEvent(occ, s.loc))
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].Title < events[j].Title
	})
	return events, nil
}

func toCalendarEvent(occ models.CoverOccurrenceDetail, loc *time.Location) dto.CalendarEvent {
	event := dto.CalendarEvent{
		ID:         occ.ID,
		RuleID:     occ.CoverRuleID,
		Title:      fmt.Sprintf("%s (%s)", occ.ClubName, occ.SchoolName),
		Start:      occ.StartTime.On(occ.MeetingDate, loc),
		End:        occ.EndTime.On(occ.MeetingDate, loc),
		Date:       occ.MeetingDate.Format(dateLayout),
		SchoolID:   occ.SchoolID,
		SchoolName: occ.SchoolName,
		ClubID:     occ.ClubID,
		ClubName:   occ.ClubName,
		Status:     string(occ.Status),
		Priority:   string(occ.Priority),
		Notes:      occ.Notes,
	}
	if a := occ.PrimaryAssignment(); a != nil {
		teacherID := a.TeacherID
		name := strings.TrimSpace(a.TeacherFirstName + " " + a.TeacherLastName)
		status := string(a.Status)
		event.TeacherID = &teacherID
		event.TeacherName = &name
		event.AssignmentStatus = &status
	}
	return event
}

func groupByDay(events []dto.CalendarEvent, from, to time.Time, maxPerDay int) []dto.CalendarDay {
	byDate := make(map[string][]dto.CalendarEvent)
	for _, e := range events {
		byDate[e.Date] = append(byDate[e.Date], e)
	}
	var days []dto.CalendarDay
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		all := byDate[key]
		visible := all
		if len(visible) > maxPerDay {
			visible = visible[:maxPerDay]
		}
		if visible == nil {
			visible = []dto.CalendarEvent{}
		}
		days = append(days, dto.CalendarDay{
			Date:        key,
			Events:      visible,
			TotalCount:  len(all),
			HiddenCount: len(all) - len(visible),
		})
	}
	return days
}

func calendarCacheKey(query dto.CalendarQuery, from, to time.Time) string {
	return fmt.Sprintf("calendar:%s:%s:%s:school=%s:club=%s:teacher=%s:max=%d",
		query.View, from.Format(dateLayout), to.Format(dateLayout), query.SchoolID, query.ClubID, query.TeacherID, query.MaxPerDay)
}
