package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clubconnect-api/internal/dto"
	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

type stubCalendarSource struct {
	items      []models.CoverOccurrenceDetail
	calls      int
	lastFilter models.CoverOccurrenceFilter
}

func (s *stubCalendarSource) ListAll(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, error) {
	s.calls++
	s.lastFilter = filter
	return s.items, nil
}

type mapCache struct {
	entries map[string]dto.CalendarResponse
	sets    int
}

func (m *mapCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	entry, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*dto.CalendarResponse)) = entry
	return true, nil
}

func (m *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string]dto.CalendarResponse)
	}
	m.entries[key] = *(value.(*dto.CalendarResponse))
	m.sets++
	return nil
}

func calendarOccurrence(id, date, start, end, club string, teacher *models.CoverAssignmentDetail) models.CoverOccurrenceDetail {
	day, _ := time.Parse(dateLayout, date)
	occ := models.CoverOccurrenceDetail{
		CoverOccurrence: models.CoverOccurrence{ID: id, CoverRuleID: "rule-" + id, MeetingDate: day, Status: models.OccurrenceNotStarted, Priority: models.PriorityMedium},
		SchoolID:        "school-1",
		SchoolName:      "Oakfield",
		ClubID:          "club-" + club,
		ClubName:        club,
		StartTime:       models.MustTimeOfDay(start),
		EndTime:         models.MustTimeOfDay(end),
	}
	if teacher != nil {
		occ.Assignments = []models.CoverAssignmentDetail{*teacher}
	}
	return occ
}

func TestCalendarRange(t *testing.T) {
	wed := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		view     dto.CalendarView
		anchor   time.Time
		from, to string
	}{
		{dto.CalendarViewDay, wed, "2024-03-06", "2024-03-06"},
		{dto.CalendarViewWeek, wed, "2024-03-04", "2024-03-10"},
		{dto.CalendarViewWeek, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), "2024-03-04", "2024-03-10"},
		{dto.CalendarViewMonth, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), "2024-02-01", "2024-02-29"},
		{dto.CalendarViewAgenda, wed, "2024-03-06", "2024-04-04"},
	}
	for _, tc := range cases {
		from, to, err := CalendarRange(tc.view, tc.anchor)
		require.NoError(t, err)
		assert.Equal(t, tc.from, from.Format(dateLayout), string(tc.view))
		assert.Equal(t, tc.to, to.Format(dateLayout), string(tc.view))
	}

	_, _, err := CalendarRange("year", wed)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}

func TestCalendarServiceEventsWithOverflow(t *testing.T) {
	teacher := &models.CoverAssignmentDetail{
		TeacherCoverAssignment: models.TeacherCoverAssignment{TeacherID: "teacher-1", Status: models.AssignmentAccepted},
		TeacherFirstName:       "Ada",
		TeacherLastName:        "Lovelace",
	}
	source := &stubCalendarSource{items: []models.CoverOccurrenceDetail{
		calendarOccurrence("a", "2024-03-05", "16:00", "17:00", "Chess", nil),
		calendarOccurrence("b", "2024-03-05", "15:00", "16:00", "Ballet", teacher),
		calendarOccurrence("c", "2024-03-05", "17:00", "18:00", "Drama", nil),
		calendarOccurrence("d", "2024-03-07", "15:00", "16:00", "Ballet", nil),
	}}
	cet := time.FixedZone("CET", 3600)
	svc := NewCalendarService(source, nil, cet, time.Minute, nil)

	resp, err := svc.Events(context.Background(), dto.CalendarQuery{
		View:      dto.CalendarViewWeek,
		Date:      time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
		TeacherID: "teacher-1",
		MaxPerDay: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-04", resp.From)
	assert.Equal(t, "2024-03-10", resp.To)
	assert.Equal(t, "2024-03-04", source.lastFilter.From.Format(dateLayout))
	assert.Equal(t, "teacher-1", source.lastFilter.TeacherID)

	require.Len(t, resp.Events, 4)
	first := resp.Events[0]
	assert.Equal(t, "b", first.ID)
	assert.Equal(t, "Ballet (Oakfield)", first.Title)
	assert.Equal(t, time.Date(2024, 3, 5, 15, 0, 0, 0, cet), first.Start)
	assert.Equal(t, time.Date(2024, 3, 5, 16, 0, 0, 0, cet), first.End)
	require.NotNil(t, first.TeacherName)
	assert.Equal(t, "Ada Lovelace", *first.TeacherName)
	assert.Equal(t, "accepted", *first.AssignmentStatus)
	assert.Nil(t, resp.Events[1].TeacherID)

	require.Len(t, resp.Days, 7)
	tuesday := resp.Days[1]
	assert.Equal(t, "2024-03-05", tuesday.Date)
	assert.Equal(t, 3, tuesday.TotalCount)
	assert.Equal(t, 1, tuesday.HiddenCount)
	require.Len(t, tuesday.Events, 2)
	assert.Equal(t, "b", tuesday.Events[0].ID)
	assert.Equal(t, "a", tuesday.Events[1].ID)
	assert.Equal(t, 0, resp.Days[0].TotalCount)
	assert.NotNil(t, resp.Days[0].Events)
	assert.Equal(t, 1, resp.Days[3].TotalCount)
}

func TestCalendarServiceDayEventsReturnsAll(t *testing.T) {
	source := &stubCalendarSource{items: []models.CoverOccurrenceDetail{
		calendarOccurrence("a", "2024-03-05", "16:00", "17:00", "Chess", nil),
		calendarOccurrence("b", "2024-03-05", "15:00", "16:00", "Ballet", nil),
		calendarOccurrence("c", "2024-03-05", "17:00", "18:00", "Drama", nil),
	}}
	svc := NewCalendarService(source, nil, nil, time.Minute, nil)

	events, err := svc.DayEvents(context.Background(), time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), dto.CalendarQuery{})
	require.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, "2024-03-05", source.lastFilter.From.Format(dateLayout))
	assert.Equal(t, "2024-03-05", source.lastFilter.To.Format(dateLayout))
}

func TestCalendarServiceUsesCache(t *testing.T) {
	source := &stubCalendarSource{items: []models.CoverOccurrenceDetail{
		calendarOccurrence("a", "2024-03-05", "16:00", "17:00", "Chess", nil),
	}}
	cache := &mapCache{}
	svc := NewCalendarService(source, cache, nil, time.Minute, nil)
	query := dto.CalendarQuery{View: dto.CalendarViewMonth, Date: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)}

	first, err := svc.Events(context.Background(), query)
	require.NoError(t, err)
	second, err := svc.Events(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, first.From, second.From)
	assert.Len(t, second.Events, 1)

	query.SchoolID = "school-2"
	_, err = svc.Events(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestCalendarServiceDefaultsToCurrentWeek(t *testing.T) {
	source := &stubCalendarSource{}
	svc := NewCalendarService(source, nil, nil, time.Minute, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC) }

	resp, err := svc.Events(context.Background(), dto.CalendarQuery{})
	require.NoError(t, err)
	assert.Equal(t, dto.CalendarViewWeek, resp.View)
	assert.Equal(t, "2024-03-04", resp.From)
	assert.Empty(t, resp.Events)
	assert.Nil(t, resp.Days)
}
