package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

// fakeCoverDB is an in-memory stand-in for the cover tables.
type fakeCoverDB struct {
	rules         []models.CoverRule
	occurrences   []models.CoverOccurrence
	assignments   []models.TeacherCoverAssignment
	clubs         map[string]*models.Club
	teachers      map[string]*models.Teacher
	seq           int
	ruleUpdates   int
	invalidations []string
}

func newFakeCoverDB() *fakeCoverDB {
	return &fakeCoverDB{
		clubs: map[string]*models.Club{
			"club-1": {ID: "club-1", SchoolID: "school-1", ClubName: "Ballet", SchoolName: "Oakfield"},
			"club-2": {ID: "club-2", SchoolID: "school-2", ClubName: "Chess", SchoolName: "Riverside"},
		},
		teachers: map[string]*models.Teacher{
			"teacher-1": {ID: "teacher-1", FirstName: "Ada", LastName: "Lovelace"},
			"teacher-2": {ID: "teacher-2", FirstName: "Grace", LastName: "Hopper"},
			"blocked":   {ID: "blocked", FirstName: "Bo", LastName: "Locked", IsBlocked: true},
		},
	}
}

func (db *fakeCoverDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *fakeCoverDB) rule(id string) *models.CoverRule {
	for i := range db.rules {
		if db.rules[i].ID == id {
			return &db.rules[i]
		}
	}
	return nil
}

func (db *fakeCoverDB) occurrence(id string) *models.CoverOccurrence {
	for i := range db.occurrences {
		if db.occurrences[i].ID == id {
			return &db.occurrences[i]
		}
	}
	return nil
}

func (db *fakeCoverDB) detail(o models.CoverOccurrence) models.CoverOccurrenceDetail {
	r := db.rule(o.CoverRuleID)
	club := db.clubs[r.ClubID]
	return models.CoverOccurrenceDetail{
		CoverOccurrence: o,
		SchoolID:        r.SchoolID,
		SchoolName:      club.SchoolName,
		ClubID:          r.ClubID,
		ClubName:        club.ClubName,
		Frequency:       r.Frequency,
		DayOfWeek:       r.DayOfWeek,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
	}
}

func (db *fakeCoverDB) insertOccurrences(occs []models.CoverOccurrence, assigns []models.TeacherCoverAssignment) {
	for i := range occs {
		occs[i].ID = db.nextID("occ")
		db.occurrences = append(db.occurrences, occs[i])
	}
	for i := range assigns {
		if i < len(occs) {
			assigns[i].CoverOccurrenceID = occs[i].ID
		}
		assigns[i].ID = db.nextID("assign")
		db.assignments = append(db.assignments, assigns[i])
	}
}

type fakeRuleStore struct{ db *fakeCoverDB }

func (f fakeRuleStore) List(ctx context.Context, filter models.CoverRuleFilter) ([]models.CoverRuleDetail, int, error) {
	out := make([]models.CoverRuleDetail, 0, len(f.db.rules))
	for _, r := range f.db.rules {
		out = append(out, models.CoverRuleDetail{CoverRule: r})
	}
	return out, len(out), nil
}

func (f fakeRuleStore) FindByID(ctx context.Context, id string) (*models.CoverRule, error) {
	if r := f.db.rule(id); r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeRuleStore) FindDetail(ctx context.Context, id string) (*models.CoverRuleDetail, error) {
	r, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, _ := f.CountOccurrences(ctx, id)
	return &models.CoverRuleDetail{CoverRule: *r, OccurrenceCount: count}, nil
}

func (f fakeRuleStore) Update(ctx context.Context, rule *models.CoverRule) error {
	f.db.ruleUpdates++
	*f.db.rule(rule.ID) = *rule
	return nil
}

func (f fakeRuleStore) CountOccurrences(ctx context.Context, id string) (int, error) {
	count := 0
	for _, o := range f.db.occurrences {
		if o.CoverRuleID == id {
			count++
		}
	}
	return count, nil
}

type fakeOccurrenceStore struct{ db *fakeCoverDB }

func (f fakeOccurrenceStore) List(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, int, error) {
	items, err := f.ListAll(ctx, filter)
	return items, len(items), err
}

func (f fakeOccurrenceStore) ListAll(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, error) {
	var out []models.CoverOccurrenceDetail
	for _, o := range f.db.occurrences {
		if filter.RuleID != "" && o.CoverRuleID != filter.RuleID {
			continue
		}
		if filter.From != nil && o.MeetingDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && o.MeetingDate.After(*filter.To) {
			continue
		}
		if filter.TeacherID != "" && !f.hasTeacher(o.ID, filter.TeacherID) {
			continue
		}
		out = append(out, f.db.detail(o))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MeetingDate.Before(out[j].MeetingDate) })
	return out, nil
}

func (f fakeOccurrenceStore) hasTeacher(occurrenceID, teacherID string) bool {
	for _, a := range f.db.assignments {
		if a.CoverOccurrenceID == occurrenceID && a.TeacherID == teacherID {
			return true
		}
	}
	return false
}

func (f fakeOccurrenceStore) FindDetail(ctx context.Context, id string) (*models.CoverOccurrenceDetail, error) {
	if o := f.db.occurrence(id); o != nil {
		d := f.db.detail(*o)
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeOccurrenceStore) LatestMeetingDate(ctx context.Context, ruleID string) (*time.Time, error) {
	var latest *time.Time
	for _, o := range f.db.occurrences {
		if o.CoverRuleID != ruleID {
			continue
		}
		if latest == nil || o.MeetingDate.After(*latest) {
			d := o.MeetingDate
			latest = &d
		}
	}
	return latest, nil
}

func (f fakeOccurrenceStore) ListSlotsByDates(ctx context.Context, dates []time.Time) ([]models.OccurrenceSlot, error) {
	wanted := make(map[string]bool, len(dates))
	for _, d := range dates {
		wanted[d.Format(dateLayout)] = true
	}
	var out []models.OccurrenceSlot
	for _, a := range f.db.assignments {
		o := f.db.occurrence(a.CoverOccurrenceID)
		if o == nil || !wanted[o.MeetingDate.Format(dateLayout)] {
			continue
		}
		d := f.db.detail(*o)
		out = append(out, models.OccurrenceSlot{
			OccurrenceID:     o.ID,
			TeacherID:        a.TeacherID,
			AssignmentStatus: a.Status,
			MeetingDate:      o.MeetingDate,
			StartTime:        d.StartTime,
			EndTime:          d.EndTime,
			ClubName:         d.ClubName,
			SchoolName:       d.SchoolName,
		})
	}
	return out, nil
}

type fakeAssignmentStore struct{ db *fakeCoverDB }

func (f fakeAssignmentStore) ListByOccurrences(ctx context.Context, ids []string) ([]models.CoverAssignmentDetail, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.CoverAssignmentDetail
	for _, a := range f.db.assignments {
		if !wanted[a.CoverOccurrenceID] {
			continue
		}
		t := f.db.teachers[a.TeacherID]
		out = append(out, models.CoverAssignmentDetail{TeacherCoverAssignment: a, TeacherFirstName: t.FirstName, TeacherLastName: t.LastName})
	}
	return out, nil
}

func (f fakeAssignmentStore) FindByID(ctx context.Context, id string) (*models.TeacherCoverAssignment, error) {
	for _, a := range f.db.assignments {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeAssignmentStore) UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus) error {
	for i := range f.db.assignments {
		if f.db.assignments[i].ID == id {
			f.db.assignments[i].Status = status
		}
	}
	return nil
}

func (f fakeAssignmentStore) Delete(ctx context.Context, id string) error {
	kept := f.db.assignments[:0]
	for _, a := range f.db.assignments {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.db.assignments = kept
	return nil
}

type fakeSeriesStore struct{ db *fakeCoverDB }

func (f fakeSeriesStore) CreateSeries(ctx context.Context, series *models.CoverSeries) error {
	series.Rule.ID = f.db.nextID("rule")
	f.db.rules = append(f.db.rules, series.Rule)
	for i := range series.Occurrences {
		series.Occurrences[i].CoverRuleID = series.Rule.ID
	}
	f.db.insertOccurrences(series.Occurrences, series.Assignments)
	return nil
}

func (f fakeSeriesStore) AppendOccurrences(ctx context.Context, occs []models.CoverOccurrence, assigns []models.TeacherCoverAssignment) error {
	f.db.insertOccurrences(occs, assigns)
	return nil
}

func (f fakeSeriesStore) UpdateOccurrence(ctx context.Context, occ *models.CoverOccurrence, replace bool, assigns []models.TeacherCoverAssignment) error {
	*f.db.occurrence(occ.ID) = *occ
	if replace {
		return f.ReplaceAssignments(ctx, occ.ID, assigns)
	}
	return nil
}

func (f fakeSeriesStore) ReplaceAssignments(ctx context.Context, occurrenceID string, assigns []models.TeacherCoverAssignment) error {
	kept := f.db.assignments[:0]
	for _, a := range f.db.assignments {
		if a.CoverOccurrenceID != occurrenceID {
			kept = append(kept, a)
		}
	}
	f.db.assignments = kept
	for i := range assigns {
		assigns[i].ID = f.db.nextID("assign")
		assigns[i].CoverOccurrenceID = occurrenceID
		f.db.assignments = append(f.db.assignments, assigns[i])
	}
	return nil
}

func (f fakeSeriesStore) DeleteOccurrence(ctx context.Context, id string) error {
	if err := f.ReplaceAssignments(ctx, id, nil); err != nil {
		return err
	}
	kept := f.db.occurrences[:0]
	for _, o := range f.db.occurrences {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	f.db.occurrences = kept
	return nil
}

func (f fakeSeriesStore) DeleteRule(ctx context.Context, ruleID string, cascade bool) error {
	if cascade {
		var ids []string
		for _, o := range f.db.occurrences {
			if o.CoverRuleID == ruleID {
				ids = append(ids, o.ID)
			}
		}
		for _, id := range ids {
			if err := f.DeleteOccurrence(ctx, id); err != nil {
				return err
			}
		}
	}
	kept := f.db.rules[:0]
	for _, r := range f.db.rules {
		if r.ID != ruleID {
			kept = append(kept, r)
		}
	}
	f.db.rules = kept
	return nil
}

type fakeClubStore struct{ db *fakeCoverDB }

func (f fakeClubStore) FindByID(ctx context.Context, id string) (*models.Club, error) {
	if c, ok := f.db.clubs[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type fakeTeacherStore struct{ db *fakeCoverDB }

func (f fakeTeacherStore) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := f.db.teachers[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type recordingInvalidator struct{ db *fakeCoverDB }

func (r recordingInvalidator) Invalidate(ctx context.Context, pattern string) error {
	r.db.invalidations = append(r.db.invalidations, pattern)
	return nil
}

func newCoverServiceForTest(db *fakeCoverDB) *CoverService {
	svc := NewCoverService(CoverStores{
		Rules:       fakeRuleStore{db},
		Occurrences: fakeOccurrenceStore{db},
		Assignments: fakeAssignmentStore{db},
		Series:      fakeSeriesStore{db},
		Clubs:       fakeClubStore{db},
		Teachers:    fakeTeacherStore{db},
	}, recordingInvalidator{db}, nil, nil, 0)
	svc.now = func() time.Time { return time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC) }
	return svc
}

func timePtr(raw string) *models.TimeOfDay {
	t := models.MustTimeOfDay(raw)
	return &t
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func quickAdd(date, start, end string, teacherID *string) CreateCoverRequest {
	return CreateCoverRequest{
		SchoolID:    "school-1",
		ClubID:      "club-1",
		MeetingDate: date,
		StartTime:   timePtr(start),
		EndTime:     timePtr(end),
		TeacherID:   teacherID,
	}
}

func errorCode(err error) string {
	return appErrors.FromError(err).Code
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(dateLayout)
	}
	return out
}

func TestGenerateOccurrenceDates(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		frequency models.CoverFrequency
		count     int
		want      []string
	}{
		{"weekly", models.FrequencyWeekly, 4, []string{"2024-01-02", "2024-01-09", "2024-01-16", "2024-01-23"}},
		{"bi-weekly", models.FrequencyBiWeekly, 4, []string{"2024-01-02", "2024-01-16", "2024-01-30", "2024-02-13"}},
		{"monthly steps four weeks", models.FrequencyMonthly, 3, []string{"2024-01-02", "2024-01-30", "2024-02-27"}},
		{"single", models.FrequencyWeekly, 1, []string{"2024-01-02"}},
		{"none", models.FrequencyWeekly, 0, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dates := GenerateOccurrenceDates(start, tc.frequency, tc.count)
			assert.Equal(t, tc.want, formatDates(dates))
			for _, d := range dates {
				assert.Equal(t, time.Tuesday, d.Weekday())
			}
		})
	}
}

func TestNextWeekday(t *testing.T) {
	wed := time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-06", nextWeekday(wed, int(time.Wednesday)).Format(dateLayout))
	assert.Equal(t, "2024-03-12", nextWeekday(wed, int(time.Tuesday)).Format(dateLayout))
	assert.Equal(t, "2024-03-10", nextWeekday(wed, int(time.Sunday)).Format(dateLayout))
}

func TestFindTeacherConflictHalfOpenWindows(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	existing := []models.OccurrenceSlot{{
		OccurrenceID:     "occ-1",
		TeacherID:        "teacher-1",
		AssignmentStatus: models.AssignmentConfirmed,
		MeetingDate:      date,
		StartTime:        models.MustTimeOfDay("15:00"),
		EndTime:          models.MustTimeOfDay("16:00"),
		ClubName:         "Ballet",
	}}
	candidate := func(start, end string) ConflictCandidate {
		return ConflictCandidate{TeacherID: "teacher-1", Date: date, Window: models.Window{Start: models.MustTimeOfDay(start), End: models.MustTimeOfDay(end)}}
	}

	conflict := FindTeacherConflict(candidate("15:30", "16:30"), existing)
	require.NotNil(t, conflict)
	assert.Equal(t, "occ-1", conflict.OccurrenceID)
	assert.Contains(t, conflict.Message(), "Ballet")

	assert.Nil(t, FindTeacherConflict(candidate("16:00", "17:00"), existing))
	assert.Nil(t, FindTeacherConflict(candidate("14:00", "15:00"), existing))

	self := candidate("15:00", "16:00")
	self.ExcludeOccurrenceID = "occ-1"
	assert.Nil(t, FindTeacherConflict(self, existing))

	other := candidate("15:00", "16:00")
	other.TeacherID = "teacher-2"
	assert.Nil(t, FindTeacherConflict(other, existing))

	existing[0].AssignmentStatus = models.AssignmentDeclined
	assert.Nil(t, FindTeacherConflict(candidate("15:00", "16:00"), existing))
}

func TestCoverServiceCreateSeriesDefaults(t *testing.T) {
	db := newFakeCoverDB()
	svc := newCoverServiceForTest(db)

	series, err := svc.CreateSeries(context.Background(), quickAdd("2024-01-02", "15:00", "16:00", strPtr("teacher-1")))
	require.NoError(t, err)

	assert.Equal(t, models.FrequencyWeekly, series.Rule.Frequency)
	assert.Equal(t, int(time.Tuesday), series.Rule.DayOfWeek)
	require.Len(t, series.Occurrences, DefaultOccurrenceCount)
	require.Len(t, series.Assignments, DefaultOccurrenceCount)
	for i, occ := range series.Occurrences {
		assert.Equal(t, series.Rule.ID, occ.CoverRuleID)
		assert.Equal(t, models.OccurrenceNotStarted, occ.Status)
		assert.Equal(t, models.PriorityMedium, occ.Priority)
		assert.Equal(t, occ.ID, series.Assignments[i].CoverOccurrenceID)
		assert.Equal(t, models.AssignmentConfirmed, series.Assignments[i].Status)
	}
	require.NotNil(t, series.Occurrences[0].Notes)
	assert.Equal(t, FirstOccurrenceNote, *series.Occurrences[0].Notes)
	assert.Nil(t, series.Occurrences[1].Notes)
	assert.Equal(t, []string{CalendarCachePattern}, db.invalidations)
}

func TestCoverServiceCreateSeriesCountAndFrequency(t *testing.T) {
	db := newFakeCoverDB()
	svc := newCoverServiceForTest(db)

	req := quickAdd("2024-01-02", "15:00", "16:00", nil)
	req.Frequency = models.FrequencyBiWeekly
	req.Occurrences = intPtr(6)
	req.Notes = strPtr("  bring mats ")

	series, err := svc.CreateSeries(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, series.Occurrences, 6)
	assert.Empty(t, series.Assignments)
	assert.Equal(t, "2024-03-12", series.Occurrences[5].MeetingDate.Format(dateLayout))
	for _, occ := range series.Occurrences {
		require.NotNil(t, occ.Notes)
		assert.Equal(t, "bring mats", *occ.Notes)
	}
}

func TestCoverServiceCreateSeriesValidation(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*CreateCoverRequest)
		code string
	}{
		{"end before start", func(r *CreateCoverRequest) { r.EndTime = timePtr("14:00") }, appErrors.ErrValidation.Code},
		{"equal times", func(r *CreateCoverRequest) { r.EndTime = timePtr("15:00") }, appErrors.ErrValidation.Code},
		{"club of another school", func(r *CreateCoverRequest) { r.ClubID = "club-2" }, appErrors.ErrValidation.Code},
		{"unknown club", func(r *CreateCoverRequest) { r.ClubID = "missing" }, appErrors.ErrValidation.Code},
		{"bad date", func(r *CreateCoverRequest) { r.MeetingDate = "02/01/2024" }, appErrors.ErrValidation.Code},
		{"zero occurrences", func(r *CreateCoverRequest) { r.Occurrences = intPtr(0) }, appErrors.ErrValidation.Code},
		{"unknown frequency", func(r *CreateCoverRequest) { r.Frequency = "daily" }, appErrors.ErrValidation.Code},
		{"blocked teacher", func(r *CreateCoverRequest) { r.TeacherID = strPtr("blocked") }, appErrors.ErrTeacherBlocked.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newFakeCoverDB()
			svc := newCoverServiceForTest(db)
			req := quickAdd("2024-01-02", "15:00", "16:00", nil)
			tc.mut(&req)

			_, err := svc.CreateSeries(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tc.code, errorCode(err))
			assert.Empty(t, db.rules)
			assert.Empty(t, db.invalidations)
		})
	}
}

func TestCoverServiceCreateSeriesRejectsDoubleBooking(t *testing.T) {
	db := newFakeCoverDB()
	svc := newCoverServiceForTest(db)
	ctx := context.Background()

	single := quickAdd("2024-01-16", "15:00", "16:00", strPtr("teacher-1"))
	single.Occurrences = intPtr(1)
	_, err := svc.CreateSeries(ctx, single)
	require.NoError(t, err)

	_, err = svc.CreateSeries(ctx, quickAdd("2024-01-02", "15:30", "16:30", strPtr("teacher-1")))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTeacherConflict.Code, appErr.Code)
	conflict, ok := appErr.Details.(*TeacherConflict)
	require.True(t, ok)
	assert.Equal(t, "2024-01-16", conflict.Date)
	assert.Equal(t, "Ballet", conflict.ClubName)
	assert.Len(t, db.rules, 1)

	_, err = svc.CreateSeries(ctx, quickAdd("2024-01-02", "16:00", "17:00", strPtr("teacher-1")))
	require.NoError(t, err)

	_, err = svc.CreateSeries(ctx, quickAdd("2024-01-02", "15:30", "16:30", strPtr("teacher-2")))
	require.NoError(t, err)
}

func TestCoverServiceSingleEditLeavesRuleAndSiblings(t *testing.T) {
	db := newFakeCoverDB()
	svc := newCoverServiceForTest(db)
	ctx := context.Background()

	series, err := svc.CreateSeries(ctx, quickAdd("2024-01-02", "15:00", "16:00", strPtr("teacher-1")))
	require.NoError(t, err)
	target := series.Occurrences[1]
	ruleBefore := *db.rule(series.Rule.ID)

	updated, err := svc.UpdateOccurrence(ctx, target.ID, UpdateOccurrenceRequest{
		UpdateType:  UpdateSingle,
		SchoolID:    "school-1",
		ClubID:      "club-1",
		StartTime:   timePtr("18:00"),
		EndTime:     timePtr("19:00"),
		MeetingDate: "2024-01-10",
		Notes:       strPtr("moved for assembly"),
		Status:      models.OccurrenceInProgress,
		Priority:    models.PriorityHigh,
		TeacherID:   strPtr("teacher-1"),
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-01-10", updated.MeetingDate.Format(dateLayout))
	assert.Equal(t, models.OccurrenceInProgress, updated.Status)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Equal(t, series.Rule.ID, updated.CoverRuleID)
	require.Len(t, updated.Assignments, 1)
	assert.Equal(t, "teacher-1", updated.Assignments[0].TeacherID)

	assert.Equal(t, 0, db.ruleUpdates)
	assert.Equal(t, ruleBefore, *db.rule(series.Rule.ID))
	assert.Equal(t, "15:00", updated.StartTime.String())
	for _, sibling := range series.Occurrences {
		if sibling.ID == target.ID {
			continue
		}
		assert.Equal(t, sibling.MeetingDate, db.occurrence(sibling.ID).MeetingDate)
	}
}

func TestCoverServiceSingleEditSwapsTeacher(t *testing.T) {
	db := newFakeCoverDB()
	svc := newCoverServiceForTest(db)
	ctx := context.Background()

	req := quickAdd("2024-01-02", "15:00", "16:00", strPtr("teacher-1"))
	req.Occurrences = intPtr(1)
	series, err := svc.CreateSeries(ctx, req)
	require.NoError(t, err)
	occID := series.Occurrences[0].ID

	edit := UpdateOccurrenceRequest{UpdateType: UpdateSingle, MeetingDate: "2024-01-02", TeacherID: strPtr("blocked")}
	_, err = svc.UpdateOccurrence(ctx, occID, edit)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTeacherBlocked.Code, errorCode(err))

	edit.TeacherID = strPtr("teacher-2")
	updated, err := svc.UpdateOccurrence(ctx, occID, edit)
	require.NoError(t, err)
	require.Len(t, updated.Assignments, 1)
	assert.Equal(t, "teacher-2", updated.Assignments[0].TeacherID)
	assert.Equal(t, models.AssignmentConfirmed, updated.Assignments[0].Status)

	edit.TeacherID = nil
	updated, err = svc.UpdateOccurrence(ctx, occID, edit)
	require.NoError(t, err)
	assert.Empty(t, updated.Assignments)
}

func TestCoverServiceSeriesEditKeepsMeetingDates(t *testing.T) {
	db := newFakeCoverDB()
	svc := newCoverServiceForTest(db)
	ctx := context.Background()

	series, err := svc.CreateSeries(ctx, quickAdd("2024-01-02", "15:00", "16:00", strPtr("teacher-1")))
	require.NoError(t, err)
	target := series.Occurrences[2]

	updated, err := svc.UpdateOccurrence(ctx, target.ID, UpdateOccurrenceRequest{
		UpdateType:  UpdateSeries,
		SchoolID:    "school-1",
		ClubID:      "club-1",
		StartTime:   timePtr("17:00"),
		EndTime:     timePtr("18:00"),
		MeetingDate: "2024-02-20",
		Status:      models.OccurrenceCompleted,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, db.ruleUpdates)
	assert.Equal(t, "17:00", db.rule(series.Rule.ID).StartTime.String())
	assert.Equal(t, "18:00", updated.EndTime.String())
	assert.Equal(t, target.MeetingDate, updated.MeetingDate)
	assert.Equal(t, models.OccurrenceNotStarted, updated.Status)
	for _, occ := range series.Occurrences {
		assert.Equal(t, occ.MeetingDate, db.occurrence(occ.ID).MeetingDate)
	}
}

func TestCoverServiceSeriesEditChecksAssignedTeachers(t *testing.T) {
	db := newFakeCoverDB()
	svc := newCoverServiceForTest(db)
	ctx := context.Background()

	series, err := svc.CreateSeries(ctx, quickAdd("2024-01-02", "15:00", "16:00", strPtr("teacher-1")))
	require.NoError(t, err)

	other := quickAdd("2024-01-09", "17:00", "18:00", strPtr("teacher-1"))
	other.Occurrences = intPtr(1)
	_, err = svc.CreateSeries(ctx, other)
	require.NoError(t, err)

	_, err = svc.UpdateOccurrence(ctx, series.Occurrences[0].ID, UpdateOccurrenceRequest{
		UpdateType: UpdateSeries,
		SchoolID:   "school-1",
		ClubID:     "club-1",
		StartTime:  timePtr("17:30"),
		EndTime:    timePtr("18:30"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTeacherConflict.Code, errorCode(err))
	assert.Equal(t, 0, db.ruleUpdates)

	_, err = svc.UpdateOccurrence(ctx, series.Occurrences[0].ID, UpdateOccurrenceRequest{
		UpdateType: UpdateSeries,
		SchoolID:   "school-1",
		ClubID:     "club-1",
		StartTime:  timePtr("15:30"),
		EndTime:    timePtr("16:30"),
	})
	require.NoError(t, err)
}

func TestCoverServiceMoveChecksNewDate(t *testing.T) {
	db := newFakeCoverDB()
	svc := newCoverServiceForTest(db)
	ctx := context.Background()

	first := quickAdd("2024-01-02", "15:00", "16:00", strPtr("teacher-1"))
	first.Occurrences = intPtr(1)
	busy, err := svc.CreateSeries(ctx, first)
	require.NoError(t, err)

	second := quickAdd("2024-01-03", "15:30", "16:30", strPtr("teacher-1"))
	second.Occurrences = intPtr(1)
	moving, err := svc.CreateSeries(ctx, second)
	require.NoError(t, err)

	_, err = svc.Move(ctx, moving.Occurrences[0].ID, MoveOccurrenceRequest{MeetingDate: "2024-01-02"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTeacherConflict.Code, errorCode(err))

	moved, err := svc.Move(ctx, moving.Occurrences[0].ID, MoveOccurrenceRequest{MeetingDate: "2024-01-04"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-04", moved.MeetingDate.Format(dateLayout))
	assert.Equal(t, "15:30", moved.StartTime.String())

	moved, err = svc.Move(ctx, busy.Occurrences[0].ID, MoveOccurrenceRequest{MeetingDate: "2024-01-02"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", moved.MeetingDate.Format(dateLayout))
}

func TestCoverServiceAssignmentLifecycle(t *testing.T) {
	db := newFakeCoverDB()
	svc := newCoverServiceForTest(db)
	ctx := context.Background()

	booked := quickAdd("2024-01-02", "15:00", "16:00", strPtr("teacher-2"))
	booked.Occurrences = intPtr(1)
	_, err := svc.CreateSeries(ctx, booked)
	require.NoError(t, err)

	open := quickAdd("2024-01-02", "15:30", "16:30", nil)
	open.Occurrences = intPtr(1)
	series, err := svc.CreateSeries(ctx, open)
	require.NoError(t, err)
	occID := series.Occurrences[0].ID

	_, err = svc.AssignTeacher(ctx, occID, AssignTeacherRequest{TeacherID: "teacher-2"})
	assert.Equal(t, appErrors.ErrTeacherConflict.Code, errorCode(err))

	detail, err := svc.AssignTeacher(ctx, occID, AssignTeacherRequest{TeacherID: "teacher-2", Status: models.AssignmentDeclined})
	require.NoError(t, err)
	require.Len(t, detail.Assignments, 1)
	assignmentID := detail.Assignments[0].ID

	_, err = svc.UpdateAssignmentStatus(ctx, assignmentID, AssignmentStatusRequest{Status: models.AssignmentAccepted})
	assert.Equal(t, appErrors.ErrTeacherConflict.Code, errorCode(err))

	detail, err = svc.AssignTeacher(ctx, occID, AssignTeacherRequest{TeacherID: "teacher-1", Status: models.AssignmentInvited})
	require.NoError(t, err)
	assignmentID = detail.Assignments[0].ID

	updated, err := svc.UpdateAssignmentStatus(ctx, assignmentID, AssignmentStatusRequest{Status: models.AssignmentAccepted})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentAccepted, updated.Status)

	require.NoError(t, svc.RemoveAssignment(ctx, assignmentID))
	detail, err = svc.Get(ctx, occID)
	require.NoError(t, err)
	assert.Empty(t, detail.Assignments)

	err = svc.RemoveAssignment(ctx, assignmentID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestCoverServiceSetStateAndDelete(t *testing.T) {
	db := newFakeCoverDB()
	svc := newCoverServiceForTest(db)
	ctx := context.Background()

	series, err := svc.CreateSeries(ctx, quickAdd("2024-01-02", "15:00", "16:00", strPtr("teacher-1")))
	require.NoError(t, err)
	occID := series.Occurrences[0].ID

	_, err = svc.SetState(ctx, occID, OccurrenceStateRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	high := models.PriorityHigh
	detail, err := svc.SetState(ctx, occID, OccurrenceStateRequest{Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, detail.Priority)
	assert.Equal(t, models.OccurrenceNotStarted, detail.Status)

	require.NoError(t, svc.DeleteOccurrence(ctx, occID))
	_, err = svc.Get(ctx, occID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
	assert.Len(t, db.occurrences, 3)
	assert.Len(t, db.assignments, 3)
}

func TestCoverRuleServiceDeleteRequiresCascade(t *testing.T) {
	db := newFakeCoverDB()
	covers := newCoverServiceForTest(db)
	rules := NewCoverRuleService(covers)
	ctx := context.Background()

	series, err := covers.CreateSeries(ctx, quickAdd("2024-01-02", "15:00", "16:00", strPtr("teacher-1")))
	require.NoError(t, err)

	err = rules.Delete(ctx, series.Rule.ID, false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))
	assert.Len(t, db.occurrences, 4)

	require.NoError(t, rules.Delete(ctx, series.Rule.ID, true))
	assert.Empty(t, db.rules)
	assert.Empty(t, db.occurrences)
	assert.Empty(t, db.assignments)

	err = rules.Delete(ctx, series.Rule.ID, true)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestCoverRuleServiceExtendContinuesCadence(t *testing.T) {
	db := newFakeCoverDB()
	covers := newCoverServiceForTest(db)
	rules := NewCoverRuleService(covers)
	ctx := context.Background()

	req := quickAdd("2024-01-02", "15:00", "16:00", nil)
	req.Frequency = models.FrequencyBiWeekly
	series, err := covers.CreateSeries(ctx, req)
	require.NoError(t, err)

	added, err := rules.Extend(ctx, series.Rule.ID, ExtendRuleRequest{Occurrences: 2, TeacherID: strPtr("teacher-1")})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, []string{"2024-02-27", "2024-03-12"}, formatDates([]time.Time{added[0].MeetingDate, added[1].MeetingDate}))
	for _, occ := range added {
		assert.Equal(t, series.Rule.ID, occ.CoverRuleID)
	}
	assert.Len(t, db.assignments, 2)

	detail, err := rules.Get(ctx, series.Rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, detail.OccurrenceCount)
}

func TestCoverRuleServiceExtendFollowsEditedWeekday(t *testing.T) {
	db := newFakeCoverDB()
	covers := newCoverServiceForTest(db)
	rules := NewCoverRuleService(covers)
	ctx := context.Background()

	series, err := covers.CreateSeries(ctx, quickAdd("2024-01-02", "15:00", "16:00", nil))
	require.NoError(t, err)

	_, err = covers.UpdateOccurrence(ctx, series.Occurrences[0].ID, UpdateOccurrenceRequest{
		UpdateType: UpdateSeries,
		SchoolID:   "school-1",
		ClubID:     "club-1",
		StartTime:  timePtr("15:00"),
		EndTime:    timePtr("16:00"),
		DayOfWeek:  intPtr(int(time.Thursday)),
	})
	require.NoError(t, err)
	assert.Equal(t, int(time.Thursday), db.rule(series.Rule.ID).DayOfWeek)

	added, err := rules.Extend(ctx, series.Rule.ID, ExtendRuleRequest{Occurrences: 2})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, []string{"2024-02-01", "2024-02-08"}, formatDates([]time.Time{added[0].MeetingDate, added[1].MeetingDate}))
	for _, occ := range added {
		assert.Equal(t, time.Thursday, occ.MeetingDate.Weekday())
	}
	assert.Equal(t, "2024-01-02", series.Occurrences[0].MeetingDate.Format("2006-01-02"))
	assert.Equal(t, time.Tuesday, db.occurrence(series.Occurrences[0].ID).MeetingDate.Weekday())
}

func TestCoverRuleServiceExtendEmptyRuleStartsFromToday(t *testing.T) {
	db := newFakeCoverDB()
	covers := newCoverServiceForTest(db)
	rules := NewCoverRuleService(covers)
	ctx := context.Background()

	db.rules = append(db.rules, models.CoverRule{
		ID:        "rule-empty",
		SchoolID:  "school-1",
		ClubID:    "club-1",
		Frequency: models.FrequencyWeekly,
		DayOfWeek: int(time.Friday),
		StartTime: models.MustTimeOfDay("15:00"),
		EndTime:   models.MustTimeOfDay("16:00"),
		Status:    models.StatusActive,
	})

	added, err := rules.Extend(ctx, "rule-empty", ExtendRuleRequest{Occurrences: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-08", "2024-03-15"}, formatDates([]time.Time{added[0].MeetingDate, added[1].MeetingDate}))
}

func TestCoverRuleServiceUpdateValidatesWindow(t *testing.T) {
	db := newFakeCoverDB()
	covers := newCoverServiceForTest(db)
	rules := NewCoverRuleService(covers)
	ctx := context.Background()

	series, err := covers.CreateSeries(ctx, quickAdd("2024-01-02", "15:00", "16:00", nil))
	require.NoError(t, err)

	_, err = rules.Update(ctx, series.Rule.ID, UpdateRuleRequest{RulePattern: RulePattern{
		SchoolID: "school-1", ClubID: "club-1", StartTime: timePtr("16:00"), EndTime: timePtr("15:00"),
	}})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	detail, err := rules.Update(ctx, series.Rule.ID, UpdateRuleRequest{
		RulePattern: RulePattern{SchoolID: "school-1", ClubID: "club-1", StartTime: timePtr("9:00"), EndTime: timePtr("10:00"), DayOfWeek: intPtr(3)},
		Status:      models.StatusInactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00", detail.StartTime.String())
	assert.Equal(t, 3, detail.DayOfWeek)
	assert.Equal(t, models.StatusInactive, detail.Status)

	_, err = rules.Extend(ctx, series.Rule.ID, ExtendRuleRequest{Occurrences: 1})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))
}
