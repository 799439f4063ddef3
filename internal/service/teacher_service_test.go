package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

type mockTeacherRepo struct {
	items       map[string]*models.Teacher
	assignments map[string]int
	listResult  []models.Teacher
	listTotal   int
	listErr     error
	deleted     []string
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listResult, m.listTotal, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for id, t := range m.items {
		if strings.EqualFold(t.Email, email) && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	if teacher.ID == "" {
		teacher.ID = "generated"
	}
	now := time.Now()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) SetBlocked(ctx context.Context, id string, blocked bool) error {
	m.items[id].IsBlocked = blocked
	return nil
}

func (m *mockTeacherRepo) CountAssignments(ctx context.Context, id string) (int, error) {
	return m.assignments[id], nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, teacher *models.Teacher) error {
	m.deleted = append(m.deleted, teacher.ID)
	delete(m.items, teacher.ID)
	return nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(ctx context.Context, pattern string) error {
	c.calls++
	return nil
}

func seededTeacherRepo() *mockTeacherRepo {
	return &mockTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", PersonDetailsID: "p1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@club.test"},
		"t2": {ID: "t2", PersonDetailsID: "p2", FirstName: "Grace", LastName: "Hopper", Email: "grace@club.test"},
	}}
}

func TestTeacherServiceCreate(t *testing.T) {
	repo := &mockTeacherRepo{}
	service := NewTeacherService(repo, nil, validator.New(), zap.NewNop())

	teacher, err := service.Create(context.Background(), TeacherRequest{
		FirstName:     " Ada ",
		LastName:      "Lovelace",
		Email:         "Ada@Club.test",
		Phone:         strPtr("  "),
		PrimaryStyles: []string{"ballet", "tap", "ballet"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", teacher.FirstName)
	assert.Equal(t, "ada@club.test", teacher.Email)
	assert.Nil(t, teacher.Phone)
	assert.Equal(t, []string{"ballet", "tap"}, []string(teacher.PrimaryStyles))
	assert.Empty(t, teacher.SecondaryStyles)
	assert.False(t, teacher.IsBlocked)
	assert.Len(t, repo.items, 1)
}

func TestTeacherServiceCreateValidation(t *testing.T) {
	service := NewTeacherService(&mockTeacherRepo{}, nil, nil, nil)

	_, err := service.Create(context.Background(), TeacherRequest{FirstName: "Ada", LastName: "Lovelace", Email: "not-an-email"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}

func TestTeacherServiceCreateDuplicateEmail(t *testing.T) {
	service := NewTeacherService(seededTeacherRepo(), nil, nil, nil)

	_, err := service.Create(context.Background(), TeacherRequest{FirstName: "Ada", LastName: "Again", Email: "ada@club.test"})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))
}

func TestTeacherServiceUpdateInvalidatesCalendar(t *testing.T) {
	repo := seededTeacherRepo()
	cache := &countingInvalidator{}
	service := NewTeacherService(repo, cache, nil, nil)

	updated, err := service.Update(context.Background(), "t1", TeacherRequest{
		FirstName: "Augusta",
		LastName:  "Lovelace",
		Email:     "ada@club.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", updated.FirstName)
	assert.Equal(t, "p1", updated.PersonDetailsID)
	assert.Equal(t, 1, cache.calls)

	_, err = service.Update(context.Background(), "t1", TeacherRequest{FirstName: "Ada", LastName: "Lovelace", Email: "grace@club.test"})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))

	_, err = service.Update(context.Background(), "missing", TeacherRequest{FirstName: "Ada", LastName: "Lovelace", Email: "x@club.test"})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestTeacherServiceSetBlocked(t *testing.T) {
	repo := seededTeacherRepo()
	service := NewTeacherService(repo, nil, nil, nil)

	teacher, err := service.SetBlocked(context.Background(), "t1", true)
	require.NoError(t, err)
	assert.True(t, teacher.IsBlocked)
	assert.True(t, repo.items["t1"].IsBlocked)

	teacher, err = service.SetBlocked(context.Background(), "t1", false)
	require.NoError(t, err)
	assert.False(t, teacher.IsBlocked)
}

func TestTeacherServiceDelete(t *testing.T) {
	repo := seededTeacherRepo()
	repo.assignments = map[string]int{"t2": 3}
	service := NewTeacherService(repo, nil, nil, nil)

	require.NoError(t, service.Delete(context.Background(), "t1"))
	assert.Equal(t, []string{"t1"}, repo.deleted)

	err := service.Delete(context.Background(), "t2")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, map[string]int{"assignments": 3}, appErr.Details)
}

func TestTeacherServiceListRejectsUnknownSort(t *testing.T) {
	repo := &mockTeacherRepo{listResult: []models.Teacher{{ID: "t1"}}, listTotal: 41}
	service := NewTeacherService(repo, nil, nil, nil)

	teachers, pagination, err := service.List(context.Background(), models.TeacherFilter{Page: 2, PageSize: 20, SortBy: "email"})
	require.NoError(t, err)
	assert.Len(t, teachers, 1)
	assert.Equal(t, 41, pagination.TotalCount)
	assert.Equal(t, 2, pagination.Page)

	_, _, err = service.List(context.Background(), models.TeacherFilter{SortBy: "phone"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}
