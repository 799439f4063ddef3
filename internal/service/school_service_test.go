package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

type memorySchools struct {
	items map[string]*models.School
	clubs map[string]int
}

func (m *memorySchools) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	var out []models.School
	for _, s := range m.items {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *memorySchools) FindByID(ctx context.Context, id string) (*models.School, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *memorySchools) Create(ctx context.Context, school *models.School) error {
	school.ID = fmt.Sprintf("s%d", len(m.items)+1)
	cp := *school
	m.items[school.ID] = &cp
	return nil
}

func (m *memorySchools) Update(ctx context.Context, school *models.School) error {
	cp := *school
	m.items[school.ID] = &cp
	return nil
}

func (m *memorySchools) CountClubs(ctx context.Context, id string) (int, error) {
	return m.clubs[id], nil
}

func (m *memorySchools) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type memoryClubs struct {
	items map[string]*models.Club
	rules map[string]int
}

func (m *memoryClubs) List(ctx context.Context, filter models.ClubFilter) ([]models.Club, int, error) {
	return nil, 0, nil
}

func (m *memoryClubs) FindByID(ctx context.Context, id string) (*models.Club, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *memoryClubs) Create(ctx context.Context, club *models.Club) error {
	club.ID = fmt.Sprintf("c%d", len(m.items)+1)
	cp := *club
	m.items[club.ID] = &cp
	return nil
}

func (m *memoryClubs) Update(ctx context.Context, club *models.Club) error {
	cp := *club
	m.items[club.ID] = &cp
	return nil
}

func (m *memoryClubs) ExistsByCode(ctx context.Context, schoolID, code, excludeID string) (bool, error) {
	for id, c := range m.items {
		if c.SchoolID == schoolID && strings.EqualFold(c.ClubCode, code) && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryClubs) CountRules(ctx context.Context, id string) (int, error) {
	return m.rules[id], nil
}

func (m *memoryClubs) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func TestSchoolServiceLifecycle(t *testing.T) {
	repo := &memorySchools{items: map[string]*models.School{}, clubs: map[string]int{}}
	cache := &countingInvalidator{}
	svc := NewSchoolService(repo, cache, nil, nil)

	school, err := svc.Create(context.Background(), SchoolRequest{SchoolName: "  Oakfield Primary "})
	require.NoError(t, err)
	assert.Equal(t, "Oakfield Primary", school.SchoolName)
	assert.Equal(t, models.StatusActive, school.Status)

	updated, err := svc.Update(context.Background(), school.ID, SchoolRequest{SchoolName: "Oakfield", Status: models.StatusInactive})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, updated.Status)
	assert.Equal(t, 1, cache.calls)

	repo.clubs[school.ID] = 2
	err = svc.Delete(context.Background(), school.ID)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))

	repo.clubs[school.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), school.ID))
	_, err = svc.Get(context.Background(), school.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestSchoolServiceValidation(t *testing.T) {
	svc := NewSchoolService(&memorySchools{items: map[string]*models.School{}}, nil, nil, nil)

	_, err := svc.Create(context.Background(), SchoolRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = svc.Create(context.Background(), SchoolRequest{SchoolName: "Oakfield", Status: "archived"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}

func TestClubServiceCreateChecksSchoolAndCode(t *testing.T) {
	schools := &memorySchools{items: map[string]*models.School{"s1": {ID: "s1", SchoolName: "Oakfield"}}}
	clubs := &memoryClubs{items: map[string]*models.Club{
		"c1": {ID: "c1", SchoolID: "s1", ClubName: "Ballet", ClubCode: "BAL"},
	}}
	svc := NewClubService(clubs, schools, nil, nil, nil)

	club, err := svc.Create(context.Background(), ClubRequest{SchoolID: "s1", ClubName: "Tap", ClubCode: "TAP"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, club.Status)

	_, err = svc.Create(context.Background(), ClubRequest{SchoolID: "s1", ClubName: "Ballet II", ClubCode: "bal"})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))

	_, err = svc.Create(context.Background(), ClubRequest{SchoolID: "nope", ClubName: "Tap", ClubCode: "TAP"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}

func TestClubServiceUpdateAndDelete(t *testing.T) {
	schools := &memorySchools{items: map[string]*models.School{"s1": {ID: "s1"}}}
	clubs := &memoryClubs{
		items: map[string]*models.Club{"c1": {ID: "c1", SchoolID: "s1", ClubName: "Ballet", ClubCode: "BAL", Status: models.StatusActive}},
		rules: map[string]int{"c1": 1},
	}
	cache := &countingInvalidator{}
	svc := NewClubService(clubs, schools, cache, nil, nil)

	updated, err := svc.Update(context.Background(), "c1", ClubRequest{SchoolID: "s1", ClubName: "Ballet Juniors", ClubCode: "BAL"})
	require.NoError(t, err)
	assert.Equal(t, "Ballet Juniors", updated.ClubName)
	assert.Equal(t, models.StatusActive, updated.Status)
	assert.Equal(t, 1, cache.calls)

	err = svc.Delete(context.Background(), "c1")
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))

	clubs.rules["c1"] = 0
	require.NoError(t, svc.Delete(context.Background(), "c1"))
}
