package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clubconnect-api/internal/models"
)

func TestSchoolRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_name, status, created_at, updated_at FROM schools WHERE 1=1 AND status = $1 AND LOWER(school_name) LIKE $2 ORDER BY school_name ASC LIMIT 10 OFFSET 10")).
		WithArgs("active", "%oak%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_name", "status", "created_at", "updated_at"}).
			AddRow("s1", "Oakfield Primary", "active", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schools WHERE 1=1 AND status = $1 AND LOWER(school_name) LIKE $2")).
		WithArgs("active", "%oak%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	schools, total, err := repo.List(context.Background(), models.SchoolFilter{Status: models.StatusActive, Search: "Oak", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "Oakfield Primary", schools[0].SchoolName)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY school_name DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schools WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.SchoolFilter{SortBy: "1; DROP TABLE schools", SortOrder: "desc"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClubRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClubRepository(db)

	mock.ExpectExec("INSERT INTO clubs").
		WithArgs(sqlmock.AnyArg(), "s1", "Ballet", "BAL-1", "active", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	club := &models.Club{SchoolID: "s1", ClubName: "Ballet", ClubCode: "BAL-1", Status: models.StatusActive}
	require.NoError(t, repo.Create(context.Background(), club))
	assert.NotEmpty(t, club.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateWritesBothRowsInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO person_details").
		WithArgs(sqlmock.AnyArg(), "Ada", "Lovelace", "ada@club.test", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO teachers").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), `{"ballet","tap"}`, "{}", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	teacher := &models.Teacher{FirstName: "Ada", LastName: "Lovelace", Email: "ada@club.test", PrimaryStyles: pq.StringArray{"ballet", "tap"}}
	require.NoError(t, repo.Create(context.Background(), teacher))
	assert.NotEmpty(t, teacher.PersonDetailsID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateRollsBackOnTeacherFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO person_details").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO teachers").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Teacher{FirstName: "A", LastName: "B", Email: "a@b.test"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListByStyleAndIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	cols := []string{"id", "person_details_id", "first_name", "last_name", "email", "phone", "primary_styles", "secondary_styles", "is_blocked", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND t.is_blocked = $1 AND ($2 = ANY(t.primary_styles) OR $2 = ANY(t.secondary_styles)) AND t.id = ANY($3) ORDER BY p.last_name ASC")).
		WithArgs(false, "tap", "{\"t1\",\"t2\"}").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("t1", "p1", "Ada", "Lovelace", "ada@club.test", nil, "{tap}", "{}", false, now, now))

	blocked := false
	teachers, err := repo.ListAll(context.Background(), models.TeacherFilter{Blocked: &blocked, Style: "tap", IDs: []string{"t1", "t2"}})
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, pq.StringArray{"tap"}, teachers[0].PrimaryStyles)
	assert.Equal(t, "Ada Lovelace", teachers[0].FullName())
	assert.NoError(t, mock.ExpectationsWereMet())
}
