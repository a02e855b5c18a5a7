package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/availability"
	"github.com/noah-isme/sma-timetable/internal/models"
)

func TestCurriculumRepositoryUpsertBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCurriculumRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (grade_id, subject_id) DO UPDATE")).
		WithArgs("g10", "math", 4, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO curricula")).
		WithArgs("g10", "art", 1, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows := []models.Curriculum{
		{GradeID: "g10", SubjectID: "math", PeriodsPerWeek: 4, ShouldBeDoubled: true},
		{GradeID: "g10", SubjectID: "art", PeriodsPerWeek: 1},
	}
	require.NoError(t, repo.UpsertBatch(context.Background(), nil, rows))
	assert.False(t, rows[0].UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurriculumRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCurriculumRepository(db)

	rows := sqlmock.NewRows([]string{"grade_id", "subject_id", "periods_per_week", "should_be_doubled", "updated_at"}).
		AddRow("g10", "math", 4, true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM curricula ORDER BY grade_id ASC, subject_id ASC")).WillReturnRows(rows)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.CurriculumKey{GradeID: "g10", SubjectID: "math"}, list[0].Key())
	assert.True(t, list[0].ShouldBeDoubled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionTemplateRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionTemplateRepository(db)

	var grid availability.Grid
	grid.Block(5, 4)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (session) DO UPDATE")).
		WithArgs("MORNING", grid.String(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), &models.SessionTemplate{Session: models.SessionMorning, Availability: grid}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
