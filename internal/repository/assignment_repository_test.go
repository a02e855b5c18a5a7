package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/models"
)

func TestAssignmentRepositoryListWithinTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "subject_id", "class_id", "created_at"}).
		AddRow("a-1", "t-1", "math", "c-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, teacher_id, subject_id, class_id, created_at FROM assignments ORDER BY id ASC")).
		WillReturnRows(rows)
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	list, err := repo.List(context.Background(), tx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Len(t, list, 1)
	assert.Equal(t, "math", list[0].SubjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateGeneratesID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignments")).
		WithArgs(sqlmock.AnyArg(), "t-1", "math", "c-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assignment := &models.Assignment{TeacherID: "t-1", SubjectID: "math", ClassID: "c-1"}
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.False(t, assignment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id = $1")).
		WithArgs("a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id = $1")).
		WithArgs("a-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "a-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "a-404"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
