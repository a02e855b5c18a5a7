package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/solver"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func persisterAssignments() *fakeAssignments {
	return &fakeAssignments{items: []models.Assignment{
		{ID: "a-1", TeacherID: "t-1", SubjectID: "math", ClassID: "c-1"},
		{ID: "a-2", TeacherID: "t-2", SubjectID: "art", ClassID: "c-1"},
	}}
}

func TestSchedulePersisterReplacesTimetable(t *testing.T) {
	db, mock := newTxMock(t)
	items := &fakeScheduleItems{stored: make([]models.ScheduleItem, 7)}
	cacheRepo := &memoryCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, 0, zap.NewNop(), true)
	require.NoError(t, cache.Set(context.Background(), classTimetableKey("c-1"), []string{"stale"}, 0))

	persister := NewSchedulePersister(db, persisterAssignments(), items, cache, nil, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	count, err := persister.Persist(context.Background(), solver.Solution{
		{AssignmentID: "a-1", Index: 1}: {Day: models.Monday, Session: models.SessionMorning, Period: 2},
		{AssignmentID: "a-1", Index: 0}: {Day: models.Monday, Session: models.SessionMorning, Period: 1},
		{AssignmentID: "a-2", Index: 0}: {Day: models.Friday, Session: models.SessionMorning, Period: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, items.inserted, 3)

	first := items.inserted[0]
	assert.Equal(t, "a-1", first.AssignmentID)
	assert.Equal(t, "math", first.SubjectID)
	assert.Equal(t, "c-1", first.ClassID)
	assert.Equal(t, "t-1", first.TeacherID)
	assert.Equal(t, 1, first.Period)
	assert.Equal(t, models.Friday, items.inserted[2].Day)

	assert.False(t, cacheRepo.has(classTimetableKey("c-1")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulePersisterRollsBackOnInsertFailure(t *testing.T) {
	db, mock := newTxMock(t)
	items := &fakeScheduleItems{insertErr: errors.New("disk full")}
	persister := NewSchedulePersister(db, persisterAssignments(), items, nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := persister.Persist(context.Background(), solver.Solution{
		{AssignmentID: "a-1"}: {Day: models.Monday, Session: models.SessionMorning, Period: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulePersisterRejectsUnknownAssignment(t *testing.T) {
	db, mock := newTxMock(t)
	items := &fakeScheduleItems{}
	persister := NewSchedulePersister(db, persisterAssignments(), items, nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := persister.Persist(context.Background(), solver.Solution{
		{AssignmentID: "ghost"}: {Day: models.Monday, Session: models.SessionMorning, Period: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, items.inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulePersisterRefusesEmptySolution(t *testing.T) {
	db, mock := newTxMock(t)
	persister := NewSchedulePersister(db, persisterAssignments(), &fakeScheduleItems{}, nil, nil, nil)

	_, err := persister.Persist(context.Background(), solver.Solution{})
	assert.ErrorIs(t, err, appErrors.ErrEngineNoOutput)
	assert.NoError(t, mock.ExpectationsWereMet())
}
