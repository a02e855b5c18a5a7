package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func storedMathWeek() []models.ScheduleItem {
	return []models.ScheduleItem{
		{ID: "s-3", AssignmentID: "a-1", SubjectID: "math", ClassID: "c-1", TeacherID: "t-1", Day: models.Wednesday, Session: models.SessionMorning, Period: 4},
		{ID: "s-2", AssignmentID: "a-1", SubjectID: "math", ClassID: "c-1", TeacherID: "t-1", Day: models.Monday, Session: models.SessionMorning, Period: 2},
		{ID: "s-1", AssignmentID: "a-1", SubjectID: "math", ClassID: "c-1", TeacherID: "t-1", Day: models.Monday, Session: models.SessionMorning, Period: 1},
	}
}

func TestTimetableServiceClassTimetableFlagsDoubles(t *testing.T) {
	fixture := newSchoolFixture()
	fixture.items.stored = storedMathWeek()
	svc := fixture.timetables(nil)

	timetable, _, err := svc.ClassTimetable(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "X-A", timetable.OwnerName)
	require.Len(t, timetable.Cells, 3)

	assert.Equal(t, 1, timetable.Cells[0].Period)
	assert.True(t, timetable.Cells[0].Double)
	assert.True(t, timetable.Cells[1].Double)
	assert.Equal(t, models.Wednesday, timetable.Cells[2].Day)
	assert.False(t, timetable.Cells[2].Double)
}

func TestTimetableServiceServesFromCache(t *testing.T) {
	fixture := newSchoolFixture()
	fixture.items.stored = storedMathWeek()
	cacheRepo := &memoryCacheRepo{}
	svc := fixture.timetables(NewCacheService(cacheRepo, nil, 0, zap.NewNop(), true))

	_, hit, err := svc.TeacherTimetable(context.Background(), "t-1")
	require.NoError(t, err)
	assert.False(t, hit)
	cached, hit, err := svc.TeacherTimetable(context.Background(), "t-1")
	require.NoError(t, err)
	assert.True(t, hit)

	assert.Equal(t, 1, fixture.items.listCalls)
	assert.True(t, cacheRepo.has(teacherTimetableKey("t-1")))
	assert.Len(t, cached.Cells, 3)
	assert.True(t, cached.Cells[0].Double)
}

func TestTimetableServiceUnknownOwner(t *testing.T) {
	svc := newSchoolFixture().timetables(nil)

	_, _, err := svc.ClassTimetable(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, _, err = svc.TeacherTimetable(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTimetableServiceClassDataset(t *testing.T) {
	fixture := newSchoolFixture()
	fixture.items.stored = storedMathWeek()
	svc := fixture.timetables(nil)

	dataset, title, err := svc.ClassDataset(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Timetable X-A", title)
	assert.Equal(t, []string{"Period", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}, dataset.Headers)
	require.Len(t, dataset.Rows, 5)

	assert.Equal(t, "Morning 1", dataset.Rows[0]["Period"])
	assert.Equal(t, "Mathematics (Ms. Rahma) *", dataset.Rows[0]["Monday"])
	assert.Equal(t, "Mathematics (Ms. Rahma) *", dataset.Rows[1]["Monday"])
	assert.Equal(t, "Mathematics (Ms. Rahma)", dataset.Rows[3]["Wednesday"])
	assert.Empty(t, dataset.Rows[2]["Monday"])
	assert.Contains(t, dataset.Notes, "* double period")
}

func TestTimetableServiceEmptyDataset(t *testing.T) {
	svc := newSchoolFixture().timetables(nil)

	dataset, _, err := svc.ClassDataset(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Empty(t, dataset.Rows)
	assert.Equal(t, []string{"No periods scheduled."}, dataset.Notes)
}
