package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

type memoryCacheRepo struct {
	mu          sync.Mutex
	store       map[string][]byte
	invalidated []string
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.store {
		if strings.HasPrefix(key, prefix) {
			delete(m.store, key)
		}
	}
	return nil
}

func (m *memoryCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.store[key]
	return ok
}

type fakeAssignments struct {
	items []models.Assignment
	err   error
}

func (f *fakeAssignments) List(context.Context, sqlx.ExtContext) ([]models.Assignment, error) {
	return f.items, f.err
}

type fakeScheduleItems struct {
	mu        sync.Mutex
	stored    []models.ScheduleItem
	inserted  []models.ScheduleItem
	deleteErr error
	insertErr error
	listErr   error
	listCalls int
}

func (f *fakeScheduleItems) DeleteAll(context.Context, sqlx.ExtContext) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.stored)), nil
}

func (f *fakeScheduleItems) InsertBatch(_ context.Context, _ sqlx.ExtContext, items []models.ScheduleItem) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append([]models.ScheduleItem(nil), items...)
	f.stored = append([]models.ScheduleItem(nil), items...)
	return nil
}

func (f *fakeScheduleItems) ListByClass(_ context.Context, classID string) ([]models.ScheduleItem, error) {
	return f.filter(func(item models.ScheduleItem) bool { return item.ClassID == classID })
}

func (f *fakeScheduleItems) ListByTeacher(_ context.Context, teacherID string) ([]models.ScheduleItem, error) {
	return f.filter(func(item models.ScheduleItem) bool { return item.TeacherID == teacherID })
}

func (f *fakeScheduleItems) filter(keep func(models.ScheduleItem) bool) ([]models.ScheduleItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.ScheduleItem
	for _, item := range f.stored {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeTeachers struct {
	items []models.Teacher
	err   error
}

func (f *fakeTeachers) List(context.Context) ([]models.Teacher, error) {
	return f.items, f.err
}

func (f *fakeTeachers) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	for _, t := range f.items {
		if t.ID == id {
			teacher := t
			return &teacher, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeClasses struct {
	items []models.Class
}

func (f *fakeClasses) List(context.Context) ([]models.Class, error) {
	return f.items, nil
}

func (f *fakeClasses) FindByID(_ context.Context, id string) (*models.Class, error) {
	for _, c := range f.items {
		if c.ID == id {
			class := c
			return &class, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeGrades struct {
	items []models.Grade
}

func (f *fakeGrades) List(context.Context) ([]models.Grade, error) {
	return f.items, nil
}

type fakeCurricula struct {
	items []models.Curriculum
}

func (f *fakeCurricula) List(context.Context) ([]models.Curriculum, error) {
	return f.items, nil
}

type fakeSessions struct {
	items []models.SessionTemplate
}

func (f *fakeSessions) List(context.Context) ([]models.SessionTemplate, error) {
	return f.items, nil
}

type fakeSubjects struct {
	items []models.Subject
}

func (f *fakeSubjects) List(context.Context) ([]models.Subject, error) {
	return f.items, nil
}

// schoolFixture is one teacher teaching a doubled two-period subject to one class.
type schoolFixture struct {
	teachers    *fakeTeachers
	classes     *fakeClasses
	grades      *fakeGrades
	curricula   *fakeCurricula
	assignments *fakeAssignments
	sessions    *fakeSessions
	subjects    *fakeSubjects
	items       *fakeScheduleItems
}

func newSchoolFixture() schoolFixture {
	return schoolFixture{
		teachers: &fakeTeachers{items: []models.Teacher{{ID: "t-1", Name: "Ms. Rahma"}}},
		classes:  &fakeClasses{items: []models.Class{{ID: "c-1", Name: "X-A", GradeID: "g-10"}}},
		grades:   &fakeGrades{items: []models.Grade{{ID: "g-10", Name: "Grade 10", Level: 10, Session: models.SessionMorning}}},
		curricula: &fakeCurricula{items: []models.Curriculum{
			{GradeID: "g-10", SubjectID: "math", PeriodsPerWeek: 2, ShouldBeDoubled: true},
		}},
		assignments: &fakeAssignments{items: []models.Assignment{
			{ID: "a-1", TeacherID: "t-1", SubjectID: "math", ClassID: "c-1"},
		}},
		sessions: &fakeSessions{},
		subjects: &fakeSubjects{items: []models.Subject{{ID: "math", Code: "MTK", Name: "Mathematics"}}},
		items:    &fakeScheduleItems{},
	}
}

func (f schoolFixture) loader() *SnapshotLoader {
	return NewSnapshotLoader(f.teachers, f.classes, f.grades, f.curricula, f.assignments, f.sessions, nil, nil)
}

func (f schoolFixture) timetables(cache *CacheService) *TimetableService {
	return NewTimetableService(f.items, f.classes, f.teachers, f.subjects, cache, nil)
}
