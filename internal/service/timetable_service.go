package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/availability"
	"github.com/noah-isme/sma-timetable/internal/continuity"
	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/export"
)

type scheduleItemReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.ScheduleItem, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleItem, error)
}

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type teacherDirectory interface {
	List(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type subjectLister interface {
	List(ctx context.Context) ([]models.Subject, error)
}

// Timetable is the read model for one class or teacher.
type Timetable struct {
	OwnerID   string                 `json:"owner_id"`
	OwnerName string                 `json:"owner_name"`
	Cells     []models.TimetableCell `json:"cells"`
}

// TimetableService serves persisted timetables with double-period flags.
type TimetableService struct {
	items    scheduleItemReader
	classes  classFinder
	teachers teacherDirectory
	subjects subjectLister
	cache    *CacheService
	logger   *zap.Logger
}

// NewTimetableService constructs the read service.
func NewTimetableService(items scheduleItemReader, classes classFinder, teachers teacherDirectory, subjects subjectLister, cache *CacheService, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		items:    items,
		classes:  classes,
		teachers: teachers,
		subjects: subjects,
		cache:    cache,
		logger:   logger,
	}
}

// ClassTimetable returns the week of a class ordered by day, session and
// period. The bool reports whether it was served from cache.
func (s *TimetableService) ClassTimetable(ctx context.Context, classID string) (*Timetable, bool, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, false, lookupError(err, "class")
	}
	return cachedLoad(ctx, s.cache, classTimetableKey(classID), func(ctx context.Context) (*Timetable, error) {
		items, err := s.items.ListByClass(ctx, classID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class timetable")
		}
		return &Timetable{OwnerID: class.ID, OwnerName: class.Name, Cells: continuity.MarkDoubles(items)}, nil
	})
}

// TeacherTimetable returns the week of a teacher across all classes.
func (s *TimetableService) TeacherTimetable(ctx context.Context, teacherID string) (*Timetable, bool, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		return nil, false, lookupError(err, "teacher")
	}
	return cachedLoad(ctx, s.cache, teacherTimetableKey(teacherID), func(ctx context.Context) (*Timetable, error) {
		items, err := s.items.ListByTeacher(ctx, teacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher timetable")
		}
		return &Timetable{OwnerID: teacher.ID, OwnerName: teacher.Name, Cells: continuity.MarkDoubles(items)}, nil
	})
}

// ClassDataset lays out a class timetable as a period by weekday grid for export.
func (s *TimetableService) ClassDataset(ctx context.Context, classID string) (export.Dataset, string, error) {
	timetable, _, err := s.ClassTimetable(ctx, classID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return export.Dataset{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return export.Dataset{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	subjectNames := lo.SliceToMap(subjects, func(sub models.Subject) (string, string) { return sub.ID, sub.Name })
	teacherNames := lo.SliceToMap(teachers, func(t models.Teacher) (string, string) { return t.ID, t.Name })

	title := fmt.Sprintf("Timetable %s", timetable.OwnerName)
	return buildTimetableGrid(timetable.Cells, subjectNames, teacherNames), title, nil
}

func buildTimetableGrid(cells []models.TimetableCell, subjectNames, teacherNames map[string]string) export.Dataset {
	headers := []string{"Period"}
	for _, day := range models.Weekdays {
		headers = append(headers, titleCase(string(day)))
	}
	dataset := export.Dataset{Headers: headers}

	type slotKey struct {
		session models.Session
		period  int
	}
	bySlot := make(map[slotKey]map[string]string)
	hasDouble := false
	for _, cell := range cells {
		key := slotKey{session: cell.Session, period: cell.Period}
		if bySlot[key] == nil {
			bySlot[key] = make(map[string]string)
		}
		label := lookupName(subjectNames, cell.SubjectID)
		if name := lookupName(teacherNames, cell.TeacherID); name != "" {
			label = fmt.Sprintf("%s (%s)", label, name)
		}
		if cell.Double {
			label += " *"
			hasDouble = true
		}
		bySlot[key][titleCase(string(cell.Day))] = label
	}

	for _, session := range models.Sessions {
		used := lo.ContainsBy(cells, func(c models.TimetableCell) bool { return c.Session == session })
		if !used {
			continue
		}
		for period := 1; period <= availability.PeriodsPerSession; period++ {
			row := map[string]string{"Period": fmt.Sprintf("%s %d", titleCase(string(session)), period)}
			for day, label := range bySlot[slotKey{session: session, period: period}] {
				row[day] = label
			}
			dataset.Rows = append(dataset.Rows, row)
		}
	}

	if len(cells) == 0 {
		dataset.Notes = append(dataset.Notes, "No periods scheduled.")
	}
	if hasDouble {
		dataset.Notes = append(dataset.Notes, "* double period")
	}
	return dataset
}

func titleCase(value string) string {
	raw := strings.ToLower(value)
	if raw == "" {
		return raw
	}
	return strings.ToUpper(raw[:1]) + raw[1:]
}

func lookupName(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

func lookupError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", entity))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s", entity))
}
