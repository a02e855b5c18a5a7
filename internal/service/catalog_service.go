package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/availability"
	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

type curriculumWriter interface {
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, rows []models.Curriculum) error
}

type sessionTemplateWriter interface {
	Upsert(ctx context.Context, tmpl *models.SessionTemplate) error
}

type teacherAvailabilityWriter interface {
	UpdateAvailability(ctx context.Context, id string, grid availability.Grid) error
}

type assignmentStore interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	SaveBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.Assignment, onSaved func(models.Assignment)) error
	Delete(ctx context.Context, id string) error
}

// CurriculumRequest sets the weekly load of a subject for a grade.
type CurriculumRequest struct {
	GradeID         string `json:"grade_id" validate:"required"`
	SubjectID       string `json:"subject_id" validate:"required"`
	PeriodsPerWeek  int    `json:"periods_per_week" validate:"gte=0,lte=30"`
	ShouldBeDoubled bool   `json:"should_be_doubled"`
}

// UpsertCurriculaRequest replaces curriculum rows by (grade, subject).
type UpsertCurriculaRequest struct {
	Items []CurriculumRequest `json:"items" validate:"required,min=1,dive"`
}

// AvailabilityRequest carries a busy grid as bit string or boolean matrix.
type AvailabilityRequest struct {
	Availability availability.Grid `json:"availability"`
}

// AssignmentRequest binds a teacher, subject and class.
type AssignmentRequest struct {
	ID        string `json:"id" validate:"omitempty,uuid"`
	TeacherID string `json:"teacher_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
}

// SaveAssignmentsRequest stores many assignments at once.
type SaveAssignmentsRequest struct {
	Items []AssignmentRequest `json:"items" validate:"required,min=1,dive"`
}

// CatalogService maintains the inputs of timetable generation.
type CatalogService struct {
	tx          txProvider
	curricula   curriculumWriter
	sessions    sessionTemplateWriter
	teachers    teacherAvailabilityWriter
	assignments assignmentStore
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(
	tx txProvider,
	curricula curriculumWriter,
	sessions sessionTemplateWriter,
	teachers teacherAvailabilityWriter,
	assignments assignmentStore,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		tx:          tx,
		curricula:   curricula,
		sessions:    sessions,
		teachers:    teachers,
		assignments: assignments,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

// UpsertCurricula stores every row in one transaction.
func (s *CatalogService) UpsertCurricula(ctx context.Context, req UpsertCurriculaRequest) (rows []models.Curriculum, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload")
	}

	seen := make(map[models.CurriculumKey]struct{}, len(req.Items))
	rows = make([]models.Curriculum, 0, len(req.Items))
	for _, item := range req.Items {
		row := models.Curriculum{
			GradeID:         strings.TrimSpace(item.GradeID),
			SubjectID:       strings.TrimSpace(item.SubjectID),
			PeriodsPerWeek:  item.PeriodsPerWeek,
			ShouldBeDoubled: item.ShouldBeDoubled,
		}
		if _, dup := seen[row.Key()]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate curriculum for grade %s and subject %s", row.GradeID, row.SubjectID))
		}
		seen[row.Key()] = struct{}{}
		rows = append(rows, row)
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.curricula.UpsertBatch(ctx, tx, rows); err != nil {
		return nil, storeError(err, "failed to save curricula")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit curricula")
	}
	s.logger.Info("curricula saved", zap.Int("rows", len(rows)))
	return rows, nil
}

// UpsertSessionTemplate replaces the busy grid shared by a session.
func (s *CatalogService) UpsertSessionTemplate(ctx context.Context, rawSession string, req AvailabilityRequest) (*models.SessionTemplate, error) {
	session, err := models.ParseSession(rawSession)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session")
	}
	tmpl := &models.SessionTemplate{Session: session, Availability: req.Availability}
	if err := s.sessions.Upsert(ctx, tmpl); err != nil {
		return nil, storeError(err, "failed to save session template")
	}
	s.logger.Info("session template saved", zap.String("session", string(session)))
	return tmpl, nil
}

// UpdateTeacherAvailability replaces a teacher's personal busy grid.
func (s *CatalogService) UpdateTeacherAvailability(ctx context.Context, teacherID string, req AvailabilityRequest) error {
	if err := s.teachers.UpdateAvailability(ctx, teacherID, req.Availability); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return storeError(err, "failed to save teacher availability")
	}
	return nil
}

// ListAssignments returns every assignment.
func (s *CatalogService) ListAssignments(ctx context.Context) ([]models.Assignment, error) {
	assignments, err := s.assignments.List(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// CreateAssignment registers one assignment.
func (s *CatalogService) CreateAssignment(ctx context.Context, req AssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	assignment := assignmentFromRequest(req)
	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return nil, storeError(err, "failed to create assignment")
	}
	return &assignment, nil
}

// SaveAssignments stores many assignments in one transaction, updating
// rows whose id already exists.
func (s *CatalogService) SaveAssignments(ctx context.Context, req SaveAssignmentsRequest) (saved []models.Assignment, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	rows := make([]models.Assignment, 0, len(req.Items))
	for _, item := range req.Items {
		rows = append(rows, assignmentFromRequest(item))
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	saved = make([]models.Assignment, 0, len(rows))
	if err = s.assignments.SaveBatch(ctx, tx, rows, func(a models.Assignment) { saved = append(saved, a) }); err != nil {
		return nil, storeError(err, "failed to save assignments")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit assignments")
	}
	s.logger.Info("assignments saved", zap.Int("rows", len(saved)))
	return saved, nil
}

// DeleteAssignment removes an assignment. Its scheduled periods go with it,
// so cached timetables are dropped.
func (s *CatalogService) DeleteAssignment(ctx context.Context, id string) error {
	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return storeError(err, "failed to delete assignment")
	}
	if err := s.cache.InvalidateTimetables(ctx); err != nil {
		s.logger.Warn("timetable cache not invalidated", zap.Error(err))
	}
	return nil
}

func assignmentFromRequest(req AssignmentRequest) models.Assignment {
	return models.Assignment{
		ID:        strings.TrimSpace(req.ID),
		TeacherID: strings.TrimSpace(req.TeacherID),
		SubjectID: strings.TrimSpace(req.SubjectID),
		ClassID:   strings.TrimSpace(req.ClassID),
	}
}

// storeError maps constraint violations to client errors.
func storeError(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqForeignKeyViolation:
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "referenced record does not exist")
		case pqUniqueViolation:
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "record already exists")
		}
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
