package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/service"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/response"
)

type catalogService interface {
	UpsertCurricula(ctx context.Context, req service.UpsertCurriculaRequest) ([]models.Curriculum, error)
	UpsertSessionTemplate(ctx context.Context, rawSession string, req service.AvailabilityRequest) (*models.SessionTemplate, error)
	UpdateTeacherAvailability(ctx context.Context, teacherID string, req service.AvailabilityRequest) error
	ListAssignments(ctx context.Context) ([]models.Assignment, error)
	CreateAssignment(ctx context.Context, req service.AssignmentRequest) (*models.Assignment, error)
	SaveAssignments(ctx context.Context, req service.SaveAssignmentsRequest) ([]models.Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error
}

// CatalogHandler maintains curricula, availability and assignments.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// UpsertCurricula godoc
// @Summary Upsert curricula
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.UpsertCurriculaRequest true "Curriculum rows"
// @Success 200 {object} response.Envelope
// @Router /curricula [put]
func (h *CatalogHandler) UpsertCurricula(c *gin.Context) {
	var req service.UpsertCurriculaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid curriculum payload"))
		return
	}
	rows, err := h.service.UpsertCurricula(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// UpsertSessionTemplate godoc
// @Summary Replace a session availability template
// @Tags Catalog
// @Accept json
// @Produce json
// @Param session path string true "MORNING or AFTERNOON"
// @Param payload body service.AvailabilityRequest true "Busy grid"
// @Success 200 {object} response.Envelope
// @Router /sessions/{session}/availability [put]
func (h *CatalogHandler) UpsertSessionTemplate(c *gin.Context) {
	var req service.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	tmpl, err := h.service.UpsertSessionTemplate(c.Request.Context(), c.Param("session"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tmpl, nil)
}

// UpdateTeacherAvailability godoc
// @Summary Replace a teacher's busy grid
// @Tags Catalog
// @Accept json
// @Param id path string true "Teacher ID"
// @Param payload body service.AvailabilityRequest true "Busy grid"
// @Success 204
// @Router /teachers/{id}/availability [put]
func (h *CatalogHandler) UpdateTeacherAvailability(c *gin.Context) {
	var req service.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	if err := h.service.UpdateTeacherAvailability(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAssignments godoc
// @Summary List teacher assignments
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *CatalogHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.service.ListAssignments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, &models.Pagination{Page: 1, PageSize: len(assignments), TotalCount: len(assignments)})
}

// CreateAssignment godoc
// @Summary Create a teacher assignment
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.AssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *CatalogHandler) CreateAssignment(c *gin.Context) {
	var req service.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	assignment, err := h.service.CreateAssignment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// SaveAssignments godoc
// @Summary Bulk upsert teacher assignments
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.SaveAssignmentsRequest true "Assignments"
// @Success 200 {object} response.Envelope
// @Router /assignments [put]
func (h *CatalogHandler) SaveAssignments(c *gin.Context) {
	var req service.SaveAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	saved, err := h.service.SaveAssignments(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, saved, nil)
}

// DeleteAssignment godoc
// @Summary Delete a teacher assignment
// @Tags Catalog
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *CatalogHandler) DeleteAssignment(c *gin.Context) {
	if err := h.service.DeleteAssignment(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
