package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/middleware"
	"github.com/noah-isme/sma-timetable/internal/service"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/response"
)

type timetableReader interface {
	ClassTimetable(ctx context.Context, classID string) (*service.Timetable, bool, error)
	TeacherTimetable(ctx context.Context, teacherID string) (*service.Timetable, bool, error)
}

type timetableExporter interface {
	ExportClassTimetable(ctx context.Context, classID string, format service.ExportFormat) (*service.ExportResult, error)
	Download(token string) (*service.ExportFile, error)
}

// TimetableHandler serves persisted timetables and their exports.
type TimetableHandler struct {
	timetables timetableReader
	exports    timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(timetables *service.TimetableService, exports *service.ExportService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, exports: exports}
}

// Class godoc
// @Summary Class timetable
// @Description Periods ordered by day, session and period. Cells in a double period carry double=true.
// @Tags Timetables
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/classes/{id} [get]
func (h *TimetableHandler) Class(c *gin.Context) {
	h.respond(c, h.timetables.ClassTimetable)
}

// Teacher godoc
// @Summary Teacher timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/teachers/{id} [get]
func (h *TimetableHandler) Teacher(c *gin.Context) {
	h.respond(c, h.timetables.TeacherTimetable)
}

func (h *TimetableHandler) respond(c *gin.Context, load func(context.Context, string) (*service.Timetable, bool, error)) {
	timetable, cacheHit, err := load(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, timetable, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export a class timetable
// @Description Renders the timetable as CSV or PDF and returns a signed download link.
// @Tags Timetables
// @Produce json
// @Param id path string true "Class ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 201 {object} response.Envelope
// @Router /timetables/classes/{id}/exports [post]
func (h *TimetableHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	format, err := service.ParseExportFormat(req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.ExportClassTimetable(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a rendered export
// @Tags Timetables
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Router /exports/{token} [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	file, err := h.exports.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, file.SizeBytes, file.MimeType, file.File, nil)
}
