package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/service"
	"github.com/noah-isme/sma-timetable/pkg/response"
)

type timetableGenerator interface {
	Start(ctx context.Context) (service.RunStatus, error)
	Cancel(ctx context.Context) (service.RunStatus, error)
	Status() service.RunStatus
}

// GeneratorHandler controls timetable generation runs.
type GeneratorHandler struct {
	service   timetableGenerator
	apiPrefix string
}

// NewGeneratorHandler constructs the handler.
func NewGeneratorHandler(svc *service.GeneratorService, apiPrefix string) *GeneratorHandler {
	return &GeneratorHandler{service: svc, apiPrefix: strings.TrimRight(apiPrefix, "/")}
}

// Start godoc
// @Summary Start a timetable generation run
// @Description Loads the school data, solves the week and replaces the stored timetable. A run in flight is cancelled.
// @Tags Generator
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /generator/runs [post]
func (h *GeneratorHandler) Start(c *gin.Context) {
	status, err := h.service.Start(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	statusURL := h.apiPrefix + "/generator/runs/current"
	response.Accepted(c, statusURL, dto.RunAcceptedResponse{RunID: status.RunID, StatusURL: statusURL})
}

// Current godoc
// @Summary Current generation run status
// @Tags Generator
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /generator/runs/current [get]
func (h *GeneratorHandler) Current(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Status(), nil)
}

// Cancel godoc
// @Summary Cancel the current generation run
// @Tags Generator
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /generator/runs/current [delete]
func (h *GeneratorHandler) Cancel(c *gin.Context) {
	status, err := h.service.Cancel(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
