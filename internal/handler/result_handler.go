package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/result-portal-api/internal/dto"
	"github.com/noah-isme/result-portal-api/internal/models"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
	"github.com/noah-isme/result-portal-api/pkg/response"
)

type resultService interface {
	Submit(ctx context.Context, req dto.SubmitResultRequest, actor models.Actor) (*models.ResultRecord, error)
	Edit(ctx context.Context, id string, req dto.EditResultRequest, actor models.Actor) (*models.ResultRecord, error)
	View(ctx context.Context, id string, actor models.Actor) (*models.ResultRecord, error)
	Reconcile(ctx context.Context, id string, actor models.Actor) (*models.ResultRecord, error)
	List(ctx context.Context, q dto.ResultQuery, actor models.Actor) ([]dto.ResultSummary, *models.Pagination, error)
}

// ResultHandler exposes result sheet endpoints for staff and reviewers.
type ResultHandler struct {
	service resultService
}

// NewResultHandler constructs a ResultHandler.
func NewResultHandler(service resultService) *ResultHandler {
	return &ResultHandler{service: service}
}

// Submit godoc
// @Summary Submit a result sheet
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body dto.SubmitResultRequest true "Result sheet"
// @Success 201 {object} response.Envelope
// @Router /results [post]
func (h *ResultHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.Submit(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List godoc
// @Summary List result sheets
// @Description Staff see their own sheets. HOD and Dean default to their pending queue.
// @Tags Results
// @Produce json
// @Param session query string false "Academic session"
// @Param semester query string false "Semester"
// @Param level query int false "Level"
// @Param course_code query string false "Course code"
// @Param queue query string false "hod_pending or dean_pending"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	level, _ := strconv.Atoi(c.Query("level"))
	query := dto.ResultQuery{
		Session:    strings.TrimSpace(c.Query("session")),
		Semester:   strings.TrimSpace(c.Query("semester")),
		Level:      level,
		CourseCode: strings.ToUpper(strings.TrimSpace(c.Query("course_code"))),
		Queue:      models.ResultQueue(strings.ToLower(strings.TrimSpace(c.Query("queue")))),
		Page:       page,
		PageSize:   size,
	}
	rows, pagination, err := h.service.List(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get a result sheet
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.View(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Reconcile godoc
// @Summary Prepare a result sheet for editing
// @Description Appends registered students missing from the sheet without persisting them.
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/edit [get]
func (h *ResultHandler) Reconcile(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.Reconcile(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Edit godoc
// @Summary Replace the entries of a result sheet
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param payload body dto.EditResultRequest true "Entries"
// @Success 200 {object} response.Envelope
// @Router /results/{id} [put]
func (h *ResultHandler) Edit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.EditResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.Edit(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
