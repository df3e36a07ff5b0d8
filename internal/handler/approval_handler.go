package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/result-portal-api/internal/dto"
	"github.com/noah-isme/result-portal-api/internal/models"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
	"github.com/noah-isme/result-portal-api/pkg/response"
)

type approvalService interface {
	Approve(ctx context.Context, id string, actor models.Actor) (*models.ResultRecord, error)
	Disapprove(ctx context.Context, id string, req dto.DecisionRequest, actor models.Actor) (*models.ResultRecord, error)
	Retract(ctx context.Context, id string, req dto.DecisionRequest, actor models.Actor) (*models.ResultRecord, error)
}

// ApprovalHandler exposes reviewer decisions on result sheets.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler constructs an ApprovalHandler.
func NewApprovalHandler(service approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// Approve godoc
// @Summary Approve a result sheet
// @Description HOD approval unlocks the Dean queue. Dean approval aggregates the sheet into student slates.
// @Tags Approvals
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.Approve(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Disapprove godoc
// @Summary Disapprove a result sheet
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param payload body dto.DecisionRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/disapprove [post]
func (h *ApprovalHandler) Disapprove(c *gin.Context) {
	h.decide(c, h.service.Disapprove)
}

// Retract godoc
// @Summary Retract a Dean approval
// @Description Removes the sheet's courses from student slates and reopens it for review.
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param payload body dto.DecisionRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/retract [post]
func (h *ApprovalHandler) Retract(c *gin.Context) {
	h.decide(c, h.service.Retract)
}

func (h *ApprovalHandler) decide(c *gin.Context, fn func(context.Context, string, dto.DecisionRequest, models.Actor) (*models.ResultRecord, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := fn(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
