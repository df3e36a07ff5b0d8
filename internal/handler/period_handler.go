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

type periodService interface {
	Active(ctx context.Context) (*models.ActivePeriod, error)
	SetActive(ctx context.Context, req dto.SetActivePeriodRequest, actor models.Actor) (*models.ActivePeriod, error)
}

// PeriodHandler manages the period open for result entry.
type PeriodHandler struct {
	service periodService
}

// NewPeriodHandler constructs a PeriodHandler.
func NewPeriodHandler(service periodService) *PeriodHandler {
	return &PeriodHandler{service: service}
}

// Active godoc
// @Summary Get the active session and semester
// @Tags Periods
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-period [get]
func (h *PeriodHandler) Active(c *gin.Context) {
	period, err := h.service.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// SetActive godoc
// @Summary Switch the active session and semester
// @Tags Periods
// @Accept json
// @Produce json
// @Param payload body dto.SetActivePeriodRequest true "Period"
// @Success 200 {object} response.Envelope
// @Router /academic-period [put]
func (h *PeriodHandler) SetActive(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SetActivePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	period, err := h.service.SetActive(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}
