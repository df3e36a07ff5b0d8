package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/result-portal-api/internal/dto"
	"github.com/noah-isme/result-portal-api/internal/grading"
	"github.com/noah-isme/result-portal-api/internal/models"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
	"github.com/noah-isme/result-portal-api/pkg/response"
)

type transcriptService interface {
	Transcript(ctx context.Context, studentID string) (*models.Transcript, error)
	CGPA(ctx context.Context, studentID string) (float64, error)
	Summary(ctx context.Context, studentID string) (*models.StudentSummary, error)
	ClassStandings(ctx context.Context, classID string) ([]models.ClassStanding, error)
	ClassBroadsheet(ctx context.Context, classID, session, semester string, level int) (*models.Broadsheet, error)
}

// TranscriptHandler serves aggregated academic records.
type TranscriptHandler struct {
	service transcriptService
}

// NewTranscriptHandler constructs a TranscriptHandler.
func NewTranscriptHandler(service transcriptService) *TranscriptHandler {
	return &TranscriptHandler{service: service}
}

// Transcript godoc
// @Summary Get a student transcript
// @Tags Transcripts
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transcript [get]
func (h *TranscriptHandler) Transcript(c *gin.Context) {
	transcript, err := h.service.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}

// CGPA godoc
// @Summary Get a student's cumulative GPA
// @Tags Transcripts
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/cgpa [get]
func (h *TranscriptHandler) CGPA(c *gin.Context) {
	studentID := c.Param("id")
	cgpa, err := h.service.CGPA(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CGPAResponse{
		StudentID: studentID,
		CGPA:      cgpa,
		Honours:   grading.Honours(cgpa),
	}, nil)
}

// Summary godoc
// @Summary Get a student's standing and outstanding courses
// @Tags Transcripts
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/summary [get]
func (h *TranscriptHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ClassStandings godoc
// @Summary Rank the students of a class by CGPA
// @Tags Transcripts
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/standings [get]
func (h *TranscriptHandler) ClassStandings(c *gin.Context) {
	standings, err := h.service.ClassStandings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, standings, nil)
}

// ClassBroadsheet godoc
// @Summary Get a class broadsheet for one period
// @Tags Transcripts
// @Produce json
// @Param id path string true "Class ID"
// @Param session query string true "Session"
// @Param semester query string true "Semester"
// @Param level query int true "Level"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/broadsheet [get]
func (h *TranscriptHandler) ClassBroadsheet(c *gin.Context) {
	level, err := strconv.Atoi(c.Query("level"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "level must be a number"))
		return
	}
	sheet, err := h.service.ClassBroadsheet(c.Request.Context(), c.Param("id"), c.Query("session"), c.Query("semester"), level)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}
