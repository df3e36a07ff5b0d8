package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/result-portal-api/internal/dto"
	"github.com/noah-isme/result-portal-api/internal/service"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
	"github.com/noah-isme/result-portal-api/pkg/response"
)

type exportService interface {
	ExportTranscript(ctx context.Context, studentID, format string) (*dto.ExportResponse, error)
	Open(token string) (*service.ExportedFile, error)
}

// ExportHandler renders transcripts to files and serves them by signed token.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// ExportTranscript godoc
// @Summary Export a student transcript
// @Tags Exports
// @Produce json
// @Param id path string true "Student ID"
// @Param format query string false "pdf or csv"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/transcript/export [post]
func (h *ExportHandler) ExportTranscript(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	resp, err := h.service.ExportTranscript(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Download godoc
// @Summary Download an exported transcript
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	info, err := result.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), result.ContentType, result.File, nil)
}
