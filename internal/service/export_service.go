package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/result-portal-api/internal/dto"
	"github.com/noah-isme/result-portal-api/internal/grading"
	"github.com/noah-isme/result-portal-api/internal/models"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
	"github.com/noah-isme/result-portal-api/pkg/export"
	"github.com/noah-isme/result-portal-api/pkg/storage"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type transcriptReader interface {
	Transcript(ctx context.Context, studentID string) (*models.Transcript, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(ref string) (*os.File, error)
}

// ExportConfig tunes export links.
type ExportConfig struct {
	APIPrefix string
}

// ExportedFile is an opened download.
type ExportedFile struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ExportService renders transcripts to files and hands out signed download links.
type ExportService struct {
	transcripts transcriptReader
	storage     fileStorage
	signer      *storage.SignedURLSigner
	renderers   map[string]export.Renderer
	cfg         ExportConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(transcripts transcriptReader, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	csv := export.NewCSVExporter()
	pdf := export.NewPDFExporter()
	return &ExportService{
		transcripts: transcripts,
		storage:     files,
		signer:      signer,
		renderers: map[string]export.Renderer{
			ExportFormatCSV: csv,
			ExportFormatPDF: pdf,
		},
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// ExportTranscript renders the student's transcript and returns a signed link to it.
func (s *ExportService) ExportTranscript(ctx context.Context, studentID, format string) (*dto.ExportResponse, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatPDF
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	transcript, err := s.transcripts.Transcript(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(transcript.Groups) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no approved results")
	}

	payload, err := renderer.Render(TranscriptDocument(*transcript))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}

	name := fmt.Sprintf("transcript_%s_%s.%s", sanitizeFilename(studentID), s.now().UTC().Format("20060102_150405"), renderer.Extension())
	ref, err := s.storage.Save(name, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store transcript")
	}

	token, expiresAt, err := s.signer.Generate(sanitizeFilename(studentID), ref)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	s.logger.Info("transcript exported", zap.String("student_id", studentID), zap.String("format", format), zap.String("ref", ref))
	return &dto.ExportResponse{
		Token:       token,
		DownloadURL: fmt.Sprintf("%s/exports/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
		Format:      format,
	}, nil
}

// Open resolves a signed token to the stored file.
func (s *ExportService) Open(token string) (*ExportedFile, error) {
	_, ref, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	file, err := s.storage.Open(ref)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	contentType := "application/octet-stream"
	for ext, renderer := range s.renderers {
		if strings.HasSuffix(ref, "."+ext) {
			contentType = renderer.ContentType()
		}
	}
	return &ExportedFile{File: file, Filename: baseName(ref), ContentType: contentType}, nil
}

// TranscriptDocument lays a transcript out as one section per session.
func TranscriptDocument(t models.Transcript) export.Document {
	doc := export.Document{Title: "Academic Transcript"}
	if name, reg := transcriptOwner(t); name != "" {
		doc.Subtitle = append(doc.Subtitle, fmt.Sprintf("%s (%s)", name, reg))
	}
	headers := []string{"Semester", "Code", "Title", "Unit", "Score", "Grade", "Points"}
	for _, group := range t.Groups {
		section := export.Section{
			Heading: fmt.Sprintf("%s - Level %d", group.Session, group.Level),
			Data:    export.Dataset{Headers: headers},
		}
		for _, slate := range group.Results {
			for _, course := range slate.Courses {
				section.Data.Rows = append(section.Data.Rows, map[string]string{
					"Semester": slate.Semester,
					"Code":     course.Code,
					"Title":    course.Title,
					"Unit":     strconv.Itoa(course.Unit),
					"Score":    strconv.FormatFloat(course.TotalScore, 'f', -1, 64),
					"Grade":    course.Grade,
					"Points":   strconv.FormatFloat(course.GradePoints, 'f', -1, 64),
				})
			}
		}
		section.Summary = []string{
			fmt.Sprintf("TNU %d  TGP %s  GPA %.2f", group.TNU, strconv.FormatFloat(group.TGP, 'f', -1, 64), group.GPA),
			fmt.Sprintf("CGPA %.2f", group.CGPA),
		}
		doc.Sections = append(doc.Sections, section)
	}
	doc.Footer = []string{
		fmt.Sprintf("Cumulative GPA %.2f", t.CGPA),
		fmt.Sprintf("Class of degree: %s", grading.Honours(t.CGPA)),
	}
	return doc
}

func transcriptOwner(t models.Transcript) (string, string) {
	for _, group := range t.Groups {
		for _, slate := range group.Results {
			if slate.Name != "" {
				return slate.Name, slate.RegNumber
			}
		}
	}
	return "", ""
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", ".", "-")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func baseName(ref string) string {
	if i := strings.LastIndexAny(ref, "/\\"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
