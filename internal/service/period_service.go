package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/result-portal-api/internal/dto"
	"github.com/noah-isme/result-portal-api/internal/models"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
)

type periodStore interface {
	Active(ctx context.Context) (*models.ActivePeriod, error)
	SetActive(ctx context.Context, period models.ActivePeriod) error
}

// PeriodService exposes the session and semester open for result entry.
type PeriodService struct {
	periods   periodStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPeriodService constructs a PeriodService.
func NewPeriodService(periods periodStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *PeriodService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{periods: periods, audit: audit, validator: validate, logger: logger}
}

// Active returns the current period.
func (s *PeriodService) Active(ctx context.Context) (*models.ActivePeriod, error) {
	period, err := s.periods.Active(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active session and semester configured")
		}
		return nil, storageError(err, "failed to load active period")
	}
	return period, nil
}

// SetActive switches the current period. Exactly one session and one
// semester are current afterwards.
func (s *PeriodService) SetActive(ctx context.Context, req dto.SetActivePeriodRequest, actor models.Actor) (*models.ActivePeriod, error) {
	req.Session = strings.TrimSpace(req.Session)
	req.Semester = strings.TrimSpace(req.Semester)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid academic period payload")
	}

	before, err := s.periods.Active(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storageError(err, "failed to load active period")
	}

	period := models.ActivePeriod{Session: req.Session, Semester: req.Semester}
	if err := s.periods.SetActive(ctx, period); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session or semester not found")
		}
		return nil, storageError(err, "failed to set active period")
	}

	var old interface{}
	if before != nil {
		old = before
	}
	emitAudit(ctx, s.audit, s.logger, auditEntry(actor, models.AuditActionActivePeriodSet, models.AuditResourceAcademicPeriod, "", old, period))
	s.logger.Info("active period changed", zap.String("session", period.Session), zap.String("semester", period.Semester))
	return &period, nil
}
