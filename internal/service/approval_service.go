package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/result-portal-api/internal/dto"
	"github.com/noah-isme/result-portal-api/internal/models"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
)

const (
	decisionApprove    = "approve"
	decisionDisapprove = "disapprove"
	decisionRetract    = "retract"
)

type approvalStore interface {
	FindByID(ctx context.Context, id string) (*models.ResultRecord, error)
	SetHODDecision(ctx context.Context, id string, approved bool, reason *string) error
	SetDeanDisapproval(ctx context.Context, id string, reason string) error
	FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.ResultRecord, error)
	MarkDeanApproved(ctx context.Context, tx *sqlx.Tx, id string, at time.Time) error
	MarkDeanRetracted(ctx context.Context, tx *sqlx.Tx, id string, reason string) error
}

type transcriptInvalidator interface {
	InvalidateStudents(ctx context.Context, studentIDs []string)
}

// ApprovalConfig tunes Dean approval retries.
type ApprovalConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// ApprovalOption customises an ApprovalService.
type ApprovalOption func(*ApprovalService)

// WithTranscriptInvalidator drops cached transcripts of students whose
// approved records changed.
func WithTranscriptInvalidator(inv transcriptInvalidator) ApprovalOption {
	return func(s *ApprovalService) {
		s.transcripts = inv
	}
}

// WithApprovalClock overrides the approval timestamp source.
func WithApprovalClock(now func() time.Time) ApprovalOption {
	return func(s *ApprovalService) {
		if now != nil {
			s.now = now
		}
	}
}

// ApprovalService drives HOD and Dean decisions on result sheets. Dean
// approval aggregates the sheet into student records atomically.
type ApprovalService struct {
	db          txProvider
	results     approvalStore
	aggregator  *Aggregator
	audit       auditLogger
	metrics     *MetricsService
	transcripts transcriptInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         ApprovalConfig
	now         func() time.Time
}

// NewApprovalService constructs an ApprovalService.
func NewApprovalService(db txProvider, results approvalStore, aggregator *Aggregator, audit auditLogger, metrics *MetricsService, cfg ApprovalConfig, logger *zap.Logger, opts ...ApprovalOption) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	svc := &ApprovalService{
		db:         db,
		results:    results,
		aggregator: aggregator,
		audit:      audit,
		metrics:    metrics,
		validator:  validator.New(),
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Approve records the actor's approval. HOD approval freezes the entries;
// Dean approval also merges them into every listed student's record.
func (s *ApprovalService) Approve(ctx context.Context, id string, actor models.Actor) (*models.ResultRecord, error) {
	switch actor.Role {
	case models.RoleHOD:
		return s.hodDecision(ctx, id, true, "", actor)
	case models.RoleDean:
		return s.deanApprove(ctx, id, actor)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only HOD or Dean can approve results")
	}
}

// Disapprove rejects a result with a reason. A Dean-approved result can only
// be reversed through Retract.
func (s *ApprovalService) Disapprove(ctx context.Context, id string, req dto.DecisionRequest, actor models.Actor) (*models.ResultRecord, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "a reason is required")
	}
	switch actor.Role {
	case models.RoleHOD:
		return s.hodDecision(ctx, id, false, req.Reason, actor)
	case models.RoleDean:
		return s.deanDisapprove(ctx, id, req.Reason, actor)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only HOD or Dean can disapprove results")
	}
}

// Retract reverses a Dean approval: the course is removed from every affected
// student record and the result is flagged as Dean-disapproved.
func (s *ApprovalService) Retract(ctx context.Context, id string, req dto.DecisionRequest, actor models.Actor) (*models.ResultRecord, error) {
	if actor.Role != models.RoleDean {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the Dean can retract an approval")
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "a reason is required")
	}

	var (
		record   *models.ResultRecord
		students []string
	)
	err := s.withRetry(ctx, id, func() error {
		return s.inDeanTx(ctx, id, func(tx *sqlx.Tx, touched *bool) error {
			locked, err := s.results.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "result not found")
				}
				return storageError(err, "failed to load result")
			}
			if !locked.IsDeanApproved {
				return appErrors.Clone(appErrors.ErrPreconditionFailed, "only dean-approved results can be retracted")
			}
			*touched = true
			removed, err := s.aggregator.Unmerge(ctx, tx, locked)
			if err != nil {
				return err
			}
			if err := s.results.MarkDeanRetracted(ctx, tx, id, req.Reason); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrPreconditionFailed, "only dean-approved results can be retracted")
				}
				return storageError(err, "failed to retract result")
			}
			record, students = locked, removed
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	before := dto.NewResultSummary(*record)
	reason := req.Reason
	record.IsDeanApproved = false
	record.ApprovedAt = nil
	record.DeanDisapproved = true
	record.DeanDisapprovalReason = &reason
	s.afterTransition(ctx, actor, decisionRetract, models.AuditActionDeanRetract, before, record, students)
	return record, nil
}

func (s *ApprovalService) hodDecision(ctx context.Context, id string, approved bool, reason string, actor models.Actor) (*models.ResultRecord, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.IsDeanApproved {
		return nil, appErrors.Clone(appErrors.ErrFrozenRecord, "result is already approved by the Dean")
	}

	var reasonPtr *string
	if !approved {
		reasonPtr = &reason
	}
	if err := s.results.SetHODDecision(ctx, id, approved, reasonPtr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrFrozenRecord, "result is already approved by the Dean")
		}
		return nil, storageError(err, "failed to record HOD decision")
	}

	before := dto.NewResultSummary(*record)
	record.IsHODApproved = approved
	record.HODDisapproved = !approved
	record.HODDisapprovalReason = reasonPtr
	if approved {
		s.afterTransition(ctx, actor, decisionApprove, models.AuditActionHODApprove, before, record, nil)
	} else {
		s.afterTransition(ctx, actor, decisionDisapprove, models.AuditActionHODDisapprove, before, record, nil)
	}
	return record, nil
}

func (s *ApprovalService) deanDisapprove(ctx context.Context, id, reason string, actor models.Actor) (*models.ResultRecord, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.IsDeanApproved {
		return nil, appErrors.Clone(appErrors.ErrFrozenRecord, "aggregated results must be retracted before they can be disapproved")
	}
	if !record.IsHODApproved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "result must be approved by the HOD first")
	}
	if err := s.results.SetDeanDisapproval(ctx, id, reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrFrozenRecord, "aggregated results must be retracted before they can be disapproved")
		}
		return nil, storageError(err, "failed to record Dean decision")
	}

	before := dto.NewResultSummary(*record)
	record.DeanDisapproved = true
	record.DeanDisapprovalReason = &reason
	s.afterTransition(ctx, actor, decisionDisapprove, models.AuditActionDeanDisapprove, before, record, nil)
	return record, nil
}

func (s *ApprovalService) deanApprove(ctx context.Context, id string, actor models.Actor) (*models.ResultRecord, error) {
	var (
		record   *models.ResultRecord
		students []string
		at       time.Time
	)
	err := s.withRetry(ctx, id, func() error {
		return s.inDeanTx(ctx, id, func(tx *sqlx.Tx, touched *bool) error {
			locked, err := s.results.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "result not found")
				}
				return storageError(err, "failed to load result")
			}
			if locked.IsDeanApproved {
				return appErrors.Clone(appErrors.ErrFrozenRecord, "result is already approved by the Dean")
			}
			if !locked.IsHODApproved {
				return appErrors.Clone(appErrors.ErrPreconditionFailed, "result must be approved by the HOD first")
			}

			*touched = true
			start := time.Now()
			merged, err := s.aggregator.Merge(ctx, tx, locked)
			s.metrics.ObserveAggregation(time.Since(start), err != nil)
			if err != nil {
				return err
			}

			at = s.now().UTC()
			if err := s.results.MarkDeanApproved(ctx, tx, id, at); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrFrozenRecord, "result is already approved by the Dean")
				}
				return storageError(err, "failed to mark result approved")
			}
			record, students = locked, merged
			return nil
		})
	})
	if err != nil {
		s.logger.Warn("dean approval failed", zap.String("result_id", id), zap.Error(err))
		return nil, err
	}

	before := dto.NewResultSummary(*record)
	record.IsDeanApproved = true
	record.ApprovedAt = &at
	record.DeanDisapproved = false
	record.DeanDisapprovalReason = nil
	s.afterTransition(ctx, actor, decisionApprove, models.AuditActionDeanApprove, before, record, students)
	s.logger.Info("result aggregated",
		zap.String("result_id", record.ID),
		zap.String("course_code", record.CourseCode),
		zap.Int("students", len(students)),
	)
	return record, nil
}

// inDeanTx runs fn in a transaction. When fn has begun writing student
// records and the rollback itself fails, the outcome is a partial approval.
func (s *ApprovalService) inDeanTx(ctx context.Context, id string, fn func(tx *sqlx.Tx, touched *bool) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageError(err, "failed to begin transaction")
	}
	touched := false
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("failed to roll back dean decision", zap.String("result_id", id), zap.Error(rbErr))
			if touched {
				err = appErrors.Wrap(errors.Join(err, rbErr), appErrors.ErrPartialApproval.Code, appErrors.ErrPartialApproval.Status, appErrors.ErrPartialApproval.Message)
			}
		}
	}()

	if err = fn(tx, &touched); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return storageError(err, "failed to commit dean decision")
	}
	return nil
}

func (s *ApprovalService) withRetry(ctx context.Context, id string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !appErrors.IsRetryable(err) || attempt >= s.cfg.MaxAttempts {
			return err
		}
		s.metrics.RecordApprovalRetry()
		s.logger.Warn("retrying dean decision after transient failure",
			zap.String("result_id", id),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		timer := time.NewTimer(s.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func (s *ApprovalService) load(ctx context.Context, id string) (*models.ResultRecord, error) {
	record, err := s.results.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, storageError(err, "failed to load result")
	}
	return record, nil
}

func (s *ApprovalService) afterTransition(ctx context.Context, actor models.Actor, decision, action string, before dto.ResultSummary, record *models.ResultRecord, students []string) {
	s.metrics.RecordTransition(strings.ToLower(string(actor.Role)), decision)
	if len(students) > 0 && s.transcripts != nil {
		s.transcripts.InvalidateStudents(ctx, students)
	}
	emitAudit(ctx, s.audit, s.logger, auditEntry(actor, action, models.AuditResourceResult, record.ID, before, dto.NewResultSummary(*record)))
}
