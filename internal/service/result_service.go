package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/result-portal-api/internal/dto"
	"github.com/noah-isme/result-portal-api/internal/grading"
	"github.com/noah-isme/result-portal-api/internal/models"
	"github.com/noah-isme/result-portal-api/pkg/database"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
)

type resultStore interface {
	Create(ctx context.Context, record *models.ResultRecord) error
	FindByID(ctx context.Context, id string) (*models.ResultRecord, error)
	FindByIdentity(ctx context.Context, staffID, session, semester string, level int, courseCode string) (*models.ResultRecord, error)
	List(ctx context.Context, filter models.ResultFilter) ([]models.ResultRecord, int, error)
	ReplaceEntries(ctx context.Context, id string, entries models.ScoreEntries) error
}

type courseCatalog interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
}

type registrationRoster interface {
	ListFor(ctx context.Context, q models.RosterQuery) ([]models.Registration, error)
}

// ResultService manages result sheets from submission until a reviewer approves them.
type ResultService struct {
	results   resultStore
	courses   courseCatalog
	roster    registrationRoster
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs a ResultService.
func NewResultService(results resultStore, courses courseCatalog, roster registrationRoster, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		results:   results,
		courses:   courses,
		roster:    roster,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Submit grades and stores a new result sheet owned by the actor.
func (s *ResultService) Submit(ctx context.Context, req dto.SubmitResultRequest, actor models.Actor) (*models.ResultRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid result payload")
	}
	if actor.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing actor")
	}
	req.Session = strings.TrimSpace(req.Session)
	req.Semester = strings.TrimSpace(req.Semester)
	req.CourseCode = strings.ToUpper(strings.TrimSpace(req.CourseCode))

	course, err := s.courses.FindByCode(ctx, req.CourseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, storageError(err, "failed to load course")
	}

	entries, err := buildEntries(req.Entries, course.HasPractical)
	if err != nil {
		return nil, err
	}

	existing, err := s.results.FindByIdentity(ctx, actor.ID, req.Session, req.Semester, req.Level, course.Code)
	switch {
	case err == nil && existing != nil:
		return nil, appErrors.Clone(appErrors.ErrDuplicateRecord, fmt.Sprintf("result for %s already submitted for %s %s", course.Code, req.Session, req.Semester))
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, storageError(err, "failed to check existing result")
	}

	record := &models.ResultRecord{
		StaffID:          actor.ID,
		Session:          req.Session,
		Semester:         req.Semester,
		Level:            req.Level,
		Entries:          entries,
		IsAddedByAdvisor: actor.Role == models.RoleAdvisor,
	}
	record.SetCourse(*course)

	if err := s.results.Create(ctx, record); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateRecord.Code, appErrors.ErrDuplicateRecord.Status, appErrors.ErrDuplicateRecord.Message)
		}
		return nil, storageError(err, "failed to create result")
	}

	emitAudit(ctx, s.audit, s.logger, auditEntry(actor, models.AuditActionResultSubmit, models.AuditResourceResult, record.ID, nil, dto.NewResultSummary(*record)))
	s.logger.Info("result submitted",
		zap.String("result_id", record.ID),
		zap.String("course_code", record.CourseCode),
		zap.Int("entries", len(record.Entries)),
	)
	return record, nil
}

// Edit replaces every entry of a result sheet that no reviewer has approved.
func (s *ResultService) Edit(ctx context.Context, id string, req dto.EditResultRequest, actor models.Actor) (*models.ResultRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid result payload")
	}
	record, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if record.Frozen() {
		return nil, appErrors.Clone(appErrors.ErrFrozenRecord, "approved results cannot be edited")
	}

	entries, err := buildEntries(req.Entries, record.HasPractical)
	if err != nil {
		return nil, err
	}
	if err := s.results.ReplaceEntries(ctx, record.ID, entries); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// approved between the read and the guarded update
			return nil, appErrors.Clone(appErrors.ErrFrozenRecord, "approved results cannot be edited")
		}
		return nil, storageError(err, "failed to update result")
	}

	before := dto.NewResultSummary(*record)
	record.Entries = entries
	emitAudit(ctx, s.audit, s.logger, auditEntry(actor, models.AuditActionResultEdit, models.AuditResourceResult, record.ID, before, dto.NewResultSummary(*record)))
	return record, nil
}

// Get returns a result sheet with its entries.
func (s *ResultService) Get(ctx context.Context, id string) (*models.ResultRecord, error) {
	record, err := s.results.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, storageError(err, "failed to load result")
	}
	return record, nil
}

// View returns a result sheet the actor may read. Staff and advisors only
// see sheets they submitted.
func (s *ResultService) View(ctx context.Context, id string, actor models.Actor) (*models.ResultRecord, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if (actor.Role == models.RoleStaff || actor.Role == models.RoleAdvisor) && record.StaffID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "result belongs to another staff member")
	}
	return record, nil
}

// Reconcile returns the sheet prepared for editing: every student registered
// for the course who is missing from the sheet is appended unscored and the
// entries are sorted by name. Nothing is persisted.
func (s *ResultService) Reconcile(ctx context.Context, id string, actor models.Actor) (*models.ResultRecord, error) {
	record, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if record.Frozen() {
		return nil, appErrors.Clone(appErrors.ErrFrozenRecord, "approved results cannot be edited")
	}

	registrations, err := s.roster.ListFor(ctx, models.RosterQuery{
		Session:    record.Session,
		Semester:   record.Semester,
		Level:      record.Level,
		CourseCode: record.CourseCode,
	})
	if err != nil {
		return nil, storageError(err, "failed to load course registrations")
	}

	present := make(map[string]struct{}, len(record.Entries))
	entries := make(models.ScoreEntries, 0, len(record.Entries)+len(registrations))
	for _, entry := range record.Entries {
		present[entry.StudentID] = struct{}{}
		entries = append(entries, entry)
	}
	for _, reg := range registrations {
		if _, ok := present[reg.StudentID]; ok {
			continue
		}
		present[reg.StudentID] = struct{}{}
		entries = append(entries, models.ScoreEntry{
			StudentID:      reg.StudentID,
			StudentClassID: reg.StudentClassID,
			RegNumber:      reg.RegNumber,
			Name:           reg.Name,
			Year:           reg.Year,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Name), strings.ToLower(entries[j].Name)
		if a != b {
			return a < b
		}
		return entries[i].RegNumber < entries[j].RegNumber
	})

	prepared := *record
	prepared.Entries = entries
	return &prepared, nil
}

// List returns result summaries visible to the actor. Staff and advisors see
// their own sheets, HODs default to their pending queue and Deans to theirs.
func (s *ResultService) List(ctx context.Context, query dto.ResultQuery, actor models.Actor) ([]dto.ResultSummary, *models.Pagination, error) {
	filter := models.ResultFilter{
		Session:    query.Session,
		Semester:   query.Semester,
		Level:      query.Level,
		CourseCode: strings.ToUpper(strings.TrimSpace(query.CourseCode)),
		Queue:      query.Queue,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	switch filter.Queue {
	case "", models.ResultQueueHODPending, models.ResultQueueDeanPending:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown queue")
	}

	switch actor.Role {
	case models.RoleStaff, models.RoleAdvisor:
		filter.StaffID = actor.ID
	case models.RoleHOD:
		if filter.Queue == "" {
			filter.Queue = models.ResultQueueHODPending
		}
	case models.RoleDean:
		if filter.Queue == "" {
			filter.Queue = models.ResultQueueDeanPending
		}
	case models.RoleAdmin:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot list results")
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 50
	}

	records, total, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, nil, storageError(err, "failed to list results")
	}
	summaries := make([]dto.ResultSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, dto.NewResultSummary(record))
	}
	return summaries, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *ResultService) loadOwned(ctx context.Context, id string, actor models.Actor) (*models.ResultRecord, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && record.StaffID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "result belongs to another staff member")
	}
	return record, nil
}

// buildEntries converts raw score input into graded entries. A student may
// appear at most once per sheet.
func buildEntries(inputs []dto.ScoreInput, hasPractical bool) (models.ScoreEntries, error) {
	seen := make(map[string]struct{}, len(inputs))
	entries := make(models.ScoreEntries, 0, len(inputs))
	for _, in := range inputs {
		studentID := strings.TrimSpace(in.StudentID)
		if _, dup := seen[studentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s appears more than once", studentID))
		}
		seen[studentID] = struct{}{}
		entry := models.ScoreEntry{
			StudentID:      studentID,
			StudentClassID: strings.TrimSpace(in.StudentClassID),
			RegNumber:      strings.TrimSpace(in.RegNumber),
			Name:           strings.TrimSpace(in.Name),
			Year:           strings.TrimSpace(in.Year),
			TestScore:      in.TestScore,
			LabScore:       in.LabScore,
			ExamScore:      in.ExamScore,
		}
		gradeEntry(&entry, hasPractical)
		entries = append(entries, entry)
	}
	return entries, nil
}

func gradeEntry(entry *models.ScoreEntry, hasPractical bool) {
	outcome := grading.Evaluate(grading.Scores{
		Test: entry.TestScore,
		Lab:  entry.LabScore,
		Exam: entry.ExamScore,
	}, hasPractical)
	entry.TotalScore = outcome.Total
	entry.Grade = outcome.Grade
	entry.Remark = outcome.Remark
}
