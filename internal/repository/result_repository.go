package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/result-portal-api/internal/models"
)

const resultColumns = `id, staff_id, session, semester, level, course_code, course_title, course_unit,
       has_practical, is_elective, entries, is_hod_approved, is_dean_approved, hod_disapproved,
       hod_disapproval_reason, dean_disapproved, dean_disapproval_reason, is_added_by_advisor,
       approved_at, created_at, updated_at`

// ResultRepository persists result sheets.
type ResultRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// Create inserts a new result row. The identity tuple is guarded by a unique index.
func (r *ResultRepository) Create(ctx context.Context, record *models.ResultRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Entries == nil {
		record.Entries = models.ScoreEntries{}
	}
	const query = `INSERT INTO results
	(id, staff_id, session, semester, level, course_code, course_title, course_unit, has_practical, is_elective,
	 entries, is_hod_approved, is_dean_approved, hod_disapproved, hod_disapproval_reason, dean_disapproved,
	 dean_disapproval_reason, is_added_by_advisor, approved_at, created_at, updated_at)
	VALUES (:id, :staff_id, :session, :semester, :level, :course_code, :course_title, :course_unit, :has_practical, :is_elective,
	 :entries, :is_hod_approved, :is_dean_approved, :hod_disapproved, :hod_disapproval_reason, :dean_disapproved,
	 :dean_disapproval_reason, :is_added_by_advisor, :approved_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

// FindByID fetches a result by identifier.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.ResultRecord, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE id = $1`
	var record models.ResultRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByIdentity fetches the result owned by staffID for a course and period.
func (r *ResultRepository) FindByIdentity(ctx context.Context, staffID, session, semester string, level int, courseCode string) (*models.ResultRecord, error) {
	query := `SELECT ` + resultColumns + ` FROM results
	WHERE staff_id = $1 AND session = $2 AND semester = $3 AND level = $4 AND course_code = $5`
	var record models.ResultRecord
	if err := r.db.GetContext(ctx, &record, query, staffID, session, semester, level, courseCode); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns results matching the filter, newest first, with the total count.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultRecord, int, error) {
	where := sq.And{}
	if filter.StaffID != "" {
		where = append(where, sq.Eq{"staff_id": filter.StaffID})
	}
	if filter.Session != "" {
		where = append(where, sq.Eq{"session": filter.Session})
	}
	if filter.Semester != "" {
		where = append(where, sq.Eq{"semester": filter.Semester})
	}
	if filter.Level > 0 {
		where = append(where, sq.Eq{"level": filter.Level})
	}
	if filter.CourseCode != "" {
		where = append(where, sq.Eq{"course_code": filter.CourseCode})
	}
	switch filter.Queue {
	case models.ResultQueueHODPending:
		where = append(where, sq.Eq{"is_dean_approved": false})
	case models.ResultQueueDeanPending:
		where = append(where, sq.Eq{"is_hod_approved": true, "is_dean_approved": false})
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("results").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count results query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}

	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query, args, err := r.sb.Select(resultColumns).
		From("results").
		Where(where).
		OrderBy("created_at DESC", "id").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list results query: %w", err)
	}

	var records []models.ResultRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}
	return records, total, nil
}

// ReplaceEntries overwrites the entry list of a result that no reviewer has
// approved yet. sql.ErrNoRows means the row is missing or already approved.
func (r *ResultRepository) ReplaceEntries(ctx context.Context, id string, entries models.ScoreEntries) error {
	const query = `UPDATE results SET entries = $2, updated_at = $3
	WHERE id = $1 AND NOT is_hod_approved AND NOT is_dean_approved`
	result, err := r.db.ExecContext(ctx, query, id, entries, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("replace result entries: %w", err)
	}
	return expectOneRow(result, "replace result entries")
}

// SetHODDecision records an HOD approval (reason nil) or disapproval.
// Dean-approved rows are left untouched and yield sql.ErrNoRows.
func (r *ResultRepository) SetHODDecision(ctx context.Context, id string, approved bool, reason *string) error {
	const query = `UPDATE results
	SET is_hod_approved = $2, hod_disapproved = $3, hod_disapproval_reason = $4, updated_at = $5
	WHERE id = $1 AND NOT is_dean_approved`
	result, err := r.db.ExecContext(ctx, query, id, approved, !approved, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set hod decision: %w", err)
	}
	return expectOneRow(result, "set hod decision")
}

// SetDeanDisapproval flags a result the Dean rejected before aggregation.
func (r *ResultRepository) SetDeanDisapproval(ctx context.Context, id string, reason string) error {
	const query = `UPDATE results
	SET dean_disapproved = TRUE, dean_disapproval_reason = $2, updated_at = $3
	WHERE id = $1 AND NOT is_dean_approved`
	result, err := r.db.ExecContext(ctx, query, id, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set dean disapproval: %w", err)
	}
	return expectOneRow(result, "set dean disapproval")
}

// FindByIDForUpdate loads and row-locks a result inside tx.
func (r *ResultRepository) FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.ResultRecord, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE id = $1 FOR UPDATE`
	var record models.ResultRecord
	if err := tx.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkDeanApproved freezes a result after its entries were aggregated.
func (r *ResultRepository) MarkDeanApproved(ctx context.Context, tx *sqlx.Tx, id string, at time.Time) error {
	const query = `UPDATE results
	SET is_dean_approved = TRUE, dean_disapproved = FALSE, dean_disapproval_reason = NULL,
	    approved_at = $2, updated_at = $2
	WHERE id = $1 AND NOT is_dean_approved`
	result, err := tx.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("mark dean approved: %w", err)
	}
	return expectOneRow(result, "mark dean approved")
}

// MarkDeanRetracted reverses a Dean approval and records the reason.
func (r *ResultRepository) MarkDeanRetracted(ctx context.Context, tx *sqlx.Tx, id string, reason string) error {
	const query = `UPDATE results
	SET is_dean_approved = FALSE, approved_at = NULL, dean_disapproved = TRUE,
	    dean_disapproval_reason = $2, updated_at = $3
	WHERE id = $1 AND is_dean_approved`
	result, err := tx.ExecContext(ctx, query, id, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark dean retracted: %w", err)
	}
	return expectOneRow(result, "mark dean retracted")
}

func expectOneRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
