package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/result-portal-api/internal/models"
)

const slateColumns = `id, student_id, student_class_id, reg_number, name, year, session, semester, level,
       total_units, total_grade_points, gpa, created_at, updated_at`

const slateCourseColumns = `approved_result_id, result_id, code, title, unit, level, has_practical, is_elective,
       test_score, lab_score, exam_score, total_score, grade, remark, grade_points, created_at`

// ApprovedResultRepository persists per-student approved-result slates and
// their course snapshots.
type ApprovedResultRepository struct {
	db *sqlx.DB
}

// NewApprovedResultRepository constructs the repository.
func NewApprovedResultRepository(db *sqlx.DB) *ApprovedResultRepository {
	return &ApprovedResultRepository{db: db}
}

// LockSlate returns the slate for seed's key, creating it when absent, with
// the row locked for the rest of tx. Concurrent callers for the same key
// serialise on the unique index and the row lock.
func (r *ApprovedResultRepository) LockSlate(ctx context.Context, tx *sqlx.Tx, seed *models.ApprovedResult) (*models.ApprovedResult, error) {
	if seed.ID == "" {
		seed.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const insertQuery = `INSERT INTO approved_results
	(id, student_id, student_class_id, reg_number, name, year, session, semester, level,
	 total_units, total_grade_points, gpa, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, 0, $10, $10)
	ON CONFLICT (student_id, session, semester, level) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insertQuery,
		seed.ID, seed.StudentID, seed.StudentClassID, seed.RegNumber, seed.Name, seed.Year,
		seed.Session, seed.Semester, seed.Level, now,
	); err != nil {
		return nil, fmt.Errorf("insert approved result: %w", err)
	}

	query := `SELECT ` + slateColumns + ` FROM approved_results
	WHERE student_id = $1 AND session = $2 AND semester = $3 AND level = $4 FOR UPDATE`
	var slate models.ApprovedResult
	if err := tx.GetContext(ctx, &slate, query, seed.StudentID, seed.Session, seed.Semester, seed.Level); err != nil {
		return nil, fmt.Errorf("lock approved result: %w", err)
	}

	courses, err := r.loadCourses(ctx, tx, []string{slate.ID})
	if err != nil {
		return nil, err
	}
	slate.Courses = courses[slate.ID]
	return &slate, nil
}

// FindByResultForUpdate locks every slate holding a snapshot produced by resultID.
func (r *ApprovedResultRepository) FindByResultForUpdate(ctx context.Context, tx *sqlx.Tx, resultID string) ([]models.ApprovedResult, error) {
	query := `SELECT ` + slateColumns + ` FROM approved_results
	WHERE id IN (SELECT approved_result_id FROM approved_result_courses WHERE result_id = $1)
	ORDER BY id FOR UPDATE`
	var slates []models.ApprovedResult
	if err := tx.SelectContext(ctx, &slates, query, resultID); err != nil {
		return nil, fmt.Errorf("lock approved results for result: %w", err)
	}
	if err := r.attachCourses(ctx, tx, slates); err != nil {
		return nil, err
	}
	return slates, nil
}

// InsertCourse stores one snapshot. (approved_result_id, code) is the primary key.
func (r *ApprovedResultRepository) InsertCourse(ctx context.Context, tx *sqlx.Tx, snapshot *models.CourseGradeSnapshot) error {
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approved_result_courses
	(approved_result_id, result_id, code, title, unit, level, has_practical, is_elective,
	 test_score, lab_score, exam_score, total_score, grade, remark, grade_points, created_at)
	VALUES (:approved_result_id, :result_id, :code, :title, :unit, :level, :has_practical, :is_elective,
	 :test_score, :lab_score, :exam_score, :total_score, :grade, :remark, :grade_points, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("insert approved course: %w", err)
	}
	return nil
}

// DeleteCourse removes one snapshot from a slate.
func (r *ApprovedResultRepository) DeleteCourse(ctx context.Context, tx *sqlx.Tx, slateID, code string) error {
	const query = `DELETE FROM approved_result_courses WHERE approved_result_id = $1 AND code = $2`
	if _, err := tx.ExecContext(ctx, query, slateID, code); err != nil {
		return fmt.Errorf("delete approved course: %w", err)
	}
	return nil
}

// SaveTotals persists the derived TNU, TGP and GPA of a slate.
func (r *ApprovedResultRepository) SaveTotals(ctx context.Context, tx *sqlx.Tx, slate *models.ApprovedResult) error {
	slate.UpdatedAt = time.Now().UTC()
	const query = `UPDATE approved_results
	SET total_units = $2, total_grade_points = $3, gpa = $4, updated_at = $5
	WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, slate.ID, slate.TotalUnits, slate.TotalGradePoints, slate.GPA, slate.UpdatedAt); err != nil {
		return fmt.Errorf("save approved result totals: %w", err)
	}
	return nil
}

// Delete removes an empty slate.
func (r *ApprovedResultRepository) Delete(ctx context.Context, tx *sqlx.Tx, slateID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM approved_results WHERE id = $1`, slateID); err != nil {
		return fmt.Errorf("delete approved result: %w", err)
	}
	return nil
}

// ListByStudent returns a student's slates in the order they were first created.
func (r *ApprovedResultRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ApprovedResult, error) {
	query := `SELECT ` + slateColumns + ` FROM approved_results WHERE student_id = $1 ORDER BY created_at, id`
	var slates []models.ApprovedResult
	if err := r.db.SelectContext(ctx, &slates, query, studentID); err != nil {
		return nil, fmt.Errorf("list approved results: %w", err)
	}
	if err := r.attachCourses(ctx, r.db, slates); err != nil {
		return nil, err
	}
	return slates, nil
}

// ListByClass returns the slates of every student in a class without course detail.
func (r *ApprovedResultRepository) ListByClass(ctx context.Context, classID string) ([]models.ApprovedResult, error) {
	query := `SELECT ` + slateColumns + ` FROM approved_results WHERE student_class_id = $1 ORDER BY student_id, created_at`
	var slates []models.ApprovedResult
	if err := r.db.SelectContext(ctx, &slates, query, classID); err != nil {
		return nil, fmt.Errorf("list class approved results: %w", err)
	}
	return slates, nil
}

// ListByClassPeriod returns a class's slates for one period with their
// course snapshots, ordered by student name.
func (r *ApprovedResultRepository) ListByClassPeriod(ctx context.Context, classID, session, semester string, level int) ([]models.ApprovedResult, error) {
	query := `SELECT ` + slateColumns + ` FROM approved_results
	WHERE student_class_id = $1 AND session = $2 AND semester = $3 AND level = $4
	ORDER BY name, reg_number`
	var slates []models.ApprovedResult
	if err := r.db.SelectContext(ctx, &slates, query, classID, session, semester, level); err != nil {
		return nil, fmt.Errorf("list class period approved results: %w", err)
	}
	if err := r.attachCourses(ctx, r.db, slates); err != nil {
		return nil, err
	}
	return slates, nil
}

// ListClassPrior returns, without course detail, the class's slates that
// precede the period: every lower level, plus the same session and level in
// semesters created before the given one.
func (r *ApprovedResultRepository) ListClassPrior(ctx context.Context, classID, session, semester string, level int) ([]models.ApprovedResult, error) {
	query := `SELECT ` + slateColumns + ` FROM approved_results
	WHERE student_class_id = $1
	  AND (level < $4
	   OR (session = $2 AND level = $4 AND semester IN (
	       SELECT s.name FROM semesters s
	       WHERE s.created_at < (SELECT c.created_at FROM semesters c WHERE c.name = $3))))
	ORDER BY student_id, level, created_at`
	var slates []models.ApprovedResult
	if err := r.db.SelectContext(ctx, &slates, query, classID, session, semester, level); err != nil {
		return nil, fmt.Errorf("list prior class approved results: %w", err)
	}
	return slates, nil
}

func (r *ApprovedResultRepository) attachCourses(ctx context.Context, q sqlx.QueryerContext, slates []models.ApprovedResult) error {
	if len(slates) == 0 {
		return nil
	}
	ids := make([]string, len(slates))
	for i := range slates {
		ids[i] = slates[i].ID
	}
	courses, err := r.loadCourses(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range slates {
		slates[i].Courses = courses[slates[i].ID]
	}
	return nil
}

func (r *ApprovedResultRepository) loadCourses(ctx context.Context, q sqlx.QueryerContext, slateIDs []string) (map[string][]models.CourseGradeSnapshot, error) {
	query := `SELECT ` + slateCourseColumns + ` FROM approved_result_courses
	WHERE approved_result_id = ANY($1) ORDER BY created_at, code`
	var rows []models.CourseGradeSnapshot
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(slateIDs)); err != nil {
		return nil, fmt.Errorf("load approved courses: %w", err)
	}
	out := make(map[string][]models.CourseGradeSnapshot, len(slateIDs))
	for _, row := range rows {
		out[row.ApprovedResultID] = append(out[row.ApprovedResultID], row)
	}
	return out, nil
}
