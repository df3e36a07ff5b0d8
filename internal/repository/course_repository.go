package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/result-portal-api/internal/models"
)

// CourseRepository reads the course catalog and registration rosters.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByCode returns the catalog entry for code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	const query = `SELECT code, title, unit, level, has_practical, is_elective FROM courses WHERE code = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListFor returns the students registered for a course in a period, ordered by name.
func (r *CourseRepository) ListFor(ctx context.Context, q models.RosterQuery) ([]models.Registration, error) {
	const query = `SELECT student_id, student_class_id, reg_number, name, year
	FROM course_registrations
	WHERE session = $1 AND semester = $2 AND level = $3 AND course_code = $4
	ORDER BY LOWER(name), reg_number`
	var regs []models.Registration
	if err := r.db.SelectContext(ctx, &regs, query, q.Session, q.Semester, q.Level, q.CourseCode); err != nil {
		return nil, fmt.Errorf("list course registrations: %w", err)
	}
	return regs, nil
}
