package models

import (
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/result-portal-api/internal/grading"
)

// ErrCourseOnSlate is returned when a course code is appended twice to the same slate.
var ErrCourseOnSlate = errors.New("course already recorded on slate")

// SlateKey identifies one approved-result slate.
type SlateKey struct {
	StudentID string
	Session   string
	Semester  string
	Level     int
}

// CourseGradeSnapshot freezes a course's metadata and a student's graded
// scores at the moment of Dean approval.
type CourseGradeSnapshot struct {
	ApprovedResultID string    `db:"approved_result_id" json:"-"`
	ResultID         string    `db:"result_id" json:"result_id"`
	Code             string    `db:"code" json:"code"`
	Title            string    `db:"title" json:"title"`
	Unit             int       `db:"unit" json:"unit"`
	Level            int       `db:"level" json:"level"`
	HasPractical     bool      `db:"has_practical" json:"has_practical"`
	IsElective       bool      `db:"is_elective" json:"is_elective"`
	TestScore        *float64  `db:"test_score" json:"test_score"`
	LabScore         *float64  `db:"lab_score" json:"lab_score"`
	ExamScore        *float64  `db:"exam_score" json:"exam_score"`
	TotalScore       float64   `db:"total_score" json:"total_score"`
	Grade            string    `db:"grade" json:"grade"`
	Remark           string    `db:"remark" json:"remark"`
	GradePoints      float64   `db:"grade_points" json:"grade_points"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// ApprovedResult is a student's permanent record for one
// (session, semester, level). Totals are always re-derived from Courses.
type ApprovedResult struct {
	ID               string                `db:"id" json:"id"`
	StudentID        string                `db:"student_id" json:"student_id"`
	StudentClassID   string                `db:"student_class_id" json:"student_class_id"`
	RegNumber        string                `db:"reg_number" json:"reg_number"`
	Name             string                `db:"name" json:"name"`
	Year             string                `db:"year" json:"year"`
	Session          string                `db:"session" json:"session"`
	Semester         string                `db:"semester" json:"semester"`
	Level            int                   `db:"level" json:"level"`
	TotalUnits       int                   `db:"total_units" json:"total_units"`
	TotalGradePoints float64               `db:"total_grade_points" json:"total_grade_points"`
	GPA              float64               `db:"gpa" json:"gpa"`
	Courses          []CourseGradeSnapshot `db:"-" json:"courses"`
	CreatedAt        time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time             `db:"updated_at" json:"updated_at"`
}

// Key returns the slate identity.
func (a *ApprovedResult) Key() SlateKey {
	return SlateKey{StudentID: a.StudentID, Session: a.Session, Semester: a.Semester, Level: a.Level}
}

// HasCourse reports whether code is already on the slate.
func (a *ApprovedResult) HasCourse(code string) bool {
	for _, c := range a.Courses {
		if strings.EqualFold(c.Code, code) {
			return true
		}
	}
	return false
}

// Append adds a snapshot and re-derives the totals.
func (a *ApprovedResult) Append(s CourseGradeSnapshot) error {
	if a.HasCourse(s.Code) {
		return ErrCourseOnSlate
	}
	s.ApprovedResultID = a.ID
	a.Courses = append(a.Courses, s)
	a.Recompute()
	return nil
}

// Remove drops the snapshot for code and re-derives the totals. It reports
// whether anything was removed.
func (a *ApprovedResult) Remove(code string) bool {
	kept := a.Courses[:0]
	removed := false
	for _, c := range a.Courses {
		if strings.EqualFold(c.Code, code) {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	a.Courses = kept
	if removed {
		a.Recompute()
	}
	return removed
}

// Recompute sets TNU, TGP and GPA from the course snapshots.
func (a *ApprovedResult) Recompute() {
	units := 0
	points := 0.0
	for _, c := range a.Courses {
		units += c.Unit
		points += c.GradePoints
	}
	a.TotalUnits = units
	a.TotalGradePoints = points
	a.GPA = grading.GPA(points, float64(units))
}
