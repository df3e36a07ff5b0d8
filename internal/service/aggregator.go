package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/result-portal-api/internal/grading"
	"github.com/noah-isme/result-portal-api/internal/models"
	"github.com/noah-isme/result-portal-api/pkg/database"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
)

type slateStore interface {
	LockSlate(ctx context.Context, tx *sqlx.Tx, seed *models.ApprovedResult) (*models.ApprovedResult, error)
	FindByResultForUpdate(ctx context.Context, tx *sqlx.Tx, resultID string) ([]models.ApprovedResult, error)
	InsertCourse(ctx context.Context, tx *sqlx.Tx, snapshot *models.CourseGradeSnapshot) error
	DeleteCourse(ctx context.Context, tx *sqlx.Tx, slateID, code string) error
	SaveTotals(ctx context.Context, tx *sqlx.Tx, slate *models.ApprovedResult) error
	Delete(ctx context.Context, tx *sqlx.Tx, slateID string) error
}

// Aggregator moves graded entries of a result sheet onto per-student slates.
// Every call runs inside the caller's transaction.
type Aggregator struct {
	slates slateStore
	logger *zap.Logger
}

// NewAggregator constructs an Aggregator.
func NewAggregator(slates slateStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{slates: slates, logger: logger}
}

// Merge appends one course snapshot per entry to the student's slate for the
// record's period, creating slates as needed. It returns the affected student IDs.
func (a *Aggregator) Merge(ctx context.Context, tx *sqlx.Tx, record *models.ResultRecord) ([]string, error) {
	course := record.Course()
	students := make([]string, 0, len(record.Entries))
	for _, entry := range record.Entries {
		// stored grades are re-derived so slates never disagree with the scores
		gradeEntry(&entry, course.HasPractical)

		slate, err := a.slates.LockSlate(ctx, tx, &models.ApprovedResult{
			StudentID:      entry.StudentID,
			StudentClassID: entry.StudentClassID,
			RegNumber:      entry.RegNumber,
			Name:           entry.Name,
			Year:           entry.Year,
			Session:        record.Session,
			Semester:       record.Semester,
			Level:          record.Level,
		})
		if err != nil {
			return nil, storageError(err, "failed to lock approved result")
		}

		snapshot := models.CourseGradeSnapshot{
			ResultID:     record.ID,
			Code:         course.Code,
			Title:        course.Title,
			Unit:         course.Unit,
			Level:        course.Level,
			HasPractical: course.HasPractical,
			IsElective:   course.IsElective,
			TestScore:    entry.TestScore,
			LabScore:     entry.LabScore,
			ExamScore:    entry.ExamScore,
			TotalScore:   entry.TotalScore,
			Grade:        entry.Grade,
			Remark:       entry.Remark,
			GradePoints:  grading.GradePoints(entry.Grade, course.Unit),
		}
		if err := slate.Append(snapshot); err != nil {
			if errors.Is(err, models.ErrCourseOnSlate) {
				return nil, courseOnSlateConflict(err, course.Code, entry.StudentID)
			}
			return nil, err
		}
		if err := a.slates.InsertCourse(ctx, tx, &slate.Courses[len(slate.Courses)-1]); err != nil {
			if database.IsUniqueViolation(err) {
				return nil, courseOnSlateConflict(err, course.Code, entry.StudentID)
			}
			return nil, storageError(err, "failed to store approved course")
		}
		if err := a.slates.SaveTotals(ctx, tx, slate); err != nil {
			return nil, storageError(err, "failed to update approved result totals")
		}
		students = append(students, entry.StudentID)
	}
	a.logger.Debug("result merged into approved results",
		zap.String("result_id", record.ID),
		zap.Int("students", len(students)),
	)
	return students, nil
}

// Unmerge removes every snapshot produced by the record. Slates left without
// courses are deleted. It returns the affected student IDs.
func (a *Aggregator) Unmerge(ctx context.Context, tx *sqlx.Tx, record *models.ResultRecord) ([]string, error) {
	slates, err := a.slates.FindByResultForUpdate(ctx, tx, record.ID)
	if err != nil {
		return nil, storageError(err, "failed to lock approved results")
	}
	students := make([]string, 0, len(slates))
	for i := range slates {
		slate := &slates[i]
		if !slate.Remove(record.CourseCode) {
			continue
		}
		if err := a.slates.DeleteCourse(ctx, tx, slate.ID, record.CourseCode); err != nil {
			return nil, storageError(err, "failed to remove approved course")
		}
		if len(slate.Courses) == 0 {
			if err := a.slates.Delete(ctx, tx, slate.ID); err != nil {
				return nil, storageError(err, "failed to remove approved result")
			}
		} else if err := a.slates.SaveTotals(ctx, tx, slate); err != nil {
			return nil, storageError(err, "failed to update approved result totals")
		}
		students = append(students, slate.StudentID)
	}
	return students, nil
}

func courseOnSlateConflict(err error, code, studentID string) error {
	return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status,
		fmt.Sprintf("course %s is already approved for student %s in this period", code, studentID))
}
