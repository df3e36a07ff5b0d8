package dto

import "github.com/noah-isme/result-portal-api/internal/models"

// ScoreInput is one student's raw scores as submitted by staff. Nil scores
// are treated as absent.
type ScoreInput struct {
	StudentID      string   `json:"student_id" validate:"required"`
	StudentClassID string   `json:"student_class_id"`
	RegNumber      string   `json:"reg_number" validate:"required"`
	Name           string   `json:"name" validate:"required"`
	Year           string   `json:"year"`
	TestScore      *float64 `json:"test_score" validate:"omitempty,gte=0,lte=100"`
	LabScore       *float64 `json:"lab_score" validate:"omitempty,gte=0,lte=100"`
	ExamScore      *float64 `json:"exam_score" validate:"omitempty,gte=0,lte=100"`
}

// SubmitResultRequest creates a result sheet for a course in a period.
type SubmitResultRequest struct {
	Session    string       `json:"session" validate:"required"`
	Semester   string       `json:"semester" validate:"required"`
	Level      int          `json:"level" validate:"required,gt=0"`
	CourseCode string       `json:"course_code" validate:"required"`
	Entries    []ScoreInput `json:"entries" validate:"required,min=1,dive"`
}

// EditResultRequest fully replaces the entries of a result sheet.
type EditResultRequest struct {
	Entries []ScoreInput `json:"entries" validate:"required,min=1,dive"`
}

// DecisionRequest carries the reviewer's reason for a disapproval or retraction.
type DecisionRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// SetActivePeriodRequest switches the period open for result entry.
type SetActivePeriodRequest struct {
	Session  string `json:"session" validate:"required"`
	Semester string `json:"semester" validate:"required"`
}

// ResultQuery mirrors supported listing filters.
type ResultQuery struct {
	Session    string
	Semester   string
	Level      int
	CourseCode string
	Queue      models.ResultQueue
	Page       int
	PageSize   int
}

// ResultSummary is a list row without the score entries.
type ResultSummary struct {
	ID               string              `json:"id"`
	StaffID          string              `json:"staff_id"`
	Session          string              `json:"session"`
	Semester         string              `json:"semester"`
	Level            int                 `json:"level"`
	CourseCode       string              `json:"course_code"`
	CourseTitle      string              `json:"course_title"`
	Status           models.ResultStatus `json:"status"`
	EntryCount       int                 `json:"entry_count"`
	IsAddedByAdvisor bool                `json:"is_added_by_advisor"`
}

// NewResultSummary projects a record into a list row.
func NewResultSummary(r models.ResultRecord) ResultSummary {
	return ResultSummary{
		ID:               r.ID,
		StaffID:          r.StaffID,
		Session:          r.Session,
		Semester:         r.Semester,
		Level:            r.Level,
		CourseCode:       r.CourseCode,
		CourseTitle:      r.CourseTitle,
		Status:           r.Status(),
		EntryCount:       len(r.Entries),
		IsAddedByAdvisor: r.IsAddedByAdvisor,
	}
}

// CGPAResponse is returned by the CGPA endpoint.
type CGPAResponse struct {
	StudentID string  `json:"student_id"`
	CGPA      float64 `json:"cgpa"`
	Honours   string  `json:"honours"`
}

// ExportResponse references a rendered transcript.
type ExportResponse struct {
	Token       string `json:"token"`
	DownloadURL string `json:"download_url"`
	ExpiresAt   string `json:"expires_at"`
	Format      string `json:"format"`
}
