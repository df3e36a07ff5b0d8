package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ResultStatus is derived from the approval flags; it is never stored.
type ResultStatus string

const (
	ResultStatusDraft           ResultStatus = "DRAFT"
	ResultStatusHODApproved     ResultStatus = "HOD_APPROVED"
	ResultStatusHODDisapproved  ResultStatus = "HOD_DISAPPROVED"
	ResultStatusDeanApproved    ResultStatus = "DEAN_APPROVED"
	ResultStatusDeanDisapproved ResultStatus = "DEAN_DISAPPROVED"
)

// ScoreEntry is one student's line on a result sheet. TotalScore, Grade and
// Remark are written only by the grading engine.
type ScoreEntry struct {
	StudentID      string   `json:"student_id"`
	StudentClassID string   `json:"student_class_id,omitempty"`
	RegNumber      string   `json:"reg_number"`
	Name           string   `json:"name"`
	Year           string   `json:"year,omitempty"`
	TestScore      *float64 `json:"test_score"`
	LabScore       *float64 `json:"lab_score"`
	ExamScore      *float64 `json:"exam_score"`
	TotalScore     float64  `json:"total_score"`
	Grade          string   `json:"grade"`
	Remark         string   `json:"remark"`
}

// Scored reports whether any component score has been recorded.
func (e ScoreEntry) Scored() bool {
	return e.TestScore != nil || e.LabScore != nil || e.ExamScore != nil
}

// ScoreEntries is persisted as a JSONB array.
type ScoreEntries []ScoreEntry

// Value marshals entries to JSON for persistence.
func (s ScoreEntries) Value() (driver.Value, error) {
	if s == nil {
		s = ScoreEntries{}
	}
	data, err := json.Marshal([]ScoreEntry(s))
	if err != nil {
		return nil, fmt.Errorf("marshal score entries: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON array into the entries.
func (s *ScoreEntries) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = ScoreEntries{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ScoreEntries", value)
	}
	if len(data) == 0 {
		*s = ScoreEntries{}
		return nil
	}
	var entries []ScoreEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("unmarshal score entries: %w", err)
	}
	*s = entries
	return nil
}

// Disapproval pairs a rejection flag with the reviewer's reason.
type Disapproval struct {
	IsDisapproved bool   `json:"is_disapproved"`
	Reason        string `json:"reason,omitempty"`
}

// ResultRecord is one staff member's score sheet for a course in a period.
// (StaffID, Session, Semester, Level, CourseCode) is unique.
type ResultRecord struct {
	ID                    string       `db:"id" json:"id"`
	StaffID               string       `db:"staff_id" json:"staff_id"`
	Session               string       `db:"session" json:"session"`
	Semester              string       `db:"semester" json:"semester"`
	Level                 int          `db:"level" json:"level"`
	CourseCode            string       `db:"course_code" json:"course_code"`
	CourseTitle           string       `db:"course_title" json:"course_title"`
	CourseUnit            int          `db:"course_unit" json:"course_unit"`
	HasPractical          bool         `db:"has_practical" json:"has_practical"`
	IsElective            bool         `db:"is_elective" json:"is_elective"`
	Entries               ScoreEntries `db:"entries" json:"entries"`
	IsHODApproved         bool         `db:"is_hod_approved" json:"is_hod_approved"`
	IsDeanApproved        bool         `db:"is_dean_approved" json:"is_dean_approved"`
	HODDisapproved        bool         `db:"hod_disapproved" json:"-"`
	HODDisapprovalReason  *string      `db:"hod_disapproval_reason" json:"-"`
	DeanDisapproved       bool         `db:"dean_disapproved" json:"-"`
	DeanDisapprovalReason *string      `db:"dean_disapproval_reason" json:"-"`
	IsAddedByAdvisor      bool         `db:"is_added_by_advisor" json:"is_added_by_advisor"`
	ApprovedAt            *time.Time   `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt             time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time    `db:"updated_at" json:"updated_at"`
}

// Course returns the course snapshot captured at submission time.
func (r *ResultRecord) Course() Course {
	return Course{
		Code:         r.CourseCode,
		Title:        r.CourseTitle,
		Unit:         r.CourseUnit,
		Level:        r.Level,
		HasPractical: r.HasPractical,
		IsElective:   r.IsElective,
	}
}

// SetCourse copies catalog metadata onto the record.
func (r *ResultRecord) SetCourse(c Course) {
	r.CourseCode = c.Code
	r.CourseTitle = c.Title
	r.CourseUnit = c.Unit
	r.HasPractical = c.HasPractical
	r.IsElective = c.IsElective
}

func (r *ResultRecord) HODDisapproval() Disapproval {
	return Disapproval{IsDisapproved: r.HODDisapproved, Reason: deref(r.HODDisapprovalReason)}
}

func (r *ResultRecord) DeanDisapproval() Disapproval {
	return Disapproval{IsDisapproved: r.DeanDisapproved, Reason: deref(r.DeanDisapprovalReason)}
}

// Frozen reports whether entries may no longer be edited.
func (r *ResultRecord) Frozen() bool {
	return r.IsHODApproved || r.IsDeanApproved
}

// Status derives the workflow state from the approval flags. A Dean
// disapproval is only reported while the record still sits at the Dean stage;
// once the HOD disapproves it the record is back with the HOD.
func (r *ResultRecord) Status() ResultStatus {
	switch {
	case r.IsDeanApproved:
		return ResultStatusDeanApproved
	case !r.IsHODApproved && r.HODDisapproved:
		return ResultStatusHODDisapproved
	case r.IsHODApproved && r.DeanDisapproved:
		return ResultStatusDeanDisapproved
	case r.IsHODApproved:
		return ResultStatusHODApproved
	default:
		return ResultStatusDraft
	}
}

// MarshalJSON adds the derived status and nested disapproval objects.
func (r ResultRecord) MarshalJSON() ([]byte, error) {
	type plain ResultRecord
	return json.Marshal(struct {
		plain
		Status          ResultStatus `json:"status"`
		HODDisapproved  Disapproval  `json:"hod_disapproved"`
		DeanDisapproved Disapproval  `json:"dean_disapproved"`
	}{
		plain:           plain(r),
		Status:          r.Status(),
		HODDisapproved:  r.HODDisapproval(),
		DeanDisapproved: r.DeanDisapproval(),
	})
}

// ResultQueue selects a reviewer work list.
type ResultQueue string

const (
	ResultQueueHODPending  ResultQueue = "hod_pending"
	ResultQueueDeanPending ResultQueue = "dean_pending"
)

// ResultFilter constrains listing queries.
type ResultFilter struct {
	StaffID    string
	Session    string
	Semester   string
	Level      int
	CourseCode string
	Queue      ResultQueue
	Page       int
	PageSize   int
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
