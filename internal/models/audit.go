package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionResultSubmit     = "RESULT_SUBMIT"
	AuditActionResultEdit       = "RESULT_EDIT"
	AuditActionHODApprove       = "RESULT_HOD_APPROVE"
	AuditActionHODDisapprove    = "RESULT_HOD_DISAPPROVE"
	AuditActionDeanApprove      = "RESULT_DEAN_APPROVE"
	AuditActionDeanDisapprove   = "RESULT_DEAN_DISAPPROVE"
	AuditActionDeanRetract      = "RESULT_DEAN_RETRACT"
	AuditActionActivePeriodSet  = "ACTIVE_PERIOD_SET"
	AuditResourceResult         = "result"
	AuditResourceAcademicPeriod = "academic_period"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
