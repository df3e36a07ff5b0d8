package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/result-portal-api/internal/dto"
	"github.com/noah-isme/result-portal-api/internal/models"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
)

type invalidatorSpy struct {
	students []string
}

func (i *invalidatorSpy) InvalidateStudents(ctx context.Context, studentIDs []string) {
	i.students = append(i.students, studentIDs...)
}

type approvalFixture struct {
	svc     *ApprovalService
	results *resultStoreStub
	slates  *slateStoreStub
	audit   *auditRecorder
	spy     *invalidatorSpy
	metrics *MetricsService
	tx      *txProviderMock
}

func newApprovalFixture(t *testing.T, records ...*models.ResultRecord) *approvalFixture {
	t.Helper()
	tx, _ := newTxProviderMock(t)
	f := &approvalFixture{
		results: newResultStoreStub(records...),
		slates:  newSlateStoreStub(),
		audit:   &auditRecorder{},
		spy:     &invalidatorSpy{},
		metrics: NewMetricsService(),
		tx:      tx,
	}
	f.svc = NewApprovalService(tx, f.results, NewAggregator(f.slates, zap.NewNop()), f.audit, f.metrics,
		ApprovalConfig{MaxAttempts: 3, RetryDelay: time.Millisecond}, zap.NewNop(),
		WithTranscriptInvalidator(f.spy),
		WithApprovalClock(func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }),
	)
	return f
}

var (
	hodActor  = models.Actor{ID: "hod-1", Role: models.RoleHOD}
	deanActor = models.Actor{ID: "dean-1", Role: models.RoleDean}
)

func csc101Record(id string, hodApproved bool) *models.ResultRecord {
	return &models.ResultRecord{
		ID: id, StaffID: "staff-1", Session: "2023/2024", Semester: "first", Level: 100,
		CourseCode: "CSC101", CourseTitle: "Intro to Computing", CourseUnit: 3,
		IsHODApproved: hodApproved,
		Entries: models.ScoreEntries{
			{StudentID: "s1", StudentClassID: "class-1", RegNumber: "R1", Name: "Ada", TestScore: floatPtr(30), ExamScore: floatPtr(45)},
			{StudentID: "s2", StudentClassID: "class-1", RegNumber: "R2", Name: "Bola", TestScore: floatPtr(10), ExamScore: floatPtr(20)},
		},
	}
}

func TestApprovalServiceHODApproveAndDisapprove(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", false))

	record, err := f.svc.Approve(context.Background(), "res-1", hodActor)
	require.NoError(t, err)
	assert.True(t, record.IsHODApproved)
	assert.Equal(t, models.ResultStatusHODApproved, record.Status())

	record, err = f.svc.Disapprove(context.Background(), "res-1", dto.DecisionRequest{Reason: "exam scores missing"}, hodActor)
	require.NoError(t, err)
	assert.False(t, record.IsHODApproved)
	assert.Equal(t, models.Disapproval{IsDisapproved: true, Reason: "exam scores missing"}, record.HODDisapproval())
	assert.Equal(t, []string{models.AuditActionHODApprove, models.AuditActionHODDisapprove}, f.audit.actions())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.resultTransitions.WithLabelValues("hod", "approve")))
}

func TestApprovalServiceDisapproveRequiresReason(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", false))
	_, err := f.svc.Disapprove(context.Background(), "res-1", dto.DecisionRequest{Reason: "   "}, hodActor)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestApprovalServiceRejectsOtherRoles(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", true))
	_, err := f.svc.Approve(context.Background(), "res-1", models.Actor{ID: "staff-1", Role: models.RoleStaff})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = f.svc.Retract(context.Background(), "res-1", dto.DecisionRequest{Reason: "x"}, hodActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestApprovalServiceDeanApproveAggregates(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", true))
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectCommit()

	record, err := f.svc.Approve(context.Background(), "res-1", deanActor)
	require.NoError(t, err)
	require.NoError(t, f.tx.mock.ExpectationsWereMet())

	assert.True(t, record.IsDeanApproved)
	require.NotNil(t, record.ApprovedAt)
	assert.Equal(t, models.ResultStatusDeanApproved, record.Status())
	assert.True(t, f.results.records["res-1"].IsDeanApproved)

	ada := f.slates.slate("s1", "2023/2024", "first", 100)
	require.NotNil(t, ada)
	require.Len(t, ada.Courses, 1)
	assert.Equal(t, "A", ada.Courses[0].Grade)
	assert.Equal(t, 15.0, ada.Courses[0].GradePoints)
	assert.Equal(t, 3, ada.TotalUnits)
	assert.Equal(t, 5.0, ada.GPA)

	bola := f.slates.slate("s2", "2023/2024", "first", 100)
	require.NotNil(t, bola)
	assert.Equal(t, "F", bola.Courses[0].Grade)
	assert.Equal(t, 0.0, bola.GPA)
	assert.Equal(t, 3, bola.TotalUnits, "failed courses still count towards units")

	assert.ElementsMatch(t, []string{"s1", "s2"}, f.spy.students)
	assert.Equal(t, []string{models.AuditActionDeanApprove}, f.audit.actions())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.resultTransitions.WithLabelValues("dean", "approve")))
}

func TestApprovalServiceDeanApprovePracticalWithoutLab(t *testing.T) {
	lab := csc101Record("res-1", true)
	lab.CourseCode, lab.CourseTitle, lab.HasPractical = "PHY107", "Physics Practical", true
	lab.Entries = models.ScoreEntries{
		{StudentID: "s1", StudentClassID: "class-1", RegNumber: "R1", Name: "Ada", TestScore: floatPtr(20), LabScore: floatPtr(15), ExamScore: floatPtr(40)},
		{StudentID: "s2", StudentClassID: "class-1", RegNumber: "R2", Name: "Bola", TestScore: floatPtr(10), LabScore: floatPtr(0), ExamScore: floatPtr(20)},
	}
	f := newApprovalFixture(t, lab)
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectCommit()

	_, err := f.svc.Approve(context.Background(), "res-1", deanActor)
	require.NoError(t, err)

	ada := f.slates.slate("s1", "2023/2024", "first", 100)
	require.NotNil(t, ada)
	require.Len(t, ada.Courses, 1)
	assert.Equal(t, 75.0, ada.Courses[0].TotalScore)
	assert.Equal(t, "A", ada.Courses[0].Grade)
	assert.Equal(t, ada.Courses[0].GradePoints/3, ada.GPA)

	bola := f.slates.slate("s2", "2023/2024", "first", 100)
	require.NotNil(t, bola)
	require.Len(t, bola.Courses, 1)
	assert.Equal(t, 30.0, bola.Courses[0].TotalScore)
	assert.Equal(t, "F", bola.Courses[0].Grade)
	assert.Equal(t, "FAIL", bola.Courses[0].Remark)
	assert.Equal(t, 0.0, bola.GPA)
}

func TestApprovalServiceHODDisapprovalAfterDeanDisapproval(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", true))

	record, err := f.svc.Disapprove(context.Background(), "res-1", dto.DecisionRequest{Reason: "unit mismatch"}, deanActor)
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusDeanDisapproved, record.Status())

	record, err = f.svc.Disapprove(context.Background(), "res-1", dto.DecisionRequest{Reason: "rescore exams"}, hodActor)
	require.NoError(t, err)
	assert.False(t, record.IsHODApproved)
	assert.Equal(t, models.ResultStatusHODDisapproved, record.Status())
	assert.False(t, record.Frozen())
}

func TestApprovalServiceDeanApproveAppendsToExistingSlate(t *testing.T) {
	math := csc101Record("res-2", true)
	math.CourseCode, math.CourseTitle, math.CourseUnit = "MTH101", "Algebra", 2
	f := newApprovalFixture(t, csc101Record("res-1", true), math)
	for i := 0; i < 2; i++ {
		f.tx.mock.ExpectBegin()
		f.tx.mock.ExpectCommit()
	}

	_, err := f.svc.Approve(context.Background(), "res-1", deanActor)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), "res-2", deanActor)
	require.NoError(t, err)

	ada := f.slates.slate("s1", "2023/2024", "first", 100)
	require.Len(t, ada.Courses, 2)
	assert.Equal(t, 5, ada.TotalUnits)
	assert.Equal(t, 25.0, ada.TotalGradePoints)
	assert.Len(t, f.slates.slates, 2, "one slate per student and period")
}

func TestApprovalServiceDeanApproveRequiresHOD(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", false))
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), "res-1", deanActor)
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
	assert.Empty(t, f.slates.slates)
	require.NoError(t, f.tx.mock.ExpectationsWereMet())
}

func TestApprovalServiceDeanApproveTwiceIsFrozen(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", true))
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectCommit()
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), "res-1", deanActor)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), "res-1", deanActor)
	assert.ErrorIs(t, err, appErrors.ErrFrozenRecord)
	assert.Len(t, f.slates.slate("s1", "2023/2024", "first", 100).Courses, 1)
	require.NoError(t, f.tx.mock.ExpectationsWereMet())
}

func TestApprovalServiceDeanApproveCourseAlreadyOnSlate(t *testing.T) {
	other := csc101Record("res-2", true)
	other.StaffID = "staff-2"
	f := newApprovalFixture(t, csc101Record("res-1", true), other)
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectCommit()
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), "res-1", deanActor)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), "res-2", deanActor)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.False(t, f.results.records["res-2"].IsDeanApproved)
}

func TestApprovalServiceDeanApproveRetriesTransientFailures(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", true))
	f.results.lockErrs = []error{&pq.Error{Code: "40P01"}}
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectRollback()
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectCommit()

	record, err := f.svc.Approve(context.Background(), "res-1", deanActor)
	require.NoError(t, err)
	assert.True(t, record.IsDeanApproved)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.approvalRetries))
	require.NoError(t, f.tx.mock.ExpectationsWereMet())
}

func TestApprovalServiceDeanApproveGivesUpAfterMaxAttempts(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", true))
	transient := &pq.Error{Code: "40001"}
	f.results.lockErrs = []error{transient, transient, transient}
	for i := 0; i < 3; i++ {
		f.tx.mock.ExpectBegin()
		f.tx.mock.ExpectRollback()
	}

	_, err := f.svc.Approve(context.Background(), "res-1", deanActor)
	assert.ErrorIs(t, err, appErrors.ErrTransientStorage)
	assert.True(t, appErrors.IsRetryable(err))
	require.NoError(t, f.tx.mock.ExpectationsWereMet())
}

func TestApprovalServiceDeanApprovePartialFailure(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", true))
	f.slates.insertErr = func(snapshot *models.CourseGradeSnapshot) error {
		if f.slates.inserts == 1 {
			return errors.New("disk full")
		}
		return nil
	}
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

	_, err := f.svc.Approve(context.Background(), "res-1", deanActor)
	assert.ErrorIs(t, err, appErrors.ErrPartialApproval)
	assert.False(t, f.results.records["res-1"].IsDeanApproved)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.aggregationFailures))
	assert.Empty(t, f.audit.actions())
}

func TestApprovalServiceDeanApproveFailureRollsBack(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", true))
	f.slates.insertErr = func(snapshot *models.CourseGradeSnapshot) error {
		return errors.New("disk full")
	}
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), "res-1", deanActor)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	require.NoError(t, f.tx.mock.ExpectationsWereMet())
}

func TestApprovalServiceDeanDisapprove(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", true), csc101Record("res-2", false))

	record, err := f.svc.Disapprove(context.Background(), "res-1", dto.DecisionRequest{Reason: "wrong course"}, deanActor)
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusDeanDisapproved, record.Status())
	assert.Equal(t, "wrong course", record.DeanDisapproval().Reason)

	_, err = f.svc.Disapprove(context.Background(), "res-2", dto.DecisionRequest{Reason: "x"}, deanActor)
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
}

func TestApprovalServiceDeanApprovedRecordIsFrozen(t *testing.T) {
	approved := csc101Record("res-1", true)
	approved.IsDeanApproved = true
	f := newApprovalFixture(t, approved)

	_, err := f.svc.Disapprove(context.Background(), "res-1", dto.DecisionRequest{Reason: "late"}, deanActor)
	assert.ErrorIs(t, err, appErrors.ErrFrozenRecord)
	_, err = f.svc.Approve(context.Background(), "res-1", hodActor)
	assert.ErrorIs(t, err, appErrors.ErrFrozenRecord)
	_, err = f.svc.Disapprove(context.Background(), "res-1", dto.DecisionRequest{Reason: "late"}, hodActor)
	assert.ErrorIs(t, err, appErrors.ErrFrozenRecord)
}

func TestApprovalServiceRetract(t *testing.T) {
	math := csc101Record("res-2", true)
	math.CourseCode, math.CourseUnit = "MTH101", 2
	math.Entries = math.Entries[:1]
	f := newApprovalFixture(t, csc101Record("res-1", true), math)
	for i := 0; i < 3; i++ {
		f.tx.mock.ExpectBegin()
		f.tx.mock.ExpectCommit()
	}

	_, err := f.svc.Approve(context.Background(), "res-1", deanActor)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), "res-2", deanActor)
	require.NoError(t, err)
	f.spy.students = nil

	record, err := f.svc.Retract(context.Background(), "res-1", dto.DecisionRequest{Reason: "scores were transposed"}, deanActor)
	require.NoError(t, err)
	require.NoError(t, f.tx.mock.ExpectationsWereMet())

	assert.False(t, record.IsDeanApproved)
	assert.Nil(t, record.ApprovedAt)
	assert.Equal(t, models.ResultStatusDeanDisapproved, record.Status())

	ada := f.slates.slate("s1", "2023/2024", "first", 100)
	require.NotNil(t, ada)
	require.Len(t, ada.Courses, 1)
	assert.Equal(t, "MTH101", ada.Courses[0].Code)
	assert.Equal(t, 2, ada.TotalUnits)
	assert.Nil(t, f.slates.slate("s2", "2023/2024", "first", 100), "empty slate is removed")
	assert.ElementsMatch(t, []string{"s1", "s2"}, f.spy.students)
	assert.Contains(t, f.audit.actions(), models.AuditActionDeanRetract)
}

func TestApprovalServiceRetractRequiresDeanApproval(t *testing.T) {
	f := newApprovalFixture(t, csc101Record("res-1", true))
	f.tx.mock.ExpectBegin()
	f.tx.mock.ExpectRollback()

	_, err := f.svc.Retract(context.Background(), "res-1", dto.DecisionRequest{Reason: "x"}, deanActor)
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
}
