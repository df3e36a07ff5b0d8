package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/result-portal-api/internal/dto"
	"github.com/noah-isme/result-portal-api/internal/models"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
)

type courseCatalogStub struct {
	courses       map[string]models.Course
	registrations []models.Registration
	rosterQuery   models.RosterQuery
}

func (c *courseCatalogStub) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	course, ok := c.courses[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (c *courseCatalogStub) ListFor(ctx context.Context, q models.RosterQuery) ([]models.Registration, error) {
	c.rosterQuery = q
	return c.registrations, nil
}

func newCourseCatalogStub() *courseCatalogStub {
	return &courseCatalogStub{courses: map[string]models.Course{
		"CSC101": {Code: "CSC101", Title: "Intro to Computing", Unit: 3, Level: 100},
		"PHY107": {Code: "PHY107", Title: "Physics Lab", Unit: 1, Level: 100, HasPractical: true},
	}}
}

func newResultServiceFixture(store *resultStoreStub, catalog *courseCatalogStub, audit *auditRecorder) *ResultService {
	return NewResultService(store, catalog, catalog, audit, nil, zap.NewNop())
}

func submitRequest(code string, inputs ...dto.ScoreInput) dto.SubmitResultRequest {
	return dto.SubmitResultRequest{
		Session:    "2023/2024",
		Semester:   "first",
		Level:      100,
		CourseCode: code,
		Entries:    inputs,
	}
}

func scoreInput(id, name string, test, lab, exam *float64) dto.ScoreInput {
	return dto.ScoreInput{StudentID: id, RegNumber: "REG-" + id, Name: name, TestScore: test, LabScore: lab, ExamScore: exam}
}

func TestResultServiceSubmitGradesEntries(t *testing.T) {
	store := newResultStoreStub()
	audit := &auditRecorder{}
	svc := newResultServiceFixture(store, newCourseCatalogStub(), audit)

	record, err := svc.Submit(context.Background(), submitRequest("phy107",
		scoreInput("s1", "Ada", floatPtr(20), floatPtr(15), floatPtr(40)),
		scoreInput("s2", "Bola", floatPtr(30), nil, floatPtr(50)),
	), models.Actor{ID: "staff-1", Role: models.RoleStaff})
	require.NoError(t, err)

	assert.Equal(t, "PHY107", record.CourseCode)
	assert.True(t, record.HasPractical)
	assert.False(t, record.IsAddedByAdvisor)
	assert.Equal(t, models.ResultStatusDraft, record.Status())
	require.Len(t, record.Entries, 2)
	assert.Equal(t, 75.0, record.Entries[0].TotalScore)
	assert.Equal(t, "A", record.Entries[0].Grade)
	assert.Equal(t, "PASS", record.Entries[0].Remark)
	assert.Equal(t, "F", record.Entries[1].Grade, "practical course without a lab score fails")
	assert.Equal(t, []string{models.AuditActionResultSubmit}, audit.actions())
}

func TestResultServiceSubmitByAdvisorIsFlagged(t *testing.T) {
	svc := newResultServiceFixture(newResultStoreStub(), newCourseCatalogStub(), nil)
	record, err := svc.Submit(context.Background(), submitRequest("CSC101",
		scoreInput("s1", "Ada", floatPtr(30), nil, floatPtr(40)),
	), models.Actor{ID: "adv-1", Role: models.RoleAdvisor})
	require.NoError(t, err)
	assert.True(t, record.IsAddedByAdvisor)
}

func TestResultServiceSubmitRejectsDuplicates(t *testing.T) {
	store := newResultStoreStub()
	svc := newResultServiceFixture(store, newCourseCatalogStub(), nil)
	actor := models.Actor{ID: "staff-1", Role: models.RoleStaff}
	req := submitRequest("CSC101", scoreInput("s1", "Ada", floatPtr(30), nil, floatPtr(40)))

	_, err := svc.Submit(context.Background(), req, actor)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), req, actor)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateRecord)
	assert.Equal(t, 1, store.created)

	_, err = svc.Submit(context.Background(), req, models.Actor{ID: "staff-2", Role: models.RoleStaff})
	assert.NoError(t, err, "another staff member may submit the same course")
}

func TestResultServiceSubmitMapsUniqueViolation(t *testing.T) {
	store := newResultStoreStub()
	store.createErr = fmt.Errorf("create result: %w", &pq.Error{Code: "23505"})
	svc := newResultServiceFixture(store, newCourseCatalogStub(), nil)

	_, err := svc.Submit(context.Background(), submitRequest("CSC101",
		scoreInput("s1", "Ada", floatPtr(30), nil, floatPtr(40)),
	), models.Actor{ID: "staff-1", Role: models.RoleStaff})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateRecord)
}

func TestResultServiceSubmitValidation(t *testing.T) {
	svc := newResultServiceFixture(newResultStoreStub(), newCourseCatalogStub(), nil)
	actor := models.Actor{ID: "staff-1", Role: models.RoleStaff}

	cases := map[string]dto.SubmitResultRequest{
		"no entries":        submitRequest("CSC101"),
		"score above range": submitRequest("CSC101", scoreInput("s1", "Ada", floatPtr(101), nil, nil)),
		"negative score":    submitRequest("CSC101", scoreInput("s1", "Ada", floatPtr(-1), nil, nil)),
		"repeated student": submitRequest("CSC101",
			scoreInput("s1", "Ada", floatPtr(10), nil, nil),
			scoreInput("s1", "Ada", floatPtr(20), nil, nil),
		),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), req, actor)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
}

func TestResultServiceSubmitUnknownCourse(t *testing.T) {
	svc := newResultServiceFixture(newResultStoreStub(), newCourseCatalogStub(), nil)
	_, err := svc.Submit(context.Background(), submitRequest("XYZ999",
		scoreInput("s1", "Ada", floatPtr(30), nil, floatPtr(40)),
	), models.Actor{ID: "staff-1", Role: models.RoleStaff})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestResultServiceEdit(t *testing.T) {
	existing := &models.ResultRecord{ID: "res-1", StaffID: "staff-1", CourseCode: "CSC101", CourseUnit: 3}
	store := newResultStoreStub(existing)
	audit := &auditRecorder{}
	svc := newResultServiceFixture(store, newCourseCatalogStub(), audit)
	req := dto.EditResultRequest{Entries: []dto.ScoreInput{scoreInput("s1", "Ada", floatPtr(25), nil, floatPtr(40))}}

	record, err := svc.Edit(context.Background(), "res-1", req, models.Actor{ID: "staff-1", Role: models.RoleStaff})
	require.NoError(t, err)
	assert.Equal(t, "B", record.Entries[0].Grade)
	assert.Equal(t, "B", store.records["res-1"].Entries[0].Grade)
	assert.Equal(t, []string{models.AuditActionResultEdit}, audit.actions())

	_, err = svc.Edit(context.Background(), "res-1", req, models.Actor{ID: "staff-2", Role: models.RoleStaff})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Edit(context.Background(), "res-1", req, models.Actor{ID: "admin-1", Role: models.RoleAdmin})
	assert.NoError(t, err)

	_, err = svc.Edit(context.Background(), "missing", req, models.Actor{ID: "staff-1", Role: models.RoleStaff})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestResultServiceEditFrozen(t *testing.T) {
	store := newResultStoreStub(
		&models.ResultRecord{ID: "hod", StaffID: "staff-1", IsHODApproved: true},
		&models.ResultRecord{ID: "dean", StaffID: "staff-1", IsHODApproved: true, IsDeanApproved: true},
	)
	svc := newResultServiceFixture(store, newCourseCatalogStub(), nil)
	req := dto.EditResultRequest{Entries: []dto.ScoreInput{scoreInput("s1", "Ada", floatPtr(25), nil, floatPtr(40))}}

	for _, id := range []string{"hod", "dean"} {
		_, err := svc.Edit(context.Background(), id, req, models.Actor{ID: "staff-1", Role: models.RoleStaff})
		assert.ErrorIs(t, err, appErrors.ErrFrozenRecord, id)
	}
}

type racingStore struct {
	*resultStoreStub
}

func (r racingStore) ReplaceEntries(ctx context.Context, id string, entries models.ScoreEntries) error {
	return sql.ErrNoRows
}

func TestResultServiceEditLosesRaceToApproval(t *testing.T) {
	store := racingStore{newResultStoreStub(&models.ResultRecord{ID: "res-1", StaffID: "staff-1"})}
	svc := NewResultService(store, newCourseCatalogStub(), newCourseCatalogStub(), nil, nil, nil)
	req := dto.EditResultRequest{Entries: []dto.ScoreInput{scoreInput("s1", "Ada", floatPtr(25), nil, floatPtr(40))}}

	_, err := svc.Edit(context.Background(), "res-1", req, models.Actor{ID: "staff-1", Role: models.RoleStaff})
	assert.ErrorIs(t, err, appErrors.ErrFrozenRecord)
}

func TestResultServiceReconcileAddsMissingStudents(t *testing.T) {
	existing := &models.ResultRecord{
		ID: "res-1", StaffID: "staff-1", Session: "2023/2024", Semester: "first", Level: 100, CourseCode: "CSC101",
		Entries: models.ScoreEntries{
			{StudentID: "s2", Name: "zainab", TestScore: floatPtr(20), TotalScore: 20, Grade: "F"},
			{StudentID: "s1", Name: "Bola", TestScore: floatPtr(30), TotalScore: 30, Grade: "F"},
		},
	}
	store := newResultStoreStub(existing)
	catalog := newCourseCatalogStub()
	catalog.registrations = []models.Registration{
		{StudentID: "s1", Name: "Bola"},
		{StudentID: "s3", Name: "ada", RegNumber: "R3"},
	}
	svc := newResultServiceFixture(store, catalog, nil)

	prepared, err := svc.Reconcile(context.Background(), "res-1", models.Actor{ID: "staff-1", Role: models.RoleStaff})
	require.NoError(t, err)

	require.Len(t, prepared.Entries, 3)
	assert.Equal(t, []string{"s3", "s1", "s2"}, []string{prepared.Entries[0].StudentID, prepared.Entries[1].StudentID, prepared.Entries[2].StudentID})
	assert.False(t, prepared.Entries[0].Scored())
	assert.Equal(t, "CSC101", catalog.rosterQuery.CourseCode)
	assert.Len(t, store.records["res-1"].Entries, 2, "reconcile does not persist")
}

func TestResultServiceListScopesByRole(t *testing.T) {
	store := newResultStoreStub(
		&models.ResultRecord{ID: "a", StaffID: "staff-1"},
		&models.ResultRecord{ID: "b", StaffID: "staff-2", IsHODApproved: true},
		&models.ResultRecord{ID: "c", StaffID: "staff-2", IsHODApproved: true, IsDeanApproved: true},
	)
	svc := newResultServiceFixture(store, newCourseCatalogStub(), nil)

	rows, page, err := svc.List(context.Background(), dto.ResultQuery{}, models.Actor{ID: "staff-1", Role: models.RoleStaff})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.PageSize)

	rows, _, err = svc.List(context.Background(), dto.ResultQuery{}, models.Actor{ID: "hod-1", Role: models.RoleHOD})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, models.ResultQueueHODPending, store.lastQuery.Queue)

	rows, _, err = svc.List(context.Background(), dto.ResultQuery{}, models.Actor{ID: "dean-1", Role: models.RoleDean})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].ID)
	assert.Equal(t, models.ResultStatusHODApproved, rows[0].Status)

	rows, _, err = svc.List(context.Background(), dto.ResultQuery{}, models.Actor{ID: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, _, err = svc.List(context.Background(), dto.ResultQuery{Queue: "bogus"}, models.Actor{ID: "admin", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.List(context.Background(), dto.ResultQuery{}, models.Actor{ID: "s1", Role: models.RoleStudent})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestResultServiceGetMapsStorageErrors(t *testing.T) {
	store := newResultStoreStub()
	store.findErr = errors.New("boom")
	svc := newResultServiceFixture(store, newCourseCatalogStub(), nil)

	_, err := svc.Get(context.Background(), "res-1")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.False(t, appErrors.IsRetryable(err))
}

func TestResultServiceView(t *testing.T) {
	store := newResultStoreStub(&models.ResultRecord{ID: "res-1", StaffID: "staff-1"})
	svc := newResultServiceFixture(store, newCourseCatalogStub(), nil)

	_, err := svc.View(context.Background(), "res-1", models.Actor{ID: "staff-1", Role: models.RoleStaff})
	assert.NoError(t, err)
	_, err = svc.View(context.Background(), "res-1", models.Actor{ID: "adv-9", Role: models.RoleAdvisor})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.View(context.Background(), "res-1", models.Actor{ID: "hod-1", Role: models.RoleHOD})
	assert.NoError(t, err)
}
