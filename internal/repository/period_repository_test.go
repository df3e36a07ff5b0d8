package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/result-portal-api/internal/models"
)

func TestPeriodRepositoryActive(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewPeriodRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM academic_sessions WHERE is_current")).
		WillReturnRows(sqlmock.NewRows([]string{"session", "semester"}).AddRow("2023/2024", "second"))

	period, err := repo.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ActivePeriod{Session: "2023/2024", Semester: "second"}, *period)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryActiveUnset(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewPeriodRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM academic_sessions WHERE is_current")).
		WillReturnRows(sqlmock.NewRows([]string{"session", "semester"}).AddRow(nil, "second"))

	_, err := repo.Active(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositorySetActive(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewPeriodRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_sessions SET is_current = FALSE")).
		WithArgs("2024/2025").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_sessions SET is_current = TRUE")).
		WithArgs("2024/2025").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE semesters SET is_current = FALSE")).
		WithArgs("first").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE semesters SET is_current = TRUE")).
		WithArgs("first").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetActive(context.Background(), models.ActivePeriod{Session: "2024/2025", Semester: "first"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositorySetActiveUnknownRollsBack(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewPeriodRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_sessions SET is_current = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_sessions SET is_current = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetActive(context.Background(), models.ActivePeriod{Session: "1999/2000", Semester: "first"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
