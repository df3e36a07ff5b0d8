package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/result-portal-api/internal/models"
)

// PeriodRepository manages the current academic session and semester flags.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs the repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// Active returns the names of the current session and semester.
func (r *PeriodRepository) Active(ctx context.Context) (*models.ActivePeriod, error) {
	const query = `SELECT
	  (SELECT name FROM academic_sessions WHERE is_current) AS session,
	  (SELECT name FROM semesters WHERE is_current) AS semester`
	var row struct {
		Session  sql.NullString `db:"session"`
		Semester sql.NullString `db:"semester"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("get active period: %w", err)
	}
	if !row.Session.Valid || !row.Semester.Valid {
		return nil, sql.ErrNoRows
	}
	return &models.ActivePeriod{Session: row.Session.String, Semester: row.Semester.String}, nil
}

// SetActive makes the named session and semester current, clearing every
// other flag in the same transaction. sql.ErrNoRows means a name is unknown.
func (r *PeriodRepository) SetActive(ctx context.Context, period models.ActivePeriod) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set active period: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = flipCurrent(ctx, tx, "academic_sessions", period.Session); err != nil {
		return err
	}
	if err = flipCurrent(ctx, tx, "semesters", period.Semester); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set active period: %w", err)
	}
	return nil
}

func flipCurrent(ctx context.Context, tx *sqlx.Tx, table, name string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET is_current = FALSE WHERE is_current AND name <> $1`, table), name); err != nil {
		return fmt.Errorf("clear current %s: %w", table, err)
	}
	result, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET is_current = TRUE WHERE name = $1`, table), name)
	if err != nil {
		return fmt.Errorf("set current %s: %w", table, err)
	}
	return expectOneRow(result, "set current "+table)
}
