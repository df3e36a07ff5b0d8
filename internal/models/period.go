package models

import "time"

// AcademicSession is a school year such as 2023/2024.
type AcademicSession struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Semester is a named term within a session.
type Semester struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ActivePeriod is the session and semester currently open for result entry.
type ActivePeriod struct {
	Session  string `json:"session"`
	Semester string `json:"semester"`
}
