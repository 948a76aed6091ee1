// Package crm holds the CRM records that built-in operations read and write:
// accounts and activities, always scoped to a workspace.
package crm

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrActivityNotFound = errors.New("activity not found")
	ErrInvalidInput     = errors.New("invalid crm input")
)

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseRFC3339Time(value string) time.Time {
	t, _ := time.Parse(time.RFC3339, value)
	return t
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

type rowScanner interface {
	Scan(dest ...any) error
}
