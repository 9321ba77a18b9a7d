package store

import (
	"database/sql"
	"strings"
	"time"
)

// InsertResult is the outcome of an insert guarded by a unique constraint:
// either a new row was created, or the slot was already taken. Existing holds
// the row that owns the slot when the store could load it.
type InsertResult[T any] struct {
	Created  bool
	Row      *T
	Existing *T
}

type scanner interface{ Scan(...any) error }

func now() time.Time {
	return time.Now().UTC()
}

// nullString maps an empty or whitespace-only string to NULL.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
