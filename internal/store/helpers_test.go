package store

import (
	"context"
	"testing"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/model"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strp(s string) *string { return &s }

func mustProfile(t *testing.T, db *database.DB, email string) *model.Profile {
	t.Helper()
	var e *string
	if email != "" {
		e = &email
	}
	p, err := NewProfileStore(db).Create(context.Background(), e, "", model.RoleUser)
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}

func mustPairing(t *testing.T, db *database.DB, date, locale string) *model.Pairing {
	t.Helper()
	res, err := NewPairingStore(db).TryInsert(context.Background(), PairingFields{PairingDate: date, Locale: locale})
	if err != nil {
		t.Fatalf("insert pairing: %v", err)
	}
	if !res.Created {
		t.Fatalf("pairing %s/%s already exists", date, locale)
	}
	return res.Row
}
