package store

import (
	"context"
	"testing"
)

func TestSavedSaveIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSavedStore(db)
	ctx := context.Background()
	u := mustProfile(t, db, "alice@example.com")
	p := mustPairing(t, db, "2026-03-01", "en")

	first, err := ss.Save(ctx, u.ID, p.ID)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !first.Created || first.Row == nil {
		t.Fatalf("first save = %+v, want created", first)
	}

	second, err := ss.Save(ctx, u.ID, p.ID)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if second.Created {
		t.Error("second save reported created")
	}
	if second.Row == nil || !second.Row.CreatedAt.Equal(first.Row.CreatedAt) {
		t.Errorf("second save created_at = %v, want %v", second.Row, first.Row.CreatedAt)
	}

	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_items WHERE user_id = ?`, u.ID).Scan(&count)
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
}

func TestSavedUnsaveAndOwnership(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSavedStore(db)
	ctx := context.Background()
	alice := mustProfile(t, db, "alice@example.com")
	bob := mustProfile(t, db, "bob@example.com")
	p := mustPairing(t, db, "2026-03-01", "en")

	ss.Save(ctx, alice.ID, p.ID)
	ss.Save(ctx, bob.ID, p.ID)

	if err := ss.Unsave(ctx, bob.ID, p.ID); err != nil {
		t.Fatalf("unsave: %v", err)
	}
	if err := ss.Unsave(ctx, bob.ID, p.ID); err != nil {
		t.Fatalf("second unsave: %v", err)
	}

	aliceItems, err := ss.List(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(aliceItems) != 1 || aliceItems[0].PairingDate != "2026-03-01" {
		t.Errorf("alice items = %v, want one", aliceItems)
	}
	bobItems, _ := ss.List(ctx, bob.ID)
	if len(bobItems) != 0 {
		t.Errorf("bob items = %v, want none", bobItems)
	}
}

func TestSavedSaveRetriesWhenRowVanishes(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSavedStore(db)
	ctx := context.Background()
	u := mustProfile(t, db, "alice@example.com")
	p := mustPairing(t, db, "2026-03-01", "en")

	if _, err := ss.Save(ctx, u.ID, p.ID); err != nil {
		t.Fatalf("save: %v", err)
	}

	unsaved := false
	ss.onConflict = func() {
		if unsaved {
			return
		}
		unsaved = true
		if err := ss.Unsave(ctx, u.ID, p.ID); err != nil {
			t.Fatalf("unsave: %v", err)
		}
	}

	res, err := ss.Save(ctx, u.ID, p.ID)
	if err != nil {
		t.Fatalf("racing save: %v", err)
	}
	if !res.Created || res.Row == nil {
		t.Fatalf("racing save = %+v, want created row", res)
	}
	got, err := ss.Get(ctx, u.ID, p.ID)
	if err != nil || got == nil {
		t.Fatalf("get after racing save = %v, %v", got, err)
	}
}
