package store

import (
	"context"
	"testing"

	"github.com/dukerupert/quietcuration/internal/model"
)

func TestEmotionUpsertOverwritesSameDay(t *testing.T) {
	db := setupTestDB(t)
	es := NewEmotionStore(db)
	ctx := context.Background()
	u := mustProfile(t, db, "alice@example.com")
	p := mustPairing(t, db, "2026-03-01", "en")

	first, err := es.Upsert(ctx, model.EmotionEvent{
		UserID: u.ID, EventDate: "2026-03-01", EmotionPrimary: "peace",
		MemoShort: strp("quiet morning"), PairingID: &p.ID,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.EmotionPrimary != "peace" || first.PairingID == nil {
		t.Errorf("first = %+v", first)
	}

	second, err := es.Upsert(ctx, model.EmotionEvent{
		UserID: u.ID, EventDate: "2026-03-01", EmotionPrimary: "hope", MemoShort: strp("  "),
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.EmotionPrimary != "hope" {
		t.Errorf("emotion = %q, want hope", second.EmotionPrimary)
	}
	if second.MemoShort != nil {
		t.Errorf("memo = %q, want NULL", *second.MemoShort)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}

	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emotion_events WHERE user_id = ?`, u.ID).Scan(&count)
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}

	other, err := es.Get(ctx, u.ID, "2026-03-02")
	if err != nil || other != nil {
		t.Errorf("other day = (%v, %v), want (nil, nil)", other, err)
	}
}
