package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/quietcuration/internal/model"
)

func TestInviteTryInsertOncePerDay(t *testing.T) {
	db := setupTestDB(t)
	is := NewInviteStore(db)
	ctx := context.Background()
	u := mustProfile(t, db, "alice@example.com")

	first, err := is.TryInsert(ctx, u.ID, "2026-03-01", "pair-1")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !first.Created || first.Row.Status != model.DeliveryPending {
		t.Fatalf("first = %+v, want pending row", first)
	}

	second, err := is.TryInsert(ctx, u.ID, "2026-03-01", "pair-2")
	if err != nil {
		t.Fatalf("second insert returned error: %v", err)
	}
	if second.Created {
		t.Error("second insert for same day reported created")
	}

	next, err := is.TryInsert(ctx, u.ID, "2026-03-02", "pair-2")
	if err != nil || !next.Created {
		t.Errorf("next day = (%+v, %v), want created", next, err)
	}
}

func TestInviteMarkSentAndFailed(t *testing.T) {
	db := setupTestDB(t)
	is := NewInviteStore(db)
	ctx := context.Background()
	u := mustProfile(t, db, "alice@example.com")
	at := time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC)

	res, _ := is.TryInsert(ctx, u.ID, "2026-03-01", "pair-1")
	if err := is.MarkFailed(ctx, res.Row.ID, "resend", "timeout", at); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	d, _ := is.GetByUserAndDate(ctx, u.ID, "2026-03-01")
	if d.Status != model.DeliveryFailed || d.RetryCount != 1 {
		t.Errorf("after failure = %s/%d, want failed/1", d.Status, d.RetryCount)
	}
	if d.ErrorMessage == nil || *d.ErrorMessage != "timeout" {
		t.Errorf("error message = %v", d.ErrorMessage)
	}

	if err := is.MarkSent(ctx, res.Row.ID, "resend", "msg-1", at.Add(time.Minute)); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	d, _ = is.GetByUserAndDate(ctx, u.ID, "2026-03-01")
	if d.Status != model.DeliverySent {
		t.Errorf("status = %q, want sent", d.Status)
	}
	if d.ErrorMessage != nil {
		t.Errorf("error message = %q, want cleared", *d.ErrorMessage)
	}
	if d.ProviderMessageID == nil || *d.ProviderMessageID != "msg-1" {
		t.Errorf("provider message id = %v", d.ProviderMessageID)
	}
	if d.LastAttemptAt == nil || !d.LastAttemptAt.Equal(at.Add(time.Minute)) {
		t.Errorf("last attempt = %v", d.LastAttemptAt)
	}
}

func TestInviteInsertFailed(t *testing.T) {
	db := setupTestDB(t)
	is := NewInviteStore(db)
	ctx := context.Background()
	u := mustProfile(t, db, "alice@example.com")

	if err := is.InsertFailed(ctx, u.ID, "2026-03-01", "insert exploded", time.Now()); err != nil {
		t.Fatalf("insert failed row: %v", err)
	}
	d, _ := is.GetByUserAndDate(ctx, u.ID, "2026-03-01")
	if d == nil {
		t.Fatal("expected synthesized row")
	}
	if d.CurationID != UnknownCurationID || d.Status != model.DeliveryFailed || d.RetryCount != 1 {
		t.Errorf("row = %+v", d)
	}

	// A second synthesized failure for the same day leaves the row alone.
	if err := is.InsertFailed(ctx, u.ID, "2026-03-01", "again", time.Now()); err != nil {
		t.Fatalf("second insert failed row: %v", err)
	}
	d, _ = is.GetByUserAndDate(ctx, u.ID, "2026-03-01")
	if *d.ErrorMessage != "insert exploded" {
		t.Errorf("error message = %q, want original", *d.ErrorMessage)
	}
}

func TestInviteListRetryable(t *testing.T) {
	db := setupTestDB(t)
	is := NewInviteStore(db)
	ctx := context.Background()
	at := time.Now()

	pending := mustProfile(t, db, "p@example.com")
	failed := mustProfile(t, db, "f@example.com")
	exhausted := mustProfile(t, db, "x@example.com")
	sent := mustProfile(t, db, "s@example.com")
	outsider := mustProfile(t, db, "o@example.com")

	is.TryInsert(ctx, pending.ID, "2026-03-01", "pair-1")

	r, _ := is.TryInsert(ctx, failed.ID, "2026-03-01", "pair-1")
	is.MarkFailed(ctx, r.Row.ID, "log", "boom", at)

	r, _ = is.TryInsert(ctx, exhausted.ID, "2026-03-01", "pair-1")
	for i := 0; i < model.MaxDeliveryRetries; i++ {
		is.MarkFailed(ctx, r.Row.ID, "log", "boom", at)
	}

	r, _ = is.TryInsert(ctx, sent.ID, "2026-03-01", "pair-1")
	is.MarkSent(ctx, r.Row.ID, "log", "m", at)

	r, _ = is.TryInsert(ctx, outsider.ID, "2026-03-01", "pair-1")
	is.MarkFailed(ctx, r.Row.ID, "log", "boom", at)

	is.TryInsert(ctx, pending.ID, "2026-03-02", "pair-2")

	recipients := []string{pending.ID, failed.ID, exhausted.ID, sent.ID}
	rows, err := is.ListRetryable(ctx, "2026-03-01", recipients, model.MaxDeliveryRetries)
	if err != nil {
		t.Fatalf("list retryable: %v", err)
	}
	got := make(map[string]bool)
	for _, d := range rows {
		got[d.UserID] = true
	}
	if len(rows) != 2 || !got[pending.ID] || !got[failed.ID] {
		t.Errorf("retryable users = %v, want pending and failed only", got)
	}

	none, err := is.ListRetryable(ctx, "2026-03-01", nil, model.MaxDeliveryRetries)
	if err != nil || len(none) != 0 {
		t.Errorf("empty recipient set = (%v, %v), want none", none, err)
	}
}
