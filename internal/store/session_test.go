package store

import (
	"context"
	"testing"
	"time"
)

func TestSessionCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSessionStore(db)
	ctx := context.Background()
	u := mustProfile(t, db, "alice@example.com")

	sess, err := ss.Create(ctx, u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if d := sess.ExpiresAt.Sub(sess.CreatedAt); d != SessionTTL {
		t.Errorf("ttl = %v, want %v", d, SessionTTL)
	}

	got, err := ss.GetByToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.UserID != u.ID {
		t.Fatalf("session = %+v, want user %s", got, u.ID)
	}

	if err := ss.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = ss.GetByToken(ctx, sess.Token)
	if err != nil || got != nil {
		t.Errorf("after delete = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestSessionExpired(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSessionStore(db)
	ctx := context.Background()
	u := mustProfile(t, db, "alice@example.com")

	past := time.Now().UTC().Add(-time.Hour)
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (id, token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		"ses-old", "stale-token", u.ID, past, past.Add(-SessionTTL),
	)
	if err != nil {
		t.Fatalf("insert expired session: %v", err)
	}

	got, err := ss.GetByToken(ctx, "stale-token")
	if err != nil || got != nil {
		t.Errorf("expired session = (%v, %v), want (nil, nil)", got, err)
	}

	n, err := ss.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}
