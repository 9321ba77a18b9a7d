package saved

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/quietcuration/internal/apperr"
	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/model"
	"github.com/dukerupert/quietcuration/internal/store"
)

func setup(t *testing.T) (*database.DB, *Service, string) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	email := "reader@example.com"
	p, err := store.NewProfileStore(db).Create(context.Background(), &email, "", model.RoleUser)
	require.NoError(t, err)
	return db, NewService(db, slog.Default()), p.ID
}

func pairing(t *testing.T, db *database.DB, date, status string) string {
	t.Helper()
	res, err := store.NewPairingStore(db).TryInsert(context.Background(), store.PairingFields{PairingDate: date, Locale: "en", Status: status})
	require.NoError(t, err)
	return res.Row.ID
}

func TestSaveIsIdempotent(t *testing.T) {
	db, svc, uid := setup(t)
	ctx := context.Background()
	pid := pairing(t, db, "2026-03-10", model.StatusApproved)

	first, err := svc.Save(ctx, uid, pid)
	require.NoError(t, err)
	second, err := svc.Save(ctx, uid, pid)
	require.NoError(t, err)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	items, err := svc.List(ctx, uid)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2026-03-10", items[0].PairingDate)
}

func TestSaveRejectsDraftsAndUnknown(t *testing.T) {
	db, svc, uid := setup(t)
	ctx := context.Background()
	draft := pairing(t, db, "2026-03-11", model.StatusDraft)

	for _, pid := range []string{draft, "pair-missing"} {
		_, err := svc.Save(ctx, uid, pid)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeNotFound, apperr.From(err).Code)
	}

	_, err := svc.Save(ctx, "", draft)
	assert.Equal(t, apperr.CodeNotAuthenticated, apperr.From(err).Code)
}

func TestUnsave(t *testing.T) {
	db, svc, uid := setup(t)
	ctx := context.Background()
	pid := pairing(t, db, "2026-03-10", model.StatusApproved)

	_, err := svc.Save(ctx, uid, pid)
	require.NoError(t, err)
	require.NoError(t, svc.Unsave(ctx, uid, pid))
	require.NoError(t, svc.Unsave(ctx, uid, pid))

	items, err := svc.List(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}
