package emotion

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/quietcuration/internal/apperr"
	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/dates"
	"github.com/dukerupert/quietcuration/internal/model"
	"github.com/dukerupert/quietcuration/internal/store"
	"github.com/dukerupert/quietcuration/internal/today"
)

func setup(t *testing.T, enabled bool) (*database.DB, *Service, string) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	// 23:59 in Seoul on March 10.
	cal := dates.Fixed(seoul, time.Date(2026, 3, 10, 23, 59, 0, 0, seoul))

	email := "reader@example.com"
	p, err := store.NewProfileStore(db).Create(context.Background(), &email, "Reader", model.RoleUser)
	require.NoError(t, err)

	return db, NewService(db, today.NewResolver(db, cal, slog.Default()), enabled, slog.Default()), p.ID
}

func TestTaxonomy(t *testing.T) {
	assert.Len(t, Taxonomy, 9)
	assert.True(t, Supported("weariness"))
	assert.False(t, Supported("rage"))
	assert.Equal(t, "Gratitude", Label("gratitude"))
	assert.Equal(t, "rage", Label("rage"))
}

func TestUpsertDisabled(t *testing.T) {
	_, svc, uid := setup(t, false)
	_, err := svc.Upsert(context.Background(), uid, Input{EmotionPrimary: "peace"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDisabled, apperr.From(err).Code)
}

func TestUpsertValidation(t *testing.T) {
	_, svc, uid := setup(t, true)
	ctx := context.Background()

	tests := []struct {
		name string
		in   Input
		want string
	}{
		{"missing", Input{EmotionPrimary: "  "}, "Select a primary emotion."},
		{"unknown", Input{EmotionPrimary: "rage"}, "Selected emotion is not supported."},
		{"long memo", Input{EmotionPrimary: "hope", Memo: strings.Repeat("마", 161)}, "Memo must be 160 characters or fewer."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upsert(ctx, uid, tt.in)
			require.Error(t, err)
			assert.Equal(t, []string{tt.want}, apperr.Messages(err))
		})
	}

	_, err := svc.Upsert(ctx, "", Input{EmotionPrimary: "hope"})
	assert.Equal(t, apperr.CodeNotAuthenticated, apperr.From(err).Code)
}

func TestUpsertLinksTodayAndOverwrites(t *testing.T) {
	db, svc, uid := setup(t, true)
	ctx := context.Background()

	curation := "cur-9"
	res, err := store.NewPairingStore(db).TryInsert(ctx, store.PairingFields{
		PairingDate: "2026-03-10",
		Locale:      "ko",
		Status:      model.StatusApproved,
		CurationID:  &curation,
	})
	require.NoError(t, err)

	first, err := svc.Upsert(ctx, uid, Input{EmotionPrimary: "grief", Memo: " missing home ", Locale: "ko"})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", first.EventDate)
	require.NotNil(t, first.MemoShort)
	assert.Equal(t, "missing home", *first.MemoShort)
	require.NotNil(t, first.PairingID)
	assert.Equal(t, res.Row.ID, *first.PairingID)
	require.NotNil(t, first.CurationID)
	assert.Equal(t, "cur-9", *first.CurationID)

	second, err := svc.Upsert(ctx, uid, Input{EmotionPrimary: "hope", Locale: "en"})
	require.NoError(t, err)
	assert.Equal(t, "hope", second.EmotionPrimary)
	assert.Nil(t, second.MemoShort)
	assert.Nil(t, second.PairingID)

	got, err := svc.Today(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hope", got.EmotionPrimary)
}

func TestTodayEmpty(t *testing.T) {
	_, svc, uid := setup(t, true)
	got, err := svc.Today(context.Background(), uid)
	require.NoError(t, err)
	assert.Nil(t, got)
}
