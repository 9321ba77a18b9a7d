// Package today picks the pairing readers see on the current audience date.
package today

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/dates"
	"github.com/dukerupert/quietcuration/internal/model"
	"github.com/dukerupert/quietcuration/internal/pairing"
	"github.com/dukerupert/quietcuration/internal/store"
)

// pairingLookup is the part of the pairing store the resolver reads.
type pairingLookup interface {
	Approved(ctx context.Context, date, locale string) (*model.Pairing, error)
	LatestSafeSet(ctx context.Context, locale string) (*model.Pairing, error)
}

type Resolver struct {
	pairings pairingLookup
	verses   *store.VerseStore
	calendar *dates.Calendar
	logger   *slog.Logger
}

func NewResolver(db *database.DB, calendar *dates.Calendar, logger *slog.Logger) *Resolver {
	return &Resolver{
		pairings: store.NewPairingStore(db),
		verses:   store.NewVerseStore(db),
		calendar: calendar,
		logger:   logger.With("component", "today"),
	}
}

// Date is the current audience date.
func (r *Resolver) Date() string {
	return r.calendar.Today()
}

// Pairing returns the approved pairing for today and locale, falling back to
// the newest safe-set pairing. Both are unhydrated. It returns nil when
// neither exists. A failed primary lookup is logged and the safe set is still
// tried.
func (r *Resolver) Pairing(ctx context.Context, locale string) (*model.Pairing, bool, error) {
	date := r.calendar.Today()
	p, err := r.pairings.Approved(ctx, date, locale)
	if err != nil {
		r.logger.Error("resolve today's pairing", "date", date, "locale", locale, "error", err)
	}
	if p != nil {
		return p, false, nil
	}

	p, err = r.pairings.LatestSafeSet(ctx, locale)
	if err != nil {
		return nil, false, fmt.Errorf("resolve safe set pairing: %w", err)
	}
	if p == nil {
		return nil, false, nil
	}
	return p, true, nil
}

// Resolve returns today's pairing hydrated with its verse, or nil.
func (r *Resolver) Resolve(ctx context.Context, locale string) (*model.PairingWithVerse, error) {
	p, fallback, err := r.Pairing(ctx, locale)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	if fallback {
		r.logger.Debug("serving safe set pairing", "locale", locale, "pairing_id", p.ID)
	}
	out := pairing.Hydrate(ctx, r.verses, r.logger, p)
	out.IsFallback = fallback
	return out, nil
}
