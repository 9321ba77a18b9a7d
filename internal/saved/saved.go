// Package saved manages a reader's favorite pairings.
package saved

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/quietcuration/internal/apperr"
	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/model"
	"github.com/dukerupert/quietcuration/internal/store"
)

type Service struct {
	items    *store.SavedStore
	pairings *store.PairingStore
	logger   *slog.Logger
}

func NewService(db *database.DB, logger *slog.Logger) *Service {
	return &Service{
		items:    store.NewSavedStore(db),
		pairings: store.NewPairingStore(db),
		logger:   logger.With("component", "saved"),
	}
}

// Save marks an approved pairing as saved. Saving again returns the original
// row.
func (s *Service) Save(ctx context.Context, userID, pairingID string) (*model.SavedItem, error) {
	if userID == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	pairingID = strings.TrimSpace(pairingID)

	p, err := s.pairings.GetByID(ctx, pairingID)
	if err != nil {
		s.logger.Error("load pairing to save", "pairing_id", pairingID, "error", err)
		return nil, apperr.Internal(err)
	}
	if p == nil || p.Status != model.StatusApproved {
		return nil, apperr.NotFound("Pairing not found.")
	}

	res, err := s.items.Save(ctx, userID, pairingID)
	if err != nil {
		s.logger.Error("save pairing", "user_id", userID, "pairing_id", pairingID, "error", err)
		return nil, apperr.Internal(err)
	}
	return res.Row, nil
}

// Unsave is idempotent.
func (s *Service) Unsave(ctx context.Context, userID, pairingID string) error {
	if userID == "" {
		return apperr.ErrNotAuthenticated
	}
	if err := s.items.Unsave(ctx, userID, strings.TrimSpace(pairingID)); err != nil {
		s.logger.Error("unsave pairing", "user_id", userID, "pairing_id", pairingID, "error", err)
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID string) ([]model.SavedPairing, error) {
	if userID == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	items, err := s.items.List(ctx, userID)
	if err != nil {
		s.logger.Error("list saved pairings", "user_id", userID, "error", err)
		return nil, apperr.Internal(err)
	}
	if items == nil {
		items = []model.SavedPairing{}
	}
	return items, nil
}
