package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/model"
)

// SavedStore manages saved items. Every statement is scoped by the owning
// user id.
type SavedStore struct {
	db *database.DB

	// onConflict runs between a conflicting insert and the reload; tests use
	// it to interleave an unsave.
	onConflict func()
}

func NewSavedStore(db *database.DB) *SavedStore {
	return &SavedStore{db: db}
}

// Save records pairingID as saved by userID. Saving twice is not an error: the
// result reports Created=false and Row carries the original row. If the
// existing row vanishes before it can be read, the insert is tried once more.
func (s *SavedStore) Save(ctx context.Context, userID, pairingID string) (InsertResult[model.SavedItem], error) {
	for attempt := 0; ; attempt++ {
		ts := now()
		var createdAt time.Time
		err := s.db.QueryRowContext(ctx,
			`INSERT INTO saved_items (user_id, pairing_id, created_at) VALUES (?, ?, ?)
			 ON CONFLICT (user_id, pairing_id) DO NOTHING
			 RETURNING created_at`,
			userID, pairingID, ts,
		).Scan(&createdAt)
		if err == nil {
			item := &model.SavedItem{UserID: userID, PairingID: pairingID, CreatedAt: createdAt}
			return InsertResult[model.SavedItem]{Created: true, Row: item}, nil
		}
		if err != sql.ErrNoRows {
			return InsertResult[model.SavedItem]{}, fmt.Errorf("insert saved item: %w", err)
		}

		if s.onConflict != nil {
			s.onConflict()
		}
		existing, err := s.Get(ctx, userID, pairingID)
		if err != nil {
			return InsertResult[model.SavedItem]{}, err
		}
		if existing != nil {
			return InsertResult[model.SavedItem]{Row: existing, Existing: existing}, nil
		}
		if attempt > 0 {
			// Still racing an unsave; report the save as of this attempt.
			item := &model.SavedItem{UserID: userID, PairingID: pairingID, CreatedAt: ts}
			return InsertResult[model.SavedItem]{Row: item}, nil
		}
	}
}

func (s *SavedStore) Get(ctx context.Context, userID, pairingID string) (*model.SavedItem, error) {
	item := model.SavedItem{UserID: userID, PairingID: pairingID}
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM saved_items WHERE user_id = ? AND pairing_id = ?`,
		userID, pairingID,
	).Scan(&item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get saved item: %w", err)
	}
	return &item, nil
}

// Unsave removes the saved item if present.
func (s *SavedStore) Unsave(ctx context.Context, userID, pairingID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM saved_items WHERE user_id = ? AND pairing_id = ?`,
		userID, pairingID,
	)
	if err != nil {
		return fmt.Errorf("delete saved item: %w", err)
	}
	return nil
}

// List returns the user's saved pairings, newest first.
func (s *SavedStore) List(ctx context.Context, userID string) ([]model.SavedPairing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.user_id, s.pairing_id, s.created_at, p.pairing_date, p.locale, p.literature_title, v.canonical_ref
		 FROM saved_items s
		 JOIN pairings p ON p.id = s.pairing_id
		 LEFT JOIN verses v ON v.id = p.verse_id
		 WHERE s.user_id = ?
		 ORDER BY s.created_at DESC, s.pairing_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list saved items: %w", err)
	}
	defer rows.Close()

	var items []model.SavedPairing
	for rows.Next() {
		var sp model.SavedPairing
		var title, ref sql.NullString
		if err := rows.Scan(&sp.UserID, &sp.PairingID, &sp.CreatedAt, &sp.PairingDate, &sp.Locale, &title, &ref); err != nil {
			return nil, fmt.Errorf("scan saved item: %w", err)
		}
		sp.LiteratureTitle = stringPtr(title)
		sp.CanonicalRef = stringPtr(ref)
		items = append(items, sp)
	}
	return items, rows.Err()
}
