package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/model"
)

// EmotionStore manages daily check-ins, one per (user, date).
type EmotionStore struct {
	db *database.DB
}

func NewEmotionStore(db *database.DB) *EmotionStore {
	return &EmotionStore{db: db}
}

func scanEmotion(s scanner) (*model.EmotionEvent, error) {
	var e model.EmotionEvent
	var memo, pairingID, curationID sql.NullString
	err := s.Scan(&e.UserID, &e.EventDate, &e.EmotionPrimary, &memo, &pairingID, &curationID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.MemoShort = stringPtr(memo)
	e.PairingID = stringPtr(pairingID)
	e.CurationID = stringPtr(curationID)
	return &e, nil
}

const emotionCols = `user_id, event_date, emotion_primary, memo_short, pairing_id, curation_id, created_at, updated_at`

// Upsert writes the event for (user, date), overwriting an earlier entry for
// the same day.
func (s *EmotionStore) Upsert(ctx context.Context, e model.EmotionEvent) (*model.EmotionEvent, error) {
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO emotion_events (`+emotionCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, event_date) DO UPDATE SET
		   emotion_primary = excluded.emotion_primary,
		   memo_short = excluded.memo_short,
		   pairing_id = excluded.pairing_id,
		   curation_id = excluded.curation_id,
		   updated_at = excluded.updated_at`,
		e.UserID, e.EventDate, e.EmotionPrimary, nullString(e.MemoShort),
		nullString(e.PairingID), nullString(e.CurationID), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert emotion event: %w", err)
	}
	return s.Get(ctx, e.UserID, e.EventDate)
}

func (s *EmotionStore) Get(ctx context.Context, userID, date string) (*model.EmotionEvent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+emotionCols+` FROM emotion_events WHERE user_id = ? AND event_date = ?`,
		userID, date,
	)
	e, err := scanEmotion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get emotion event: %w", err)
	}
	return e, nil
}
