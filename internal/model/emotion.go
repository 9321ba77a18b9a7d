package model

import "time"

type EmotionEvent struct {
	UserID         string    `json:"user_id"`
	EventDate      string    `json:"event_date"`
	EmotionPrimary string    `json:"emotion_primary"`
	MemoShort      *string   `json:"memo_short"`
	PairingID      *string   `json:"pairing_id"`
	CurationID     *string   `json:"curation_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
