package model

import "time"

type SavedItem struct {
	UserID    string    `json:"user_id"`
	PairingID string    `json:"pairing_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedPairing is a saved item joined with a summary of its pairing.
type SavedPairing struct {
	SavedItem
	PairingDate     string  `json:"pairing_date"`
	Locale          string  `json:"locale"`
	LiteratureTitle *string `json:"literature_title"`
	CanonicalRef    *string `json:"canonical_ref"`
}
