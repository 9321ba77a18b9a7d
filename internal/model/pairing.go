package model

import (
	"strings"
	"time"
)

const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
)

type Pairing struct {
	ID               string    `json:"id"`
	PairingDate      string    `json:"pairing_date"`
	Locale           string    `json:"locale"`
	Status           string    `json:"status"`
	VerseID          *string   `json:"verse_id"`
	CurationID       *string   `json:"curation_id"`
	LiteratureAuthor *string   `json:"literature_author"`
	LiteratureTitle  *string   `json:"literature_title"`
	LiteratureWork   *string   `json:"literature_work"`
	LiteratureSource *string   `json:"literature_source"`
	LiteratureText   *string   `json:"literature_text"`
	RationaleShort   string    `json:"rationale_short"`
	IsSafeSet        bool      `json:"is_safe_set"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Title is the display title: literature title, then work.
func (p *Pairing) Title() string {
	for _, s := range []*string{p.LiteratureTitle, p.LiteratureWork} {
		if s != nil && strings.TrimSpace(*s) != "" {
			return strings.TrimSpace(*s)
		}
	}
	return "Today's Quiet Curation"
}

// PairingWithVerse is a pairing hydrated with its verse for reading.
type PairingWithVerse struct {
	Pairing
	Verse      *Verse `json:"verse"`
	IsFallback bool   `json:"is_fallback"`
}

// PairingFilter narrows an admin listing. Empty fields match everything.
type PairingFilter struct {
	Status string
	Locale string
	From   string
	To     string
	Limit  int
}
