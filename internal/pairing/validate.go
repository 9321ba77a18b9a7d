package pairing

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/quietcuration/internal/model"
)

const (
	MaxExcerptWords   = 70
	MaxRationaleChars = 240
)

// slotMessages maps validator failures on Input to user-facing text.
var slotMessages = map[string]string{
	"pairing_date.required": "Pairing date is required.",
	"pairing_date.isodate":  "Pairing date must be in YYYY-MM-DD format.",
	"locale.required":       "Locale is required.",
	"locale.oneof":          "Locale must be one of: en, ko.",
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// publishable checks everything an approved pairing must carry. Every failing
// rule contributes a message.
func (s *Service) publishable(ctx context.Context, p *model.Pairing) []string {
	slot := Input{PairingDate: p.PairingDate, Locale: p.Locale}
	msgs := s.validator.Translate(slot, slotMessages)

	if blank(p.VerseID) {
		msgs = append(msgs, "Verse is required.")
	} else {
		verse, err := s.verses.GetByID(ctx, *p.VerseID)
		if err != nil {
			s.logger.Error("verse lookup failed", "pairing_id", p.ID, "verse_id", *p.VerseID, "error", err)
		}
		if verse == nil {
			msgs = append(msgs, "Verse not found in DB.")
		} else {
			if verse.Reference() == "" {
				msgs = append(msgs, "Verse reference is missing.")
			}
			if strings.TrimSpace(verse.Translation) == "" {
				msgs = append(msgs, "Verse translation is missing.")
			}
		}
	}

	if blank(p.LiteratureAuthor) && blank(p.LiteratureTitle) {
		msgs = append(msgs, "Literature author or title is required.")
	}
	if blank(p.LiteratureSource) {
		msgs = append(msgs, "Literature source is required.")
	}
	if blank(p.LiteratureText) {
		msgs = append(msgs, "Literature excerpt is required.")
	} else if len(strings.Fields(*p.LiteratureText)) > MaxExcerptWords {
		msgs = append(msgs, "Literature excerpt exceeds 70 words.")
	}

	rationale := strings.TrimSpace(p.RationaleShort)
	if rationale == "" {
		msgs = append(msgs, "Rationale is required.")
	} else if utf8.RuneCountInString(rationale) > MaxRationaleChars {
		msgs = append(msgs, "Rationale exceeds 240 characters.")
	}
	return msgs
}
