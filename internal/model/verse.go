package model

import (
	"fmt"
	"strings"
	"time"
)

type Verse struct {
	ID           string    `json:"id"`
	Locale       string    `json:"locale"`
	Translation  string    `json:"translation"`
	Book         string    `json:"book"`
	Chapter      int       `json:"chapter"`
	Verse        int       `json:"verse"`
	CanonicalRef string    `json:"canonical_ref"`
	Text         string    `json:"verse_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// Reference returns the canonical reference, or "Book C:V" when it is blank.
// It is empty when neither is available.
func (v *Verse) Reference() string {
	if ref := strings.TrimSpace(v.CanonicalRef); ref != "" {
		return ref
	}
	if strings.TrimSpace(v.Book) == "" || v.Chapter <= 0 || v.Verse <= 0 {
		return ""
	}
	return fmt.Sprintf("%s %d:%d", strings.TrimSpace(v.Book), v.Chapter, v.Verse)
}
