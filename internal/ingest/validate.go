package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dukerupert/quietcuration/internal/locale"
	"github.com/dukerupert/quietcuration/internal/model"
)

// Rejected lists the problems found in one input row (1-based).
type Rejected struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

var (
	spaces     = regexp.MustCompile(`\s+`)
	digits     = regexp.MustCompile(`^\d+$`)
	titleWord  = regexp.MustCompile(`^[A-Z][a-z]+$`)
	bookNumber = regexp.MustCompile(`^[1-3]$`)
)

func normalize(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// titleCaseBook accepts names like "1 Corinthians" or "Song of Songs".
func titleCaseBook(book string) bool {
	parts := strings.Fields(book)
	if len(parts) == 0 {
		return false
	}
	for i, p := range parts {
		switch {
		case i == 0 && bookNumber.MatchString(p):
		case p == "of" || p == "the" || p == "and":
		case titleWord.MatchString(p):
		default:
			return false
		}
	}
	return true
}

func positiveInt(value, field string, errs *[]string, prefix string) int {
	v := strings.TrimSpace(value)
	if v == "" {
		*errs = append(*errs, prefix+field+" is missing")
		return 0
	}
	if !digits.MatchString(v) {
		*errs = append(*errs, prefix+field+" must be an integer")
		return 0
	}
	if len(v) > 1 && v[0] == '0' {
		*errs = append(*errs, prefix+field+" has leading zeros")
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		*errs = append(*errs, prefix+field+" must be > 0")
		return 0
	}
	return n
}

// Validate normalizes whitespace and checks every row, returning the valid
// verses and the rejected rows. When both verse_text and the legacy text
// column are present the longer one wins.
func Validate(rows []Row) ([]model.Verse, []Rejected) {
	var valid []model.Verse
	var rejected []Rejected

	for i, raw := range rows {
		prefix := fmt.Sprintf("[row %d] ", i+1)
		var errs []string

		loc := normalize(raw["locale"])
		translation := normalize(raw["translation"])
		book := normalize(raw["book"])
		ref := normalize(raw["canonical_ref"])
		text := normalize(raw["verse_text"])
		if legacy := normalize(raw["text"]); len(legacy) > len(text) {
			text = legacy
		}

		switch {
		case loc == "":
			errs = append(errs, prefix+"locale is missing")
		case !locale.IsSupported(loc):
			errs = append(errs, prefix+fmt.Sprintf("locale %q is not supported", loc))
		}
		if translation == "" {
			errs = append(errs, prefix+"translation is missing")
		}
		switch {
		case book == "":
			errs = append(errs, prefix+"book is missing")
		case loc == locale.English && !titleCaseBook(book):
			errs = append(errs, prefix+"book is not Title Case")
		}

		chapter := positiveInt(raw["chapter"], "chapter", &errs, prefix)
		verse := positiveInt(raw["verse"], "verse", &errs, prefix)

		if ref == "" {
			errs = append(errs, prefix+"canonical_ref is missing")
		} else if chapter > 0 && verse > 0 {
			if want := fmt.Sprintf("%s %d:%d", book, chapter, verse); ref != want {
				errs = append(errs, prefix+fmt.Sprintf("canonical_ref must be %q", want))
			}
		}
		if text == "" {
			errs = append(errs, prefix+"verse_text/text is missing")
		}

		if len(errs) > 0 {
			rejected = append(rejected, Rejected{Row: i + 1, Errors: errs})
			continue
		}
		valid = append(valid, model.Verse{
			Locale:       loc,
			Translation:  translation,
			Book:         book,
			Chapter:      chapter,
			Verse:        verse,
			CanonicalRef: ref,
			Text:         text,
		})
	}
	return valid, rejected
}
