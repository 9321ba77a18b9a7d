// Package locale negotiates the content locale (en or ko) for a request.
package locale

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

const (
	English = "en"
	Korean  = "ko"
)

// Supported lists the content locales in matcher preference order.
var Supported = []string{English, Korean}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Korean})

// IsSupported reports whether s is a known content locale.
func IsSupported(s string) bool {
	return s == English || s == Korean
}

// Negotiator picks a locale from a query override or Accept-Language.
type Negotiator struct {
	Default string
}

// Resolve returns the explicit ?locale= value when supported, else the best
// Accept-Language match, else the default.
func (n Negotiator) Resolve(r *http.Request) string {
	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("locale"))); IsSupported(q) {
		return q
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if loc, ok := FromAcceptLanguage(header); ok {
			return loc
		}
	}
	return n.fallback()
}

func (n Negotiator) fallback() string {
	if IsSupported(n.Default) {
		return n.Default
	}
	return English
}

// FromAcceptLanguage matches an Accept-Language header against the supported
// locales. ok is false when nothing in the header is supported.
func FromAcceptLanguage(header string) (string, bool) {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return Supported[idx], true
}
