package locale

import (
	"net/http/httptest"
	"testing"
)

func TestFromAcceptLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"ko-KR,ko;q=0.9,en;q=0.8", Korean, true},
		{"en-US,en;q=0.9", English, true},
		{"fr-FR,ko;q=0.5", Korean, true},
		{"fr-FR", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := FromAcceptLanguage(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FromAcceptLanguage(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolve(t *testing.T) {
	n := Negotiator{Default: English}

	req := httptest.NewRequest("GET", "/api/today?locale=ko", nil)
	req.Header.Set("Accept-Language", "en-US")
	if got := n.Resolve(req); got != Korean {
		t.Errorf("query override = %q, want %q", got, Korean)
	}

	req = httptest.NewRequest("GET", "/api/today", nil)
	req.Header.Set("Accept-Language", "ko")
	if got := n.Resolve(req); got != Korean {
		t.Errorf("header = %q, want %q", got, Korean)
	}

	req = httptest.NewRequest("GET", "/api/today?locale=de", nil)
	if got := n.Resolve(req); got != English {
		t.Errorf("fallback = %q, want %q", got, English)
	}

	if got := (Negotiator{}).Resolve(req); got != English {
		t.Errorf("empty default = %q, want %q", got, English)
	}
}
