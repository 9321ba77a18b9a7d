package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/email"
	"github.com/dukerupert/quietcuration/internal/middleware"
	"github.com/dukerupert/quietcuration/internal/store"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func (f *fixture) login(t *testing.T, addr string) string {
	t.Helper()
	rec := f.do(t, "POST", "/auth/login", map[string]string{"email": addr}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	code := codePattern.FindString(f.outbox.last().Text)
	if code == "" {
		t.Fatalf("no code in %q", f.outbox.last().Text)
	}
	return code
}

func sessionCookie(rec interface{ Result() *http.Response }) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestLoginSendsCode(t *testing.T) {
	f := newFixture(t, false)
	f.login(t, "  Reader@Example.com ")

	msg := f.outbox.last()
	if msg.To != "reader@example.com" {
		t.Errorf("to = %q, want normalized address", msg.To)
	}
	if !strings.Contains(msg.Subject, "sign-in code") {
		t.Errorf("subject = %q", msg.Subject)
	}
}

func TestLoginRejectsBadEmail(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, "POST", "/auth/login", map[string]string{"email": "not-an-address"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Enter a valid email address." {
		t.Errorf("error = %v", got)
	}
	if len(f.outbox.msgs) != 0 {
		t.Error("no email should be sent")
	}
}

func TestVerifyCreatesProfileAndSession(t *testing.T) {
	f := newFixture(t, false)
	code := f.login(t, "reader@example.com")

	rec := f.do(t, "POST", "/auth/verify", map[string]string{"email": "reader@example.com", "code": code}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["email"] != "reader@example.com" || body["role"] != "user" || body["display_name"] != "reader" {
		t.Errorf("profile = %v", body)
	}

	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("session cookie = %+v", cookie)
	}
	sess, err := f.sessions.GetByToken(context.Background(), cookie.Value)
	if err != nil || sess == nil {
		t.Fatalf("session lookup = %v, %v", sess, err)
	}

	// A second sign-in reuses the profile.
	code = f.login(t, "reader@example.com")
	rec = f.do(t, "POST", "/auth/verify", map[string]string{"email": "reader@example.com", "code": code}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second verify status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["id"]; got != body["id"] {
		t.Errorf("profile id = %v, want %v", got, body["id"])
	}
}

func TestVerifyCodeReuse(t *testing.T) {
	f := newFixture(t, false)
	code := f.login(t, "reader@example.com")

	f.do(t, "POST", "/auth/verify", map[string]string{"email": "reader@example.com", "code": code}, nil)
	rec := f.do(t, "POST", "/auth/verify", map[string]string{"email": "reader@example.com", "code": code}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Code has expired or already been used. Please request a new one." {
		t.Errorf("error = %v", got)
	}
}

func TestVerifyAttemptLimit(t *testing.T) {
	f := newFixture(t, false)
	code := f.login(t, "reader@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "999999"
	}

	for i := 1; i <= 4; i++ {
		rec := f.do(t, "POST", "/auth/verify", map[string]string{"email": "reader@example.com", "code": wrong}, nil)
		if got := decodeBody(t, rec)["error"]; got != "Incorrect code. Please try again." {
			t.Fatalf("attempt %d: error = %v", i, got)
		}
	}
	rec := f.do(t, "POST", "/auth/verify", map[string]string{"email": "reader@example.com", "code": wrong}, nil)
	if got := decodeBody(t, rec)["error"]; got != "Too many incorrect attempts. Please request a new code." {
		t.Errorf("fifth attempt: error = %v", got)
	}

	// The burned code no longer works even when correct.
	rec = f.do(t, "POST", "/auth/verify", map[string]string{"email": "reader@example.com", "code": code}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status after lockout = %d, want 400", rec.Code)
	}
}

func TestVerifyRequiresFields(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, "POST", "/auth/verify", map[string]string{"email": "reader@example.com"}, nil)
	if got := decodeBody(t, rec)["error"]; got != "Email and code are required." {
		t.Errorf("error = %v", got)
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	f := newFixture(t, false)
	code := f.login(t, "reader@example.com")
	rec := f.do(t, "POST", "/auth/verify", map[string]string{"email": "reader@example.com", "code": code}, nil)
	cookie := sessionCookie(rec)

	rec = f.do(t, "POST", "/auth/logout", nil, nil, func(r *http.Request) { r.AddCookie(cookie) })
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if c := sessionCookie(rec); c == nil || c.MaxAge >= 0 {
		t.Errorf("logout should expire the cookie, got %+v", c)
	}
	sess, err := f.sessions.GetByToken(context.Background(), cookie.Value)
	if err != nil || sess != nil {
		t.Errorf("session should be gone, got %v, %v", sess, err)
	}
}

type downSender struct{}

func (downSender) Provider() string { return "down" }

func (downSender) Send(context.Context, email.Message) (email.Receipt, error) {
	return email.Receipt{}, &email.SendError{Provider: "down", Reason: "provider unavailable", Status: 503}
}

func TestLoginSendFailureMasksEmail(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var buf bytes.Buffer
	h := NewAuthHandler(store.NewProfileStore(db), store.NewSessionStore(db), store.NewSignInCodeStore(db),
		downSender{}, slog.New(slog.NewTextHandler(&buf, nil)))

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"email":"reader@example.com"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	logs := buf.String()
	if strings.Contains(logs, "reader@example.com") {
		t.Errorf("address leaked into logs: %s", logs)
	}
	if !strings.Contains(logs, "r***@example.com") {
		t.Errorf("masked address missing from logs: %s", logs)
	}
}
