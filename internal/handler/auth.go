package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/quietcuration/internal/apperr"
	"github.com/dukerupert/quietcuration/internal/email"
	"github.com/dukerupert/quietcuration/internal/logging"
	"github.com/dukerupert/quietcuration/internal/middleware"
	"github.com/dukerupert/quietcuration/internal/model"
	"github.com/dukerupert/quietcuration/internal/store"
	"github.com/dukerupert/quietcuration/internal/validation"
)

type AuthHandler struct {
	profiles  *store.ProfileStore
	sessions  *store.SessionStore
	codes     *store.SignInCodeStore
	sender    email.Sender
	validator *validation.Validator
	logger    *slog.Logger
}

func NewAuthHandler(ps *store.ProfileStore, ss *store.SessionStore, cs *store.SignInCodeStore, sender email.Sender, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		profiles:  ps,
		sessions:  ss,
		codes:     cs,
		sender:    sender,
		validator: validation.New(),
		logger:    logger,
	}
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

var loginMessages = map[string]string{
	"email.required": "Email is required.",
	"email.email":    "Enter a valid email address.",
}

// Login emails a sign-in code. The response is the same whether or not a
// profile exists for the address.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Email = store.NormalizeEmail(req.Email)
	if msgs := h.validator.Translate(req, loginMessages); len(msgs) > 0 {
		writeError(w, h.logger, apperr.Validation(msgs))
		return
	}

	_, code, err := h.codes.Create(r.Context(), req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.sender.Send(r.Context(), codeMessage(req.Email, code)); err != nil {
		h.logger.Error("send sign-in code", "email", logging.MaskEmail(req.Email), "error", err)
		writeError(w, h.logger, apperr.Internal(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "email": req.Email})
}

func codeMessage(to, code string) email.Message {
	minutes := int(store.SignInCodeTTL.Minutes())
	return email.Message{
		To:      to,
		Subject: "Your Quiet Curation sign-in code",
		Text:    fmt.Sprintf("Your sign-in code is %s.\n\nIt expires in %d minutes. If you did not ask for it, you can ignore this email.\n", code, minutes),
		HTML:    fmt.Sprintf("<p>Your sign-in code is <strong>%s</strong>.</p><p>It expires in %d minutes. If you did not ask for it, you can ignore this email.</p>", code, minutes),
	}
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

var verifyMessages = map[string]string{
	"email.required": "Email and code are required.",
	"email.email":    "Enter a valid email address.",
	"code.required":  "Email and code are required.",
	"code.len":       "Incorrect code. Please try again.",
	"code.numeric":   "Incorrect code. Please try again.",
}

// Verify exchanges a sign-in code for a session cookie, creating the profile
// on first sign-in.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Email = store.NormalizeEmail(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if msgs := h.validator.Translate(req, verifyMessages); len(msgs) > 0 {
		writeError(w, h.logger, apperr.Validation(msgs[:1]))
		return
	}

	if err := h.checkCode(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, h.logger, err)
		return
	}

	profile, err := h.profiles.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if profile == nil {
		name, _, _ := strings.Cut(req.Email, "@")
		profile, err = h.profiles.Create(r.Context(), &req.Email, name, model.RoleUser)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.logger.Info("profile created", "profile_id", profile.ID)
	}

	sess, err := h.sessions.Create(r.Context(), profile.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(store.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	writeJSON(w, http.StatusOK, profile)
}

// checkCode verifies code and words the failure the way the sign-in form
// shows it.
func (h *AuthHandler) checkCode(ctx context.Context, emailAddr, code string) error {
	pending, err := h.codes.GetLatestByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if pending == nil {
		return apperr.Validation([]string{"Code has expired or already been used. Please request a new one."})
	}
	if pending.Attempts >= store.MaxSignInCodeAttempts {
		return apperr.Validation([]string{"Too many incorrect attempts. Please request a new code."})
	}

	ok, err := h.codes.Verify(ctx, emailAddr, code)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if pending.Attempts+1 >= store.MaxSignInCodeAttempts {
		return apperr.Validation([]string{"Too many incorrect attempts. Please request a new code."})
	}
	return apperr.Validation([]string{"Incorrect code. Please try again."})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := h.sessions.GetByToken(r.Context(), cookie.Value); err == nil && sess != nil {
			if err := h.sessions.Delete(r.Context(), sess.ID); err != nil {
				h.logger.Error("delete session", "error", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
