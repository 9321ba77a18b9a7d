package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/quietcuration/internal/invite"
)

// InviteRunner runs one invite batch. *invite.Runner satisfies it.
type InviteRunner interface {
	Run(ctx context.Context) (invite.Summary, error)
}

// CronHandler exposes the invite batch to an external scheduler.
type CronHandler struct {
	runner InviteRunner
	secret string
	logger *slog.Logger
}

func NewCronHandler(runner InviteRunner, secret string, logger *slog.Logger) *CronHandler {
	return &CronHandler{runner: runner, secret: secret, logger: logger}
}

// QuietInvite requires "Authorization: Bearer <secret>" and is rejected
// before any database access otherwise.
func (h *CronHandler) QuietInvite(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		h.logger.Error("cron secret is not configured")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "CRON_SECRET is not configured."})
		return
	}
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized."})
		return
	}

	summary, err := h.runner.Run(r.Context())
	if err != nil {
		if errors.Is(err, invite.ErrNoCuration) {
			h.logger.Warn("invite run skipped", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("invite run failed", "error", err, "summary", summary)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "summary": summary})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "summary": summary})
}

func (h *CronHandler) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}
