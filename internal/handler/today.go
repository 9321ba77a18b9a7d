package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/quietcuration/internal/apperr"
	"github.com/dukerupert/quietcuration/internal/auth"
	"github.com/dukerupert/quietcuration/internal/locale"
	"github.com/dukerupert/quietcuration/internal/pairing"
	"github.com/dukerupert/quietcuration/internal/today"
)

// ReadingHandler serves the public reading views.
type ReadingHandler struct {
	resolver   *today.Resolver
	pairings   *pairing.Service
	negotiator locale.Negotiator
	logger     *slog.Logger
}

func NewReadingHandler(resolver *today.Resolver, pairings *pairing.Service, negotiator locale.Negotiator, logger *slog.Logger) *ReadingHandler {
	return &ReadingHandler{resolver: resolver, pairings: pairings, negotiator: negotiator, logger: logger}
}

// Today returns today's approved pairing for the negotiated locale, or the
// latest safe-set pairing flagged with is_fallback.
func (h *ReadingHandler) Today(w http.ResponseWriter, r *http.Request) {
	loc := h.negotiator.Resolve(r)
	p, err := h.resolver.Resolve(r.Context(), loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if p == nil {
		writeError(w, h.logger, apperr.NotFound("No pairing is available today.").
			WithDetail("date", h.resolver.Date()).
			WithDetail("locale", loc))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Pairing returns one pairing. Drafts are visible to curators only.
func (h *ReadingHandler) Pairing(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	p, err := h.pairings.Get(r.Context(), actor, urlParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
