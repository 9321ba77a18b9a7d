package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/quietcuration/internal/auth"
	"github.com/dukerupert/quietcuration/internal/emotion"
	"github.com/dukerupert/quietcuration/internal/locale"
	"github.com/dukerupert/quietcuration/internal/model"
)

type EmotionHandler struct {
	svc        *emotion.Service
	negotiator locale.Negotiator
	logger     *slog.Logger
}

func NewEmotionHandler(svc *emotion.Service, negotiator locale.Negotiator, logger *slog.Logger) *EmotionHandler {
	return &EmotionHandler{svc: svc, negotiator: negotiator, logger: logger}
}

// Taxonomy lists the selectable emotions and whether logging is on.
func (h *EmotionHandler) Taxonomy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":         h.svc.Enabled(),
		"memo_max_length": emotion.MemoMaxLength,
		"options":         emotion.Taxonomy,
	})
}

type emotionToday struct {
	Enabled bool                `json:"enabled"`
	Event   *model.EmotionEvent `json:"event"`
}

func (h *EmotionHandler) Today(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.Today(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emotionToday{Enabled: h.svc.Enabled(), Event: ev})
}

func (h *EmotionHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in emotion.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !locale.IsSupported(in.Locale) {
		in.Locale = h.negotiator.Resolve(r)
	}
	ev, err := h.svc.Upsert(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
