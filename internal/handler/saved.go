package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/quietcuration/internal/auth"
	"github.com/dukerupert/quietcuration/internal/saved"
)

type SavedHandler struct {
	svc    *saved.Service
	logger *slog.Logger
}

func NewSavedHandler(svc *saved.Service, logger *slog.Logger) *SavedHandler {
	return &SavedHandler{svc: svc, logger: logger}
}

func (h *SavedHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *SavedHandler) Save(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Save(r.Context(), auth.UserID(r.Context()), urlParam(r, "pairingID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *SavedHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unsave(r.Context(), auth.UserID(r.Context()), urlParam(r, "pairingID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
