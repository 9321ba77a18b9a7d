package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/quietcuration/internal/apperr"
	"github.com/dukerupert/quietcuration/internal/auth"
	"github.com/dukerupert/quietcuration/internal/store"
	"github.com/dukerupert/quietcuration/internal/validation"
)

type ProfileHandler struct {
	profiles  *store.ProfileStore
	validator *validation.Validator
	logger    *slog.Logger
}

func NewProfileHandler(ps *store.ProfileStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: ps, validator: validation.New(), logger: logger}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if profile == nil {
		writeError(w, h.logger, apperr.NotFound("Profile not found."))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type profileRequest struct {
	DisplayName       *string `json:"display_name" validate:"omitempty,max=80"`
	NotificationOptIn *bool   `json:"notification_opt_in"`
}

var profileMessages = map[string]string{
	"display_name.max": "Display name must be 80 characters or fewer.",
}

// Update changes the display name and invite opt-in. Omitted fields keep
// their current value.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.DisplayName != nil {
		trimmed := strings.TrimSpace(*req.DisplayName)
		req.DisplayName = &trimmed
	}
	if msgs := h.validator.Translate(req, profileMessages); len(msgs) > 0 {
		writeError(w, h.logger, apperr.Validation(msgs))
		return
	}

	userID := auth.UserID(r.Context())
	current, err := h.profiles.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if current == nil {
		writeError(w, h.logger, apperr.NotFound("Profile not found."))
		return
	}

	name, optIn := current.DisplayName, current.NotificationOptIn
	if req.DisplayName != nil {
		name = *req.DisplayName
	}
	if req.NotificationOptIn != nil {
		optIn = *req.NotificationOptIn
	}

	updated, err := h.profiles.Update(r.Context(), userID, name, optIn)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if updated == nil {
		writeError(w, h.logger, apperr.NotFound("Profile not found."))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
