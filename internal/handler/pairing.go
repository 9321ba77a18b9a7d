package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/quietcuration/internal/auth"
	"github.com/dukerupert/quietcuration/internal/model"
	"github.com/dukerupert/quietcuration/internal/pairing"
)

// PairingHandler serves the curator endpoints. Role checks happen in the
// service; the router also gates these routes with RequireCurator.
type PairingHandler struct {
	svc    *pairing.Service
	logger *slog.Logger
}

func NewPairingHandler(svc *pairing.Service, logger *slog.Logger) *PairingHandler {
	return &PairingHandler{svc: svc, logger: logger}
}

func (h *PairingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.PairingFilter{
		Status: q.Get("status"),
		Locale: q.Get("locale"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Limit:  queryInt(r, "limit"),
	}
	actor, _ := auth.FromContext(r.Context())
	pairings, err := h.svc.List(r.Context(), actor, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pairings)
}

func (h *PairingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in pairing.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	in.ID = ""
	h.save(w, r, in, http.StatusCreated)
}

func (h *PairingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in pairing.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	in.ID = urlParam(r, "id")
	h.save(w, r, in, http.StatusOK)
}

func (h *PairingHandler) save(w http.ResponseWriter, r *http.Request, in pairing.Input, status int) {
	actor, _ := auth.FromContext(r.Context())
	res, err := h.svc.Save(r.Context(), actor, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, status, res)
}

func (h *PairingHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	p, err := h.svc.Get(r.Context(), actor, urlParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PairingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	res, err := h.svc.Approve(r.Context(), actor, urlParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PairingHandler) Unapprove(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	res, err := h.svc.Unapprove(r.Context(), actor, urlParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type setTodayRequest struct {
	Locale string `json:"locale"`
}

// SetToday moves an approved pairing onto today's date. The body is optional;
// without a locale the pairing's own locale is used.
func (h *PairingHandler) SetToday(w http.ResponseWriter, r *http.Request) {
	var req setTodayRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	actor, _ := auth.FromContext(r.Context())
	res, err := h.svc.SetToday(r.Context(), actor, urlParam(r, "id"), req.Locale)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
