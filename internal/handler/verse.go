package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/quietcuration/internal/model"
	"github.com/dukerupert/quietcuration/internal/store"
)

// VerseHandler backs the curator's verse picker.
type VerseHandler struct {
	verses *store.VerseStore
	logger *slog.Logger
}

func NewVerseHandler(vs *store.VerseStore, logger *slog.Logger) *VerseHandler {
	return &VerseHandler{verses: vs, logger: logger}
}

func (h *VerseHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	verses, err := h.verses.Search(r.Context(), store.VerseQuery{
		Text:        q.Get("q"),
		Locale:      q.Get("locale"),
		Translation: q.Get("translation"),
		Limit:       queryInt(r, "limit"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if verses == nil {
		verses = []model.Verse{}
	}
	writeJSON(w, http.StatusOK, verses)
}
