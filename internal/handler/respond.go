// Package handler holds the JSON HTTP handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dukerupert/quietcuration/internal/apperr"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = apperr.Validation([]string{"Request body must be valid JSON."})

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"error", "code", "details"}. Internal failures
// are logged and shown with the generic retry message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	e := apperr.From(err)
	if e.Code == apperr.CodeInternal {
		logger.Error("request failed", "error", err)
	}
	body := map[string]any{"error": e.Message, "code": e.Code}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	writeJSON(w, e.HTTPStatus(), body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decode(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decode(w, r, v, true)
}

func decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Validation([]string{"Request body is too large."})
	}
	return errInvalidJSON
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
