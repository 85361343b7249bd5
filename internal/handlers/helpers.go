package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RodrigoAbrao/editor-pdf/export"
	"github.com/RodrigoAbrao/editor-pdf/fontkit"
	"github.com/RodrigoAbrao/editor-pdf/internal/services/editor"
	"github.com/RodrigoAbrao/editor-pdf/internal/storage"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteDomainError maps domain errors onto HTTP responses. Validation
// failures carry the full violation list so the caller can fix every
// edit at once.
func WriteDomainError(w http.ResponseWriter, err error) {
	var verr *export.ValidationError
	if errors.As(err, &verr) {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":     "error",
			"error":      "validation failed",
			"violations": verr.Violations,
		})
		return
	}
	var ferr *fontkit.FontLoadError
	if errors.As(err, &ferr) {
		WriteError(w, http.StatusBadRequest, ferr.Error())
		return
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, editor.ErrPageOutOfRange):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
