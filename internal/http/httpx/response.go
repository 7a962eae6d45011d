// Package httpx holds the JSON response helpers shared by the handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/elpasofurniture/invoicer/internal/backup"
	"github.com/elpasofurniture/invoicer/internal/database"
	"github.com/elpasofurniture/invoicer/internal/invoice"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes payload with status. Encoding happens before the header is
// sent so a failure still produces a clean 500.
func JSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(append(body, '\n')); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorResponse{Error: msg})
}

// BadRequest answers a body that could not be decoded. Bodies cut off by the
// size limit get 413.
func BadRequest(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	Error(w, http.StatusBadRequest, err.Error())
}

// Fail maps a service error to its status. fallback is the message used
// for unexpected failures, whose details are only logged.
func Fail(w http.ResponseWriter, err error, fallback string) {
	var verr *invoice.ValidationError

	switch {
	case errors.As(err, &verr):
		Error(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, invoice.ErrNotFound):
		Error(w, http.StatusNotFound, "Invoice not found")
	case errors.Is(err, invoice.ErrDuplicateID):
		Error(w, http.StatusConflict, "Invoice id already exists")
	case errors.Is(err, backup.ErrNotFound):
		Error(w, http.StatusNotFound, "Backup not found")
	case errors.Is(err, backup.ErrInvalidName):
		Error(w, http.StatusBadRequest, "Invalid backup filename")
	case errors.Is(err, database.ErrClosed):
		Error(w, http.StatusServiceUnavailable, "Database is restarting, try again shortly")
	default:
		slog.Error(fallback, "error", err)
		Error(w, http.StatusInternalServerError, fallback)
	}
}
