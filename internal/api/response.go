package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/zapponejosh/parish-api/internal/auth"
	"github.com/zapponejosh/parish-api/internal/backup"
	"github.com/zapponejosh/parish-api/internal/calendar"
	"github.com/zapponejosh/parish-api/internal/database"
	"github.com/zapponejosh/parish-api/internal/logger"
	"github.com/zapponejosh/parish-api/internal/treba"
	"github.com/zapponejosh/parish-api/internal/upload"
)

// maxJSONBody caps request bodies that are decoded as JSON.
const maxJSONBody = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse acknowledges a request that returns no resource.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes data with 200.
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes data with 201.
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes {"success": true}.
func WriteSuccess(w http.ResponseWriter) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusNotFound, message)
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusBadRequest, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter) error {
	return WriteError(w, http.StatusInternalServerError, "Internal server error")
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter) error {
	return WriteError(w, http.StatusForbidden, "Forbidden")
}

// invalidDateMessage is the client-facing text for a malformed date.
const invalidDateMessage = "Invalid date format, expected YYYY-MM-DD"

// writeServiceError maps service errors to HTTP statuses. Anything unknown is
// logged and answered with a generic 500.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, calendar.ErrInvalidDate):
		WriteBadRequest(w, invalidDateMessage)
	case errors.Is(err, calendar.ErrValidation),
		errors.Is(err, treba.ErrValidation),
		errors.Is(err, treba.ErrUnavailable),
		errors.Is(err, auth.ErrInvalidUser),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, upload.ErrUnsupportedType),
		errors.Is(err, upload.ErrFetch),
		errors.Is(err, backup.ErrInvalidName),
		errors.Is(err, errBadRequest):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, upload.ErrTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, database.ErrNotFound), errors.Is(err, backup.ErrNotFound):
		WriteNotFound(w, "Not found")
	case errors.Is(err, database.ErrDuplicate):
		WriteError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, database.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, backup.ErrCorrupt):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.FromContext(r.Context(), h.logger).Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		WriteInternalError(w)
	}
}

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

// decodeJSON reads a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	return nil
}
