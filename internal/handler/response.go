// Package handler exposes the HTTP API. Handlers decode requests, call
// the service layer, and translate its results and errors to JSON.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/snipmart/snipmart/internal/apperror"
)

// ErrorResponse is the error shape shared by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; nothing left to do but log.
			logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status. The service layer
// speaks in apperror kinds; this is the only place they meet HTTP.
func writeError(logger *slog.Logger, w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrRemote):
			// An upstream dependency failed, not this server.
			status = http.StatusBadGateway
			errorType = "upstream_error"
		case errors.Is(err, apperror.ErrIntegrity):
			status = http.StatusInternalServerError
			errorType = "integrity_error"
		}

		message := appErr.Message
		if status == http.StatusInternalServerError || status == http.StatusBadGateway {
			// Internal messages can carry store paths or upstream detail;
			// keep those out of responses.
			message = "an internal error occurred"
		}

		writeJSON(logger, w, status, ErrorResponse{Error: errorType, Message: message})
		return
	}

	writeJSON(logger, w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}

// decodeJSON decodes the request body into dst, rejecting oversized or
// malformed bodies with a validation error.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
