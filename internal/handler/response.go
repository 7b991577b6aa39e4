package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// SUCCESS SHAPES:
// The API has two success envelopes, matching what the front end expects:
//   {"data": ...}                   → reads and creates
//   {"success": true, "data": ...}  → acknowledged mutations
//
// CONSISTENT ERROR FORMAT:
// Every error response has the same shape:
//   {"error": "conflict", "message": "album limit reached: ..."}
// so the front end always knows what fields to expect, whatever the status.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/desert-discs/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "conflict")
	Message string `json:"message"` // Human-readable description
}

// dataResponse wraps a payload in the {"data": ...} envelope.
type dataResponse struct {
	Data any `json:"data"`
}

// successResponse is the acknowledged-mutation envelope.
type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status MUST be set before the body — once Encode starts
// writing, the headers are on the wire and changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent — all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeData sends 200 with the {"data": ...} envelope.
func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dataResponse{Data: data})
}

// writeSuccess sends 200 with the {"success": true, ...} envelope.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, successResponse{Success: true, Data: data})
}

// writeError maps a domain error to the appropriate HTTP status and sends it.
//
// This is the single point where the service layer's error taxonomy becomes
// HTTP. The services return apperror values; errors.Is walks the wrap chain
// (our AppError implements Unwrap) to find the sentinel:
//
//	ErrValidation      → 400  validation_error
//	ErrUnauthenticated → 401  unauthorized
//	ErrForbidden       → 403  forbidden        (incl. not-owner deletes)
//	ErrNotFound        → 404  not_found
//	ErrConflict        → 409  conflict         (quota, duplicate album)
//	anything else      → 500  internal_error
//
// Unknown errors NEVER leak their message — a raw datastore or provider
// error can carry SQL, URLs, or credentials. The client gets a generic 500;
// the details were already logged where the failure happened.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
