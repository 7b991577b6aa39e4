package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/desert-discs/internal/auth"
	"github.com/sakif/desert-discs/internal/service"
)

// ConsentHandler records cookie-consent decisions.
type ConsentHandler struct {
	consents *service.ConsentService
	logger   *slog.Logger
}

// NewConsentHandler creates a ConsentHandler.
func NewConsentHandler(consents *service.ConsentService, logger *slog.Logger) *ConsentHandler {
	return &ConsentHandler{
		consents: consents,
		logger:   logger,
	}
}

// consentRequest is the POST /consent body.
type consentRequest struct {
	Status string `json:"status"` // "accepted" or "declined"
}

// HandleRecord stores the caller's latest consent decision.
//
// HTTP: POST /consent
// Auth: Required
// Body: {"status": "accepted"} or {"status": "declined"}
func (h *ConsentHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	env, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req consentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid consent JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	consent, err := h.consents.Record(r.Context(), env.Identity.ID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, consent)
}
