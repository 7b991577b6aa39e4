package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/desert-discs/internal/auth"
	"github.com/sakif/desert-discs/internal/model"
	"github.com/sakif/desert-discs/internal/service"
)

// ProfileHandler exposes profile reads and writes.
type ProfileHandler struct {
	profiles   *service.ProfileService
	collection *service.CollectionService
	logger     *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(
	profiles *service.ProfileService,
	collection *service.CollectionService,
	logger *slog.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		profiles:   profiles,
		collection: collection,
		logger:     logger,
	}
}

// updateProfileRequest is the POST /profile body.
type updateProfileRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// HandleUpdate applies an explicit profile edit for the caller.
//
// HTTP: POST /profile
// Auth: Required
// Body: {"name": "...", "image": "..."}
//
// Visibility is NOT editable here — it has its own endpoint, and the
// underlying upsert cannot touch it by construction.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	env, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid profile JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	profile, err := h.profiles.Update(r.Context(), env.Identity.ID, req.Name, req.Image)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, profile)
}

// visibilityRequest is the POST /profile/visibility body.
type visibilityRequest struct {
	IsPublic bool `json:"isPublic"`
}

// HandleVisibility toggles whether the caller's collection is public.
//
// HTTP: POST /profile/visibility
// Auth: Required
// Body: {"isPublic": true|false}
func (h *ProfileHandler) HandleVisibility(w http.ResponseWriter, r *http.Request) {
	env, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid visibility JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	profile, err := h.profiles.SetVisibility(r.Context(), env.Identity.ID, req.IsPublic)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, profile)
}

// HandleListPublic returns public profiles, newest first — the community
// directory.
//
// HTTP: GET /profiles
// Auth: Required
func (h *ProfileHandler) HandleListPublic(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.SessionFromContext(r.Context()); !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	profiles, err := h.profiles.ListPublic(r.Context(), 0, 0)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, profiles)
}

// HandleGetPublic returns one public profile with its collection.
//
// HTTP: GET /profiles/{id}
// Auth: Required
//
// Private and unknown profiles both answer 404 — existence of a private
// profile is not disclosed. The viewer's own access token funds a
// best-effort avatar backfill when the profile has none.
func (h *ProfileHandler) HandleGetPublic(w http.ResponseWriter, r *http.Request) {
	env, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")

	profile, err := h.profiles.GetPublic(r.Context(), env.AccessToken, id)
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.collection.EntriesOf(r.Context(), profile.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, model.PublicCollection{
		Profile: *profile,
		Entries: entries,
	})
}
