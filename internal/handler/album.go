package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/desert-discs/internal/auth"
	"github.com/sakif/desert-discs/internal/model"
	"github.com/sakif/desert-discs/internal/service"
)

// AlbumHandler exposes the collection operations over HTTP.
//
// Every operation derives the owner from the SESSION, never from the
// request body — the body names albums, the cookie names the user.
type AlbumHandler struct {
	collection *service.CollectionService
	logger     *slog.Logger
}

// NewAlbumHandler creates an AlbumHandler.
func NewAlbumHandler(collection *service.CollectionService, logger *slog.Logger) *AlbumHandler {
	return &AlbumHandler{
		collection: collection,
		logger:     logger,
	}
}

// HandleList returns the caller's collection.
//
// HTTP: GET /albums[?includePublic=1]
// Auth: Required
//
// With includePublic the response also carries every public profile's
// entries, each tagged with its owner's ID — the community view.
func (h *AlbumHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	env, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	includePublic := r.URL.Query().Get("includePublic") == "1"

	result, err := h.collection.List(r.Context(), env.Identity.ID, includePublic)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, result)
}

// addAlbumRequest is the POST /albums body.
type addAlbumRequest struct {
	AlbumID  string `json:"albumId"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"coverUrl"`
}

// HandleAdd saves a new album into the caller's collection.
//
// HTTP: POST /albums
// Auth: Required
// Body: {"albumId": "...", "title": "...", "artist": "...", "coverUrl": "..."}
//
// 409 when the collection is full or the album is already saved — those are
// outcomes the UI explains to the user, not faults.
func (h *AlbumHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	env, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req addAlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid album JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	entry, err := h.collection.Add(r.Context(), env.Identity.ID, req.AlbumID, req.Title, req.Artist, req.CoverURL)
	if err != nil {
		writeError(w, err)
		return
	}

	// The front end expects the inserted row back as a one-element array.
	writeData(w, []model.AlbumEntry{*entry})
}

// removeAlbumRequest is the DELETE /albums body.
type removeAlbumRequest struct {
	ID string `json:"id"` // entry row ID, not the catalog album ID
}

// HandleRemove deletes one of the caller's entries.
//
// HTTP: DELETE /albums
// Auth: Required
// Body: {"id": "<entry id>"}
//
// 404 when the entry doesn't exist; 403 when it exists but belongs to
// someone else. The distinction matters for client messaging — and the
// other user's row is untouched either way.
func (h *AlbumHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	env, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req removeAlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid remove JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	if err := h.collection.Remove(r.Context(), env.Identity.ID, req.ID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}
