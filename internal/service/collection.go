package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/desert-discs/internal/apperror"
	"github.com/sakif/desert-discs/internal/model"
	"github.com/sakif/desert-discs/internal/repository"
)

// Validation bounds for album fields. The title/artist come from the
// catalog via the client, but we still refuse nonsense — the snapshot is
// stored verbatim forever.
const (
	MaxAlbumTitleLength = 300
	MaxArtistNameLength = 300
	MaxCatalogIDLength  = 64
	MaxCoverURLLength   = 2000
)

// CollectionService enforces the collection rules: bounded size, no
// duplicates, strict ownership. Every operation takes the owner ID as an
// explicit argument that handlers derive from the session — it is NEVER
// read from a request body, so a client cannot act as someone else by
// naming them.
type CollectionService struct {
	albums repository.AlbumRepository
	logger *slog.Logger
}

// NewCollectionService creates a CollectionService.
func NewCollectionService(albums repository.AlbumRepository, logger *slog.Logger) *CollectionService {
	return &CollectionService{
		albums: albums,
		logger: logger,
	}
}

// ListResult is what List returns: the caller's own entries, plus — only
// when asked — entries of other public profiles. Both newest-first; public
// entries carry their owner's ID so callers can group them.
type ListResult struct {
	Own    []model.AlbumEntry `json:"own"`
	Public []model.AlbumEntry `json:"public,omitempty"`
}

// List returns the owner's collection, optionally widened with every public
// profile's entries. Read-only — it never mutates anything, including the
// avatar reconciliation that earlier versions of this app ran inline here.
func (s *CollectionService) List(ctx context.Context, ownerID string, includePublicOthers bool) (*ListResult, error) {
	if ownerID == "" {
		return nil, apperror.Unauthenticated("no session")
	}

	own, err := s.albums.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list albums",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing albums: %w", err)
	}

	result := &ListResult{Own: own}

	if includePublicOthers {
		public, err := s.albums.ListPublic(ctx, ownerID)
		if err != nil {
			s.logger.Error("failed to list public albums", slog.String("error", err.Error()))
			return nil, fmt.Errorf("listing public albums: %w", err)
		}
		result.Public = public
	}

	return result, nil
}

// Add validates and stores a new entry in the owner's collection.
//
// The quota and duplicate rules are NOT checked here — deliberately. Any
// check made before the insert would race a concurrent add; the repository
// enforces both atomically and reports violations as the same apperror
// values we'd produce. The service's job is field validation only.
func (s *CollectionService) Add(ctx context.Context, ownerID, catalogAlbumID, title, artistName, coverImageURL string) (*model.AlbumEntry, error) {
	if ownerID == "" {
		return nil, apperror.Unauthenticated("no session")
	}

	catalogAlbumID = strings.TrimSpace(catalogAlbumID)
	title = strings.TrimSpace(title)

	if catalogAlbumID == "" {
		return nil, apperror.ValidationFailed("albumId", "album id is required")
	}
	if len(catalogAlbumID) > MaxCatalogIDLength {
		return nil, apperror.ValidationFailed("albumId",
			fmt.Sprintf("album id must be %d characters or less", MaxCatalogIDLength))
	}
	if title == "" {
		return nil, apperror.ValidationFailed("title", "album title is required")
	}
	if len(title) > MaxAlbumTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("album title must be %d characters or less", MaxAlbumTitleLength))
	}
	if len(artistName) > MaxArtistNameLength {
		return nil, apperror.ValidationFailed("artist",
			fmt.Sprintf("artist name must be %d characters or less", MaxArtistNameLength))
	}
	if len(coverImageURL) > MaxCoverURLLength {
		return nil, apperror.ValidationFailed("coverUrl",
			fmt.Sprintf("cover url must be %d characters or less", MaxCoverURLLength))
	}

	entry := &model.AlbumEntry{
		OwnerID:        ownerID,
		CatalogAlbumID: catalogAlbumID,
		Title:          title,
		ArtistName:     strings.TrimSpace(artistName),
		CoverImageURL:  strings.TrimSpace(coverImageURL),
	}

	if err := s.albums.Insert(ctx, entry); err != nil {
		// Quota and duplicate violations are user outcomes, not faults —
		// they propagate as-is and are never logged as errors.
		return nil, err
	}

	s.logger.Info("album added",
		slog.String("ownerID", ownerID),
		slog.String("entryID", entry.ID),
		slog.String("catalogAlbumID", catalogAlbumID),
	)

	return entry, nil
}

// EntriesOf returns one owner's entries without any ownership check.
// Callers must already have established that the owner's profile is visible
// to the requester — see ProfileService.GetPublic.
func (s *CollectionService) EntriesOf(ctx context.Context, ownerID string) ([]model.AlbumEntry, error) {
	entries, err := s.albums.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list albums",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing albums: %w", err)
	}
	return entries, nil
}

// Remove deletes one of the owner's entries. The ownership predicate lives
// in the repository's compound delete; NotOwner and NotFound pass through
// untouched so the handler can answer 403 vs 404 accurately.
func (s *CollectionService) Remove(ctx context.Context, ownerID, entryID string) error {
	if ownerID == "" {
		return apperror.Unauthenticated("no session")
	}

	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return apperror.ValidationFailed("id", "entry id is required")
	}

	if err := s.albums.DeleteOwned(ctx, ownerID, entryID); err != nil {
		return err
	}

	s.logger.Info("album removed",
		slog.String("ownerID", ownerID),
		slog.String("entryID", entryID),
	)
	return nil
}
