package repository

import (
	"context"

	"github.com/sakif/desert-discs/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ProfileRepository reads and writes local profile records.
//
// Upsert is keyed by the profile ID (the provider's user ID) and must be
// idempotent: same ID always hits the same row, never duplicates. Updates
// refresh displayName/avatarUrl only — visibility is owner-controlled and
// changed exclusively through SetVisibility.
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	SetVisibility(ctx context.Context, id string, isPublic bool) error
	// SetAvatarIfEmpty backfills avatar_url only when the row has none —
	// a later sync with a real provider avatar must win over a backfill.
	SetAvatarIfEmpty(ctx context.Context, id, avatarURL string) error
	ListPublic(ctx context.Context, opts ListOptions) ([]model.Profile, error)
}

// AlbumRepository reads and writes album entries.
//
// Insert enforces the per-owner quota and the no-duplicate rule ATOMICALLY —
// implementations must not read-count-then-insert outside a transaction.
type AlbumRepository interface {
	Insert(ctx context.Context, entry *model.AlbumEntry) error
	ListByOwner(ctx context.Context, ownerID string) ([]model.AlbumEntry, error)
	// ListPublic returns entries owned by any public profile except
	// excludeOwnerID, each tagged with its owner's ID.
	ListPublic(ctx context.Context, excludeOwnerID string) ([]model.AlbumEntry, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	// DeleteOwned deletes entryID only if ownerID owns it. It distinguishes
	// "no such entry" (NotFound) from "exists under another owner" (NotOwner).
	DeleteOwned(ctx context.Context, ownerID, entryID string) error
}

// ConsentRepository is the write-only sink for consent decisions.
type ConsentRepository interface {
	Upsert(ctx context.Context, consent *model.Consent) error
}
