package model

import "time"

// MaxAlbumsPerOwner is the hard cap on album entries per profile.
// Five albums — the whole point of the app. Enforced at the database level
// (inside a transaction) so concurrent adds can't sneak past it.
const MaxAlbumsPerOwner = 5

// AlbumEntry is one album in a user's collection.
//
// Title, ArtistName and CoverImageURL are a DENORMALIZED SNAPSHOT of the
// catalog item at the time it was added. We deliberately do not re-fetch
// them later: the user picked *that* album as they saw it, and re-resolving
// against the catalog on every read would couple list latency to a
// third-party API.
//
// The (OwnerID, CatalogAlbumID) pair is UNIQUE in the database — a user
// can't save the same album twice.
type AlbumEntry struct {
	ID             string    `json:"id"             db:"id"`               // xid, generated on insert
	OwnerID        string    `json:"ownerId"        db:"owner_id"`         // Profile.ID of the owner
	CatalogAlbumID string    `json:"catalogAlbumId" db:"catalog_album_id"` // Spotify album ID
	Title          string    `json:"title"          db:"title"`
	ArtistName     string    `json:"artistName"     db:"artist_name"`
	CoverImageURL  string    `json:"coverImageUrl"  db:"cover_image_url"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"` // insertion time, newest-first ordering
}

// PublicCollection is a public profile together with its album entries.
// Returned by community-style reads — never by the owner-scoped list.
type PublicCollection struct {
	Profile Profile      `json:"profile"`
	Entries []AlbumEntry `json:"entries"`
}
