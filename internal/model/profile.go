// Package model defines the data structures used throughout the application.
package model

import "time"

// Profile represents a user's local profile record.
//
// We use Spotify OAuth as the identity provider, so the primary key IS the
// Spotify user ID — a stable, opaque string like "wizzler" or
// "31k5n2qmtivrzg7e4cdmahlu2tne". Unlike auto-numbered services, Spotify IDs
// are text and must never be assumed numeric.
//
// WHY NO SEPARATE INTERNAL ID?
// Every table that references a user does so by the provider ID, and the
// session cookie carries the same ID. Introducing a second key would just
// mean mapping between them on every request.
//
// IsPublic controls whether the profile (and its albums) shows up in the
// community listing. It defaults to true on first creation and is only ever
// changed by an explicit visibility toggle from its owner — profile syncs
// never touch it.
type Profile struct {
	ID          string    `json:"id"          db:"id"`           // Spotify user ID (text, primary key)
	DisplayName string    `json:"displayName" db:"display_name"` // Provider display name (may be empty)
	AvatarURL   string    `json:"avatarUrl"   db:"avatar_url"`   // Profile picture URL (may be empty)
	IsPublic    bool      `json:"isPublic"    db:"is_public"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
