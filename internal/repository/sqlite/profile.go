package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/desert-discs/internal/apperror"
	"github.com/sakif/desert-discs/internal/model"
	"github.com/sakif/desert-discs/internal/repository"
)

// compile-time check that *ProfileStore implements repository.ProfileRepository
var _ repository.ProfileRepository = (*ProfileStore)(nil)

// ProfileStore provides profile persistence on top of a shared *DB.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a ProfileStore backed by db.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Upsert inserts or updates a profile keyed by its provider ID.
//
// IDEMPOTENCE IS THE CONTRACT HERE:
// Same ID ⇒ same row, always. First login creates the row (is_public
// defaults to TRUE — new collections are visible until their owner says
// otherwise); every later login only refreshes display_name/avatar_url in
// case they changed on the provider side.
//
// WHY NOT "INSERT OR REPLACE"?
// REPLACE deletes the conflicting row and inserts a new one — which would
// cascade-orphan the user's album_entries and stomp is_public back to its
// default. We need an update that leaves is_public strictly alone, so we do
// an explicit exists-check then UPDATE or INSERT. With the pool capped at a
// single connection the two statements can't interleave with another writer.
func (s *ProfileStore)Upsert(ctx context.Context, profile *model.Profile) error {
	if profile.ID == "" {
		return fmt.Errorf("sqlite: profile ID is required")
	}

	var existingCreatedAt time.Time
	var existingPublic bool
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT created_at, is_public FROM profiles WHERE id = ?`, profile.ID,
	).Scan(&existingCreatedAt, &existingPublic)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up profile %s: %w", profile.ID, err)
	}

	if err == nil {
		// Profile exists — refresh the provider-mirrored fields only.
		profile.CreatedAt = existingCreatedAt
		profile.IsPublic = existingPublic
		profile.UpdatedAt = time.Now()
		_, err = s.db.conn.ExecContext(ctx,
			`UPDATE profiles SET display_name = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			profile.DisplayName,
			profile.AvatarURL,
			profile.UpdatedAt,
			profile.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating profile %s: %w", profile.ID, err)
		}
		return nil
	}

	// New profile — visible by default.
	now := time.Now()
	profile.IsPublic = true
	profile.CreatedAt = now
	profile.UpdatedAt = now

	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO profiles (id, display_name, avatar_url, is_public, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.DisplayName,
		profile.AvatarURL,
		profile.IsPublic,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting profile %s: %w", profile.ID, err)
	}

	return nil
}

// GetByID retrieves a profile by its provider ID.
// Returns apperror.ErrNotFound if no profile exists with that ID.
func (s *ProfileStore)GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile

	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, display_name, avatar_url, is_public, created_at, updated_at
		 FROM profiles WHERE id = ?`,
		id,
	).Scan(
		&p.ID,
		&p.DisplayName,
		&p.AvatarURL,
		&p.IsPublic,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("profile", id)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}

	return &p, nil
}

// SetVisibility flips the is_public flag for exactly one profile.
// The WHERE clause is the only place visibility is ever written.
func (s *ProfileStore)SetVisibility(ctx context.Context, id string, isPublic bool) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE profiles SET is_public = ?, updated_at = ? WHERE id = ?`,
		isPublic, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting visibility for profile %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("profile", id)
	}

	return nil
}

// SetAvatarIfEmpty backfills avatar_url only when the row currently has
// none. The compound WHERE makes the "only when empty" check atomic — a
// concurrent sync that already wrote a real avatar wins, and this becomes a
// harmless no-op (zero rows is fine, not an error).
func (s *ProfileStore)SetAvatarIfEmpty(ctx context.Context, id, avatarURL string) error {
	if avatarURL == "" {
		return nil
	}

	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE profiles SET avatar_url = ?, updated_at = ?
		 WHERE id = ? AND avatar_url = ''`,
		avatarURL, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: backfilling avatar for profile %s: %w", id, err)
	}

	return nil
}

// ListPublic returns public profiles, newest first.
func (s *ProfileStore)ListPublic(ctx context.Context, opts repository.ListOptions) ([]model.Profile, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, display_name, avatar_url, is_public, created_at, updated_at
		 FROM profiles
		 WHERE is_public = 1
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing public profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0, limit)
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(
			&p.ID, &p.DisplayName, &p.AvatarURL, &p.IsPublic,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating profiles: %w", err)
	}

	return profiles, nil
}
