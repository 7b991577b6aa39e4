package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/desert-discs/internal/apperror"
	"github.com/sakif/desert-discs/internal/model"
	"github.com/sakif/desert-discs/internal/repository"
)

// compile-time check that *AlbumStore implements repository.AlbumRepository
var _ repository.AlbumRepository = (*AlbumStore)(nil)

// AlbumStore provides album entry persistence on top of a shared *DB.
type AlbumStore struct {
	db *DB
}

// NewAlbumStore creates an AlbumStore backed by db.
func NewAlbumStore(db *DB) *AlbumStore {
	return &AlbumStore{db: db}
}

// isUniqueViolation reports whether err is SQLite complaining about the
// UNIQUE(owner_id, catalog_album_id) index. modernc.org/sqlite surfaces
// constraint failures as plain errors with a stable message prefix.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Insert adds an album entry, enforcing the quota and duplicate invariants
// ATOMICALLY.
//
// THE RACE THIS AVOIDS:
// A naive "SELECT COUNT, then INSERT" lets two concurrent adds both see
// count=4 and both insert — six albums. So the count runs INSIDE the same
// transaction as the insert; with SQLite's serialised writers no other
// insert can land between the two statements. The duplicate rule doesn't
// even need the read: the UNIQUE index rejects the insert and we translate
// the constraint error.
//
// Both failure modes come back as apperror values (QuotaExceeded,
// DuplicateAlbum) — user-facing 409s, never system faults.
func (s *AlbumStore)Insert(ctx context.Context, entry *model.AlbumEntry) error {
	if entry.OwnerID == "" {
		return fmt.Errorf("sqlite: album entry has no owner")
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning insert transaction: %w", err)
	}
	// Rollback is a no-op after a successful Commit — safe to always defer.
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM album_entries WHERE owner_id = ?`,
		entry.OwnerID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("sqlite: counting entries for owner %s: %w", entry.OwnerID, err)
	}
	if count >= model.MaxAlbumsPerOwner {
		return apperror.QuotaExceeded(model.MaxAlbumsPerOwner)
	}

	entry.ID = xid.New().String()
	entry.CreatedAt = time.Now()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO album_entries (id, owner_id, catalog_album_id, title, artist_name, cover_image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OwnerID,
		entry.CatalogAlbumID,
		entry.Title,
		entry.ArtistName,
		entry.CoverImageURL,
		entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateAlbum(entry.CatalogAlbumID)
		}
		return fmt.Errorf("sqlite: inserting album entry for owner %s: %w", entry.OwnerID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing album insert: %w", err)
	}

	return nil
}

// ListByOwner returns an owner's entries, newest first.
//
// The id tiebreak keeps ordering stable when two entries share a timestamp —
// xids are time-sortable, so newer inserts still sort first.
func (s *AlbumStore)ListByOwner(ctx context.Context, ownerID string) ([]model.AlbumEntry, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, owner_id, catalog_album_id, title, artist_name, cover_image_url, created_at
		 FROM album_entries
		 WHERE owner_id = ?
		 ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing entries for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListPublic returns the entries of every public profile except
// excludeOwnerID. Each row carries its owner's ID — that IS the tag callers
// group by.
func (s *AlbumStore)ListPublic(ctx context.Context, excludeOwnerID string) ([]model.AlbumEntry, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT e.id, e.owner_id, e.catalog_album_id, e.title, e.artist_name, e.cover_image_url, e.created_at
		 FROM album_entries e
		 JOIN profiles p ON p.id = e.owner_id
		 WHERE p.is_public = 1 AND e.owner_id != ?
		 ORDER BY e.owner_id, e.created_at DESC, e.id DESC`,
		excludeOwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing public entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// CountByOwner returns how many entries an owner currently has.
func (s *AlbumStore)CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM album_entries WHERE owner_id = ?`,
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting entries for owner %s: %w", ownerID, err)
	}
	return count, nil
}

// DeleteOwned removes an entry ONLY if the caller owns it.
//
// The delete is a compound predicate (id AND owner_id). When it matches
// nothing we look the id up alone to tell the two cases apart:
//   - id doesn't exist at all      → NotFound
//   - id exists under another owner → NotOwner (and that row is untouched)
//
// Collapsing both into NotFound would hide real client bugs (deleting
// someone else's entry) behind a generic 404.
func (s *AlbumStore)DeleteOwned(ctx context.Context, ownerID, entryID string) error {
	result, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM album_entries WHERE id = ? AND owner_id = ?`,
		entryID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting entry %s: %w", entryID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists int
	err = s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM album_entries WHERE id = ?`, entryID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking entry %s: %w", entryID, err)
	}
	if exists > 0 {
		return apperror.NotOwner("album entry", entryID)
	}
	return apperror.NotFound("album entry", entryID)
}

// scanEntries drains a rows cursor into a slice. Shared by the list queries.
func scanEntries(rows *sql.Rows) ([]model.AlbumEntry, error) {
	entries := make([]model.AlbumEntry, 0, model.MaxAlbumsPerOwner)
	for rows.Next() {
		var e model.AlbumEntry
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &e.CatalogAlbumID, &e.Title,
			&e.ArtistName, &e.CoverImageURL, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning album entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating album entries: %w", err)
	}
	return entries, nil
}
