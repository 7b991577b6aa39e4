package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/desert-discs/internal/model"
	"github.com/sakif/desert-discs/internal/repository"
)

// compile-time check that *ConsentStore implements repository.ConsentRepository
var _ repository.ConsentRepository = (*ConsentStore)(nil)

// ConsentStore provides consent persistence on top of a shared *DB.
type ConsentStore struct {
	db *DB
}

// NewConsentStore creates a ConsentStore backed by db.
func NewConsentStore(db *DB) *ConsentStore {
	return &ConsentStore{db: db}
}

// Upsert records the latest consent decision for a profile.
//
// ON CONFLICT ... DO UPDATE keeps exactly one row per profile in a single
// statement — unlike profiles.Upsert there is no sibling data to preserve,
// so the simplest SQLite upsert idiom is the right one here.
func (s *ConsentStore) Upsert(ctx context.Context, consent *model.Consent) error {
	if consent.ProfileID == "" {
		return fmt.Errorf("sqlite: consent has no profile ID")
	}

	consent.RecordedAt = time.Now()

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO consents (profile_id, status, recorded_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (profile_id) DO UPDATE SET
			status = excluded.status,
			recorded_at = excluded.recorded_at`,
		consent.ProfileID,
		consent.Status,
		consent.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting consent for %s: %w", consent.ProfileID, err)
	}

	return nil
}
