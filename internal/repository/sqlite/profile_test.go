package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/desert-discs/internal/apperror"
	"github.com/sakif/desert-discs/internal/model"
	"github.com/sakif/desert-discs/internal/repository"
)

// newTestDB creates an in-memory database for testing.
// Each test gets a fresh database; it's destroyed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// syncProfile is a helper that upserts a profile the way a login sync would.
func syncProfile(t *testing.T, p *ProfileStore, id, name, avatar string) *model.Profile {
	t.Helper()
	profile := &model.Profile{ID: id, DisplayName: name, AvatarURL: avatar}
	if err := p.Upsert(context.Background(), profile); err != nil {
		t.Fatalf("Upsert(%s): %v", id, err)
	}
	return profile
}

// =========================================================================
// UPSERT TESTS
// =========================================================================

func TestProfileUpsert_CreatesRow(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)

	profile := syncProfile(t, p, "user-1", "Alex", "https://img/a.png")

	if !profile.IsPublic {
		t.Error("new profiles should default to public")
	}
	if profile.CreatedAt.IsZero() || profile.UpdatedAt.IsZero() {
		t.Error("Upsert() did not populate timestamps")
	}

	got, err := p.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DisplayName != "Alex" || got.AvatarURL != "https://img/a.png" {
		t.Errorf("stored profile = %+v", got)
	}
}

func TestProfileUpsert_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)

	for i := 0; i < 3; i++ {
		syncProfile(t, p, "user-1", "Alex", "")
	}

	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM profiles WHERE id = ?`, "user-1").Scan(&count)
	if err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 1 {
		t.Errorf("profile rows = %d, want exactly 1 after repeated upserts", count)
	}
}

func TestProfileUpsert_RefreshesProviderFields(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)

	first := syncProfile(t, p, "user-1", "Old Name", "")
	syncProfile(t, p, "user-1", "New Name", "https://img/new.png")

	got, err := p.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DisplayName != "New Name" {
		t.Errorf("DisplayName = %q, want New Name", got.DisplayName)
	}
	if got.AvatarURL != "https://img/new.png" {
		t.Errorf("AvatarURL = %q", got.AvatarURL)
	}
	if got.CreatedAt.Unix() != first.CreatedAt.Unix() {
		t.Error("Upsert() changed created_at on update")
	}
}

func TestProfileUpsert_PreservesVisibility(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)

	syncProfile(t, p, "user-1", "Alex", "")
	if err := p.SetVisibility(context.Background(), "user-1", false); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}

	// A later login sync must not flip the profile public again.
	syncProfile(t, p, "user-1", "Alex Renamed", "")

	got, err := p.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.IsPublic {
		t.Error("Upsert() reset is_public — visibility belongs to the owner, not the provider")
	}
	if got.DisplayName != "Alex Renamed" {
		t.Errorf("DisplayName = %q, want Alex Renamed", got.DisplayName)
	}
}

func TestProfileUpsert_RequiresID(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)

	if err := p.Upsert(context.Background(), &model.Profile{}); err == nil {
		t.Error("Upsert() accepted a profile without an ID")
	}
}

// =========================================================================
// GET / VISIBILITY TESTS
// =========================================================================

func TestProfileGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)

	_, err := p.GetByID(context.Background(), "ghost")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestSetVisibility_NotFound(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)

	err := p.SetVisibility(context.Background(), "ghost", false)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SetVisibility(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestSetVisibility_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)
	ctx := context.Background()

	syncProfile(t, p, "user-1", "Alex", "")

	if err := p.SetVisibility(ctx, "user-1", false); err != nil {
		t.Fatalf("SetVisibility(false): %v", err)
	}
	got, _ := p.GetByID(ctx, "user-1")
	if got.IsPublic {
		t.Error("profile still public after SetVisibility(false)")
	}

	if err := p.SetVisibility(ctx, "user-1", true); err != nil {
		t.Fatalf("SetVisibility(true): %v", err)
	}
	got, _ = p.GetByID(ctx, "user-1")
	if !got.IsPublic {
		t.Error("profile still private after SetVisibility(true)")
	}
}

// =========================================================================
// AVATAR BACKFILL TESTS
// =========================================================================

func TestSetAvatarIfEmpty_FillsBlankAvatar(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)
	ctx := context.Background()

	syncProfile(t, p, "user-1", "Alex", "")

	if err := p.SetAvatarIfEmpty(ctx, "user-1", "https://img/found.png"); err != nil {
		t.Fatalf("SetAvatarIfEmpty: %v", err)
	}
	got, _ := p.GetByID(ctx, "user-1")
	if got.AvatarURL != "https://img/found.png" {
		t.Errorf("AvatarURL = %q, want the backfilled URL", got.AvatarURL)
	}
}

func TestSetAvatarIfEmpty_DoesNotOverwrite(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)
	ctx := context.Background()

	syncProfile(t, p, "user-1", "Alex", "https://img/original.png")

	if err := p.SetAvatarIfEmpty(ctx, "user-1", "https://img/late.png"); err != nil {
		t.Fatalf("SetAvatarIfEmpty: %v", err)
	}
	got, _ := p.GetByID(ctx, "user-1")
	if got.AvatarURL != "https://img/original.png" {
		t.Errorf("AvatarURL = %q — backfill overwrote an existing avatar", got.AvatarURL)
	}
}

func TestSetAvatarIfEmpty_NoURLIsNoOp(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)

	if err := p.SetAvatarIfEmpty(context.Background(), "user-1", ""); err != nil {
		t.Errorf("SetAvatarIfEmpty with empty URL should be a no-op, got %v", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListPublic_ExcludesPrivateProfiles(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)
	ctx := context.Background()

	syncProfile(t, p, "public-1", "A", "")
	syncProfile(t, p, "public-2", "B", "")
	syncProfile(t, p, "private-1", "C", "")
	if err := p.SetVisibility(ctx, "private-1", false); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}

	got, err := p.ListPublic(ctx, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListPublic returned %d profiles, want 2", len(got))
	}
	for _, profile := range got {
		if profile.ID == "private-1" {
			t.Error("ListPublic leaked a private profile")
		}
	}
}

func TestListPublic_RespectsLimitAndOffset(t *testing.T) {
	db := newTestDB(t)
	p := NewProfileStore(db)
	ctx := context.Background()

	for _, id := range []string{"u1", "u2", "u3"} {
		syncProfile(t, p, id, id, "")
	}

	page, err := p.ListPublic(ctx, repository.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("limit 2 returned %d profiles", len(page))
	}

	rest, err := p.ListPublic(ctx, repository.ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("offset 2 returned %d profiles, want 1", len(rest))
	}
}
