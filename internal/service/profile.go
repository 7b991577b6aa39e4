package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/desert-discs/internal/apperror"
	"github.com/sakif/desert-discs/internal/auth"
	"github.com/sakif/desert-discs/internal/catalog"
	"github.com/sakif/desert-discs/internal/model"
	"github.com/sakif/desert-discs/internal/repository"
)

// MaxDisplayNameLength bounds the display name accepted from explicit
// profile updates. Provider-synced names pass through untrimmed — they're
// the provider's problem.
const MaxDisplayNameLength = 100

// backfillTimeout bounds the background avatar lookup.
const backfillTimeout = 15 * time.Second

// AvatarLookup is what the Synchronizer needs from the catalog client.
type AvatarLookup interface {
	GetUserProfile(ctx context.Context, accessToken, userID string) (*catalog.UserProfile, error)
}

// ProfileService is the Profile Synchronizer: it keeps the local profile
// row mirroring the provider's claims, and owns every other profile write
// (explicit updates, visibility, avatar backfill).
type ProfileService struct {
	profiles repository.ProfileRepository
	catalog  AvatarLookup
	logger   *slog.Logger

	// synced tracks which login sessions have already run their sync, keyed
	// by session ID. Process-local on purpose — it is NOT a distributed
	// lock. Two tabs of the same login may both sync; that's benign because
	// the upsert is idempotent. What the flag buys is not hitting the
	// database on every request of a normal session.
	mu     sync.Mutex
	synced map[string]struct{}
}

// NewProfileService creates a ProfileService.
func NewProfileService(profiles repository.ProfileRepository, avatars AvatarLookup, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		catalog:  avatars,
		logger:   logger,
		synced:   make(map[string]struct{}),
	}
}

// SyncOnce makes sure a profile row exists for the identity and mirrors the
// provider's display name and avatar — at most once per login session.
//
// Repeated calls with the same session ID return the stored row without
// writing. The upsert itself never touches is_public (that flag belongs to
// the owner, not the provider), and a missing avatar kicks off a
// best-effort background lookup against the catalog — failure there is
// logged and swallowed, since a blank avatar is not a correctness problem.
func (s *ProfileService) SyncOnce(ctx context.Context, sessionID string, ident auth.Identity, accessToken string) (*model.Profile, error) {
	if ident.ID == "" {
		return nil, fmt.Errorf("service/profile: identity has no ID")
	}

	s.mu.Lock()
	_, alreadySynced := s.synced[sessionID]
	s.mu.Unlock()

	if alreadySynced {
		profile, err := s.profiles.GetByID(ctx, ident.ID)
		if err != nil {
			return nil, fmt.Errorf("service/profile: fetching synced profile %s: %w", ident.ID, err)
		}
		return profile, nil
	}

	profile := &model.Profile{
		ID:          ident.ID,
		DisplayName: ident.DisplayName,
		AvatarURL:   ident.AvatarURL,
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("service/profile: upserting profile %s: %w", ident.ID, err)
	}

	s.mu.Lock()
	// The map grows one entry per login and never needs to be exact —
	// resetting it just means an extra idempotent upsert per live session.
	if len(s.synced) > 100_000 {
		s.synced = make(map[string]struct{})
	}
	s.synced[sessionID] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("profile synced",
		slog.String("userID", profile.ID),
		slog.String("sid", sessionID),
	)

	if profile.AvatarURL == "" && accessToken != "" {
		go s.backfillAvatar(profile.ID, accessToken)
	}

	return profile, nil
}

// backfillAvatar looks the user up on the catalog and stores their avatar
// if the row still has none. Runs detached from the request that triggered
// it — an abandoned login callback must not cancel it halfway, and a slow
// catalog must not slow the login down.
func (s *ProfileService) backfillAvatar(profileID, accessToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), backfillTimeout)
	defer cancel()

	remote, err := s.catalog.GetUserProfile(ctx, accessToken, profileID)
	if err != nil {
		s.logger.Warn("avatar backfill lookup failed",
			slog.String("userID", profileID),
			slog.String("error", err.Error()),
		)
		return
	}

	avatarURL := remote.AvatarURL()
	if avatarURL == "" {
		return // the catalog has no picture either — nothing to do
	}

	if err := s.profiles.SetAvatarIfEmpty(ctx, profileID, avatarURL); err != nil {
		s.logger.Warn("avatar backfill write failed",
			slog.String("userID", profileID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("avatar backfilled", slog.String("userID", profileID))
}

// Update applies an explicit profile edit (display name and/or avatar) for
// the owner. Routed through the same idempotent upsert as sync, so it also
// never touches is_public.
func (s *ProfileService) Update(ctx context.Context, ownerID, displayName, avatarURL string) (*model.Profile, error) {
	if ownerID == "" {
		return nil, apperror.Unauthenticated("no session")
	}

	displayName = strings.TrimSpace(displayName)
	if len(displayName) > MaxDisplayNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("display name must be %d characters or less", MaxDisplayNameLength))
	}

	profile := &model.Profile{
		ID:          ownerID,
		DisplayName: displayName,
		AvatarURL:   strings.TrimSpace(avatarURL),
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		s.logger.Error("failed to update profile",
			slog.String("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	return profile, nil
}

// SetVisibility flips the public flag for the owner's own profile only —
// the owner ID comes from the session, so there is no way to aim this at
// someone else's row.
func (s *ProfileService) SetVisibility(ctx context.Context, ownerID string, isPublic bool) (*model.Profile, error) {
	if ownerID == "" {
		return nil, apperror.Unauthenticated("no session")
	}

	if err := s.profiles.SetVisibility(ctx, ownerID, isPublic); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("fetching profile after visibility change: %w", err)
	}

	s.logger.Info("profile visibility changed",
		slog.String("userID", ownerID),
		slog.Bool("isPublic", isPublic),
	)

	return profile, nil
}

// GetPublic returns a profile by ID if — and only if — it is public.
//
// Private and unknown profiles both come back NotFound: a 404 must not leak
// whether a private profile exists.
//
// viewerToken is the VIEWER's access token; when the fetched profile has no
// avatar it funds a background backfill attempt, exactly as benign and
// best-effort as the one at sync time.
func (s *ProfileService) GetPublic(ctx context.Context, viewerToken, id string) (*model.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "profile ID is required")
	}

	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !profile.IsPublic {
		return nil, apperror.NotFound("profile", id)
	}

	if profile.AvatarURL == "" && viewerToken != "" {
		go s.backfillAvatar(profile.ID, viewerToken)
	}

	return profile, nil
}

// ListPublic returns public profiles, newest first.
func (s *ProfileService) ListPublic(ctx context.Context, limit, offset int) ([]model.Profile, error) {
	profiles, err := s.profiles.ListPublic(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list public profiles", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing public profiles: %w", err)
	}
	return profiles, nil
}
