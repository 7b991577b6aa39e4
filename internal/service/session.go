// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// Handlers only know HTTP. Services only know the rules. Repositories only
// know SQL. Each service takes its dependencies as interfaces, so tests
// swap in mocks with plain Go — no HTTP, no database.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/desert-discs/internal/auth"
)

// SessionService orchestrates the login lifecycle around the auth.Manager.
//
// It is the only place the three halves of a login meet:
//   - the provider grant (from the OAuth callback)
//   - the envelope (minted by the Manager, sealed by the SessionCodec)
//   - the local profile (synced exactly once per login by the Synchronizer)
type SessionService struct {
	manager  *auth.Manager
	codec    *auth.SessionCodec
	profiles *ProfileService
	logger   *slog.Logger
}

// NewSessionService creates a SessionService with all required dependencies.
func NewSessionService(
	manager *auth.Manager,
	codec *auth.SessionCodec,
	profiles *ProfileService,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		manager:  manager,
		codec:    codec,
		profiles: profiles,
		logger:   logger,
	}
}

// Login turns a completed authorization grant into a sealed session.
//
// This is initial issuance — the Manager builds the first envelope straight
// from the grant and never goes near the refresh endpoint. The profile sync
// runs here, inside the login, which is what makes it once-per-login rather
// than once-per-request.
//
// A sync failure fails the login: a session whose identity has no local
// profile row would break every collection operation behind it.
func (s *SessionService) Login(ctx context.Context, grant *auth.Grant) (auth.Envelope, string, error) {
	if grant == nil {
		return auth.Envelope{}, "", fmt.Errorf("service/session: grant must not be nil")
	}

	env := s.manager.NewEnvelope(grant)

	if _, err := s.profiles.SyncOnce(ctx, env.SessionID, env.Identity, env.AccessToken); err != nil {
		return auth.Envelope{}, "", fmt.Errorf("service/session: syncing profile for %s: %w", env.Identity.ID, err)
	}

	cookie, err := s.codec.Encode(env)
	if err != nil {
		return auth.Envelope{}, "", fmt.Errorf("service/session: sealing session for %s: %w", env.Identity.ID, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", env.Identity.ID),
		slog.String("sid", env.SessionID),
	)

	return env, cookie, nil
}

// Current returns an envelope with a usable access token if at all
// possible, refreshing through the Manager when the current one is stale.
//
// The returned cookie string is non-empty ONLY when the envelope changed
// (successful refresh, or a newly-recorded refresh failure) and the
// client's cookie should be rewritten. An unchanged fresh envelope returns
// "" so handlers don't re-set identical cookies on every read.
func (s *SessionService) Current(ctx context.Context, env auth.Envelope) (auth.Envelope, string, error) {
	before := env
	after, _ := s.manager.GetValidAccessToken(ctx, env)

	if after == before {
		return after, "", nil
	}

	cookie, err := s.codec.Encode(after)
	if err != nil {
		return auth.Envelope{}, "", fmt.Errorf("service/session: resealing session for %s: %w", after.Identity.ID, err)
	}
	return after, cookie, nil
}
