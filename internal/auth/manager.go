package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/rs/xid"
)

// State describes where an envelope sits in the refresh lifecycle. Mostly
// useful for logging and tests — callers act on the returned envelope, not
// the state.
//
// Transitions:
//
//	Fresh ──clock──▶ Expired ──attempt──▶ RefreshPending ──2xx──▶ Refreshed
//	                                            │
//	                                          error ──▶ Failed
//
// Failed is NOT terminal for the login: the stale refresh token stays in the
// envelope and the next access attempt goes around again.
type State string

const (
	StateFresh          State = "fresh"
	StateExpired        State = "expired"
	StateRefreshPending State = "refresh_pending"
	StateRefreshed      State = "refreshed"
	StateFailed         State = "failed"
)

// TokenRefresher is what the Manager needs from a Refresher. An interface so
// tests can count invocations and script failures without a network.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
}

// Manager is the per-login state machine: on every access it decides whether
// the current envelope is usable as-is, must be refreshed, or is degraded.
//
// Manager holds NO per-user state of its own. The envelope is the state, and
// it lives in the session cookie — two browser tabs may both race past an
// expired token and refresh independently. That duplication is accepted:
// either result is usable. The one sharp edge is refresh-token rotation — if
// the provider invalidates the old refresh token when rotating, the losing
// tab's next refresh fails and surfaces as a degraded session, never a crash.
type Manager struct {
	refresher TokenRefresher
	logger    *slog.Logger

	// now is swappable for tests. Defaults to time.Now.
	now func() time.Time
}

// NewManager creates a Manager around the given refresher.
func NewManager(refresher TokenRefresher, logger *slog.Logger) *Manager {
	return &Manager{
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}
}

// NewEnvelope builds the FIRST envelope of a login from a completed
// authorization grant. This is the initial-issuance path — distinct from
// refresh, and it must never call the token endpoint (the provider just
// handed us a fresh access token).
func (m *Manager) NewEnvelope(grant *Grant) Envelope {
	return Envelope{
		AccessToken:       grant.AccessToken,
		RefreshToken:      grant.RefreshToken,
		AccessTokenExpiry: grant.AccessTokenExpiry,
		Identity:          grant.Identity,
		SessionID:         xid.New().String(),
	}
}

// GetValidAccessToken returns an envelope whose access token is usable if at
// all possible, plus that token.
//
//   - Token still fresh → the envelope comes back unchanged.
//   - Token expired → exactly one refresh call. On success the new envelope
//     carries the new access token and expiry, keeps the old refresh token
//     unless the provider rotated, and clears any prior degraded marker.
//   - Refresh failed → the envelope comes back with Error=RefreshFailed and
//     the STALE access token still in place. Identity-dependent reads keep
//     working off cached claims; provider-API calls will fail until the user
//     re-authenticates. Surfaced, not silently retried.
//
// The second return value is always the access token of the returned
// envelope, stale or not — callers wanting to gate provider calls check
// env.Error, not the token string.
func (m *Manager) GetValidAccessToken(ctx context.Context, env Envelope) (Envelope, string) {
	if env.Valid(m.now()) {
		return env, env.AccessToken
	}

	// Fresh → Expired → RefreshPending
	m.logger.Debug("access token expired, refreshing",
		slog.String("userID", env.Identity.ID),
		slog.String("sid", env.SessionID),
		slog.Time("expiry", env.AccessTokenExpiry),
	)

	result, err := m.refresher.Refresh(ctx, env.RefreshToken)
	if err != nil {
		// RefreshPending → Failed. Keep the stale token and mark the
		// envelope degraded; the next access may retry with the same
		// refresh token.
		m.logger.Warn("token refresh failed",
			slog.String("userID", env.Identity.ID),
			slog.String("sid", env.SessionID),
			slog.String("error", err.Error()),
		)
		env.Error = ErrorRefreshFailed
		return env, env.AccessToken
	}

	// RefreshPending → Refreshed
	refreshed := env
	refreshed.AccessToken = result.AccessToken
	refreshed.AccessTokenExpiry = result.AccessTokenExpiry
	refreshed.Error = "" // a successful refresh clears any prior failure
	if result.RefreshToken != "" {
		// The provider rotated. Carry the new one forward — the old one
		// may already be invalid.
		refreshed.RefreshToken = result.RefreshToken
	}

	m.logger.Info("access token refreshed",
		slog.String("userID", env.Identity.ID),
		slog.String("sid", env.SessionID),
		slog.Time("newExpiry", refreshed.AccessTokenExpiry),
		slog.Bool("rotated", result.RefreshToken != ""),
	)

	return refreshed, refreshed.AccessToken
}

// StateOf classifies an envelope at an instant. Informational only.
func (m *Manager) StateOf(env Envelope) State {
	switch {
	case env.Error == ErrorRefreshFailed:
		return StateFailed
	case env.Valid(m.now()):
		return StateFresh
	default:
		return StateExpired
	}
}
