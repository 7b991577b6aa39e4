package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// fakeRefresher scripts refresh outcomes and counts invocations.
type fakeRefresher struct {
	calls  int
	result *RefreshResult
	err    error
}

func (f *fakeRefresher) Refresh(_ context.Context, refreshToken string) (*RefreshResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestManager(refresher TokenRefresher, now time.Time) *Manager {
	m := NewManager(refresher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.now = func() time.Time { return now }
	return m
}

func TestNewEnvelope(t *testing.T) {
	m := newTestManager(&fakeRefresher{}, time.Now())

	grant := &Grant{
		AccessToken:       "at",
		RefreshToken:      "rt",
		AccessTokenExpiry: time.Now().Add(time.Hour),
		Identity:          Identity{ID: "user-1", DisplayName: "Alex"},
	}

	env := m.NewEnvelope(grant)

	if env.AccessToken != "at" || env.RefreshToken != "rt" {
		t.Errorf("envelope tokens = %q/%q, want at/rt", env.AccessToken, env.RefreshToken)
	}
	if env.Identity != grant.Identity {
		t.Errorf("Identity = %+v, want %+v", env.Identity, grant.Identity)
	}
	if env.SessionID == "" {
		t.Error("NewEnvelope() did not mint a session ID")
	}
	if env.Error != "" {
		t.Errorf("Error = %q, want empty", env.Error)
	}

	// Each login gets its own session ID.
	if other := m.NewEnvelope(grant); other.SessionID == env.SessionID {
		t.Error("NewEnvelope() reused a session ID across logins")
	}
}

func TestGetValidAccessToken_FreshTokenPassesThrough(t *testing.T) {
	now := time.Now()
	refresher := &fakeRefresher{}
	m := newTestManager(refresher, now)

	env := Envelope{
		AccessToken:       "still-good",
		RefreshToken:      "rt",
		AccessTokenExpiry: now.Add(30 * time.Minute),
		Identity:          Identity{ID: "user-1"},
		SessionID:         "sid",
	}

	got, token := m.GetValidAccessToken(context.Background(), env)

	if refresher.calls != 0 {
		t.Errorf("refresher called %d times for a fresh token, want 0", refresher.calls)
	}
	if got != env {
		t.Errorf("envelope changed on a fresh passthrough: %+v", got)
	}
	if token != "still-good" {
		t.Errorf("token = %q, want still-good", token)
	}
}

func TestGetValidAccessToken_ExpiredTokenRefreshesOnce(t *testing.T) {
	now := time.Now()
	newExpiry := now.Add(time.Hour)
	refresher := &fakeRefresher{
		result: &RefreshResult{AccessToken: "renewed", AccessTokenExpiry: newExpiry},
	}
	m := newTestManager(refresher, now)

	env := Envelope{
		AccessToken:       "stale",
		RefreshToken:      "rt",
		AccessTokenExpiry: now.Add(-time.Minute),
		Identity:          Identity{ID: "user-1"},
		SessionID:         "sid",
		Error:             ErrorRefreshFailed, // left over from an earlier failure
	}

	got, token := m.GetValidAccessToken(context.Background(), env)

	if refresher.calls != 1 {
		t.Errorf("refresher called %d times, want exactly 1", refresher.calls)
	}
	if token != "renewed" || got.AccessToken != "renewed" {
		t.Errorf("token = %q, want renewed", token)
	}
	if !got.AccessTokenExpiry.After(env.AccessTokenExpiry) {
		t.Error("refreshed expiry is not strictly later than the old one")
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want cleared after a successful refresh", got.Error)
	}
	// No rotation → the old refresh token is kept.
	if got.RefreshToken != "rt" {
		t.Errorf("RefreshToken = %q, want rt", got.RefreshToken)
	}
	// Identity and session ID survive the refresh untouched.
	if got.Identity != env.Identity || got.SessionID != env.SessionID {
		t.Error("refresh changed identity or session ID")
	}
}

func TestGetValidAccessToken_CarriesRotatedRefreshToken(t *testing.T) {
	now := time.Now()
	refresher := &fakeRefresher{
		result: &RefreshResult{
			AccessToken:       "renewed",
			AccessTokenExpiry: now.Add(time.Hour),
			RefreshToken:      "rotated-rt",
		},
	}
	m := newTestManager(refresher, now)

	env := Envelope{
		AccessToken:       "stale",
		RefreshToken:      "old-rt",
		AccessTokenExpiry: now.Add(-time.Minute),
		Identity:          Identity{ID: "user-1"},
		SessionID:         "sid",
	}

	got, _ := m.GetValidAccessToken(context.Background(), env)
	if got.RefreshToken != "rotated-rt" {
		t.Errorf("RefreshToken = %q, want rotated-rt", got.RefreshToken)
	}
}

func TestGetValidAccessToken_FailureDegradesWithoutDestroying(t *testing.T) {
	now := time.Now()
	refresher := &fakeRefresher{err: errors.New("token endpoint returned status 400")}
	m := newTestManager(refresher, now)

	env := Envelope{
		AccessToken:       "stale-but-kept",
		RefreshToken:      "rt",
		AccessTokenExpiry: now.Add(-time.Minute),
		Identity:          Identity{ID: "user-1", DisplayName: "Alex"},
		SessionID:         "sid",
	}

	got, token := m.GetValidAccessToken(context.Background(), env)

	if refresher.calls != 1 {
		t.Errorf("refresher called %d times, want 1", refresher.calls)
	}
	if got.Error != ErrorRefreshFailed {
		t.Errorf("Error = %q, want %q", got.Error, ErrorRefreshFailed)
	}
	// The stale token stays in place. Cached identity keeps working.
	if token != "stale-but-kept" || got.AccessToken != "stale-but-kept" {
		t.Errorf("token = %q, want the stale token preserved", token)
	}
	if got.Identity != env.Identity {
		t.Error("failure discarded the cached identity")
	}
	// The refresh token survives too — the next access retries with it.
	if got.RefreshToken != "rt" {
		t.Errorf("RefreshToken = %q, want rt", got.RefreshToken)
	}
}

func TestGetValidAccessToken_FailureIsRetryable(t *testing.T) {
	now := time.Now()
	refresher := &fakeRefresher{err: errors.New("network down")}
	m := newTestManager(refresher, now)

	env := Envelope{
		AccessToken:       "stale",
		RefreshToken:      "rt",
		AccessTokenExpiry: now.Add(-time.Minute),
		Identity:          Identity{ID: "user-1"},
		SessionID:         "sid",
	}

	degraded, _ := m.GetValidAccessToken(context.Background(), env)

	// The endpoint recovers; the degraded envelope refreshes cleanly.
	refresher.err = nil
	refresher.result = &RefreshResult{AccessToken: "recovered", AccessTokenExpiry: now.Add(time.Hour)}

	got, token := m.GetValidAccessToken(context.Background(), degraded)
	if token != "recovered" {
		t.Errorf("token = %q, want recovered", token)
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want cleared", got.Error)
	}
	if refresher.calls != 2 {
		t.Errorf("refresher called %d times total, want 2", refresher.calls)
	}
}

func TestStateOf(t *testing.T) {
	now := time.Now()
	m := newTestManager(&fakeRefresher{}, now)

	tests := []struct {
		name string
		env  Envelope
		want State
	}{
		{
			name: "fresh",
			env:  Envelope{AccessTokenExpiry: now.Add(time.Hour)},
			want: StateFresh,
		},
		{
			name: "expired",
			env:  Envelope{AccessTokenExpiry: now.Add(-time.Hour)},
			want: StateExpired,
		},
		{
			name: "failed",
			env:  Envelope{AccessTokenExpiry: now.Add(time.Hour), Error: ErrorRefreshFailed},
			want: StateFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.StateOf(tt.env); got != tt.want {
				t.Errorf("StateOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
