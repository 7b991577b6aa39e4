package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultTokenURL is Spotify's token endpoint — the same one the
// authorization-code exchange uses, with a different grant_type.
const defaultTokenURL = "https://accounts.spotify.com/api/token"

// refreshTimeout bounds a single refresh call. A hung provider must never
// hang a request — the caller gets a failure instead.
const refreshTimeout = 10 * time.Second

// RefreshResult is the provider's answer to a refresh-token exchange.
//
// RefreshToken is empty when the provider chose NOT to rotate — Spotify
// usually doesn't. The caller keeps its previous refresh token in that case;
// absence is normal, never an error.
type RefreshResult struct {
	AccessToken       string
	AccessTokenExpiry time.Time
	RefreshToken      string // empty = keep the old one
}

// Refresher exchanges a refresh token for a new access token.
//
// It is the ONLY component that talks to the provider's token endpoint
// after login, and it deliberately does exactly one call per invocation:
// no retries, no backoff. Retry policy belongs to the caller — and here the
// policy is "don't": a failed refresh marks the session degraded and the
// next natural access simply tries again.
//
// The client credentials live only here on the server side. They are sent
// as HTTP Basic auth, which is how Spotify wants the refresh grant
// authenticated (base64(client_id:client_secret)).
type Refresher struct {
	clientID     string
	clientSecret string

	// TokenURL is overridable so tests can point the exchange at httptest.
	TokenURL string

	httpClient *http.Client
}

// NewRefresher creates a Refresher for the given client credentials.
func NewRefresher(clientID, clientSecret string) *Refresher {
	return &Refresher{
		clientID:     clientID,
		clientSecret: clientSecret,
		TokenURL:     defaultTokenURL,
		httpClient:   &http.Client{Timeout: refreshTimeout},
	}
}

// tokenEndpointResponse is the provider's JSON body for a successful grant.
type tokenEndpointResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`    // seconds until expiry
	RefreshToken string `json:"refresh_token"` // only present on rotation
}

// Refresh performs a single refresh-token exchange.
//
// POST {TokenURL}
//   Authorization: Basic base64(client_id:client_secret)
//   Content-Type: application/x-www-form-urlencoded
//   grant_type=refresh_token&refresh_token=...
//
// Any network error, non-2xx status, or unparseable body is returned as an
// error — classifying what that means for the session is the Manager's job,
// not ours.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("auth: refresh token is empty")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("auth: building refresh request: %w", err)
	}
	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Spotify answers 400 for a revoked/rotated-away refresh token.
		// We don't read the body into the error — it can echo the grant.
		return nil, fmt.Errorf("auth: token endpoint returned status %d", resp.StatusCode)
	}

	var body tokenEndpointResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("auth: decoding token response: %w", err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("auth: token response has no access token")
	}
	if body.ExpiresIn <= 0 {
		return nil, fmt.Errorf("auth: token response has invalid expires_in %d", body.ExpiresIn)
	}

	return &RefreshResult{
		AccessToken:       body.AccessToken,
		AccessTokenExpiry: time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
		RefreshToken:      body.RefreshToken, // "" unless the provider rotated
	}, nil
}
