// Package catalog is a minimal client for the music catalog's Web API.
//
// The core only consumes ONE catalog endpoint server-side: the public
// user-profile lookup, used to backfill a missing avatar. Album search stays
// entirely in the browser against the same API, so there is nothing else to
// wrap here.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// requestTimeout bounds every catalog call. The catalog is a third party —
// its latency must never become our latency unbounded.
const requestTimeout = 10 * time.Second

// UserProfile is the slice of the catalog's public user object we use.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// AvatarURL returns the first image URL, or "" if the user has none.
func (u *UserProfile) AvatarURL() string {
	if len(u.Images) == 0 {
		return ""
	}
	return u.Images[0].URL
}

// Client calls the catalog's Web API with a caller-supplied bearer token.
//
// The client itself is stateless and credential-free: every method takes the
// access token as an argument, because tokens belong to a login (the
// envelope), not to the process.
type Client struct {
	// BaseURL is overridable so tests can point at httptest.
	BaseURL string

	httpClient *http.Client
}

// New creates a catalog Client with a bounded-timeout HTTP client.
func New() *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// GetUserProfile fetches the public profile for a catalog user ID.
//
// GET {BaseURL}/users/{id} with "Authorization: Bearer <token>".
// Returns an error for any non-200 — callers doing best-effort work (the
// avatar backfill) log and move on.
func (c *Client) GetUserProfile(ctx context.Context, accessToken, userID string) (*UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("catalog: user ID is empty")
	}

	// User IDs are opaque text from an external system — path-escape them
	// rather than trusting they're URL-safe.
	endpoint := fmt.Sprintf("%s/users/%s", c.BaseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetching user %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: user endpoint returned status %d", resp.StatusCode)
	}

	var profile UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("catalog: decoding user response: %w", err)
	}

	return &profile, nil
}
