package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/spotify"
)

// defaultProfileURL is Spotify's "current user" endpoint.
// Overridable on the provider struct so tests can point it at httptest.
const defaultProfileURL = "https://api.spotify.com/v1/me"

// spotifyUser is the portion of the Spotify /v1/me response we care about.
// Spotify returns a much larger object — we only unmarshal what we need.
//
// API docs: https://developer.spotify.com/documentation/web-api/reference/get-current-users-profile
type spotifyUser struct {
	ID          string `json:"id"`           // Spotify user ID — stable, text, never numeric
	DisplayName string `json:"display_name"` // may be empty if the user never set one
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"` // avatar candidates, largest first
}

// Grant is the result of a completed authorization-code exchange: the
// initial credentials plus the identity they belong to. The Manager turns
// this into the first Envelope of the login — this path never touches the
// refresh endpoint.
type Grant struct {
	AccessToken       string
	RefreshToken      string
	AccessTokenExpiry time.Time
	Identity          Identity
}

// SpotifyProvider wraps golang.org/x/oauth2 for the Spotify Authorization
// Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
// 1. Your server redirects the user to Spotify's authorization endpoint,
//    with your ClientID and the requested scopes.
// 2. The user approves (or denies) the request on Spotify.
// 3. Spotify redirects back to your CallbackURL with a short-lived "code".
// 4. Your server exchanges the code for tokens (server-to-server call).
// 5. Your server uses the access token to fetch the user's profile.
//
// The code-for-token exchange uses the ClientSecret and happens entirely
// server side — neither the access token nor the refresh token is ever
// handed to front-end JavaScript.
type SpotifyProvider struct {
	config *oauth2.Config

	// ProfileURL is where Exchange fetches the user identity from.
	// Tests override it; production leaves the default.
	ProfileURL string
}

// NewSpotifyProvider creates a SpotifyProvider with the given credentials.
//
// You get ClientID and ClientSecret from the Spotify developer dashboard:
// https://developer.spotify.com/dashboard → your app → Settings
//
// callbackURL must exactly match a "Redirect URI" registered there.
// Example: "http://localhost:8080/auth/spotify/callback"
//
// Scopes we request:
//   - "user-read-email"   — the account's email address
//   - "user-read-private" — display name, country, subscription level
func NewSpotifyProvider(clientID, clientSecret, callbackURL string) *SpotifyProvider {
	return &SpotifyProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"user-read-email", "user-read-private"},
			Endpoint:     spotify.Endpoint, // pre-defined Spotify OAuth endpoints
		},
		ProfileURL: defaultProfileURL,
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// STATE PARAMETER:
// The state is a random string we generate and store in a cookie before
// redirecting. When Spotify calls back, we verify the returned state matches
// our cookie. This prevents CSRF attacks where an attacker tricks a browser
// into completing an OAuth flow for the attacker's account.
func (p *SpotifyProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange completes the OAuth flow: trades the authorization code for
// Spotify tokens and the identity they belong to.
//
// Steps:
//  1. Exchange the code for access + refresh tokens (server-to-server)
//  2. Use the access token to call Spotify's /v1/me endpoint
//  3. Bundle tokens, expiry, and identity into a Grant
func (p *SpotifyProvider) Exchange(ctx context.Context, code string) (*Grant, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that automatically adds
	// the "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get(p.ProfileURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Spotify /v1/me: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Spotify /v1/me returned status %d", resp.StatusCode)
	}

	var su spotifyUser
	if err := json.NewDecoder(resp.Body).Decode(&su); err != nil {
		return nil, fmt.Errorf("auth: decoding Spotify /v1/me response: %w", err)
	}
	if su.ID == "" {
		return nil, fmt.Errorf("auth: Spotify returned a user with no ID")
	}

	avatarURL := ""
	if len(su.Images) > 0 {
		avatarURL = su.Images[0].URL
	}

	return &Grant{
		AccessToken:       oauthToken.AccessToken,
		RefreshToken:      oauthToken.RefreshToken,
		AccessTokenExpiry: oauthToken.Expiry,
		Identity: Identity{
			ID:          su.ID,
			DisplayName: su.DisplayName,
			AvatarURL:   avatarURL,
		},
	}, nil
}
