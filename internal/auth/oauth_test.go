package auth

import (
	"net/url"
	"strings"
	"testing"
)

func TestAuthURL(t *testing.T) {
	p := NewSpotifyProvider("my-client-id", "secret", "http://localhost:8080/auth/spotify/callback")

	raw := p.AuthURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthURL produced an unparseable URL: %v", err)
	}

	if !strings.Contains(u.Host, "spotify.com") {
		t.Errorf("host = %q, want a spotify.com authorization endpoint", u.Host)
	}

	q := u.Query()
	if q.Get("client_id") != "my-client-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("state") != "state-123" {
		t.Errorf("state = %q, want state-123", q.Get("state"))
	}
	if q.Get("redirect_uri") != "http://localhost:8080/auth/spotify/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if scope := q.Get("scope"); !strings.Contains(scope, "user-read-email") {
		t.Errorf("scope = %q, missing user-read-email", scope)
	}
	// The client secret never appears in a browser-visible URL.
	if strings.Contains(raw, "secret") {
		t.Error("AuthURL leaked the client secret")
	}
}
