// Package auth provides the session/token lifecycle for the desert-discs API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User visits /auth/spotify/login → redirected to Spotify
// 2. Spotify calls back /auth/spotify/callback with a code
// 3. Server exchanges the code for Spotify tokens + the user's identity
// 4. Server seals everything into an Envelope, signs it into a JWT, and
//    stores it in an HttpOnly "session" cookie
// 5. On subsequent API calls, middleware reads the cookie, validates the JWT,
//    and puts the decoded Envelope in the request context
//
// WHY PUT THE WHOLE ENVELOPE IN THE COOKIE?
// The session is stateless — no session table, no server-side session cache.
// Everything one login needs (access token, refresh token, expiry, identity)
// travels inside the signed cookie. The HMAC signature means the client can
// carry it but cannot read-tamper it into something else, and the server can
// validate it without a database lookup.
//
// The JWT's own "exp" claim is the ABSOLUTE session cap (30 days). The
// access token inside the envelope expires much sooner (about an hour) and
// is renewed in place by the Manager; the cookie just gets re-signed with
// the new envelope. When the 30-day cap passes, the JWT itself fails
// validation and the user must log in again.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionMaxAge is the absolute lifetime of one login. After this the
// cookie's JWT is rejected regardless of refresh-token health.
const SessionMaxAge = 30 * 24 * time.Hour

// ErrorRefreshFailed is the degraded-session marker. An envelope carrying it
// still identifies the user (cached claims) but its access token could not
// be renewed — provider-backed calls will fail until the user logs in again.
const ErrorRefreshFailed = "RefreshFailed"

// Identity is the set of provider claims captured at issuance time.
type Identity struct {
	ID          string `json:"id"`          // Spotify user ID (stable, text)
	DisplayName string `json:"displayName"` // may be empty
	AvatarURL   string `json:"avatarUrl"`   // may be empty
}

// Envelope bundles the credentials and identity of one login.
//
// It is pure data — no I/O. The Manager owns the lifecycle: created at first
// login, replaced on every successful refresh, discarded at logout or when
// the session cap passes.
type Envelope struct {
	AccessToken       string    // opaque bearer credential, short-lived
	RefreshToken      string    // long-lived, may rotate on refresh
	AccessTokenExpiry time.Time // absolute instant after which AccessToken is stale
	Identity          Identity

	// SessionID is a random per-login ID (xid). It keys the Synchronizer's
	// "already synced this login" tracking, not any server-side state.
	SessionID string

	// Error is "" or ErrorRefreshFailed. A failed refresh degrades the
	// envelope rather than destroying it — see ErrorRefreshFailed.
	Error string
}

// Valid reports whether the access token can still be used right now.
func (e Envelope) Valid(now time.Time) bool {
	return now.Before(e.AccessTokenExpiry)
}

// sessionClaims is the JWT payload: registered claims plus the envelope.
//
// The registered Subject duplicates Identity.ID on purpose — it makes the
// cookie self-describing to anything that only speaks standard claims.
type sessionClaims struct {
	jwt.RegisteredClaims
	AccessToken       string `json:"accessToken"`
	RefreshToken      string `json:"refreshToken"`
	AccessTokenExpiry int64  `json:"accessTokenExpiry"` // unix seconds
	DisplayName       string `json:"displayName,omitempty"`
	AvatarURL         string `json:"avatarUrl,omitempty"`
	SessionID         string `json:"sid"`
	SessionError      string `json:"error,omitempty"`
}

// SessionCodec signs envelopes into session cookies and validates them back.
//
// It holds the HMAC secret used to sign and verify. The same secret must be
// used for both — rotate it and every live session is invalidated, which is
// sometimes exactly what you want.
type SessionCodec struct {
	secret []byte
}

// NewSessionCodec creates a SessionCodec with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewSessionCodec(secret string) (*SessionCodec, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &SessionCodec{secret: []byte(secret)}, nil
}

// Encode signs the envelope into a compact JWT string.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, fast, fine for a
// single-server deployment. The "exp" claim is the 30-day session cap,
// independent of the access-token expiry carried in the payload.
func (c *SessionCodec) Encode(env Envelope) (string, error) {
	if env.Identity.ID == "" {
		return "", errors.New("auth: envelope has no identity")
	}
	if env.SessionID == "" {
		return "", errors.New("auth: envelope has no session ID")
	}

	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   env.Identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionMaxAge)),
			Issuer:    "desert-discs",
		},
		AccessToken:       env.AccessToken,
		RefreshToken:      env.RefreshToken,
		AccessTokenExpiry: env.AccessTokenExpiry.Unix(),
		DisplayName:       env.Identity.DisplayName,
		AvatarURL:         env.Identity.AvatarURL,
		SessionID:         env.SessionID,
		SessionError:      env.Error,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session: %w", err)
	}
	return signed, nil
}

// Decode parses and verifies a session JWT and rebuilds the envelope.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - The 30-day session cap hasn't passed (ExpiresAt in the future)
//   - Issuer matches "desert-discs"
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// Note a STALE ACCESS TOKEN is not a decode error: the envelope comes back
// fine and the Manager decides whether to refresh it.
func (c *SessionCodec) Decode(tokenStr string) (Envelope, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("desert-discs"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Envelope{}, fmt.Errorf("auth: session expired")
		}
		return Envelope{}, fmt.Errorf("auth: invalid session: %w", err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return Envelope{}, fmt.Errorf("auth: invalid session claims")
	}
	if claims.Subject == "" {
		return Envelope{}, fmt.Errorf("auth: session has no subject")
	}

	return Envelope{
		AccessToken:       claims.AccessToken,
		RefreshToken:      claims.RefreshToken,
		AccessTokenExpiry: time.Unix(claims.AccessTokenExpiry, 0),
		Identity: Identity{
			ID:          claims.Subject,
			DisplayName: claims.DisplayName,
			AvatarURL:   claims.AvatarURL,
		},
		SessionID: claims.SessionID,
		Error:     claims.SessionError,
	}, nil
}
