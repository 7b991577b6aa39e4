package auth

import (
	"context"
	"net/http"
)

// SessionCookieName is the HttpOnly cookie carrying the signed envelope.
const SessionCookieName = "session"

// contextKey is an unexported type used for context keys in this package.
//
// context.WithValue uses any as the key type. With a plain string key, ANY
// package that knows the string could read or shadow the value. A
// package-private type means only this package can mint the key, so only
// this package controls what lives under it.
type contextKey string

const sessionKey contextKey = "session"

// RequireSession is a middleware that enforces authentication on protected
// routes.
//
// It reads the JWT from the "session" HttpOnly cookie, validates it, and
// stores the decoded Envelope in the request context. If the cookie is
// missing, tampered, or past the 30-day session cap, it returns 401 and
// stops the chain — the presentation layer redirects to the login prompt.
//
// Note this middleware does NOT care whether the access token inside the
// envelope is stale, or whether the envelope is degraded by a failed
// refresh. Identity is still known in both cases; the handlers that need a
// live provider token go through the Manager.
func RequireSession(codec *SessionCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			env, err := extractEnvelope(r, codec)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid session required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, env)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession extracts the envelope if a valid session cookie is
// present, but never blocks the request. Used on routes anonymous visitors
// may hit where logged-in users get extra behaviour.
func OptionalSession(codec *SessionCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if env, err := extractEnvelope(r, codec); err == nil {
				ctx := context.WithValue(r.Context(), sessionKey, env)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext retrieves the authenticated envelope from the request
// context.
//
// Returns (Envelope{}, false) if the request is anonymous.
//
// Usage in handlers:
//
//	env, ok := auth.SessionFromContext(r.Context())
//	if !ok {
//	    // anonymous
//	}
func SessionFromContext(ctx context.Context) (Envelope, bool) {
	env, ok := ctx.Value(sessionKey).(Envelope)
	return env, ok && env.Identity.ID != ""
}

// extractEnvelope reads the session cookie and validates it.
// Shared by RequireSession and OptionalSession.
func extractEnvelope(r *http.Request, codec *SessionCodec) (Envelope, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		// http.ErrNoCookie — not an error, just anonymous
		return Envelope{}, err
	}
	return codec.Decode(cookie.Value)
}
