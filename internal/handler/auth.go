package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/desert-discs/internal/auth"
	"github.com/sakif/desert-discs/internal/service"
)

// AuthHandler manages the Spotify OAuth login flow and the session endpoint.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin    → redirect the browser to Spotify's authorization page
//   - HandleCallback → receive the code, mint the envelope, set the cookie
//   - HandleLogout   → clear the session cookie
//   - HandleSession  → report the current session, refreshing the access
//     token in place when it has gone stale
type AuthHandler struct {
	spotify  *auth.SpotifyProvider
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(
	spotify *auth.SpotifyProvider,
	sessions *service.SessionService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		spotify:  spotify,
		sessions: sessions,
		logger:   logger,
	}
}

// setSessionCookie writes the sealed envelope as the HttpOnly session
// cookie. HttpOnly = JavaScript cannot read it (XSS protection);
// SameSite=Lax = sent on top-level navigations but not cross-site POSTs.
// Secure should be true behind HTTPS in production.
func setSessionCookie(w http.ResponseWriter, sealed string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    sealed,
		Path:     "/",
		MaxAge:   int(auth.SessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // enable in production (requires HTTPS)
	})
}

// HandleLogin redirects the user to Spotify's authorization page.
//
// HTTP: GET /auth/spotify/login
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When Spotify calls back, HandleCallback verifies the state matches. This
// proves the callback was initiated by this server, not a CSRF attacker.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes — long enough to approve, short enough to limit risk
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.spotify.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/spotify/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for tokens + identity
//  3. Mint the first envelope, sync the profile (once per login)
//  4. Set the sealed envelope as the HttpOnly session cookie
//  5. Redirect to the app home page
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch",
			slog.String("expected", stateCookie.Value),
			slog.String("got", r.URL.Query().Get("state")),
		)
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Clear the state cookie — it's single-use
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// Spotify sends error= when the user denied authorization
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	grant, err := h.spotify.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: Spotify exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	_, sealed, err := h.sessions.Login(r.Context(), grant)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.String("userID", grant.Identity.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, sealed)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session cookie, discarding the envelope.
//
// HTTP: POST /auth/logout
//
// POST, not GET — logout is state-changing; GET would be CSRF-able and
// browsers prefetch GETs. The session is stateless, so "logout" is just
// deleting the client-side cookie; nothing server-side to tear down.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// sessionResponse is the GET /session payload.
type sessionResponse struct {
	Identity    auth.Identity `json:"identity"`
	AccessToken string        `json:"accessToken"`
	Expiry      time.Time     `json:"expiry"`
	Error       string        `json:"error,omitempty"`
}

// HandleSession reports the current session state.
//
// HTTP: GET /session
// Auth: Required (RequireSession)
//
// This is the endpoint the front end polls to keep its provider token
// current. If the access token has gone stale, the refresh happens HERE, in
// place, and the rewritten cookie rides back on this response.
//
// ALWAYS 200: a failed refresh is not an error at this surface. The
// response carries error="RefreshFailed" and the stale token — identity is
// still known, provider calls will fail, and the client decides when to
// send the user back through login. The degraded marker is also written
// into the cookie so the next read may retry the same refresh token.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	env, ok := auth.SessionFromContext(r.Context())
	if !ok {
		// Should never happen behind RequireSession, but be safe.
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	env, sealed, err := h.sessions.Current(r.Context(), env)
	if err != nil {
		h.logger.Error("session read failed",
			slog.String("userID", env.Identity.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	if sealed != "" {
		setSessionCookie(w, sealed)
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Identity:    env.Identity,
		AccessToken: env.AccessToken,
		Expiry:      env.AccessTokenExpiry,
		Error:       env.Error,
	})
}
