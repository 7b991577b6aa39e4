package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sakif/desert-discs/internal/auth"
)

// RateLimitConfig configures the per-user write limiter.
//
// The mutating routes (album add/remove, profile writes) are the only ones
// limited — reads are cheap, and login is already throttled by the provider
// round-trip. 30 writes a minute is generous for a five-album collection.
type RateLimitConfig struct {
	Rate            rate.Limit    // sustained writes per second per user
	Burst           int           // burst size per user
	CleanupInterval time.Duration // how often idle limiters are dropped
	IdleTTL         time.Duration // how long before an idle limiter is dropped
}

// DefaultRateLimitConfig returns the default limits: 30 writes/min with a
// burst of 10.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Rate:            rate.Limit(30.0 / 60.0),
		Burst:           10,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         15 * time.Minute,
	}
}

// userLimiter pairs a token bucket with its last-touch time so stale
// entries can be reaped.
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter hands out one token bucket per authenticated user.
//
// WHY PER USER AND NOT PER IP?
// Every limited route sits behind RequireSession, so there's always a user
// identity — and it's a much better key than an IP shared by a whole NAT.
type RateLimiter struct {
	config RateLimitConfig
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*userLimiter

	stopCh chan struct{}
}

// NewRateLimiter creates a RateLimiter and starts its background cleanup.
func NewRateLimiter(config RateLimitConfig, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		logger:   logger,
		limiters: make(map[string]*userLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop terminates the cleanup goroutine. Call on shutdown.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// limiterFor returns (creating if needed) the bucket for a user.
func (rl *RateLimiter) limiterFor(userID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.limiters[userID] = ul
	}
	ul.lastAccess = time.Now()
	return ul.limiter
}

// cleanupLoop periodically drops limiters nobody has touched in IdleTTL.
// Without this the map grows one entry per user forever.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.config.IdleTTL)
			rl.mu.Lock()
			for id, ul := range rl.limiters {
				if ul.lastAccess.Before(cutoff) {
					delete(rl.limiters, id)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Limit is the middleware. It must run AFTER RequireSession — anonymous
// requests pass through untouched (they'll be 401ed downstream anyway).
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env, ok := auth.SessionFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.limiterFor(env.Identity.ID).Allow() {
			rl.logger.Warn("rate limit exceeded",
				slog.String("userID", env.Identity.ID),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "60")
			http.Error(w, `{"error":"rate_limited","message":"too many requests, slow down"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
