// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where every
// dependency is constructed and connected in one place:
//
//	Config → sqlite.DB → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces (not the concrete DB), handlers get services (not
// repositories). Keeping it out of main.go makes the whole server
// constructible from tests.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/desert-discs/internal/auth"
	"github.com/sakif/desert-discs/internal/catalog"
	"github.com/sakif/desert-discs/internal/handler"
	"github.com/sakif/desert-discs/internal/middleware"
	sqliteRepo "github.com/sakif/desert-discs/internal/repository/sqlite"
	"github.com/sakif/desert-discs/internal/service"
)

// Config holds server configuration, loaded from the environment by main.
type Config struct {
	Port                int
	DBPath              string
	SessionSecret       string
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyCallbackURL  string
}

// Server owns the router, the database connection, and the background
// rate-limiter goroutine. All of it is torn down on graceful shutdown.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
}

// New creates a Server with the full dependency graph wired.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		limiter: middleware.NewRateLimiter(middleware.DefaultRateLimitConfig(), logger),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		s.limiter.Stop()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /auth/spotify/login     → redirect to the provider
//	GET    /auth/spotify/callback  → complete login, set session cookie
//	POST   /auth/logout            → clear session cookie
//	GET    /session                → session state (refreshes token in place)
//	GET    /albums                 → own collection (+public with ?includePublic=1)
//	POST   /albums                 → add an album (409 quota/duplicate)
//	DELETE /albums                 → remove an entry (403 not owner, 404 gone)
//	POST   /profile                → update display name/avatar
//	POST   /profile/visibility     → toggle public flag
//	GET    /profiles               → public profile directory
//	GET    /profiles/{id}          → one public profile with its albums
//	POST   /consent                → record consent decision
//
// MIDDLEWARE ORDER MATTERS — RequestID first so the logger can read it,
// Recoverer so a panicking handler answers 500 instead of killing the
// process, RequireSession before the rate limiter so the limiter has a
// user to key on.
func (s *Server) setupRoutes() error {
	codec, err := auth.NewSessionCodec(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating session codec: %w", err)
	}

	spotify := auth.NewSpotifyProvider(
		s.config.SpotifyClientID,
		s.config.SpotifyClientSecret,
		s.config.SpotifyCallbackURL,
	)
	refresher := auth.NewRefresher(s.config.SpotifyClientID, s.config.SpotifyClientSecret)
	manager := auth.NewManager(refresher, s.logger)

	profileSvc := service.NewProfileService(sqliteRepo.NewProfileStore(s.db), catalog.New(), s.logger)
	sessionSvc := service.NewSessionService(manager, codec, profileSvc, s.logger)
	collectionSvc := service.NewCollectionService(sqliteRepo.NewAlbumStore(s.db), s.logger)
	consentSvc := service.NewConsentService(sqliteRepo.NewConsentStore(s.db), s.logger)

	authHandler := handler.NewAuthHandler(spotify, sessionSvc, s.logger)
	albumHandler := handler.NewAlbumHandler(collectionSvc, s.logger)
	profileHandler := handler.NewProfileHandler(profileSvc, collectionSvc, s.logger)
	consentHandler := handler.NewConsentHandler(consentSvc, s.logger)

	// Global middleware — runs on every request, in order.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Login flow — no session required, obviously.
	s.router.Get("/auth/spotify/login", authHandler.HandleLogin)
	s.router.Get("/auth/spotify/callback", authHandler.HandleCallback)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	// Everything else needs a valid session cookie.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(codec))

		r.Get("/session", authHandler.HandleSession)
		r.Get("/albums", albumHandler.HandleList)
		r.Get("/profiles", profileHandler.HandleListPublic)
		r.Get("/profiles/{id}", profileHandler.HandleGetPublic)

		// Writes are rate limited per user.
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Limit)

			r.Post("/albums", albumHandler.HandleAdd)
			r.Delete("/albums", albumHandler.HandleRemove)
			r.Post("/profile", profileHandler.HandleUpdate)
			r.Post("/profile/visibility", profileHandler.HandleVisibility)
			r.Post("/consent", consentHandler.HandleRecord)
		})
	})

	return nil
}

// Start runs the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests to finish (30s cap)
//  3. Stop the rate-limiter goroutine and close the database
//     (flushes the WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.limiter.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
