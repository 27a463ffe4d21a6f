// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "load config, start the server")
//
// DEPENDENCY INJECTION FLOW:
// New() assembles the whole chain in one place (the composition root):
//
//	mongo.DB → repositories → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces (not the concrete mongo types), handlers get services.
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

	"github.com/sheherjaano/backend/internal/auth"
	"github.com/sheherjaano/backend/internal/geocode"
	"github.com/sheherjaano/backend/internal/handler"
	"github.com/sheherjaano/backend/internal/middleware"
	mongoRepo "github.com/sheherjaano/backend/internal/repository/mongo"
	"github.com/sheherjaano/backend/internal/service"
)

// Config holds server configuration. Using a struct (instead of individual
// parameters) makes it easy to add options without changing signatures and
// to load everything from the environment in one place (main.go).
type Config struct {
	Port int

	MongoURI string
	Database string

	AccessTokenSecret  string
	RefreshTokenSecret string

	// GeocodeBaseURL points at a photon instance; empty means the public one.
	GeocodeBaseURL string

	// GitHub OAuth is optional — leave the credentials empty to run with
	// email/password auth only.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the MongoDB client (db). When the server shuts down we
// must close it to release connections cleanly; Start() handles that during
// graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *mongoRepo.DB
}

// New creates a new Server with the given config: connects to MongoDB,
// builds the token/password/geocode utilities, wires services and handlers,
// and registers every route.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := mongoRepo.New(ctx, cfg.MongoURI, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /api/auth/register           → create account (201)
//	POST   /api/auth/login              → email/password login
//	GET    /api/auth/refresh            → rotate refresh cookie
//	POST   /api/auth/logout             → revoke refresh token
//	GET    /api/auth/me                 → caller's profile        [auth]
//	GET    /api/auth/github/login       → GitHub OAuth redirect
//	GET    /api/auth/github/callback    → GitHub OAuth completion
//
//	POST   /api/{kind}                  → submit a place          [auth]
//	GET    /api/{kind}                  → list places
//	GET    /api/{kind}/{id}             → place + contributions
//	  ({kind} × 5: famous-spots, hidden-spots, famous-foods,
//	   handicrafts, histories)
//
//	GET    /api/contributions           → caller's dashboard      [auth]
//	DELETE /api/contributions/{id}      → delete an owned item    [auth]
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Shared utilities ===
	tokens, err := auth.NewTokenService(s.config.AccessTokenSecret, s.config.RefreshTokenSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	geocodeURL := s.config.GeocodeBaseURL
	if geocodeURL == "" {
		geocodeURL = geocode.DefaultBaseURL
	}
	geocoder := geocode.NewPhotonResolver(geocodeURL, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	} else {
		s.logger.Info("GitHub OAuth not configured — email/password auth only")
	}

	// === Services ===
	authService := service.NewAuthService(s.db.Users, tokens, passwords, s.logger)
	placeService := service.NewPlaceService(s.db.Places, s.db.Contributions, s.db.Users, geocoder, tokens, s.logger)
	contributionService := service.NewContributionService(s.db.Places, s.db.Contributions, s.db.Users, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	placeHandler := handler.NewPlaceHandler(placeService, s.logger)
	contributionHandler := handler.NewContributionHandler(contributionService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Get("/refresh", authHandler.HandleRefresh)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)

			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		})

		// One handler set, five mounts — the kind is baked in per route.
		for _, kr := range handler.KindRoutes() {
			kr := kr
			r.Route("/"+kr.Path, func(r chi.Router) {
				r.Get("/", placeHandler.HandleList(kr.Kind))
				r.Get("/{id}", placeHandler.HandleGet(kr.Kind))
				r.With(requireAuth).Post("/", placeHandler.HandleSubmit(kr.Kind))
			})
		}

		r.Route("/contributions", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", contributionHandler.HandleDashboard)
			r.Delete("/{id}", contributionHandler.HandleDelete)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the MongoDB client (returns pooled connections)
//
// The `defer s.db.Close()` ensures step 3 happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()

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
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.Database),
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

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
