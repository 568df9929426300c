// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and routes.
// It decides which URL patterns map to which handler functions, what
// middleware runs on them and how the server starts and stops.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go loads config.Config → server.New(cfg, logger)
//	server.New creates: sqlite.DB → UserService → UserHandler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/user-service/internal/auth"
	"github.com/sakif/user-service/internal/config"
	"github.com/sakif/user-service/internal/handler"
	"github.com/sakif/user-service/internal/middleware"
	sqliteRepo "github.com/sakif/user-service/internal/repository/sqlite"
	"github.com/sakif/user-service/internal/service"
)

// shutdownTimeout bounds how long in-flight requests get after a signal.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it on the way out,
// and Close is safe to call as well (sqlite.DB.Close runs once).
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// Wiring order:
//  1. Open the database and apply migrations (sqlite.New)
//  2. Build the auth services; tokens only when a JWT secret is configured
//  3. Build UserService with the repository interface
//  4. Build handlers and mount routes
//
// IMPORT ALIAS:
// repository/sqlite is imported as `sqliteRepo` so it cannot be confused
// with the sqlite driver package.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if dir := filepath.Dir(cfg.DB.Path); cfg.DB.Path != ":memory:" && dir != "." {
		// os.MkdirAll is `mkdir -p`; 0755 = owner rwx, others r-x.
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(context.Background(), cfg.DB.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Safe to call more than once.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz              → store ping
// POST   /api/users            → register a user
// GET    /api/users/{id}       → fetch a live user
// POST   /api/users/login      → issue an access token        (auth enabled)
// DELETE /api/users/{id}       → soft-delete own account       (auth enabled, bearer token)
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (logged by Logger)
// 2. RealIP: extracts the real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with timing info
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	passwords := auth.NewPasswordService(s.config.Auth.BcryptCost)

	var tokens *auth.TokenService
	var requireAuth func(http.Handler) http.Handler
	if s.config.AuthEnabled() {
		var err error
		tokens, err = auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
		requireAuth = auth.RequireAuth(tokens, handler.WriteError)
	} else {
		s.logger.Warn("auth.jwt_secret not set, login and account deletion are disabled")
	}

	// DEPENDENCY CHAIN:
	//   s.db (sqlite.DB) → implements repository.UserRepository
	//   UserService receives the repository interface
	//   UserHandler receives the service
	userService := service.NewUserService(s.db, passwords, tokens, s.config.Users.TrialPeriod, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)

	s.router.Get("/healthz", handler.NewHealthHandler(userService).HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		handler.RegisterUserRoutes(r, userHandler, requireAuth)
	})

	return nil
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM or a fatal
// listener error.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	// Runs after everything else in this function, even on error paths.
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.DB.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
