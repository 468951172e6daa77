// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects the store, services,
// handlers and middleware, and decides:
//   - Which URL patterns map to which handler functions
//   - What middleware runs on which routes
//   - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Store (mongo or sqlite)
//	Store.Users()/Posts() → UserService / PostService
//	services → UserHandler / PostHandler → chi routes
//
// This is the "composition root": every dependency is built here and
// nowhere else.
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

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/config"
	"github.com/sakif/blog-platform/internal/handler"
	"github.com/sakif/blog-platform/internal/middleware"
	"github.com/sakif/blog-platform/internal/repository"
	"github.com/sakif/blog-platform/internal/repository/mongodb"
	sqliteRepo "github.com/sakif/blog-platform/internal/repository/sqlite"
	"github.com/sakif/blog-platform/internal/service"
)

// shutdownTimeout is how long in-flight requests get after a signal.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. On shutdown it stops accepting requests, lets
// in-flight ones finish, and only then closes the store.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
}

// New opens the configured store and builds the router.
// The mongo store connects lazily, so New does not fail when the server is down.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		store.Close(context.Background())
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore picks the backend. Both satisfy repository.Store.
func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return mongodb.New(cfg.MongoURI, cfg.MongoDatabase), nil

	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			// os.MkdirAll is `mkdir -p`: the data directory may not exist yet.
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST   /api/users                   → register
// GET    /api/users                   → list users
// POST   /api/users/login             → login
// POST   /api/users/logout            → clear session cookie
// GET    /api/users/me                → session user (JWT_SECRET only)
// POST   /api/posts                   → create post
// GET    /api/posts?page=&limit=      → paginated list
// GET    /api/posts/search/{query}    → search
// GET    /api/posts/tag/{tag}         → by tag
// GET    /api/posts/{id}              → get (counts a view)
// PUT    /api/posts/{id}              → update
// DELETE /api/posts/{id}              → delete
// POST   /api/posts/{id}/comments     → add comment
// GET    /healthz                     → store ping
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID, so the logger can print it
// 2. RealIP, from proxy headers
// 3. Recoverer, turning panics into 500s
// 4. Logger, one line per request
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	passwords, err := auth.NewPasswordService(s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}

	// Sessions are optional. Without a secret, login still works but sets no cookie.
	var tokens *auth.TokenService
	if s.config.SessionsEnabled() {
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	} else {
		s.logger.Warn("JWT_SECRET not set, login sessions are disabled")
	}

	// DEPENDENCY CHAIN:
	// The handler never touches the store, and the service never touches HTTP.
	userService := service.NewUserService(s.store.Users(), passwords, s.logger)
	postService := service.NewPostService(s.store.Posts(), s.store.Users(), service.PostConfig{
		SearchMode: s.config.SearchMode,
		AuthorMode: s.config.AuthorMode,
	}, s.logger)

	userHandler := handler.NewUserHandler(userService, tokens, s.config.SecureCookies, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/users", userHandler.Routes)
		r.Route("/posts", postHandler.Routes)
	})
	s.router.Get("/healthz", healthHandler.HandleHealth)

	return nil
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests (up to 30s)
//  3. Close the store (flushes sqlite WAL / disconnects mongo)
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run is Start with the shutdown trigger supplied by the caller.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.store.Close(closeCtx); err != nil {
			s.logger.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.config.StoreDriver),
			slog.String("search_mode", string(s.config.SearchMode)),
			slog.String("author_mode", string(s.config.AuthorMode)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

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
