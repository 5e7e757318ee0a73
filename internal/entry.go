// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/accessaurus/semantify/internal/api"
	"github.com/accessaurus/semantify/internal/engine"
	"github.com/accessaurus/semantify/internal/pipeline"
	"github.com/accessaurus/semantify/internal/spool"
	"github.com/accessaurus/semantify/internal/store"
)

// BuildEngine constructs the rewrite engine selected by configuration.
// The choice is made once, here; nothing downstream branches on the mode.
func BuildEngine(cfg *Config) engine.Engine {
	if cfg.Engine.Mode == EngineGenerative {
		return engine.NewGenerative(engine.GenerativeConfig{
			BaseURL: cfg.Engine.Generative.BaseURL,
			APIKey:  cfg.Engine.Generative.APIKey,
			Model:   cfg.Engine.Generative.Model,
			Timeout: cfg.Engine.Generative.Timeout(),
		})
	}
	return engine.NewHeuristic()
}

// BuildService opens the store and assembles the pipeline service. The
// returned store handle is owned by the caller.
func BuildService(cfg *Config, logger *slog.Logger) (*pipeline.Service, *store.DB, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	verifier := pipeline.NewTXTVerifier(net.DefaultResolver)
	svc := pipeline.NewService(db, BuildEngine(cfg), verifier, logger)
	return svc, db, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("engine", cfg.Engine.Mode),
		slog.Bool("spool_enabled", cfg.Spool.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, db, err := BuildService(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(svc))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start the snapshot spool watcher.
	if cfg.Spool.Enabled {
		g.Go(func() error {
			return spool.Watch(gCtx, svc, cfg.Spool.Path, logger)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
