package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/jordanpartridge/conduit-dj/internal/adapters/eventlog"
	"github.com/jordanpartridge/conduit-dj/internal/adapters/ollama"
	"github.com/jordanpartridge/conduit-dj/internal/adapters/rest"
	"github.com/jordanpartridge/conduit-dj/internal/adapters/spotify"
	"github.com/jordanpartridge/conduit-dj/internal/adapters/sqlite"
	"github.com/jordanpartridge/conduit-dj/internal/config"
	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
	"github.com/jordanpartridge/conduit-dj/internal/core/services"
	"github.com/jordanpartridge/conduit-dj/internal/logging"
	"github.com/jordanpartridge/conduit-dj/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. Configuration (file, then environment overrides)
	cfg, resolvedPath, exists, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser := logging.New(cfg.Logging)
	if logCloser != nil {
		defer logCloser.Close()
	}
	slog.SetDefault(logger)

	if exists {
		logger.Info("configuration loaded", "path", resolvedPath)
	} else {
		logger.Info("no configuration file found, using defaults", "path", resolvedPath)
	}
	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return errors.New("spotify credentials are required (set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET)")
	}

	// 2. Initialize "Driven" Adapters (The Tools)
	// -- Database Adapter
	var repo ports.SessionRepository
	switch cfg.Storage.Driver {
	case "sqlite":
		dbAdapter, err := sqlite.NewAdapter(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer dbAdapter.Close()
		repo = dbAdapter
	default:
		return fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}

	// -- Spotify Adapter
	catalog := spotify.NewClient(spotify.Options{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		BaseURL:      cfg.Spotify.BaseURL,
		TokenURL:     cfg.Spotify.TokenURL,
		Market:       cfg.Spotify.Market,
		MaxRetries:   cfg.Spotify.MaxRetries,
		RetryBackoff: time.Duration(cfg.Spotify.RetryBackoffMs) * time.Millisecond,
		RateLimit:    cfg.Spotify.RateLimit,
		Timeout:      time.Duration(cfg.Spotify.TimeoutSeconds) * time.Second,
		Logger:       logger,
	})

	// -- Mood classifier (optional)
	var classifier ports.MoodClassifier
	if cfg.Ollama.Enabled {
		modes := make([]string, 0, len(cfg.Modes))
		for name := range cfg.Modes {
			modes = append(modes, name)
		}
		slices.Sort(modes)
		classifier = ollama.NewClient(ollama.Options{
			BaseURL: cfg.Ollama.Host,
			Model:   cfg.Ollama.Model,
			Timeout: time.Duration(cfg.Ollama.TimeoutSeconds) * time.Second,
			Modes:   modes,
			Logger:  logger,
		})
	}

	// -- Event sink
	events := eventlog.NewSink(logger, slog.LevelInfo)

	// 3. Initialize Core Logic
	matcher := services.NewBeatMatcher(cfg.BeatMatch())
	builder := services.NewQueueBuilder(matcher, cfg.QueueConfig())
	sessions := services.NewSessionService(services.SessionDeps{
		Catalog:    catalog,
		Repo:       repo,
		Events:     events,
		Classifier: classifier,
		Matcher:    matcher,
		Builder:    builder,
		Config:     cfg.Session(),
		Logger:     logger,
	})

	// 4. Background feature backfill
	pool := worker.NewPool(catalog, repo, cfg.Worker.QueueSize, logger)
	pool.Start(cfg.Worker.Workers)
	defer pool.Stop()

	// 5. Initialize "Driving" Adapter (The Interface)
	handler := rest.NewHandler(rest.Deps{
		Sessions: sessions,
		Matcher:  matcher,
		Builder:  builder,
		Catalog:  catalog,
		Backfill: pool,
		Logger:   logger,
	})

	addr := cfg.Server.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeoutSeconds) * time.Second,
	}

	// 6. Start the Server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("conduit-dj API listening", "addr", addr, "storage", cfg.Storage.Driver, "classifier", classifier != nil)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		if _, err := sessions.Stop(shutdownCtx); err != nil && !errors.Is(err, services.ErrNoActiveSession) {
			logger.Warn("failed to stop active session", "error", err)
		}
	}
	return nil
}
