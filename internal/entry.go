// Package internal wires configuration, storage, the index and the tag
// components into a runnable application.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notetags/internal/api"
	"github.com/starford/notetags/internal/index"
	"github.com/starford/notetags/internal/linkopen"
	"github.com/starford/notetags/internal/mcpserver"
	"github.com/starford/notetags/internal/noteservice"
	"github.com/starford/notetags/internal/prompt"
	"github.com/starford/notetags/internal/sse"
	"github.com/starford/notetags/internal/storage"
	"github.com/starford/notetags/internal/tagger"
	"github.com/starford/notetags/internal/tagrepo"
)

// App holds the wired components.
type App struct {
	Config *Config
	Logger *slog.Logger
	Store  *storage.FS
	DB     *index.DB
	Notes  *noteservice.Service
	Tags   *tagrepo.Repository
	Tagger *tagger.Tagger
	Broker *sse.Broker
}

// Open builds the application and brings the index up to date with the
// vault.
func Open(ctx context.Context, opts ...Option) (*App, error) {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	logger := a.logger
	if logger == nil {
		out := a.logOut
		if out == nil {
			out = os.Stderr
		}
		logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}

	cls, err := cfg.Tags.Classifier()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	logger.Debug("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("tag_pattern", cfg.Tags.Pattern),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if !a.noSync {
		stats, err := index.Sync(db, store, logger)
		if err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		} else {
			logger.Debug("index synced",
				slog.Int("indexed", stats.Indexed),
				slog.Int("removed", stats.Removed),
				slog.Int("failed", stats.Failed))
		}
	}

	notifier := a.notifier
	if notifier == nil {
		notifier = &prompt.Fixed{Logger: logger}
	}

	broker := sse.NewBroker(2 * time.Second)
	notes := noteservice.NewService(store, db)
	repo := tagrepo.New(db, cls)
	tg := tagger.New(cfg.Tags.TaggerConfig(), repo, notes, notifier,
		tagger.WithLogger(logger),
		tagger.WithOnCreate(broker.PublishTagCreated),
	)

	return &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		DB:     db,
		Notes:  notes,
		Tags:   repo,
		Tagger: tg,
		Broker: broker,
	}, nil
}

// Close releases the index and stops the event broker.
func (a *App) Close() error {
	a.Broker.Close()
	return a.DB.Close()
}

// LinkChain returns the link-open chain: the tag redirect first, then
// fallback for everything it declines.
func (a *App) LinkChain(view linkopen.Viewer, fallback linkopen.Handler) *linkopen.Chain {
	c := linkopen.NewTagChain(a.Tags, view)
	if fallback != nil {
		c.Register(linkopen.PriorityDefault, nil, fallback)
	}
	return c
}

// MCPServer builds the MCP server over the app's components.
func (a *App) MCPServer() *mcpserver.Server {
	tc := a.Config.Tags.TaggerConfig()
	return mcpserver.New(a.Tagger, a.Notes,
		mcpserver.WithLogger(a.Logger),
		mcpserver.WithConventions(mcpserver.Conventions(tc.Marker, tc.Directory)),
	)
}

// Handler returns the HTTP handler tree for the API.
func (a *App) Handler() http.Handler {
	cfg := a.Config
	h := api.NewHandler(a.Tagger, a.Notes, a.Logger)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, a.Broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := a.DB.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)
	return r
}

// Serve runs the HTTP API and the vault watcher until ctx is cancelled or
// a shutdown signal arrives.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := index.Watch(gCtx, a.DB, a.Store, a.Store.Root(), logger, a.Broker.PublishNoteEvent)
		if err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
