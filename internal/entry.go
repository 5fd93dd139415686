// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/inkwell/internal/api"
	"github.com/starford/inkwell/internal/docservice"
	"github.com/starford/inkwell/internal/index"
	"github.com/starford/inkwell/internal/loop"
	"github.com/starford/inkwell/internal/mcpserver"
	"github.com/starford/inkwell/internal/sse"
	"github.com/starford/inkwell/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// stdout carries the protocol in MCP mode.
	var out io.Writer = os.Stdout
	if app.mode == ModeMCP {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	stats, err := index.Sync(db, store, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial sync complete",
			slog.Int("indexed", stats.Indexed),
			slog.Int("removed", stats.Removed),
			slog.Int("failed", stats.Failed))
	}

	editLoop := loop.New()
	defer editLoop.Close()

	broker := sse.NewBroker(cfg.Editor.IndexThrottle)
	defer broker.Close()

	svc := docservice.NewService(store, db, editLoop,
		docservice.WithPublisher(broker),
		docservice.WithLogger(logger),
		docservice.WithIdleTimeout(cfg.Editor.IdleTimeout),
		docservice.WithMaxDocumentBytes(cfg.Editor.MaxDocumentBytes),
	)

	g, gCtx := errgroup.WithContext(ctx)

	// External edits reindex the document, drop a stale session and notify
	// subscribers.
	g.Go(func() error {
		return index.Watch(gCtx, db, store, store.Root(), logger, func(kind index.EventKind, path string) {
			if err := svc.Invalidate(gCtx, path); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("invalidate session failed",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
			broker.PublishDocumentEvent(string(kind), path)
		})
	})

	g.Go(func() error {
		return svc.RunSweeper(gCtx, cfg.Editor.SweepInterval)
	})

	if app.mode == ModeMCP {
		srv := mcpserver.New(svc, app.version)
		g.Go(func() error {
			logger.Info("Starting MCP stdio server")
			if err := srv.ServeStdio(); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			// stdin closed: stop the watcher and sweeper.
			return errStopped
		})
	} else {
		httpServer := &http.Server{
			Addr:              cfg.App.HTTP.Address(),
			Handler:           newRouter(cfg, svc, broker),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serveHTTP(gCtx, g, httpServer, logger)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errStopped) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errStopped cancels the group once the serving transport has stopped.
var errStopped = errors.New("stopped")

func newRouter(cfg *Config, svc *docservice.Service, broker *sse.Broker) chi.Router {
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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		n, err := svc.Sessions(ctx)
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","sessions":%d,"subscribers":%d}`, n, broker.ClientCount())
	})

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	return r
}

func serveHTTP(ctx context.Context, g *errgroup.Group, httpServer *http.Server, logger *slog.Logger) {
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-ctx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errStopped
	})
}
