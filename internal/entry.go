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
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/biolink/internal/api"
	"github.com/starford/biolink/internal/confwatch"
	"github.com/starford/biolink/internal/docstore"
	"github.com/starford/biolink/internal/linkservice"
	"github.com/starford/biolink/internal/mcpserver"
	"github.com/starford/biolink/internal/profileservice"
	"github.com/starford/biolink/internal/seed"
	"github.com/starford/biolink/internal/sse"
	pkgconfig "github.com/starford/biolink/pkg/config"
)

var errConfigRequired = errors.New("config is required")

func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (docstore.Store, error) {
	store, err := docstore.Open(ctx, cfg.Store.Options())
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info("Store connected", slog.String("driver", cfg.Store.Driver))
	return store, nil
}

func closeStore(store docstore.Store, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		logger.Error("store close failed", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP server with the given options and blocks until ctx is
// cancelled or a termination signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := newLogger(os.Stdout, level)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.Bool("seed_enabled", cfg.Seed.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore(store, logger)

	if cfg.Seed.Enabled {
		if _, err := seed.New(store, logger).EnsureDefaults(ctx); err != nil {
			return fmt.Errorf("seed defaults: %w", err)
		}
	}

	broker := sse.NewBroker(cfg.Events.PageThrottle)
	defer broker.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(cfg, store, broker),
		ReadHeaderTimeout: cfg.App.HTTP.ReadHeaderTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.App.WatchConfig && app.configPath != "" {
		g.Go(func() error {
			err := confwatch.Watch(gCtx, app.configPath, confwatch.DefaultDebounce, logger, func() error {
				return reloadLogLevel(app.configPath, level)
			})
			if err != nil {
				logger.Warn("config watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		// SSE streams never finish on their own.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so background workers stop with the server.
var errShutdown = errors.New("shutdown")

// newHTTPHandler builds the root router: middleware, CORS, health probes
// and the API mounted at /api.
func newHTTPHandler(cfg *Config, store docstore.Store, broker *sse.Broker) http.Handler {
	profiles := profileservice.NewService(store)
	links := linkservice.NewService(store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowCredentials: cfg.CORS.AllowCredentials,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	}).Handler)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(profiles, links, broker, broker))
	return r
}

// reloadLogLevel re-reads the config file and applies its log level.
// Other settings need a restart.
func reloadLogLevel(path string, level *slog.LevelVar) error {
	fresh := NewDefaultConfig()
	if err := pkgconfig.Load(path, fresh); err != nil {
		return err
	}
	if fresh.App.LogLevel != level.Level() {
		slog.Info("log level changed",
			slog.String("from", level.Level().String()),
			slog.String("to", fresh.App.LogLevel.String()))
		level.Set(fresh.App.LogLevel)
	}
	return nil
}

// Seed opens the store, writes the default data if needed and returns.
func Seed(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := newLogger(os.Stdout, level)
	slog.SetDefault(logger)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore(store, logger)

	seeded, err := seed.New(store, logger).EnsureDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	if !seeded {
		logger.Info("Store already seeded, nothing to do")
	}
	return nil
}

// ServeMCP serves the MCP tools on stdio. Logs go to stderr because stdout
// carries the protocol.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := newLogger(os.Stderr, level)
	slog.SetDefault(logger)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore(store, logger)

	if cfg.Seed.Enabled {
		if _, err := seed.New(store, logger).EnsureDefaults(ctx); err != nil {
			return fmt.Errorf("seed defaults: %w", err)
		}
	}

	srv := mcpserver.New(profileservice.NewService(store), linkservice.NewService(store))
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
