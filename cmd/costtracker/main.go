package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"costtracker/internal/config"
	"costtracker/internal/docstore"
	"costtracker/internal/events"
	apphttp "costtracker/internal/http"
	"costtracker/internal/identity"
	applog "costtracker/internal/log"
	"costtracker/internal/session"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     parseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Document store backend.
	backend, err := docstore.New(ctx, docstore.Config{
		Type:         docstore.BackendType(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
		SheetName:    cfg.GoogleSheetName,
		PollInterval: cfg.SheetsPollInterval,
	})
	if err != nil {
		logger.Error("Failed to initialize document store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if backend.Cleanup != nil {
		defer func() {
			if err := backend.Cleanup(); err != nil {
				logger.Error("Document store cleanup failed", "error", err)
			}
		}()
	}

	// Cross-instance change bridge, enabled only when a broker is configured.
	var bridge *events.Bridge
	if cfg.AMQPURL != "" {
		bridge, err = events.NewBridge(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer bridge.Close()
		logger.Info("Connected change bridge", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	store := docstore.Store(backend.Store)
	if bridge != nil {
		store = events.NewPublishingStore(store, bridge)
	}

	// Identity shares the SQLite database when the sqlite backend is active;
	// other backends keep accounts in process memory.
	var users identity.UserStorage = identity.NewMemoryUsers()
	if backend.Repo != nil {
		users = backend.Repo
	}
	provider := identity.NewLocalProvider(users, identity.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL))

	manager := session.NewManager(provider, store)

	srv := apphttp.NewServer(":"+cfg.Port, provider, manager, apphttp.Options{
		SessionTTL:         cfg.JWTTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.ReadTimeout = 10 * time.Second
	// No write timeout: /ui/changes streams for the lifetime of the page.
	srv.IdleTimeout = 120 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"operation", applog.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if bridge != nil {
		if refresher, ok := backend.Store.(docstore.Refresher); ok {
			g.Go(func() error {
				err := bridge.ConsumeChanges(gctx, refresher)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		} else {
			logger.Warn("Backend does not support refresh, remote changes will not propagate",
				"backend", cfg.DataBackend)
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", "operation", applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
