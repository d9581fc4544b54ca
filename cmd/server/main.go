// Package main is the entry point for the Unify server. It loads
// configuration, builds the backend, wires the plugins and starts the HTTP
// server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/abuobaidahamim/Unify/internal/app"
	"github.com/abuobaidahamim/Unify/internal/backend"
	"github.com/abuobaidahamim/Unify/internal/config"
	"github.com/abuobaidahamim/Unify/internal/database"
	"github.com/abuobaidahamim/Unify/internal/plugins/audit"
	"github.com/abuobaidahamim/Unify/internal/plugins/auth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	application := app.New(cfg, deps)
	application.RegisterRoutes()

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Echo.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// buildDeps creates the backend selected by cfg.Backend, wraps it in the
// circuit breaker and builds the gateway. cleanup closes connections.
func buildDeps(ctx context.Context, cfg *config.Config) (app.Deps, func(), error) {
	opts := backend.Options{
		SessionTTL:  cfg.Auth.SessionTTL,
		MaxAttempts: cfg.Auth.MaxAttempts,
		Lockout:     cfg.Auth.Lockout,
	}

	var (
		db       *sql.DB
		rdb      *redis.Client
		authSvc  backend.Auth
		store    backend.Store
		activity audit.Repository
		closeFns []func() error
	)

	switch cfg.Backend {
	case config.BackendMemory:
		slog.Warn("using in-memory backend; accounts and profiles are lost on restart")
		mem := backend.NewMemory(clockwork.NewRealClock())
		authSvc = backend.NewService(mem.Accounts(), mem.Sessions(), mem.Attempts(), opts)
		store = mem.Store()
		activity = audit.NewMemoryRepository()

	default:
		var err error
		db, err = database.NewMariaDB(ctx, cfg.Database)
		if err != nil {
			return app.Deps{}, nil, err
		}
		closeFns = append(closeFns, db.Close)
		slog.Info("connected to MariaDB")

		if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
			db.Close()
			return app.Deps{}, nil, err
		}

		rdb, err = database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			db.Close()
			return app.Deps{}, nil, err
		}
		closeFns = append(closeFns, rdb.Close)
		slog.Info("connected to Redis")

		authSvc = backend.NewService(
			backend.NewMariaDBAccounts(db),
			backend.NewRedisSessions(rdb),
			backend.NewRedisAttempts(rdb),
			opts,
		)
		store = backend.NewMariaDBStore(db)
		activity = audit.NewRepository(db)
	}

	breaker := backend.NewBreaker(cfg.Backend, backend.BreakerSettings{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	})

	cleanup := func() {
		for i := len(closeFns) - 1; i >= 0; i-- {
			if err := closeFns[i](); err != nil {
				slog.Warn("closing connection", slog.Any("error", err))
			}
		}
	}

	return app.Deps{
		DB:       db,
		Redis:    rdb,
		Gateway:  auth.NewGateway(breaker.Auth(authSvc), breaker.Store(store)),
		Breaker:  breaker,
		Activity: audit.NewService(activity, nil),
	}, cleanup, nil
}

// setupLogging configures the global slog logger. Development logs text
// at debug, everything else JSON at LOG_LEVEL.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
