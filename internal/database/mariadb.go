// Package database opens the MariaDB and Redis connections. Both are
// created once at startup and shared via dependency injection; this
// package owns their lifecycle (open, configure pool, ping, close).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Registers the "mysql" driver.
	_ "github.com/go-sql-driver/mysql"
	"github.com/sethvargo/go-retry"

	"github.com/abuobaidahamim/Unify/internal/config"
)

// pingTimeout bounds a single connectivity check.
const pingTimeout = 5 * time.Second

// NewMariaDB opens a MariaDB pool and waits for the server to answer.
// MariaDB is often still booting when the app container starts, so pings
// are retried with capped exponential backoff for up to cfg.ConnectTimeout.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := waitForPing(ctx, "mariadb", cfg.ConnectTimeout, db.PingContext); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// waitForPing calls ping until it succeeds or maxWait elapses.
func waitForPing(ctx context.Context, name string, maxWait time.Duration, ping func(context.Context) error) error {
	backoff := retry.NewExponential(time.Second)
	backoff = retry.WithCappedDuration(15*time.Second, backoff)
	backoff = retry.WithMaxDuration(maxWait, backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()

		if err := ping(pingCtx); err != nil {
			slog.Warn(name+" not ready, retrying",
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pinging %s after %d attempts: %w", name, attempt, err)
	}
	return nil
}
