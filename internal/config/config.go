// Package config loads application configuration from environment
// variables. No other package reads env vars directly. Defaults suit local
// development.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
)

// Backend selects where accounts, sessions and profiles live.
const (
	BackendMariaDB = "mariadb"
	BackendMemory  = "memory"
)

// Config holds all application configuration. Passed to other packages via
// dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string `env:"ENV" envDefault:"development"`

	Port     int    `env:"PORT" envDefault:"8080"`
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	// LogLevel applies outside development; development always logs debug.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Backend is "mariadb" (MariaDB + Redis) or "memory" (in-process,
	// lost on restart).
	Backend string `env:"BACKEND" envDefault:"mariadb"`

	// TrustedProxies lists the CIDRs whose forwarding headers are honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," envDefault:"127.0.0.1/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16"`

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"db/migrations"`

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Breaker  BreakerConfig
}

// DatabaseConfig holds MariaDB connection parameters. DATABASE_URL, when
// set, wins over the individual fields.
type DatabaseConfig struct {
	// Host is host or host:port; 3306 is appended when no port is given.
	Host     string `env:"DB_HOST" envDefault:"localhost:3306"`
	User     string `env:"DB_USER" envDefault:"unify"`
	Password string `env:"DB_PASSWORD" envDefault:"unify"`
	Name     string `env:"DB_NAME" envDefault:"unify"`
	URL      string `env:"DATABASE_URL"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`

	// ConnectTimeout bounds the start-up retries while MariaDB boots.
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"2m"`
}

// DSN returns the go-sql-driver/mysql connection string. The driver's
// FormatDSN keeps passwords with special characters intact.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if host doesn't include one.
func ensurePort(host, defaultPort string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
}

// AuthConfig holds session and sign-in throttling settings.
type AuthConfig struct {
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"720h"`

	// MaxAttempts failed sign-ins within Lockout lock the email out.
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	Lockout     time.Duration `env:"LOGIN_LOCKOUT" envDefault:"15m"`
}

// BreakerConfig tunes the circuit breaker around the backend.
type BreakerConfig struct {
	MaxFailures uint32        `env:"BREAKER_MAX_FAILURES" envDefault:"5"`
	OpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	backend := strings.ToLower(c.Backend)
	if backend != BackendMariaDB && backend != BackendMemory {
		return fmt.Errorf("BACKEND must be %q or %q, got %q", BackendMariaDB, BackendMemory, c.Backend)
	}
	c.Backend = backend

	if c.IsProduction() && c.Backend != BackendMariaDB {
		return fmt.Errorf("BACKEND=%s is not allowed in production", c.Backend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Auth.MaxAttempts <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// SlogLevel is the minimum log level: debug in development, otherwise
// LOG_LEVEL, falling back to info when it does not parse.
func (c *Config) SlogLevel() slog.Level {
	if c.IsDevelopment() {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction matches "production" and "prod" case-insensitively.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}
