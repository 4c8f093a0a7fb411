package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
	"golang.org/x/text/language"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv         string `env:"APP_ENV" default:"development"`
	Port           string `env:"PORT" default:"8080"`
	StorageBackend string `env:"STORAGE_BACKEND" default:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisURL       string `env:"REDIS_URL"`
	LogLevel       string `env:"LOG_LEVEL" default:"info"`
	LogFormat      string `env:"LOG_FORMAT" default:"text"`

	StaleThreshold time.Duration `env:"STALE_THRESHOLD" default:"336h"` // 14 days
	StaleTopN      int           `env:"STALE_TOP_N" default:"3"`
	SortLocale     string        `env:"SORT_LOCALE" default:"en"`

	EventStreamMaxLen int64 `env:"EVENT_STREAM_MAX_LEN" default:"1000"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8080,http://localhost"`
	RateLimitRPS       float64  `env:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" default:"40"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.CORSAllowedOrigins = trimAll(cfg.CORSAllowedOrigins)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SortLanguage returns the collation language for company sorting.
// Load has already rejected unparseable locales.
func (c *Config) SortLanguage() language.Tag {
	tag, err := language.Parse(c.SortLocale)
	if err != nil {
		return language.English
	}
	return tag
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func validate(cfg *Config) error {
	switch cfg.StorageBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, cfg.StorageBackend)
	}

	if cfg.StaleThreshold <= 0 {
		return errors.New("STALE_THRESHOLD must be positive")
	}
	if cfg.StaleTopN <= 0 {
		return errors.New("STALE_TOP_N must be positive")
	}
	if _, err := language.Parse(cfg.SortLocale); err != nil {
		return fmt.Errorf("SORT_LOCALE is not a valid language tag: %w", err)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if cfg.EventStreamMaxLen <= 0 {
		return errors.New("EVENT_STREAM_MAX_LEN must be positive")
	}

	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
