package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// devJWTSecret is only accepted outside production.
const devJWTSecret = "your_secret_key_please_change_in_production"

// Config is read from the environment once at startup.
type Config struct {
	DatabaseURL string
	// StoreDriver is "postgres" or "memory".
	StoreDriver string
	JWTSecret   []byte
	HTTPAddr    string
	Env         string
	LogLevel    zerolog.Level
	CORSOrigins []string

	RecommendLimit    int
	RecommendPoolSize int
	AutoMigrate       bool
	TokenTTL          time.Duration
	ShutdownTimeout   time.Duration
}

// Development reports whether GO_ENV selects development mode.
func (c Config) Development() bool { return c.Env == "development" }

// loadConfig reads .env files if present and then the process environment.
// Values set in the environment win over .env.
func loadConfig(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return configFromEnv(os.Getenv)
}

func configFromEnv(getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		DatabaseURL: env("DATABASE_URL", "user=admin password=password dbname=setudb sslmode=disable"),
		StoreDriver: env("STORE_DRIVER", "postgres"),
		JWTSecret:   []byte(env("JWT_SECRET", devJWTSecret)),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		Env:         env("GO_ENV", "development"),
		CORSOrigins: splitList(env("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173,http://localhost:3001")),
	}

	var errs []error
	var err error

	if cfg.LogLevel, err = zerolog.ParseLevel(env("LOG_LEVEL", "info")); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if cfg.RecommendLimit, err = positiveInt(env("RECOMMEND_LIMIT", "5")); err != nil {
		errs = append(errs, fmt.Errorf("RECOMMEND_LIMIT: %w", err))
	}
	if cfg.RecommendPoolSize, err = positiveInt(env("RECOMMEND_POOL_SIZE", "100")); err != nil {
		errs = append(errs, fmt.Errorf("RECOMMEND_POOL_SIZE: %w", err))
	}
	if cfg.AutoMigrate, err = strconv.ParseBool(env("AUTO_MIGRATE", "true")); err != nil {
		errs = append(errs, fmt.Errorf("AUTO_MIGRATE: %w", err))
	}
	if cfg.TokenTTL, err = time.ParseDuration(env("TOKEN_TTL", "24h")); err != nil || cfg.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL: must be a positive duration"))
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(env("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err))
	}

	switch cfg.StoreDriver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unknown driver %q", cfg.StoreDriver))
	}
	if cfg.Env == "production" && string(cfg.JWTSecret) == devJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
