package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg, err := configFromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.Development())
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 5, cfg.RecommendLimit)
	assert.Equal(t, 100, cfg.RecommendPoolSize)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []byte(devJWTSecret), cfg.JWTSecret)
	assert.Contains(t, cfg.CORSOrigins, "http://localhost:5173")
}

func TestConfigFromEnvOverrides(t *testing.T) {
	cfg, err := configFromEnv(envMap(map[string]string{
		"DATABASE_URL":        "postgres://u:p@db:5432/setu",
		"STORE_DRIVER":        "memory",
		"JWT_SECRET":          "s3cret",
		"HTTP_ADDR":           ":9090",
		"GO_ENV":              "production",
		"LOG_LEVEL":           "debug",
		"CORS_ORIGINS":        " https://a.example , ,https://b.example",
		"RECOMMEND_LIMIT":     "8",
		"RECOMMEND_POOL_SIZE": "250",
		"AUTO_MIGRATE":        "false",
		"TOKEN_TTL":           "2h",
		"SHUTDOWN_TIMEOUT":    "3s",
	}))
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/setu", cfg.DatabaseURL)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, []byte("s3cret"), cfg.JWTSecret)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.False(t, cfg.Development())
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 8, cfg.RecommendLimit)
	assert.Equal(t, 250, cfg.RecommendPoolSize)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestConfigFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad limit", map[string]string{"RECOMMEND_LIMIT": "zero"}, "RECOMMEND_LIMIT"},
		{"negative pool", map[string]string{"RECOMMEND_POOL_SIZE": "-1"}, "RECOMMEND_POOL_SIZE"},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"bad bool", map[string]string{"AUTO_MIGRATE": "maybe"}, "AUTO_MIGRATE"},
		{"zero ttl", map[string]string{"TOKEN_TTL": "0s"}, "TOKEN_TTL"},
		{"bad shutdown", map[string]string{"SHUTDOWN_TIMEOUT": "soon"}, "SHUTDOWN_TIMEOUT"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}, "STORE_DRIVER"},
		{"dev secret in production", map[string]string{"GO_ENV": "production"}, "JWT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := configFromEnv(envMap(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("errors are reported together", func(t *testing.T) {
		_, err := configFromEnv(envMap(map[string]string{"RECOMMEND_LIMIT": "x", "TOKEN_TTL": "x"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RECOMMEND_LIMIT")
		assert.Contains(t, err.Error(), "TOKEN_TTL")
	})
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RECOMMEND_POOL_SIZE=42\nSTORE_DRIVER=memory\n"), 0o600))
	t.Setenv("RECOMMEND_POOL_SIZE", "")
	t.Setenv("STORE_DRIVER", "")
	require.NoError(t, os.Unsetenv("RECOMMEND_POOL_SIZE"))
	require.NoError(t, os.Unsetenv("STORE_DRIVER"))

	cfg, err := loadConfig(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.RecommendPoolSize)
	assert.Equal(t, "memory", cfg.StoreDriver)
}
