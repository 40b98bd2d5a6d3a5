package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanskriti-setu/setu/backend/content"
	"github.com/sanskriti-setu/setu/backend/store"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

// downStore fails every ping.
type downStore struct{ *store.Memory }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(downStore{store.NewMemory()}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	user := env.createTestUser("M", "m@example.com")
	env.do(http.MethodGet, "/recommendations", user.Token, nil)

	rec := env.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "setu_recommendation_requests_total")
	assert.Contains(t, body, "setu_recommendation_duration_seconds")
	assert.Contains(t, body, "go_goroutines")
}

func TestUnknownRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))

	rec = env.do(http.MethodDelete, "/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "invalid_method", errorCode(t, rec))
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/me", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.deps.authRate = 2
	handler := newRouter(env.deps)

	var codes []int
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestContentRoutes(t *testing.T) {
	env := newTestEnv(t)
	catalog, err := content.Load()
	require.NoError(t, err)

	t.Run("states", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/content/states", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		states := decode[[]content.State](t, rec)
		assert.Len(t, states, len(catalog.States))
	})

	t.Run("one state case-insensitive", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/content/states/ap", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Andhra Pradesh", decode[content.State](t, rec).Name)
	})

	t.Run("unknown state", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/content/states/XX", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("festivals and calendar", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/content/festivals", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Diwali", decode[[]content.Festival](t, rec)[0].Name)

		rec = env.do(http.MethodGet, "/content/calendar", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]content.Event](t, rec), len(catalog.Events))
	})

	t.Run("options", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/content/options", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		opts := decode[content.Options](t, rec)
		assert.Contains(t, opts.States, "Goa")
		assert.NotEmpty(t, opts.CulturalInterests)
		assert.NotEmpty(t, opts.Skills)
	})
}
