package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sanskriti-setu/setu/backend/content"
	"github.com/sanskriti-setu/setu/backend/metrics"
	"github.com/sanskriti-setu/setu/backend/recommend"
	"github.com/sanskriti-setu/setu/backend/store"
)

var testSecret = []byte("test-secret-key-for-testing")

// testClock is a settable time source shared by the store and the token
// issuer.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	t       *testing.T
	store   *store.Memory
	clock   *testClock
	metrics *metrics.Metrics
	deps    deps
	handler http.Handler
}

type testUser struct {
	ID    int
	Email string
	Token string
}

// newTestEnv builds the full router over an in-memory store. repo replaces
// the recommendation repository when given.
func newTestEnv(t *testing.T, repo ...recommend.Repository) *testEnv {
	t.Helper()

	st := store.NewMemory()
	clock := &testClock{t: time.Date(2025, 9, 16, 8, 0, 0, 0, time.UTC)}
	st.SetClock(clock.Now)

	catalog, err := content.Load()
	require.NoError(t, err)

	var r recommend.Repository = st
	if len(repo) > 0 {
		r = repo[0]
	}
	m := metrics.New()
	svc, err := recommend.NewService(r, recommend.WithObserver(m))
	require.NoError(t, err)

	auth := newTokenAuth(testSecret, time.Hour)
	auth.now = clock.Now

	d := deps{
		logger:    zerolog.Nop(),
		store:     st,
		auth:      auth,
		recommend: svc,
		hub:       newHub(st, m, zerolog.Nop()),
		catalog:   catalog,
		metrics:   m,
		validate:  newValidator(),
		upgrader:  newUpgrader([]string{"*"}),
		origins:   []string{"http://localhost:5173"},
		authRate:  1000,
	}
	return &testEnv{t: t, store: st, clock: clock, metrics: m, deps: d, handler: newRouter(d)}
}

// do sends a request through the router. body is JSON encoded unless it is
// already a string.
func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// createTestUser registers an account through the API.
func (e *testEnv) createTestUser(name, email string) testUser {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/register", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[tokenResponse](e.t, rec)
	return testUser{ID: resp.ID, Email: email, Token: resp.Token}
}

// createProfileUser registers name and stores a full profile for them.
func (e *testEnv) createProfileUser(name string, p recommend.Profile) testUser {
	e.t.Helper()
	u := e.createTestUser(name, fmt.Sprintf("%s@example.com", name))
	p.Name = name
	rec := e.do(http.MethodPut, "/me/profile", u.Token, inputFrom(p))
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	return u
}

// connect makes a and b accepted connections.
func (e *testEnv) connect(a, b testUser) {
	e.t.Helper()
	rec := e.do(http.MethodPost, fmt.Sprintf("/connections/%d/request", b.ID), a.Token, nil)
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(http.MethodPost, fmt.Sprintf("/connections/%d/accept", a.ID), b.Token, nil)
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["error"].(string)
}
