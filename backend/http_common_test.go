package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusTeapot, map[string]int{"n": 1})
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "bad_thing")
	assert.JSONEq(t, `{"error":"bad_thing"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name   string
		body   string
		ok     bool
		status int
	}{
		{"object", `{"name":"x"}`, true, http.StatusOK},
		{"unknown fields are ignored", `{"name":"x","extra":1}`, true, http.StatusOK},
		{"empty", ``, false, http.StatusBadRequest},
		{"two objects", `{"name":"x"}{"name":"y"}`, false, http.StatusBadRequest},
		{"too large", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, false, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			ok := decodeJSON(rec, req, &p)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.status, rec.Code)
			if ok {
				assert.Equal(t, "x", p.Name)
			}
		})
	}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestPathID(t *testing.T) {
	for _, tt := range []struct {
		raw string
		id  int
		ok  bool
	}{
		{"12", 12, true},
		{"0", 0, false},
		{"-4", 0, false},
		{"abc", 0, false},
	} {
		t.Run(tt.raw, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", tt.raw)
			id, ok := pathID(rec, req)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
			if !ok {
				assert.Equal(t, http.StatusNotFound, rec.Code)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	req := func(q string) *http.Request { return httptest.NewRequest(http.MethodGet, "/x"+q, nil) }

	n, ok := queryInt(req(""), "limit", 7, 1, 10)
	require.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = queryInt(req("?limit=10"), "limit", 7, 1, 10)
	require.True(t, ok)
	assert.Equal(t, 10, n)

	_, ok = queryInt(req("?limit=11"), "limit", 7, 1, 10)
	assert.False(t, ok)
	_, ok = queryInt(req("?limit=0"), "limit", 7, 1, 10)
	assert.False(t, ok)
	_, ok = queryInt(req("?limit=1.5"), "limit", 7, 1, 10)
	assert.False(t, ok)
}
