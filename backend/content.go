package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sanskriti-setu/setu/backend/content"
)

// contentRoutes serves the static cultural tables. They need no login.
func contentRoutes(c *content.Catalog) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/states", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, c.States)
		})
		r.Get("/states/{id}", func(w http.ResponseWriter, r *http.Request) {
			s, ok := c.State(chi.URLParam(r, "id"))
			if !ok {
				writeError(w, http.StatusNotFound, "not_found")
				return
			}
			writeJSON(w, http.StatusOK, s)
		})
		r.Get("/festivals", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, c.Festivals)
		})
		r.Get("/calendar", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, c.Events)
		})
		r.Get("/options", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, c.Options)
		})
	}
}
