package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/sanskriti-setu/setu/backend/content"
	"github.com/sanskriti-setu/setu/backend/metrics"
	"github.com/sanskriti-setu/setu/backend/recommend"
	"github.com/sanskriti-setu/setu/backend/store"
)

// deps are the collaborators built in main and shared by the handlers.
type deps struct {
	logger    zerolog.Logger
	store     Store
	auth      *tokenAuth
	recommend *recommend.Service
	hub       *Hub
	catalog   *content.Catalog
	metrics   *metrics.Metrics
	validate  *validator.Validate
	upgrader  websocket.Upgrader
	origins   []string
	// authRate is requests per minute per IP on /login and /register.
	authRate int
}

func newRouter(d deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(d.logger))
	r.Use(requestIDToLog)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(withCORS(d.origins))

	r.Get("/health", healthHandler(d.store))
	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())

	// The websocket authenticates from ?token= itself and must not sit behind
	// the request timeout.
	r.Get("/ws/chat", wsChatHandler(d.hub, d.auth, d.upgrader))

	r.Route("/content", contentRoutes(d.catalog))

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(d.authRate, time.Minute))
		r.Post("/register", registerHandler(d.store, d.auth))
		r.Post("/login", loginHandler(d.store, d.auth))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Use(authenticate(d.auth, d.store))
		r.Use(DataLoaderMiddleware(d.store))

		r.Get("/me", meHandler(d.store))
		r.Post("/me/ping", mePingHandler())
		r.Get("/me/profile", meProfileHandler(d.store))
		r.Put("/me/profile", updateProfileHandler(d.store, d.validate))
		r.Patch("/me/profile", updateProfileHandler(d.store, d.validate))

		r.Get("/users/{id}", userHandler(d.store))
		r.Get("/users/{id}/profile", userProfileHandler(d.store, d.recommend))

		r.Get("/recommendations", recommendationsHandler(d.recommend))

		r.Get("/connections", connectionsHandler(d.store))
		r.Get("/connections/requests", requestsHandler(d.store))
		r.Post("/connections/{id}/request", connectionActionHandler(d.store, store.ActionRequest))
		r.Post("/connections/{id}/accept", connectionActionHandler(d.store, store.ActionAccept))
		r.Post("/connections/{id}/decline", connectionActionHandler(d.store, store.ActionDecline))
		r.Delete("/connections/{id}", connectionActionHandler(d.store, store.ActionRemove))

		r.Get("/chats/summary", chatSummaryHandler(d.store, d.hub))
		r.Get("/chats/{id}/messages", chatHistoryHandler(d.store))
		r.Post("/chats/read", chatsMarkReadHandler(d.store))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "invalid_method")
	})
	return r
}

// requestIDToLog adds chi's request id to the request logger.
func requestIDToLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set("X-Request-Id", id)
			l := zerolog.Ctx(r.Context())
			l.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

// GET /health
func healthHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
