package main

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/sanskriti-setu/setu/backend/store"
)

// GET /connections
func connectionsHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := st.Connections(r.Context(), userIDFrom(r.Context()))
		if err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]int{"connections": ids})
	}
}

// GET /connections/requests
// Pending requests addressed to the caller and sent by the caller.
func requestsHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, out, err := st.Requests(r.Context(), userIDFrom(r.Context()))
		if err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]int{"incoming": in, "outgoing": out})
	}
}

// Handler for creating and altering the connection status between users.
//
// TERMINOLOGY
// request: create pending (or auto-accept if opposite pending exists).
// accept: pending → accepted.
// decline (by addressee): pending → declined.
// cancel (DELETE by requester): pending → declined.
// disconnect (DELETE by either party): accepted → disconnected.
//
// Repeating an action that already took effect answers 200 with the
// current state.
func connectionActionHandler(st Store, action store.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, ok := pathID(w, r)
		if !ok {
			return
		}
		me := userIDFrom(r.Context())
		if target == me {
			writeError(w, http.StatusBadRequest, "invalid_target")
			return
		}

		c, err := st.Connect(r.Context(), me, target, action)
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found")
			return
		case errors.Is(err, store.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "invalid_transition")
			return
		case err != nil:
			writeInternal(w, r, "db_error", err)
			return
		}

		hlog.FromRequest(r).Debug().
			Int("user_id", me).
			Int("peer_id", target).
			Str("action", string(action)).
			Str("state", string(c.Status)).
			Msg("connection updated")
		writeJSON(w, http.StatusOK, c)
	}
}
