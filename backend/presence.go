package main

import (
	"context"
	"net/http"
)

// POST /me/ping
// authenticate has already refreshed last_online; this only confirms it.
func mePingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// isOnlineNow reports whether userID made a request within the presence TTL.
// Unknown users and lookup failures count as offline.
func isOnlineNow(ctx context.Context, st Store, userID int) bool {
	sums, err := st.Summaries(ctx, []int{userID})
	if err != nil {
		return false
	}
	return sums[userID].IsOnline
}
