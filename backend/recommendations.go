package main

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/sanskriti-setu/setu/backend/recommend"
	"github.com/sanskriti-setu/setu/backend/store"
)

// maxRecommendLimit bounds ?limit on /recommendations.
const maxRecommendLimit = 20

type recommendationItem struct {
	recommend.ScoredProfile
	MatchPercent int `json:"match_percent"`
}

// GET /recommendations?limit=N
func recommendationsHandler(svc *recommend.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := queryInt(r, "limit", svc.Limit(), 1, maxRecommendLimit)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}

		me := userIDFrom(r.Context())
		recs, err := svc.ForUser(r.Context(), me, limit)
		switch {
		case errors.Is(err, recommend.ErrProfileNotFound):
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		case errors.Is(err, store.ErrUnavailable):
			hlog.FromRequest(r).Warn().Err(err).Msg("recommendations unavailable")
			writeError(w, http.StatusServiceUnavailable, "recommendations_unavailable")
			return
		case err != nil:
			writeInternal(w, r, "recommendation_error", err)
			return
		}

		items := make([]recommendationItem, len(recs))
		for i, rec := range recs {
			items[i] = recommendationItem{ScoredProfile: rec, MatchPercent: rec.MatchPercent()}
		}
		writeJSON(w, http.StatusOK, map[string]any{"recommendations": items})
	}
}
