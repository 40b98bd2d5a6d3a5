package main

import (
	"net/http"
	"strconv"
	"time"
)

// ChatPeerSummary represents a summary of a chat peer with recent activity
type ChatPeerSummary struct {
	UserID         int        `json:"user_id"`
	UserName       string     `json:"user_name"`
	Avatar         string     `json:"avatar,omitempty"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	UnreadMessages int        `json:"unread_messages"`
	IsOnline       bool       `json:"is_online"`
}

// GET /chats/summary
// Returns all accepted connections of the caller and for each peer: name,
// avatar, time of the latest message and unread count. Peer cards come
// through the request's DataLoader in one batch.
func chatSummaryHandler(st Store, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := userIDFrom(r.Context())
		rows, err := st.ChatSummaries(r.Context(), me)
		if err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}

		ids := make([]int, len(rows))
		for i, row := range rows {
			ids[i] = row.PeerID
		}
		cards, err := loadSummaries(r.Context(), st, ids)
		if err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}

		out := make([]ChatPeerSummary, 0, len(rows))
		for _, row := range rows {
			card, ok := cards[row.PeerID]
			if !ok {
				continue
			}
			out = append(out, ChatPeerSummary{
				UserID:         row.PeerID,
				UserName:       card.Name,
				Avatar:         card.Avatar,
				LastMessageAt:  row.LastMessageAt,
				UnreadMessages: row.Unread,
				IsOnline:       card.IsOnline || hub.online(row.PeerID),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /chats/read?peer_id=123
// Acknowledges that the caller has read everything the peer sent.
func chatsMarkReadHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		peerID, err := strconv.Atoi(r.URL.Query().Get("peer_id"))
		if err != nil || peerID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_peer_id")
			return
		}
		if err := st.MarkRead(r.Context(), userIDFrom(r.Context()), peerID); err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
