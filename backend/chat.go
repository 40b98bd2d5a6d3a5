package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/sanskriti-setu/setu/backend/metrics"
	"github.com/sanskriti-setu/setu/backend/store"
)

const (
	maxMessageRunes = 2000
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 30 * time.Second
	sendBuffer      = 16
)

// ClientEvent is what a browser sends over the chat socket.
type ClientEvent struct {
	Type string `json:"type"` // "message" | "typing"
	To   int    `json:"to"`
	Body string `json:"body,omitempty"`
}

// ServerEvent represents a server-sent event
type ServerEvent struct {
	Type string `json:"type"` // "message" | "typing" | "info" | "error"
	From int    `json:"from,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	hub    *Hub
	userID int
	conn   *websocket.Conn
	send   chan ServerEvent
	logger zerolog.Logger
}

// Hub tracks every open chat socket per user and relays events between
// them. One user may have several sockets open (tabs, devices).
type Hub struct {
	st      Store
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu            sync.RWMutex
	clientsByUser map[int]map[*Client]bool
}

func newHub(st Store, m *metrics.Metrics, logger zerolog.Logger) *Hub {
	return &Hub{
		st:            st,
		metrics:       m,
		logger:        logger,
		clientsByUser: make(map[int]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clientsByUser[c.userID] == nil {
		h.clientsByUser[c.userID] = make(map[*Client]bool)
	}
	h.clientsByUser[c.userID][c] = true
	h.metrics.WSConnections.Inc()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if peers, ok := h.clientsByUser[c.userID]; ok && peers[c] {
		delete(peers, c)
		if len(peers) == 0 {
			delete(h.clientsByUser, c.userID)
		}
		h.metrics.WSConnections.Dec()
	}
}

// sendToUser queues evt on every socket of userID. A socket whose buffer is
// full misses the event.
func (h *Hub) sendToUser(userID int, evt ServerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clientsByUser[userID] {
		select {
		case c.send <- evt:
		default:
			c.logger.Warn().Str("type", evt.Type).Msg("send buffer full, dropping event")
		}
	}
}

// online reports whether userID has at least one open socket.
func (h *Hub) online(userID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clientsByUser[userID]) > 0
}

// closeAll closes every socket. Server shutdown does not reach hijacked
// connections, so this is called separately.
func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, peers := range h.clientsByUser {
		for c := range peers {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			_ = c.conn.Close()
		}
	}
}

func newUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

// GET /ws/chat?token=...
func wsChatHandler(hub *Hub, a *tokenAuth, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := a.getUserIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Int("user_id", userID).Msg("ws upgrade failed")
			return
		}

		client := &Client{
			hub:    hub,
			userID: userID,
			conn:   conn,
			send:   make(chan ServerEvent, sendBuffer),
			logger: hub.logger.With().Int("user_id", userID).Logger(),
		}
		hub.register(client)
		client.send <- ServerEvent{Type: "info", Data: "connected"}

		go client.writer()
		client.reader()
	}
}

func (c *Client) reader() {
	defer func() {
		c.hub.unregister(c)
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(16 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("ws closed")
			}
			return
		}
		// Reading proves the user is here.
		_ = c.hub.st.Touch(context.Background(), c.userID)

		var evt ClientEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			c.reply(ServerEvent{Type: "error", Data: "invalid message format"})
			continue
		}

		switch evt.Type {
		case "message":
			c.handleMessage(evt)
		case "typing":
			c.handleTyping(evt)
		default:
			c.reply(ServerEvent{Type: "error", Data: "unknown message type"})
		}
	}
}

// reply queues an event for this socket only.
func (c *Client) reply(evt ServerEvent) {
	select {
	case c.send <- evt:
	default:
	}
}

func (c *Client) handleMessage(evt ClientEvent) {
	body := strings.TrimSpace(evt.Body)
	if n := utf8.RuneCountInString(body); n == 0 || n > maxMessageRunes {
		c.hub.metrics.ChatMessage("rejected")
		c.reply(ServerEvent{Type: "error", Data: "message must be 1 to 2000 characters"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := c.hub.st.SaveMessage(ctx, c.userID, evt.To, body)
	if err != nil {
		c.hub.metrics.ChatMessage("rejected")
		if errors.Is(err, store.ErrNoConnection) {
			c.reply(ServerEvent{Type: "error", Data: "not connected"})
			return
		}
		c.logger.Error().Err(err).Int("to", evt.To).Msg("save chat message")
		c.reply(ServerEvent{Type: "error", Data: "cannot send message"})
		return
	}
	c.hub.metrics.ChatMessage("sent")

	out := ServerEvent{Type: "message", From: c.userID, Data: msg}
	c.hub.sendToUser(evt.To, out)
	// Echo to every socket of the sender so all of their tabs update.
	c.hub.sendToUser(c.userID, out)
}

func (c *Client) handleTyping(evt ClientEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pair, err := c.hub.st.Pair(ctx, c.userID, evt.To)
	if err != nil || pair.Status != store.StatusAccepted {
		c.reply(ServerEvent{Type: "error", Data: "not connected"})
		return
	}
	c.hub.sendToUser(evt.To, ServerEvent{Type: "typing", From: c.userID})
}

func (c *Client) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GET /chats/{id}/messages?limit=50&before=2025-09-16T08:00:00Z
func chatHistoryHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		peer, ok := pathID(w, r)
		if !ok {
			return
		}
		limit, ok := queryInt(r, "limit", 50, 1, 200)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		var before *time.Time
		if s := r.URL.Query().Get("before"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_before")
				return
			}
			before = &t
		}

		msgs, err := st.Messages(r.Context(), userIDFrom(r.Context()), peer, limit, before)
		if err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}
