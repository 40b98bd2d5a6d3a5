package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Message is one stored chat message.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int       `json:"chat_id"`
	From      int       `json:"from"`
	To        int       `json:"to"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"ts"`
}

// ChatSummary is one accepted peer in the chat sidebar. Name, avatar and
// presence are filled in by the caller.
type ChatSummary struct {
	PeerID        int        `json:"user_id"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	Unread        int        `json:"unread_messages"`
}

// SaveMessage stores a message from one user to another. The pair must have
// an accepted connection, otherwise ErrNoConnection.
func (s *Postgres) SaveMessage(ctx context.Context, from, to int, body string) (Message, error) {
	msg := Message{From: from, To: to, Body: body}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var ok int
		err := tx.QueryRowContext(ctx, `
			SELECT 1
			FROM connections
			WHERE status = 'accepted'
			  AND ((user_id = $1 AND target_user_id = $2) OR (user_id = $2 AND target_user_id = $1))
		`, from, to).Scan(&ok)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoConnection
		}
		if err != nil {
			return err
		}

		// Upsert so two first messages racing on the same pair share a row.
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO chats (user1_id, user2_id)
			VALUES (LEAST($1::int, $2::int), GREATEST($1::int, $2::int))
			ON CONFLICT (user1_id, user2_id) DO UPDATE SET user1_id = EXCLUDED.user1_id
			RETURNING id
		`, from, to).Scan(&msg.ChatID); err != nil {
			return err
		}

		if err := tx.QueryRowContext(ctx, `
			INSERT INTO messages (chat_id, sender_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, msg.ChatID, from, body).Scan(&msg.ID, &msg.CreatedAt); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE chats c
			SET last_message_at = $3,
			    unread_for_user1 = CASE WHEN $2 = c.user2_id THEN TRUE ELSE unread_for_user1 END,
			    unread_for_user2 = CASE WHEN $2 = c.user1_id THEN TRUE ELSE unread_for_user2 END
			WHERE c.id = $1
		`, msg.ChatID, from, msg.CreatedAt)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNoConnection) {
			return Message{}, err
		}
		return Message{}, fmt.Errorf("save message: %w", err)
	}
	return msg, nil
}

func (s *Postgres) chatID(ctx context.Context, a, b int) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM chats
		WHERE user1_id = LEAST($1::int, $2::int) AND user2_id = GREATEST($1::int, $2::int)
	`, a, b).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// Messages returns up to limit messages between me and peer, newest first,
// optionally only those created before a point in time. Messages the peer
// sent are marked read.
func (s *Postgres) Messages(ctx context.Context, me, peer, limit int, before *time.Time) ([]Message, error) {
	chatID, err := s.chatID(ctx, me, peer)
	if errors.Is(err, ErrNotFound) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve chat: %w", err)
	}

	var cutoff sql.NullTime
	if before != nil {
		cutoff = sql.NullTime{Time: *before, Valid: true}
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, content, is_read, created_at
		FROM messages
		WHERE chat_id = $1
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, chatID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]Message, 0, limit)
	for rows.Next() {
		m := Message{ChatID: chatID}
		if err := rows.Scan(&m.ID, &m.From, &m.Body, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.To = me
		if m.From == me {
			m.To = peer
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.markRead(ctx, chatID, me, peer); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead marks everything peer sent to me as read.
func (s *Postgres) MarkRead(ctx context.Context, me, peer int) error {
	chatID, err := s.chatID(ctx, me, peer)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.markRead(ctx, chatID, me, peer)
}

func (s *Postgres) markRead(ctx context.Context, chatID, me, peer int) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE messages SET is_read = TRUE
			WHERE chat_id = $1 AND sender_id = $2 AND is_read IS FALSE
		`, chatID, peer); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE chats c
			SET unread_for_user1 = CASE WHEN $2 = c.user1_id THEN FALSE ELSE unread_for_user1 END,
			    unread_for_user2 = CASE WHEN $2 = c.user2_id THEN FALSE ELSE unread_for_user2 END
			WHERE c.id = $1
		`, chatID, me)
		return err
	})
}

// ChatSummaries lists every accepted peer of me with the time of the last
// message and the number of unread messages from them, most recent chat
// first.
func (s *Postgres) ChatSummaries(ctx context.Context, me int) ([]ChatSummary, error) {
	const q = `
WITH accepted AS (
  SELECT CASE WHEN c.user_id = $1 THEN c.target_user_id ELSE c.user_id END AS peer_id
  FROM connections c
  WHERE c.status = 'accepted' AND (c.user_id = $1 OR c.target_user_id = $1)
),
chat_pairs AS (
  SELECT a.peer_id, ch.id AS chat_id, ch.last_message_at
  FROM accepted a
  LEFT JOIN chats ch
    ON ch.user1_id = LEAST($1::int, a.peer_id)
   AND ch.user2_id = GREATEST($1::int, a.peer_id)
),
unreads AS (
  SELECT cp.peer_id,
         COUNT(m.id) FILTER (WHERE m.is_read = FALSE AND m.sender_id = cp.peer_id) AS unread_count
  FROM chat_pairs cp
  LEFT JOIN messages m ON m.chat_id = cp.chat_id
  GROUP BY cp.peer_id
)
SELECT cp.peer_id, cp.last_message_at, COALESCE(u.unread_count, 0)
FROM chat_pairs cp
LEFT JOIN unreads u ON u.peer_id = cp.peer_id
ORDER BY COALESCE(cp.last_message_at, to_timestamp(0)) DESC, cp.peer_id ASC`

	rows, err := s.db.QueryContext(ctx, q, me)
	if err != nil {
		return nil, fmt.Errorf("query chat summary: %w", err)
	}
	defer rows.Close()

	out := make([]ChatSummary, 0, 16)
	for rows.Next() {
		var cs ChatSummary
		var last sql.NullTime
		if err := rows.Scan(&cs.PeerID, &last, &cs.Unread); err != nil {
			return nil, err
		}
		if last.Valid {
			t := last.Time
			cs.LastMessageAt = &t
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}
