package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a connection between two users.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAccepted     Status = "accepted"
	StatusDeclined     Status = "declined"
	StatusDisconnected Status = "disconnected"
)

// Action is something one side of a pair does to the connection.
type Action string

const (
	// ActionRequest creates a pending request, or accepts one going the
	// other way.
	ActionRequest Action = "request"
	// ActionAccept accepts an incoming pending request.
	ActionAccept Action = "accept"
	// ActionDecline declines an incoming pending request.
	ActionDecline Action = "decline"
	// ActionRemove cancels an outgoing pending request or disconnects an
	// accepted connection.
	ActionRemove Action = "remove"
)

// Connection is the single row kept per unordered pair of users.
type Connection struct {
	ID          int       `json:"connection_id"`
	RequesterID int       `json:"requester_id"`
	AddresseeID int       `json:"addressee_id"`
	Status      Status    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Peer returns the other side of the connection.
func (c Connection) Peer(me int) int {
	if c.RequesterID == me {
		return c.AddresseeID
	}
	return c.RequesterID
}

// Decision is the outcome of applying an Action to a pair.
type Decision struct {
	Status Status
	// Create is set when no row exists yet and one must be inserted with
	// the actor as requester.
	Create bool
	// Changed is set when an existing row must be updated to Status.
	Changed bool
}

// Decide applies action by me to the current row of the pair (nil when the
// pair has none). Repeating an action that already took effect is a no-op.
//
//	request: none -> pending, incoming pending -> accepted
//	accept:  incoming pending -> accepted
//	decline: incoming pending -> declined
//	remove:  outgoing pending -> declined, accepted -> disconnected
//
// Acting on a request that does not exist from this side gives ErrNotFound;
// any other mismatch gives ErrInvalidTransition.
func Decide(cur *Connection, me int, action Action) (Decision, error) {
	if cur == nil {
		if action == ActionRequest {
			return Decision{Status: StatusPending, Create: true}, nil
		}
		return Decision{}, ErrNotFound
	}
	incoming := cur.AddresseeID == me
	same := Decision{Status: cur.Status}

	switch action {
	case ActionRequest:
		switch cur.Status {
		case StatusPending:
			if incoming {
				return Decision{Status: StatusAccepted, Changed: true}, nil
			}
			return same, nil
		case StatusAccepted:
			return same, nil
		}

	case ActionAccept:
		switch cur.Status {
		case StatusPending:
			if incoming {
				return Decision{Status: StatusAccepted, Changed: true}, nil
			}
			return Decision{}, ErrNotFound
		case StatusAccepted:
			return same, nil
		}

	case ActionDecline:
		switch cur.Status {
		case StatusPending:
			if incoming {
				return Decision{Status: StatusDeclined, Changed: true}, nil
			}
			return Decision{}, ErrNotFound
		case StatusDeclined:
			return same, nil
		}

	case ActionRemove:
		switch cur.Status {
		case StatusPending:
			if !incoming {
				return Decision{Status: StatusDeclined, Changed: true}, nil
			}
			return Decision{}, ErrNotFound
		case StatusAccepted:
			return Decision{Status: StatusDisconnected, Changed: true}, nil
		case StatusDisconnected:
			return same, nil
		}

	default:
		return Decision{}, fmt.Errorf("unknown action %q", action)
	}
	return Decision{}, ErrInvalidTransition
}

// loadPairForUpdate returns the row between a and b in either direction and
// locks it until the transaction ends. It returns (nil, nil) when there is
// no row yet.
func loadPairForUpdate(ctx context.Context, tx *sql.Tx, a, b int) (*Connection, error) {
	var c Connection
	err := tx.QueryRowContext(ctx, `
		SELECT id, user_id, target_user_id, status, created_at, updated_at
		FROM connections
		WHERE (user_id = $1 AND target_user_id = $2)
		   OR (user_id = $2 AND target_user_id = $1)
		FOR UPDATE
	`, a, b).Scan(&c.ID, &c.RequesterID, &c.AddresseeID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// errPairRace signals a concurrent insert for the same pair.
var errPairRace = errors.New("connection row created concurrently")

// Connect applies action by me towards peer and returns the resulting row.
// The peer must exist.
func (s *Postgres) Connect(ctx context.Context, me, peer int, action Action) (Connection, error) {
	if me == peer {
		return Connection{}, ErrInvalidTransition
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, peer).Scan(&exists); err != nil {
		return Connection{}, fmt.Errorf("check peer: %w", err)
	}
	if !exists {
		return Connection{}, ErrNotFound
	}

	// One retry covers two first requests for the same pair racing on the
	// unique pair index.
	for attempt := 0; ; attempt++ {
		c, err := s.connectTx(ctx, me, peer, action)
		if errors.Is(err, errPairRace) && attempt == 0 {
			continue
		}
		return c, err
	}
}

func (s *Postgres) connectTx(ctx context.Context, me, peer int, action Action) (Connection, error) {
	var out Connection
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := loadPairForUpdate(ctx, tx, me, peer)
		if err != nil {
			return err
		}
		d, err := Decide(cur, me, action)
		if err != nil {
			return err
		}

		switch {
		case d.Create:
			err := tx.QueryRowContext(ctx, `
				INSERT INTO connections (user_id, target_user_id, status)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
				RETURNING id, user_id, target_user_id, status, created_at, updated_at
			`, me, peer, d.Status).Scan(&out.ID, &out.RequesterID, &out.AddresseeID, &out.Status, &out.CreatedAt, &out.UpdatedAt)
			if errors.Is(err, sql.ErrNoRows) {
				return errPairRace
			}
			return err
		case d.Changed:
			return tx.QueryRowContext(ctx, `
				UPDATE connections SET status = $2, updated_at = NOW()
				WHERE id = $1
				RETURNING id, user_id, target_user_id, status, created_at, updated_at
			`, cur.ID, d.Status).Scan(&out.ID, &out.RequesterID, &out.AddresseeID, &out.Status, &out.CreatedAt, &out.UpdatedAt)
		default:
			out = *cur
			return nil
		}
	})
	return out, err
}

// Pair returns the row between a and b, or ErrNotFound.
func (s *Postgres) Pair(ctx context.Context, a, b int) (Connection, error) {
	var c Connection
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, target_user_id, status, created_at, updated_at
		FROM connections
		WHERE (user_id = $1 AND target_user_id = $2)
		   OR (user_id = $2 AND target_user_id = $1)
	`, a, b).Scan(&c.ID, &c.RequesterID, &c.AddresseeID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Connection{}, ErrNotFound
	}
	return c, err
}

// Connections returns the ids of users with an accepted connection to me.
func (s *Postgres) Connections(ctx context.Context, me int) ([]int, error) {
	return s.queryIDs(ctx, `
		SELECT CASE WHEN user_id = $1 THEN target_user_id ELSE user_id END
		FROM connections
		WHERE (user_id = $1 OR target_user_id = $1) AND status = 'accepted'
		ORDER BY updated_at DESC, id DESC
	`, me)
}

// Requests returns pending requests to me and from me, newest first.
func (s *Postgres) Requests(ctx context.Context, me int) (incoming, outgoing []int, err error) {
	incoming, err = s.queryIDs(ctx, `
		SELECT user_id FROM connections
		WHERE target_user_id = $1 AND status = 'pending'
		ORDER BY created_at DESC, id DESC
	`, me)
	if err != nil {
		return nil, nil, err
	}
	outgoing, err = s.queryIDs(ctx, `
		SELECT target_user_id FROM connections
		WHERE user_id = $1 AND status = 'pending'
		ORDER BY created_at DESC, id DESC
	`, me)
	if err != nil {
		return nil, nil, err
	}
	return incoming, outgoing, nil
}

func (s *Postgres) queryIDs(ctx context.Context, q string, args ...any) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
