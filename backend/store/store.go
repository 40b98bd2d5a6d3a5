// Package store persists users, cultural profiles, connections and chat
// history. Postgres is the production backend; Memory is a drop-in used for
// local runs and handler tests.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schema string

var (
	// ErrNotFound is returned when a user or a relationship row is missing.
	ErrNotFound = errors.New("not found")
	// ErrEmailExists is returned by CreateUser for a taken address.
	ErrEmailExists = errors.New("email already registered")
	// ErrNoConnection is returned when two users are not connected.
	ErrNoConnection = errors.New("no accepted connection")
	// ErrInvalidTransition is returned when a connection action does not
	// apply to the current state of the pair.
	ErrInvalidTransition = errors.New("invalid connection transition")
)

// OnlineTTL is how long after the last request a user still counts as online.
const OnlineTTL = 90 * time.Second

// IsOnline reports whether lastOnline falls within OnlineTTL of now.
func IsOnline(lastOnline, now time.Time) bool {
	if lastOnline.IsZero() {
		return false
	}
	return now.Sub(lastOnline) < OnlineTTL
}

// Postgres is the lib/pq backed store.
type Postgres struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewPostgres wraps an open handle.
func NewPostgres(db *sql.DB, logger zerolog.Logger) *Postgres {
	return &Postgres{db: db, logger: logger, now: time.Now}
}

// Migrate applies the embedded schema.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping checks the database is reachable.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a read-committed transaction, committing on success and
// rolling back on error or panic.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
