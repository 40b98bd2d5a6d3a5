package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// User is an account row joined with the display fields of its profile.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar"`
	Points       int       `json:"points"`
	Level        int       `json:"level"`
	PasswordHash string    `json:"-"`
	LastOnline   time.Time `json:"-"`
}

// NewUser is the input to CreateUser.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Avatar       string
}

// UserSummary is the public card shown for another user.
type UserSummary struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	State    string `json:"state"`
	City     string `json:"city"`
	IsOnline bool   `json:"is_online"`
}

const uniqueViolation = "23505"

// CreateUser inserts the account and its empty profile in one transaction
// and marks the user online. A taken email gives ErrEmailExists.
func (s *Postgres) CreateUser(ctx context.Context, u NewUser) (int, error) {
	var id int
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO users (email, password_hash, last_online)
			VALUES ($1, $2, NOW())
			RETURNING id
		`, u.Email, u.PasswordHash).Scan(&id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (user_id, name, avatar)
			VALUES ($1, $2, $3)
		`, id, u.Name, u.Avatar)
		return err
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

const userColumns = `
	u.id, u.email, u.password_hash, u.last_online,
	COALESCE(p.name, ''), COALESCE(p.avatar, ''), COALESCE(p.points, 0), COALESCE(p.level, 1)`

func scanUser(row *sql.Row) (User, error) {
	var u User
	var last sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &last, &u.Name, &u.Avatar, &u.Points, &u.Level); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if last.Valid {
		u.LastOnline = last.Time
	}
	return u, nil
}

// UserByEmail looks up an account for login.
func (s *Postgres) UserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.email = $1
	`, email))
}

// User looks up an account by id.
func (s *Postgres) User(ctx context.Context, id int) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1
	`, id))
}

// Touch marks the user as seen now.
func (s *Postgres) Touch(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_online = NOW() WHERE id = $1`, id)
	return err
}

// Summaries returns the public cards of the given users keyed by id.
// Unknown ids are absent from the map.
func (s *Postgres) Summaries(ctx context.Context, ids []int) (map[int]UserSummary, error) {
	out := make(map[int]UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id,
		       COALESCE(NULLIF(p.name, ''), 'User ' || u.id::text),
		       COALESCE(p.avatar, ''), COALESCE(p.state, ''), COALESCE(p.city, ''),
		       u.last_online
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = ANY($1)
	`, pq.Array(int64s(ids)))
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	now := s.now()
	for rows.Next() {
		var us UserSummary
		var last sql.NullTime
		if err := rows.Scan(&us.ID, &us.Name, &us.Avatar, &us.State, &us.City, &last); err != nil {
			return nil, err
		}
		us.IsOnline = last.Valid && IsOnline(last.Time, now)
		out[us.ID] = us
	}
	return out, rows.Err()
}

func int64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
