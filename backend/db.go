package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sanskriti-setu/setu/backend/recommend"
	"github.com/sanskriti-setu/setu/backend/store"
)

// Store is everything the handlers need from persistence. Both
// *store.Postgres and *store.Memory implement it.
type Store interface {
	recommend.Repository

	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u store.NewUser) (int, error)
	UserByEmail(ctx context.Context, email string) (store.User, error)
	User(ctx context.Context, id int) (store.User, error)
	Touch(ctx context.Context, id int) error
	Summaries(ctx context.Context, ids []int) (map[int]store.UserSummary, error)

	UpdateProfile(ctx context.Context, p recommend.Profile) (recommend.Profile, error)

	Connect(ctx context.Context, me, peer int, action store.Action) (store.Connection, error)
	Pair(ctx context.Context, a, b int) (store.Connection, error)
	Connections(ctx context.Context, me int) ([]int, error)
	Requests(ctx context.Context, me int) (incoming, outgoing []int, err error)

	SaveMessage(ctx context.Context, from, to int, body string) (store.Message, error)
	Messages(ctx context.Context, me, peer, limit int, before *time.Time) ([]store.Message, error)
	MarkRead(ctx context.Context, me, peer int) error
	ChatSummaries(ctx context.Context, me int) ([]store.ChatSummary, error)
}

var (
	_ Store = (*store.Postgres)(nil)
	_ Store = (*store.Memory)(nil)
)

// openStore connects the configured backend. The returned close function
// is never nil.
func openStore(ctx context.Context, cfg Config, logger zerolog.Logger) (Store, func() error, error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn().Msg("using in-memory store, data is lost on exit")
		return store.NewMemory(), func() error { return nil }, nil
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pg := store.NewPostgres(db, logger)
	if cfg.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("database schema applied")
	}
	logger.Info().Msg("database connection established")
	return pg, db.Close, nil
}
