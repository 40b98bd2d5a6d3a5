package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sanskriti-setu/setu/backend/content"
	"github.com/sanskriti-setu/setu/backend/metrics"
	"github.com/sanskriti-setu/setu/backend/recommend"
	"github.com/sanskriti-setu/setu/backend/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "setu:", err)
		os.Exit(1)
	}
}

func newLogger(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	var logger zerolog.Logger
	if cfg.Development() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(cfg.LogLevel).With().Timestamp().Str("service", "setu").Logger()
}

func run() error {
	cfg, err := loadConfig(".env")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn().Err(err).Msg("close store")
		}
	}()

	catalog, err := content.Load()
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}

	m := metrics.New()
	breakerCfg := store.DefaultBreakerConfig()
	breakerCfg.OnStateChange = m.BreakerChanged
	svc, err := recommend.NewService(
		store.NewBreaker(st, breakerCfg, logger),
		recommend.WithLimit(cfg.RecommendLimit),
		recommend.WithPoolSize(cfg.RecommendPoolSize),
		recommend.WithLogger(logger.With().Str("component", "recommend").Logger()),
		recommend.WithObserver(m),
	)
	if err != nil {
		return err
	}

	hub := newHub(st, m, logger.With().Str("component", "chat").Logger())
	handler := newRouter(deps{
		logger:    logger,
		store:     st,
		auth:      newTokenAuth(cfg.JWTSecret, cfg.TokenTTL),
		recommend: svc,
		hub:       hub,
		catalog:   catalog,
		metrics:   m,
		validate:  newValidator(),
		upgrader:  newUpgrader(cfg.CORSOrigins),
		origins:   cfg.CORSOrigins,
		authRate:  20,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.Env).Msg("starting Sanskriti Setu backend")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		hub.closeAll()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
