package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/sanskriti-setu/setu/backend/recommend"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("profile repository unavailable")

// BreakerConfig tunes the circuit breaker around the profile repository.
type BreakerConfig struct {
	Name string
	// ConsecutiveFailures opens the circuit.
	ConsecutiveFailures uint32
	// Timeout is how long the circuit stays open before a probe.
	Timeout time.Duration
	// HalfOpenRequests is how many probes may run at once when half open.
	HalfOpenRequests uint32
	// OnStateChange is called with the new state name after every
	// transition.
	OnStateChange func(name, state string)
}

// DefaultBreakerConfig opens after five failures in a row and probes again
// after thirty seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "profile-repository",
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// Breaker is a recommend.Repository that stops calling the wrapped one after
// repeated failures, so a sick database fails recommendation requests fast.
type Breaker struct {
	next recommend.Repository
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreaker wraps next. A missing profile and a cancelled request do not
// count as failures.
func NewBreaker(next recommend.Repository, cfg BreakerConfig, logger zerolog.Logger) *Breaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = DefaultBreakerConfig().ConsecutiveFailures
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, recommend.ErrProfileNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, to.String())
			}
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State is the current breaker state name: closed, half-open or open.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) execute(fn func() (any, error)) (any, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return v, err
}

// CurrentProfile implements recommend.Repository.
func (b *Breaker) CurrentProfile(ctx context.Context, userID int) (recommend.Profile, error) {
	v, err := b.execute(func() (any, error) {
		return b.next.CurrentProfile(ctx, userID)
	})
	if err != nil {
		return recommend.Profile{}, err
	}
	return v.(recommend.Profile), nil
}

// CandidatePool implements recommend.Repository.
func (b *Breaker) CandidatePool(ctx context.Context, limit int) ([]recommend.Profile, error) {
	v, err := b.execute(func() (any, error) {
		return b.next.CandidatePool(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return v.([]recommend.Profile), nil
}
