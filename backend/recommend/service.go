package recommend

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Repository,Observer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultLimit is how many recommendations a dashboard load shows.
	DefaultLimit = 5
	// DefaultPoolSize caps the candidate pool. Recommend is a full scan, so
	// this bound is what keeps a request cheap.
	DefaultPoolSize = 100
)

// ErrProfileNotFound is returned by a Repository when the requested user has
// no profile.
var ErrProfileNotFound = errors.New("profile not found")

// Repository is the profile source the Service reads from.
type Repository interface {
	// CurrentProfile returns the profile owned by userID or an error
	// wrapping ErrProfileNotFound.
	CurrentProfile(ctx context.Context, userID int) (Profile, error)
	// CandidatePool returns at most limit profiles in a stable order.
	CandidatePool(ctx context.Context, limit int) ([]Profile, error)
}

// Observer receives one callback per ForUser call.
type Observer interface {
	ObserveRecommendation(outcome string, poolSize int, elapsed time.Duration)
}

// Outcomes reported to the Observer.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

type nopObserver struct{}

func (nopObserver) ObserveRecommendation(string, int, time.Duration) {}

// Service loads profiles from a Repository and ranks them with Recommend.
type Service struct {
	repo     Repository
	limit    int
	poolSize int
	logger   zerolog.Logger
	observer Observer
}

// Option configures a Service.
type Option func(*Service)

// WithLimit sets the default number of results. Non-positive values are
// ignored.
func WithLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithPoolSize sets the candidate pool cap. Non-positive values are ignored.
func WithPoolSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.poolSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewService builds a Service over repo.
func NewService(repo Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("profile repository is required")
	}
	s := &Service{
		repo:     repo,
		limit:    DefaultLimit,
		poolSize: DefaultPoolSize,
		logger:   zerolog.Nop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Limit is the default result count.
func (s *Service) Limit() int { return s.limit }

// ForUser returns up to limit recommendations for userID. A non-positive
// limit means the service default. Repository failures are returned wrapped;
// the ranking itself cannot fail.
func (s *Service) ForUser(ctx context.Context, userID, limit int) ([]ScoredProfile, error) {
	start := time.Now()
	if limit <= 0 {
		limit = s.limit
	}

	current, err := s.repo.CurrentProfile(ctx, userID)
	if err != nil {
		outcome := OutcomeError
		if errors.Is(err, ErrProfileNotFound) {
			outcome = OutcomeNotFound
		}
		s.observer.ObserveRecommendation(outcome, 0, time.Since(start))
		return nil, fmt.Errorf("load current profile: %w", err)
	}

	pool, err := s.repo.CandidatePool(ctx, s.poolSize)
	if err != nil {
		s.observer.ObserveRecommendation(OutcomeError, 0, time.Since(start))
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}

	results := Recommend(current, pool, limit)
	s.observer.ObserveRecommendation(OutcomeOK, len(pool), time.Since(start))
	s.logger.Debug().
		Int("user_id", userID).
		Int("pool", len(pool)).
		Int("results", len(results)).
		Msg("recommendations computed")
	return results, nil
}
