// Package service orchestrates the ranking cache, the progress counters and
// the durable repository into the leaderboard operations exposed over HTTP.
//
// The cache is authoritative for every hot-path read and write while a
// leaderboard is active. The repository is consulted on cache miss,
// finalisation, payout and restore.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/podium/internal/adapters/cache/ranking"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

const (
	defaultPersistBatchSize = 500
	defaultRetention        = 72 * time.Hour
	defaultMaxPageSize      = 100
	defaultCountry          = "ZZ"
	anonymous               = "Anonymous"
)

// Service implements the leaderboard operations.
type Service struct {
	repo     repository.Repository
	ranking  Ranking
	progress Progress
	identity Identity
	notifier Notifier
	awarder  Awarder
	dedupe   Deduper

	persistBatchSize int
	retention        time.Duration
	maxPageSize      int
	defaultCountry   string

	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithIdentity sets the display profile resolver.
func WithIdentity(i Identity) Option {
	return func(s *Service) { s.identity = i }
}

// WithNotifier sets where point notifications are pushed.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithAwarder sets the prize awarder used by Payout.
func WithAwarder(a Awarder) Option {
	return func(s *Service) { s.awarder = a }
}

// WithDeduper enables idempotency keys on Award.
func WithDeduper(d Deduper) Option {
	return func(s *Service) { s.dedupe = d }
}

// WithPersistBatchSize sets how many entries are written to the repository
// per call when mirroring scores.
func WithPersistBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.persistBatchSize = n
		}
	}
}

// WithRetention sets how long a finalised leaderboard stays cached.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithMaxPageSize caps listing page sizes.
func WithMaxPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

// WithDefaultCountry sets the country shown for users without a profile.
func WithDefaultCountry(c string) Option {
	return func(s *Service) {
		if c != "" {
			s.defaultCountry = c
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service.
func New(repo repository.Repository, rank Ranking, progress Progress, opts ...Option) *Service {
	s := &Service{
		repo:             repo,
		ranking:          rank,
		progress:         progress,
		persistBatchSize: defaultPersistBatchSize,
		retention:        defaultRetention,
		maxPageSize:      defaultMaxPageSize,
		defaultCountry:   defaultCountry,
		now:              time.Now,
		logger:           logger.GetOrNop().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// info returns the leaderboard from the cache, falling back to the
// repository on a cache miss. cached reports where it came from.
func (s *Service) info(ctx context.Context, id string) (info model.LeaderboardInfo, cached bool, err error) {
	info, err = s.ranking.GetInfo(ctx, id)
	if err == nil {
		return info, true, nil
	}
	if !errors.Is(err, ranking.ErrNotFound) {
		return info, false, err
	}
	info, err = s.repo.GetInfo(ctx, id)
	return info, false, err
}

// live returns a cached leaderboard that still accepts changes.
func (s *Service) live(ctx context.Context, id string) (model.LeaderboardInfo, error) {
	info, cached, err := s.info(ctx, id)
	if err != nil {
		return info, err
	}
	if info.Finalised {
		return info, conflict("leaderboard %s is finalised", id)
	}
	if !cached {
		return info, &unavailableError{id: id}
	}
	return info, nil
}

// unavailableError reports an active leaderboard missing from the cache.
// It is resolved by RestoreCache.
type unavailableError struct{ id string }

func (e *unavailableError) Error() string {
	return "leaderboard " + e.id + " is not cached; restore it first"
}

func (e *unavailableError) Unwrap() error { return ErrUnavailable }

// persist mirrors entries into the repository in batches.
func (s *Service) persist(ctx context.Context, id string, entries []model.Entry) error {
	for start := 0; start < len(entries); start += s.persistBatchSize {
		end := min(start+s.persistBatchSize, len(entries))
		if err := s.repo.SaveEntries(ctx, id, entries[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) pageSize(size int) int {
	if size <= 0 || size > s.maxPageSize {
		return s.maxPageSize
	}
	return size
}
