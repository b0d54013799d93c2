package ranking

import (
	"time"

	"github.com/okian/podium/internal/adapters/cache/keys"
	"github.com/okian/podium/pkg/logger"
)

// Option configures a Store.
type Option func(*Store)

// WithKeys sets the key resolver.
func WithKeys(r keys.Resolver) Option {
	return func(s *Store) {
		s.keys = r
	}
}

// WithLockTTL sets the lease of the per-entry lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithLockRetries sets how often and how far apart lock acquisition is retried.
func WithLockRetries(n int, backoff time.Duration) Option {
	return func(s *Store) {
		if n >= 0 {
			s.lockRetries = n
		}
		if backoff > 0 {
			s.lockBackoff = backoff
		}
	}
}

// WithActiveWindow sets how recent a heartbeat must be for an entry to count as active.
func WithActiveWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.activeWindow = d
		}
	}
}

// WithConcurrency bounds how many adjustments of one batch run at once.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
