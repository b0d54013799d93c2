// Package dedupe records award idempotency keys so a retried request is
// applied at most once.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/podium/internal/adapters/cache/keys"
)

// DefaultTTL is how long a key is remembered when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Deduper tracks seen request keys per leaderboard in the cache. Keys
// expire after the TTL, so a retry after that window is applied again.
type Deduper struct {
	client redis.UniversalClient
	keys   keys.Resolver
	ttl    time.Duration
}

// New returns a Deduper. A non-positive ttl means DefaultTTL.
func New(client redis.UniversalClient, r keys.Resolver, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Deduper{client: client, keys: r, ttl: ttl}
}

// SeenAndRecord atomically checks if key was seen on the leaderboard and
// records it if not. It returns true when the key was already recorded.
func (d *Deduper) SeenAndRecord(ctx context.Context, id, key string) (bool, error) {
	fresh, err := d.client.SetNX(ctx, d.keys.Award(id, key), time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe.SeenAndRecord: %w", err)
	}
	return !fresh, nil
}

// Unrecord forgets key so a request that failed can be retried.
func (d *Deduper) Unrecord(ctx context.Context, id, key string) error {
	if err := d.client.Del(ctx, d.keys.Award(id, key)).Err(); err != nil {
		return fmt.Errorf("dedupe.Unrecord: %w", err)
	}
	return nil
}
