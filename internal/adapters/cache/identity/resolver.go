// Package identity resolves user ids to display profiles stored in a Redis hash.
package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/podium/internal/adapters/cache/keys"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// Resolver reads and writes display profiles.
type Resolver struct {
	client redis.UniversalClient
	key    string
	logger logger.Logger
}

// New creates a Resolver storing profiles under the resolver's profile key.
func New(client redis.UniversalClient, r keys.Resolver) *Resolver {
	return &Resolver{
		client: client,
		key:    r.Profiles(),
		logger: logger.GetOrNop().Named("identity"),
	}
}

// Resolve returns the profiles found for userIDs. Users without a profile,
// or with an unreadable one, are left out of the map.
func (r *Resolver) Resolve(ctx context.Context, userIDs []string) (map[string]model.Profile, error) {
	out := make(map[string]model.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	vals, err := r.client.HMGet(ctx, r.key, userIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("identity.Resolve: %w", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p model.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			r.logger.Warn(ctx, "skipping unreadable profile", logger.String("user", userIDs[i]), logger.Error(err))
			continue
		}
		out[userIDs[i]] = p
	}
	return out, nil
}

// Put stores a user's profile.
func (r *Resolver) Put(ctx context.Context, userID string, p model.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("identity.Put: %w", err)
	}
	if err := r.client.HSet(ctx, r.key, userID, raw).Err(); err != nil {
		return fmt.Errorf("identity.Put: %w", err)
	}
	return nil
}
