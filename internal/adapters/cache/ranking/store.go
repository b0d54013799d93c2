// Package ranking keeps live leaderboard rankings in Redis sorted sets.
//
// Each leaderboard has a high-water set (the ranked score), a running set
// (the live score since the last reset), a set of event names, and a
// heartbeat hash. Scores are encoded with package score so that points and
// tie-breaker sort as one value.
package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/okian/podium/internal/adapters/cache/keys"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/score"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const (
	defaultLockTTL          = 5 * time.Second
	defaultLockRetries      = 40
	defaultLockRetryBackoff = 25 * time.Millisecond
	defaultActiveWindow     = 2 * time.Minute
	defaultConcurrency      = 8
)

// Store is the Redis-backed ranking store. It is safe for concurrent use.
type Store struct {
	client redis.UniversalClient
	keys   keys.Resolver
	locker *redislock.Client

	lockTTL      time.Duration
	lockRetries  int
	lockBackoff  time.Duration
	activeWindow time.Duration
	concurrency  int

	now    func() time.Time
	logger logger.Logger
}

// New creates a Store over client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client:       client,
		keys:         keys.New(""),
		locker:       redislock.New(client),
		lockTTL:      defaultLockTTL,
		lockRetries:  defaultLockRetries,
		lockBackoff:  defaultLockRetryBackoff,
		activeWindow: defaultActiveWindow,
		concurrency:  defaultConcurrency,
		now:          time.Now,
		logger:       logger.GetOrNop().Named("ranking"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys exposes the resolver the store was built with.
func (s *Store) Keys() keys.Resolver { return s.keys }

// AddToIndex lists a leaderboard as active, ordered by creation time.
func (s *Store) AddToIndex(ctx context.Context, id string, created time.Time) error {
	err := s.client.ZAddNX(ctx, s.keys.Index(), redis.Z{Score: float64(created.UnixMilli()), Member: id}).Err()
	if err != nil {
		return fmt.Errorf("ranking.AddToIndex: %w", err)
	}
	return nil
}

// RemoveFromIndex drops a leaderboard from the active list.
func (s *Store) RemoveFromIndex(ctx context.Context, id string) error {
	if err := s.client.ZRem(ctx, s.keys.Index(), id).Err(); err != nil {
		return fmt.Errorf("ranking.RemoveFromIndex: %w", err)
	}
	return nil
}

// GetActivePage returns one page of active leaderboards. Index ids whose
// info record has disappeared are pruned before paging, so Total reflects
// the surviving ids. Pages are 1-based.
func (s *Store) GetActivePage(ctx context.Context, page, size int) (model.Page[model.LeaderboardInfo], error) {
	if page < 1 {
		page = 1
	}
	out := model.Page[model.LeaderboardInfo]{Page: page, PageSize: size, Items: []model.LeaderboardInfo{}}

	ids, err := s.client.ZRange(ctx, s.keys.Index(), 0, -1).Result()
	if err != nil {
		return out, fmt.Errorf("ranking.GetActivePage: %w", err)
	}
	if len(ids) == 0 {
		return out, nil
	}

	exists := make([]*redis.IntCmd, len(ids))
	if _, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			exists[i] = p.Exists(ctx, s.keys.For(id).Info)
		}
		return nil
	}); err != nil {
		return out, fmt.Errorf("ranking.GetActivePage: %w", err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, id := range ids {
		if exists[i].Val() == 0 {
			stale = append(stale, id)
			continue
		}
		live = append(live, id)
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.keys.Index(), stale...).Err(); err != nil {
			s.logger.Warn(ctx, "failed to prune stale index ids", logger.Int("stale", len(stale)), logger.Error(err))
		} else {
			metrics.RecordIndexEviction(len(stale))
			s.logger.Info(ctx, "pruned stale index ids", logger.Int("stale", len(stale)))
		}
	}
	out.Total = int64(len(live))

	start := (page - 1) * size
	if size <= 0 || start >= len(live) {
		return out, nil
	}
	end := min(start+size, len(live))
	slice := live[start:end]

	infos := make([]*redis.StringCmd, len(slice))
	counts := make([]*redis.IntCmd, len(slice))
	if _, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range slice {
			set := s.keys.For(id)
			infos[i] = p.Get(ctx, set.Info)
			counts[i] = p.ZCard(ctx, set.Entries)
		}
		return nil
	}); err != nil && !errors.Is(err, redis.Nil) {
		return out, fmt.Errorf("ranking.GetActivePage: %w", err)
	}
	for i := range slice {
		raw, err := infos[i].Bytes()
		if errors.Is(err, redis.Nil) {
			// Removed between the existence check and the read.
			continue
		}
		if err != nil {
			return out, fmt.Errorf("ranking.GetActivePage: %w", err)
		}
		info, err := decodeInfo(raw)
		if err != nil {
			return out, fmt.Errorf("ranking.GetActivePage: %w", err)
		}
		info.EntryCount = counts[i].Val()
		out.Items = append(out.Items, info)
	}
	return out, nil
}

// GetInfo reads a leaderboard's metadata with its live entry count.
func (s *Store) GetInfo(ctx context.Context, id string) (model.LeaderboardInfo, error) {
	set := s.keys.For(id)
	var (
		get  *redis.StringCmd
		card *redis.IntCmd
	)
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, set.Info)
		card = p.ZCard(ctx, set.Entries)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return model.LeaderboardInfo{}, fmt.Errorf("ranking.GetInfo: %w", err)
	}
	raw, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return model.LeaderboardInfo{}, fmt.Errorf("ranking.GetInfo %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.LeaderboardInfo{}, fmt.Errorf("ranking.GetInfo: %w", err)
	}
	info, err := decodeInfo(raw)
	if err != nil {
		return model.LeaderboardInfo{}, fmt.Errorf("ranking.GetInfo: %w", err)
	}
	info.EntryCount = card.Val()
	return info, nil
}

// Store writes a leaderboard's metadata, keeping any expiry already set.
func (s *Store) Store(ctx context.Context, info model.LeaderboardInfo) error {
	info.EntryCount = 0
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("ranking.Store: %w", err)
	}
	if err := s.client.Set(ctx, s.keys.For(info.ID).Info, raw, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("ranking.Store: %w", err)
	}
	return nil
}

// Count returns the number of entries on a leaderboard.
func (s *Store) Count(ctx context.Context, id string) (int64, error) {
	n, err := s.client.ZCard(ctx, s.keys.For(id).Entries).Result()
	if err != nil {
		return 0, fmt.Errorf("ranking.Count: %w", err)
	}
	return n, nil
}

// RegisterEvent records an event name as seen on the leaderboard.
func (s *Store) RegisterEvent(ctx context.Context, id, eventName string) error {
	if err := s.client.SAdd(ctx, s.keys.For(id).Events, eventName).Err(); err != nil {
		return fmt.Errorf("ranking.RegisterEvent: %w", err)
	}
	return nil
}

// KnownEvents lists every event name recorded for the leaderboard.
func (s *Store) KnownEvents(ctx context.Context, id string) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.keys.For(id).Events).Result()
	if err != nil {
		return nil, fmt.Errorf("ranking.KnownEvents: %w", err)
	}
	return names, nil
}

// Expire sets one expiry on every key of the leaderboard, including the
// progress key of each known event.
func (s *Store) Expire(ctx context.Context, id string, at time.Time) error {
	events, err := s.KnownEvents(ctx, id)
	if err != nil {
		return err
	}
	all := append(s.keys.For(id).All(), s.keys.Events(id, events)...)
	if _, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range all {
			p.ExpireAt(ctx, k, at)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("ranking.Expire: %w", err)
	}
	return nil
}

// Purge deletes every key of the leaderboard and drops it from the index.
func (s *Store) Purge(ctx context.Context, id string) error {
	events, err := s.KnownEvents(ctx, id)
	if err != nil {
		return err
	}
	all := append(s.keys.For(id).All(), s.keys.Events(id, events)...)
	if _, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, all...)
		p.ZRem(ctx, s.keys.Index(), id)
		return nil
	}); err != nil {
		return fmt.Errorf("ranking.Purge: %w", err)
	}
	return nil
}

// UpdateActive stamps the current time as the heartbeat of each user.
func (s *Store) UpdateActive(ctx context.Context, id string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	now := strconv.FormatInt(s.now().Unix(), 10)
	values := make([]any, 0, len(userIDs)*2)
	for _, u := range userIDs {
		values = append(values, u, now)
	}
	if err := s.client.HSet(ctx, s.keys.For(id).Active, values...).Err(); err != nil {
		return fmt.Errorf("ranking.UpdateActive: %w", err)
	}
	return nil
}

// Hydrate fills the running score and active flag of entries read from the
// high-water set.
func (s *Store) Hydrate(ctx context.Context, id string, entries []model.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	set := s.keys.For(id)
	users := make([]string, len(entries))
	running := make([]*redis.FloatCmd, len(entries))
	var beats *redis.SliceCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, e := range entries {
			users[i] = e.UserID
			running[i] = p.ZScore(ctx, set.Running, e.UserID)
		}
		beats = p.HMGet(ctx, set.Active, users...)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("ranking.Hydrate: %w", err)
	}

	cutoff := s.now().Add(-s.activeWindow).Unix()
	stamps := beats.Val()
	for i := range entries {
		e := &entries[i]
		if f, err := running[i].Result(); err == nil {
			if e.RunningPoints, e.RunningTieBreaker, err = score.ParseFloat(f); err != nil {
				return fmt.Errorf("ranking.Hydrate: %w", err)
			}
		} else {
			e.RunningPoints, e.RunningTieBreaker = e.Points, e.TieBreaker
		}
		if i < len(stamps) {
			if raw, ok := stamps[i].(string); ok {
				if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
					e.Active = ts >= cutoff
				}
			}
		}
	}
	return nil
}

func decodeInfo(raw []byte) (model.LeaderboardInfo, error) {
	var info model.LeaderboardInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return info, fmt.Errorf("%w: %v", ErrCorruptInfo, err)
	}
	return info, nil
}
