package ranking

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/score"
)

// Unbounded bounds for GetByScoreRange.
const (
	MinScore = "-inf"
	MaxScore = "+inf"
)

// GetRange returns entries from skip, best first. take <= 0 means all.
func (s *Store) GetRange(ctx context.Context, id string, skip, take int64) ([]model.Entry, error) {
	if skip < 0 {
		skip = 0
	}
	stop := int64(-1)
	if take > 0 {
		stop = skip + take - 1
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, s.keys.For(id).Entries, skip, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("ranking.GetRange: %w", err)
	}
	return toEntries(zs, skip+1)
}

// GetByRank returns entries ranked minRank..maxRank inclusive. Ranks are
// 1-based; maxRank <= 0 means no upper bound.
func (s *Store) GetByRank(ctx context.Context, id string, minRank, maxRank int64) ([]model.Entry, error) {
	if minRank < 1 {
		minRank = 1
	}
	stop := int64(-1)
	if maxRank > 0 {
		if maxRank < minRank {
			return []model.Entry{}, nil
		}
		stop = maxRank - 1
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, s.keys.For(id).Entries, minRank-1, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("ranking.GetByRank: %w", err)
	}
	return toEntries(zs, minRank)
}

// GetByScoreRange returns entries whose encoded score lies in [min, max],
// best first. Bounds use sorted-set syntax, so "(" makes a bound exclusive
// and MinScore/MaxScore leave a side open.
func (s *Store) GetByScoreRange(ctx context.Context, id, min, max string) ([]model.Entry, error) {
	key := s.keys.For(id).Entries
	zs, err := s.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{Min: min, Max: max}).Result()
	if err != nil {
		return nil, fmt.Errorf("ranking.GetByScoreRange: %w", err)
	}
	if len(zs) == 0 {
		return []model.Entry{}, nil
	}
	// A score range is contiguous in rank order, so one lookup ranks it all.
	first, err := s.client.ZRevRank(ctx, key, member(zs[0])).Result()
	if errors.Is(err, redis.Nil) {
		first = 0
	} else if err != nil {
		return nil, fmt.Errorf("ranking.GetByScoreRange: %w", err)
	}
	return toEntries(zs, first+1)
}

// GetAroundUser returns a window of 2*count+1 entries centred on the user.
// The window is shifted to stay inside the leaderboard and keeps its width
// when possible. It returns no entries when the user is absent.
func (s *Store) GetAroundUser(ctx context.Context, id, userID string, count int64) ([]model.Entry, error) {
	if count < 0 {
		count = 0
	}
	key := s.keys.For(id).Entries
	var (
		rank  *redis.IntCmd
		total *redis.IntCmd
	)
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		rank = p.ZRevRank(ctx, key, userID)
		total = p.ZCard(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("ranking.GetAroundUser: %w", err)
	}
	r, err := rank.Result()
	if errors.Is(err, redis.Nil) {
		return []model.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ranking.GetAroundUser: %w", err)
	}
	start, stop := window(r, count, total.Val())
	zs, err := s.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("ranking.GetAroundUser: %w", err)
	}
	return toEntries(zs, start+1)
}

// window computes the 0-based inclusive bounds of a 2*count+1 wide window
// around rank, clamped to [0, total).
func window(rank, count, total int64) (int64, int64) {
	width := 2*count + 1
	start := rank - count
	if start < 0 {
		start = 0
	}
	stop := start + width - 1
	if stop > total-1 {
		stop = total - 1
		start = max(0, stop-width+1)
	}
	return start, stop
}

// Rank returns a single user's entry. The bool is false when absent.
func (s *Store) Rank(ctx context.Context, id, userID string) (model.Entry, bool, error) {
	key := s.keys.For(id).Entries
	var (
		rank *redis.IntCmd
		sc   *redis.FloatCmd
	)
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		rank = p.ZRevRank(ctx, key, userID)
		sc = p.ZScore(ctx, key, userID)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return model.Entry{}, false, fmt.Errorf("ranking.Rank: %w", err)
	}
	r, rerr := rank.Result()
	f, ferr := sc.Result()
	if errors.Is(rerr, redis.Nil) || errors.Is(ferr, redis.Nil) {
		return model.Entry{}, false, nil
	}
	if rerr != nil || ferr != nil {
		return model.Entry{}, false, fmt.Errorf("ranking.Rank: %w", errors.Join(rerr, ferr))
	}
	pts, tb, err := score.ParseFloat(f)
	if err != nil {
		return model.Entry{}, false, fmt.Errorf("ranking.Rank: %w", err)
	}
	return model.Entry{UserID: userID, Rank: r + 1, Points: pts, TieBreaker: tb}, true, nil
}

// AddEntries adds entries to both score sets. Users already present keep
// their scores. It returns how many were new.
func (s *Store) AddEntries(ctx context.Context, id string, entries []model.Entry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	high, running, err := toZ(entries)
	if err != nil {
		return 0, fmt.Errorf("ranking.AddEntries: %w", err)
	}
	set := s.keys.For(id)
	var added *redis.IntCmd
	if _, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		added = p.ZAddNX(ctx, set.Entries, high...)
		p.ZAddNX(ctx, set.Running, running...)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("ranking.AddEntries: %w", err)
	}
	return added.Val(), nil
}

// StoreEntries writes entries to both score sets, overwriting any score.
func (s *Store) StoreEntries(ctx context.Context, id string, entries []model.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	high, running, err := toZ(entries)
	if err != nil {
		return fmt.Errorf("ranking.StoreEntries: %w", err)
	}
	set := s.keys.For(id)
	if _, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, set.Entries, high...)
		p.ZAdd(ctx, set.Running, running...)
		return nil
	}); err != nil {
		return fmt.Errorf("ranking.StoreEntries: %w", err)
	}
	return nil
}

// RemoveEntries removes users from both score sets, the heartbeat hash and
// every known progress counter.
func (s *Store) RemoveEntries(ctx context.Context, id string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	events, err := s.KnownEvents(ctx, id)
	if err != nil {
		return err
	}
	set := s.keys.For(id)
	members := make([]any, len(userIDs))
	for i, u := range userIDs {
		members[i] = u
	}
	if _, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, set.Entries, members...)
		p.ZRem(ctx, set.Running, members...)
		p.HDel(ctx, set.Active, userIDs...)
		for _, k := range s.keys.Events(id, events) {
			p.HDel(ctx, k, userIDs...)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("ranking.RemoveEntries: %w", err)
	}
	return nil
}

// ResetEntries zeroes every entry's high-water score with the given
// tie-breaker, drops running scores and clears progress counters.
func (s *Store) ResetEntries(ctx context.Context, id string, tieBreaker int64) error {
	set := s.keys.For(id)
	users, err := s.client.ZRange(ctx, set.Entries, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("ranking.ResetEntries: %w", err)
	}
	events, err := s.KnownEvents(ctx, id)
	if err != nil {
		return err
	}
	zero, err := score.Format(0, tieBreaker).Float()
	if err != nil {
		return fmt.Errorf("ranking.ResetEntries: %w", err)
	}
	if _, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		if len(users) > 0 {
			zs := make([]redis.Z, len(users))
			for i, u := range users {
				zs[i] = redis.Z{Score: zero, Member: u}
			}
			p.ZAdd(ctx, set.Entries, zs...)
		}
		p.Del(ctx, append([]string{set.Running}, s.keys.Events(id, events)...)...)
		return nil
	}); err != nil {
		return fmt.Errorf("ranking.ResetEntries: %w", err)
	}
	return nil
}

func toZ(entries []model.Entry) ([]redis.Z, []redis.Z, error) {
	high := make([]redis.Z, len(entries))
	running := make([]redis.Z, len(entries))
	for i, e := range entries {
		for _, p := range []int64{e.Points, e.RunningPoints} {
			if err := score.CheckRange(p); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", e.UserID, err)
			}
		}
		h, err := score.Format(e.Points, e.TieBreaker).Float()
		if err != nil {
			return nil, nil, err
		}
		r, err := score.Format(e.RunningPoints, e.RunningTieBreaker).Float()
		if err != nil {
			return nil, nil, err
		}
		high[i] = redis.Z{Score: h, Member: e.UserID}
		running[i] = redis.Z{Score: r, Member: e.UserID}
	}
	return high, running, nil
}

func toEntries(zs []redis.Z, firstRank int64) ([]model.Entry, error) {
	out := make([]model.Entry, len(zs))
	for i, z := range zs {
		pts, tb, err := score.ParseFloat(z.Score)
		if err != nil {
			return nil, err
		}
		out[i] = model.Entry{UserID: member(z), Rank: firstRank + int64(i), Points: pts, TieBreaker: tb}
	}
	return out, nil
}

func member(z redis.Z) string {
	if m, ok := z.Member.(string); ok {
		return m
	}
	return fmt.Sprint(z.Member)
}
