package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/score"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// writeScores stores both scores of a member that still exists and returns
// its 0-based rank, or -1 when the member is gone.
//
// KEYS: entries, running. ARGV: member, high score, running score.
var writeScores = redis.NewScript(`
if redis.call('ZSCORE', KEYS[1], ARGV[1]) == false then
  return -1
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
return redis.call('ZREVRANK', KEYS[1], ARGV[1])
`)

type scorePair struct {
	points     int64
	tieBreaker int64
}

// AdjustPoints applies a batch of adjustments. Each adjustment runs under
// the lock of its entry; different users may be adjusted concurrently.
// Users absent from the leaderboard are skipped, so the result may be
// shorter than the batch. Results keep batch order.
func (s *Store) AdjustPoints(ctx context.Context, id string, adjustments []model.Adjustment) ([]model.AdjustmentResult, error) {
	results := make([]*model.AdjustmentResult, len(adjustments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, adj := range adjustments {
		g.Go(func() error {
			r, err := s.adjustOne(gctx, id, adj)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ranking.AdjustPoints: %w", err)
	}

	out := make([]model.AdjustmentResult, 0, len(adjustments))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *Store) adjustOne(ctx context.Context, id string, adj model.Adjustment) (*model.AdjustmentResult, error) {
	start := time.Now()
	defer func() { metrics.RecordAdjustLatency(metrics.Since(start)) }()

	lock, err := s.locker.Obtain(ctx, s.keys.Lock(id, adj.UserID), s.lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(s.lockBackoff), s.lockRetries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		metrics.RecordLockFailure()
		return nil, fmt.Errorf("%w: %s/%s", ErrLockNotObtained, id, adj.UserID)
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			s.logger.Warn(ctx, "failed to release entry lock",
				logger.String("leaderboard", id), logger.String("user", adj.UserID), logger.Error(err))
		}
	}()

	set := s.keys.For(id)
	var highCmd, runCmd *redis.FloatCmd
	if _, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		highCmd = p.ZScore(ctx, set.Entries, adj.UserID)
		runCmd = p.ZScore(ctx, set.Running, adj.UserID)
		return nil
	}); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	hf, err := highCmd.Result()
	if errors.Is(err, redis.Nil) {
		metrics.RecordPointAdjustment(false)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var high, run scorePair
	if high.points, high.tieBreaker, err = score.ParseFloat(hf); err != nil {
		return nil, err
	}
	run = high
	if rf, err := runCmd.Result(); err == nil {
		if run.points, run.tieBreaker, err = score.ParseFloat(rf); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	res := &model.AdjustmentResult{
		UserID:                adj.UserID,
		PrevPoints:            high.points,
		PrevTieBreaker:        high.tieBreaker,
		PrevRunningPoints:     run.points,
		PrevRunningTieBreaker: run.tieBreaker,
	}

	high, run = apply(high, run, adj, s.tieBreaker(adj))
	for _, p := range []int64{high.points, run.points} {
		if err := score.CheckRange(p); err != nil {
			metrics.RecordPointAdjustment(false)
			return nil, fmt.Errorf("%s/%s: %w", id, adj.UserID, err)
		}
	}

	rank, err := writeScores.Run(ctx, s.client, []string{set.Entries, set.Running},
		adj.UserID, score.Format(high.points, high.tieBreaker).String(), score.Format(run.points, run.tieBreaker).String(),
	).Int64()
	if err != nil {
		return nil, err
	}
	if rank < 0 {
		// Removed while we held the lock.
		metrics.RecordPointAdjustment(false)
		return nil, nil
	}

	res.Rank = rank + 1
	res.Points, res.TieBreaker = high.points, high.tieBreaker
	res.RunningPoints, res.RunningTieBreaker = run.points, run.tieBreaker
	metrics.RecordPointAdjustment(true)
	return res, nil
}

func (s *Store) tieBreaker(adj model.Adjustment) int64 {
	if adj.TieBreaker != nil {
		return *adj.TieBreaker
	}
	return score.TieBreaker(s.now())
}

// apply computes the new high-water and running scores. A reset of all
// scores happens before the delta; a running reset happens after the high
// has been promoted. The high score only moves when running strictly
// exceeds it, and a zero delta leaves running untouched.
func apply(high, run scorePair, adj model.Adjustment, tb int64) (scorePair, scorePair) {
	if adj.Reset == model.ResetAll {
		high = scorePair{0, tb}
		run = scorePair{0, tb}
	}
	if adj.Points != 0 {
		run = scorePair{run.points + adj.Points, tb}
	}
	if run.points > high.points {
		high = scorePair{run.points, tb}
	}
	if adj.Reset == model.ResetRunning {
		run = scorePair{0, tb}
	}
	return high, run
}
