package testevents

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/rules"
	"github.com/okian/podium/pkg/logger"
)

// Run executes the complete load run: create a leaderboard, submit the
// generated awards concurrently, then verify the standings.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.GetOrNop().Named("testevents")
	c := newClient(cfg.BaseURL, cfg.Timeout)

	if cfg.LeaderboardID == "" {
		cfg.LeaderboardID = "load-" + uuid.NewString()[:8]
	}
	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("leaderboard", cfg.LeaderboardID),
		logger.Int("users", cfg.Users),
		logger.Int("events", cfg.Events),
		logger.Int("workers", cfg.Workers))

	if err := c.do(ctx, "GET", "/healthz", nil, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	w := Generate(cfg)
	stats.EventsGenerated = len(w.Events)

	board := model.NewLeaderboard{
		ID:   cfg.LeaderboardID,
		Type: "load",
		PointConfig: rules.PointConfig{
			scoreEvent: {Rules: []rules.Rule{{Points: rules.Input()}}},
		},
	}
	if err := c.do(ctx, "POST", "/leaderboards", board, nil); err != nil {
		return stats, fmt.Errorf("create leaderboard: %w", err)
	}

	if err := submit(ctx, c, cfg, w.Events, stats); err != nil {
		return stats, fmt.Errorf("event submission failed: %w", err)
	}

	var top []model.Entry
	path := fmt.Sprintf("%s?skip=0&take=%d", leaderboardPath(cfg.LeaderboardID, "entries"), cfg.TopN)
	if err := c.do(ctx, "GET", path, nil, &top); err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	if err := Verify(w.Expected, top, cfg.TopN); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}
	stats.EntriesVerified = len(top)

	if cfg.Finalise {
		if err := c.do(ctx, "POST", leaderboardPath(cfg.LeaderboardID, "finalise"), nil, nil); err != nil {
			return stats, fmt.Errorf("finalise: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// submit posts every event with at most cfg.Workers requests in flight.
// Failed awards are counted and make the run fail once all have been sent.
func submit(ctx context.Context, c *client, cfg *Config, events []Event, stats *Stats) error {
	var awarded, failed atomic.Int64
	path := leaderboardPath(cfg.LeaderboardID, "award")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, e := range events {
		g.Go(func() error {
			body := struct {
				Event
				CreateEntry bool `json:"createEntry"`
			}{Event: e, CreateEntry: true}
			var res model.AwardResult
			if err := c.do(gctx, "POST", path, body, &res); err != nil || !res.Awarded {
				failed.Add(1)
				return nil
			}
			awarded.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.EventsSubmitted = len(events)
	stats.EventsAwarded = int(awarded.Load())
	stats.EventsFailed = int(failed.Load())
	if stats.EventsFailed > 0 {
		return fmt.Errorf("%d of %d awards failed", stats.EventsFailed, len(events))
	}
	return ctx.Err()
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var eventsPerSecond float64
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsAwarded", stats.EventsAwarded),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("entriesVerified", stats.EntriesVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
