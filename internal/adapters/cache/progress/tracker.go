// Package progress keeps per-user event counters of a leaderboard in Redis
// hashes, one hash per event keyed by user id.
package progress

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/podium/internal/adapters/cache/keys"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/rules"
	"github.com/okian/podium/pkg/logger"
)

// Notifier receives progress updates. Publishing must not block.
type Notifier interface {
	Publish(ctx context.Context, n model.Notification) error
}

// Tracker reads and writes progress counters.
type Tracker struct {
	client   redis.UniversalClient
	keys     keys.Resolver
	notifier Notifier
	now      func() time.Time
	logger   logger.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithKeys sets the key resolver.
func WithKeys(r keys.Resolver) Option {
	return func(t *Tracker) { t.keys = r }
}

// WithNotifier sets where progress updates are pushed.
func WithNotifier(n Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Tracker over client.
func New(client redis.UniversalClient, opts ...Option) *Tracker {
	t := &Tracker{
		client: client,
		keys:   keys.New(""),
		now:    time.Now,
		logger: logger.GetOrNop().Named("progress"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Increment bumps the user's counter for eventName and then zeroes the
// counters named in resets. The two steps are not atomic. It returns the
// count right after the increment.
func (t *Tracker) Increment(ctx context.Context, id, userID, eventName string, resets []string) (int64, error) {
	count, err := t.client.HIncrBy(ctx, t.keys.Event(id, eventName), userID, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("progress.Increment: %w", err)
	}
	counts := map[string]int64{eventName: count}
	if len(resets) > 0 {
		if err := t.zero(ctx, id, userID, resets); err != nil {
			return 0, fmt.Errorf("progress.Increment: %w", err)
		}
		for _, r := range resets {
			counts[r] = 0
		}
	}
	t.notify(ctx, id, userID, counts)
	return count, nil
}

// Counts reads the user's counters for the named events. Missing counters
// read as zero.
func (t *Tracker) Counts(ctx context.Context, id, userID string, events []string) (map[string]int64, error) {
	out := make(map[string]int64, len(events))
	if len(events) == 0 {
		return out, nil
	}
	cmds := make([]*redis.StringCmd, len(events))
	_, err := t.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, name := range events {
			cmds[i] = p.HGet(ctx, t.keys.Event(id, name), userID)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("progress.Counts: %w", err)
	}
	for i, name := range events {
		n, err := cmds[i].Int64()
		switch {
		case errors.Is(err, redis.Nil):
			n = 0
		case err != nil:
			return nil, fmt.Errorf("progress.Counts: %w", err)
		}
		out[name] = n
	}
	return out, nil
}

// Get reports the user's progress against every configured event that
// declares milestones. With eventName set, only that event is reported,
// unless it resets itself. Events without milestones are omitted.
func (t *Tracker) Get(ctx context.Context, id, userID string, cfg rules.PointConfig, eventName string) ([]model.Progress, error) {
	events := cfg.Events()
	if eventName != "" {
		ec, ok := cfg.Event(eventName)
		if !ok {
			return []model.Progress{}, nil
		}
		events = exclude([]string{eventName}, ec.Resets)
	}

	type tracked struct {
		name       string
		milestones []int64
	}
	var wanted []tracked
	names := make([]string, 0, len(events))
	for _, name := range events {
		ms := rules.Milestones(cfg[name].Rules)
		if len(ms) == 0 {
			continue
		}
		wanted = append(wanted, tracked{name: name, milestones: ms})
		names = append(names, name)
	}

	counts, err := t.Counts(ctx, id, userID, names)
	if err != nil {
		return nil, err
	}
	out := make([]model.Progress, 0, len(wanted))
	for _, w := range wanted {
		p := model.Progress{EventName: w.name, Count: counts[w.name], Milestones: make([]model.Milestone, len(w.milestones))}
		for i, m := range w.milestones {
			p.Milestones[i] = model.Milestone{Count: m, Reached: p.Count >= m}
		}
		out = append(out, p)
	}
	return out, nil
}

// Reset zeroes every counter the user has on the leaderboard.
func (t *Tracker) Reset(ctx context.Context, id, userID string) error {
	events, err := t.client.SMembers(ctx, t.keys.For(id).Events).Result()
	if err != nil {
		return fmt.Errorf("progress.Reset: %w", err)
	}
	if len(events) == 0 {
		return nil
	}
	if err := t.zero(ctx, id, userID, events); err != nil {
		return fmt.Errorf("progress.Reset: %w", err)
	}
	counts := make(map[string]int64, len(events))
	for _, e := range events {
		counts[e] = 0
	}
	t.notify(ctx, id, userID, counts)
	return nil
}

func (t *Tracker) zero(ctx context.Context, id, userID string, events []string) error {
	_, err := t.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range t.keys.Events(id, events) {
			p.HSet(ctx, k, userID, 0)
		}
		return nil
	})
	return err
}

func (t *Tracker) notify(ctx context.Context, id, userID string, counts map[string]int64) {
	if t.notifier == nil {
		return
	}
	err := t.notifier.Publish(ctx, model.Notification{
		ID:            uuid.NewString(),
		Kind:          model.NotifyProgress,
		LeaderboardID: id,
		UserID:        userID,
		Counts:        counts,
		CreatedAt:     t.now(),
	})
	if err != nil {
		t.logger.Warn(ctx, "progress notification dropped",
			logger.String("leaderboard", id), logger.String("user", userID), logger.Error(err))
	}
}

func exclude(names, drop []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(drop, n) {
			out = append(out, n)
		}
	}
	return out
}
