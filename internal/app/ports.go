package service

import (
	"context"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/rules"
)

// Ranking is the live ranking cache.
type Ranking interface {
	AddToIndex(ctx context.Context, id string, created time.Time) error
	RemoveFromIndex(ctx context.Context, id string) error
	GetActivePage(ctx context.Context, page, size int) (model.Page[model.LeaderboardInfo], error)
	GetInfo(ctx context.Context, id string) (model.LeaderboardInfo, error)
	Store(ctx context.Context, info model.LeaderboardInfo) error
	Count(ctx context.Context, id string) (int64, error)
	RegisterEvent(ctx context.Context, id, eventName string) error
	Expire(ctx context.Context, id string, at time.Time) error
	Purge(ctx context.Context, id string) error
	UpdateActive(ctx context.Context, id string, userIDs []string) error
	Hydrate(ctx context.Context, id string, entries []model.Entry) error

	GetRange(ctx context.Context, id string, skip, take int64) ([]model.Entry, error)
	GetByRank(ctx context.Context, id string, minRank, maxRank int64) ([]model.Entry, error)
	GetByScoreRange(ctx context.Context, id, min, max string) ([]model.Entry, error)
	GetAroundUser(ctx context.Context, id, userID string, count int64) ([]model.Entry, error)
	Rank(ctx context.Context, id, userID string) (model.Entry, bool, error)

	AddEntries(ctx context.Context, id string, entries []model.Entry) (int64, error)
	StoreEntries(ctx context.Context, id string, entries []model.Entry) error
	RemoveEntries(ctx context.Context, id string, userIDs []string) error
	ResetEntries(ctx context.Context, id string, tieBreaker int64) error
	AdjustPoints(ctx context.Context, id string, adjustments []model.Adjustment) ([]model.AdjustmentResult, error)
}

// Progress keeps per-user event counters.
type Progress interface {
	Increment(ctx context.Context, id, userID, eventName string, resets []string) (int64, error)
	Get(ctx context.Context, id, userID string, cfg rules.PointConfig, eventName string) ([]model.Progress, error)
	Reset(ctx context.Context, id, userID string) error
}

// Identity resolves display profiles. Missing users are absent from the map.
type Identity interface {
	Resolve(ctx context.Context, userIDs []string) (map[string]model.Profile, error)
}

// Notifier pushes notifications without blocking.
type Notifier interface {
	Publish(ctx context.Context, n model.Notification) error
}

// Awarder issues prize awards to winners.
type Awarder interface {
	Award(ctx context.Context, leaderboardID, userID string, rank int64, prizes model.Prizes) (model.AwardRecord, error)
}

// Deduper remembers award idempotency keys per leaderboard.
type Deduper interface {
	// SeenAndRecord records key and reports whether it was already present.
	SeenAndRecord(ctx context.Context, id, key string) (bool, error)
	Unrecord(ctx context.Context, id, key string) error
}
