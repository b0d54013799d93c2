// Package repository is the durable system of record for leaderboards and
// their entries. The cache serves hot-path reads and writes; this store is
// consulted on cache miss, finalisation, payout and restore.
package repository

import (
	"context"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

// Repository stores leaderboards and entries durably.
//
// Entries are always returned in rank order: points desc, tie-breaker desc,
// user id desc, creation time asc.
type Repository interface {
	// GetInfo returns a leaderboard with its entry count.
	GetInfo(ctx context.Context, id string) (model.LeaderboardInfo, error)
	// List pages leaderboards by finalised flag, newest first.
	List(ctx context.Context, finalised bool, skip, take int) ([]model.LeaderboardInfo, int64, error)
	// Get returns entries in rank order. take <= 0 means all. Rank holds
	// the materialised rank and stays zero until UpdateRanks runs.
	Get(ctx context.Context, id string, skip, take int) ([]model.Entry, error)

	Add(ctx context.Context, info model.LeaderboardInfo) error
	Remove(ctx context.Context, id string) error
	// Reset zeroes every entry's scores with the given tie-breaker.
	Reset(ctx context.Context, id string, tieBreaker int64) error
	Finalise(ctx context.Context, id string) error
	// UpdateRanks stores each entry's position under the rank ordering.
	UpdateRanks(ctx context.Context, id string) error
	SetPayoutTime(ctx context.Context, id string, at time.Time) error

	// AddEntries inserts entries, leaving existing users untouched.
	AddEntries(ctx context.Context, id string, entries []model.Entry) error
	RemoveEntries(ctx context.Context, id string, userIDs []string) error
	// SaveEntries upserts the scores of entries.
	SaveEntries(ctx context.Context, id string, entries []model.Entry) error
}
