package repository

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/rules"
)

// Leaderboard is the durable leaderboard row.
type Leaderboard struct {
	bun.BaseModel `bun:"table:leaderboards,alias:l"`

	ID          string            `bun:"id,pk"`
	Type        string            `bun:"type,notnull"`
	PointConfig rules.PointConfig `bun:"point_config"`
	Prizes      []model.PrizeBand `bun:"prizes"`
	Finalised   bool              `bun:"finalised,notnull"`
	CreateTime  time.Time         `bun:"create_time,notnull"`
	PayoutTime  *time.Time        `bun:"payout_time,nullzero"`
}

// Entry is the durable entry row.
type Entry struct {
	bun.BaseModel `bun:"table:leaderboard_entries,alias:e"`

	LeaderboardID     string    `bun:"leaderboard_id,pk"`
	UserID            string    `bun:"user_id,pk"`
	Points            int64     `bun:"points,notnull"`
	TieBreaker        int64     `bun:"tie_breaker,notnull"`
	RunningPoints     int64     `bun:"running_points,notnull"`
	RunningTieBreaker int64     `bun:"running_tie_breaker,notnull"`
	Rank              int64     `bun:"rank,notnull"`
	CreatedAt         time.Time `bun:"created_at,notnull"`
}

func leaderboardRow(info model.LeaderboardInfo) *Leaderboard {
	return &Leaderboard{
		ID:          info.ID,
		Type:        info.Type,
		PointConfig: info.PointConfig,
		Prizes:      info.Prizes,
		Finalised:   info.Finalised,
		CreateTime:  info.CreateTime.UTC(),
		PayoutTime:  info.PayoutTime,
	}
}

func (l *Leaderboard) info(count int64) model.LeaderboardInfo {
	return model.LeaderboardInfo{
		ID:          l.ID,
		Type:        l.Type,
		PointConfig: l.PointConfig,
		Prizes:      l.Prizes,
		EntryCount:  count,
		Finalised:   l.Finalised,
		CreateTime:  l.CreateTime,
		PayoutTime:  l.PayoutTime,
	}
}

func entryRows(id string, entries []model.Entry, now time.Time) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{
			LeaderboardID:     id,
			UserID:            e.UserID,
			Points:            e.Points,
			TieBreaker:        e.TieBreaker,
			RunningPoints:     e.RunningPoints,
			RunningTieBreaker: e.RunningTieBreaker,
			CreatedAt:         now,
		}
	}
	return out
}

func (e Entry) entry() model.Entry {
	return model.Entry{
		UserID:            e.UserID,
		Rank:              e.Rank,
		Points:            e.Points,
		TieBreaker:        e.TieBreaker,
		RunningPoints:     e.RunningPoints,
		RunningTieBreaker: e.RunningTieBreaker,
	}
}
