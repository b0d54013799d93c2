// Package model contains the domain types passed between layers.
package model

import (
	"fmt"
	"time"

	"github.com/okian/podium/internal/domain/rules"
)

// LeaderboardInfo is the metadata record of a leaderboard.
type LeaderboardInfo struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	PointConfig rules.PointConfig `json:"pointConfig,omitempty"`
	Prizes      []PrizeBand       `json:"prizes,omitempty"`
	EntryCount  int64             `json:"entryCount"`
	Finalised   bool              `json:"finalised"`
	CreateTime  time.Time         `json:"createTime"`
	PayoutTime  *time.Time        `json:"payoutTime,omitempty"`
}

// State reports where the leaderboard is in its lifecycle.
func (i LeaderboardInfo) State() State {
	switch {
	case i.PayoutTime != nil:
		return StatePaidOut
	case i.Finalised:
		return StateFinalised
	default:
		return StateActive
	}
}

// State is a leaderboard lifecycle state. Transitions only move forward.
type State string

const (
	StateActive    State = "active"
	StateFinalised State = "finalised"
	StatePaidOut   State = "paid_out"
)

// NewLeaderboard is the input for creating a leaderboard.
type NewLeaderboard struct {
	ID          string            `json:"id,omitempty"`
	Type        string            `json:"type"`
	PointConfig rules.PointConfig `json:"pointConfig,omitempty"`
	Prizes      []PrizeBand       `json:"prizes,omitempty"`
}

// PrizeBand awards the same prizes to every rank in [MinRank, MaxRank].
type PrizeBand struct {
	MinRank int64  `json:"minRank"`
	MaxRank int64  `json:"maxRank"`
	Prizes  Prizes `json:"prizes"`
}

// Validate checks rank bounds and prize presence.
func (b PrizeBand) Validate() error {
	if b.MinRank < 1 || b.MaxRank < b.MinRank {
		return fmt.Errorf("%w: rank band [%d, %d]", ErrInvalidPrize, b.MinRank, b.MaxRank)
	}
	if len(b.Prizes) == 0 {
		return fmt.Errorf("%w: band [%d, %d] has no prizes", ErrInvalidPrize, b.MinRank, b.MaxRank)
	}
	for _, p := range b.Prizes {
		if err := p.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Page is one page of a listing.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}
