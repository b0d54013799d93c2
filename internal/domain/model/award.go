package model

import "time"

// AwardOptions tune a single award call.
type AwardOptions struct {
	// CreateEntry adds the user to the leaderboard when missing.
	CreateEntry bool `json:"createEntry"`
	// Notify pushes a points notification to the user when points are awarded.
	Notify bool `json:"notify"`
	// At is the moment used for the tie-breaker; zero means now.
	At time.Time `json:"at,omitempty"`
	// IdempotencyKey makes retries of the same request apply at most once.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// AwardResult reports what an award did. Unmatched and zero-point awards
// are normal outcomes, not errors.
type AwardResult struct {
	Matched    bool              `json:"matched"`
	Awarded    bool              `json:"awarded"`
	Points     int64             `json:"points"`
	EventCount int64             `json:"eventCount"`
	Result     *AdjustmentResult `json:"result,omitempty"`
	// Duplicate is set when the idempotency key was already used.
	Duplicate bool `json:"duplicate,omitempty"`
}

// Progress is a user's counter for one event plus its milestones.
type Progress struct {
	EventName  string      `json:"eventName"`
	Count      int64       `json:"count"`
	Milestones []Milestone `json:"milestones"`
}

// Milestone is a trigger count declared by a rule.
type Milestone struct {
	Count   int64 `json:"count"`
	Reached bool  `json:"reached"`
}

// AwardRecord acknowledges a prize award request.
type AwardRecord struct {
	ID            string    `json:"id"`
	LeaderboardID string    `json:"leaderboardId"`
	UserID        string    `json:"userId"`
	Rank          int64     `json:"rank"`
	Prizes        Prizes    `json:"prizes"`
	Stream        string    `json:"stream,omitempty"`
	Sequence      uint64    `json:"sequence,omitempty"`
	Duplicate     bool      `json:"duplicate,omitempty"`
	IssuedAt      time.Time `json:"issuedAt"`
}
