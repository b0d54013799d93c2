package model

// Entry is a user's standing on a leaderboard. Rank is 1-based and derived
// from the ordering, never stored in the cache.
type Entry struct {
	UserID            string `json:"userId"`
	Rank              int64  `json:"rank"`
	Points            int64  `json:"points"`
	TieBreaker        int64  `json:"tieBreaker"`
	RunningPoints     int64  `json:"runningPoints"`
	RunningTieBreaker int64  `json:"runningTieBreaker"`
	Active            bool   `json:"active"`
	Profile
}

// Profile is the display identity attached to an entry.
type Profile struct {
	DisplayName string `json:"displayName"`
	Country     string `json:"country"`
	Avatar      string `json:"avatar,omitempty"`
}

// ResetMode selects which scores an adjustment zeroes before applying its delta.
type ResetMode string

const (
	ResetNone    ResetMode = ""
	ResetAll     ResetMode = "all"
	ResetRunning ResetMode = "running"
)

// Valid reports whether the mode is known.
func (m ResetMode) Valid() bool {
	switch m {
	case ResetNone, ResetAll, ResetRunning:
		return true
	default:
		return false
	}
}

// Adjustment is one point change for one user. A nil TieBreaker means the
// tie-breaker for the current time.
type Adjustment struct {
	UserID     string    `json:"userId"`
	Points     int64     `json:"points"`
	TieBreaker *int64    `json:"tieBreaker,omitempty"`
	Reset      ResetMode `json:"reset,omitempty"`
}

// AdjustmentResult is the outcome of one adjustment.
type AdjustmentResult struct {
	UserID                string `json:"userId"`
	Rank                  int64  `json:"rank"`
	PrevPoints            int64  `json:"prevPoints"`
	Points                int64  `json:"points"`
	PrevTieBreaker        int64  `json:"prevTieBreaker"`
	TieBreaker            int64  `json:"tieBreaker"`
	PrevRunningPoints     int64  `json:"prevRunningPoints"`
	RunningPoints         int64  `json:"runningPoints"`
	PrevRunningTieBreaker int64  `json:"prevRunningTieBreaker"`
	RunningTieBreaker     int64  `json:"runningTieBreaker"`
}

// Entry projects the result onto the entry shape written to the durable store.
func (r AdjustmentResult) Entry() Entry {
	return Entry{
		UserID:            r.UserID,
		Rank:              r.Rank,
		Points:            r.Points,
		TieBreaker:        r.TieBreaker,
		RunningPoints:     r.RunningPoints,
		RunningTieBreaker: r.RunningTieBreaker,
	}
}

// KnockoutResult lists entries removed by a knockout and how many remain.
type KnockoutResult struct {
	Removed   []Entry `json:"removed"`
	Remaining int64   `json:"remaining"`
}
