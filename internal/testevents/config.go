// Package testevents drives a running podium server with generated award
// traffic and checks the resulting standings against locally computed totals.
package testevents

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL       string        // Base URL of the service
	LeaderboardID string        // Leaderboard to create; generated when empty
	Users         int           // Number of distinct users
	Events        int           // Number of award events to submit
	Workers       int           // Number of concurrent submitters
	TopN          int           // Number of top entries to verify
	Timeout       time.Duration // HTTP request timeout
	Seed          uint64        // Generator seed; 0 picks a random one
	Finalise      bool          // Finalise the leaderboard after verifying
}

// Event is one generated award.
type Event struct {
	UserID string `json:"userId"`
	Event  string `json:"event"`
	Input  int64  `json:"input"`
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated int
	EventsSubmitted int
	EventsAwarded   int
	EventsFailed    int
	EntriesVerified int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
