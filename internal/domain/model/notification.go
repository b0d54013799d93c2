package model

import "time"

// NotificationKind names what a notification carries.
type NotificationKind string

const (
	NotifyPoints   NotificationKind = "points"
	NotifyProgress NotificationKind = "progress"
)

// Notification is an outbound message for one user. Exactly one of Points
// or Counts is set, matching Kind.
type Notification struct {
	ID            string            `json:"id"`
	Kind          NotificationKind  `json:"kind"`
	LeaderboardID string            `json:"leaderboardId"`
	UserID        string            `json:"userId"`
	Points        *AdjustmentResult `json:"points,omitempty"`
	Counts        map[string]int64  `json:"counts,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
