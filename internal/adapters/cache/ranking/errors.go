package ranking

import "errors"

var (
	// ErrNotFound is returned when a leaderboard has no info record.
	ErrNotFound = errors.New("leaderboard not found in cache")
	// ErrCorruptInfo is returned when an info record cannot be decoded.
	ErrCorruptInfo = errors.New("corrupt leaderboard info")
	// ErrLockNotObtained is returned when the per-entry lock stays busy
	// past every retry.
	ErrLockNotObtained = errors.New("entry lock not obtained")
)
