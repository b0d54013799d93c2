package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound         = errors.New("leaderboard not found")
	ErrAlreadyExists    = errors.New("leaderboard already exists")
	ErrAlreadyFinalised = errors.New("leaderboard already finalised")
	ErrNotFinalised     = errors.New("leaderboard not finalised")
	ErrAlreadyPaid      = errors.New("leaderboard already paid out")
)
