package rules

import "errors"

// Sentinel kinds for point configuration errors.
var (
	ErrInvalidConfig = errors.New("invalid point configuration")
	ErrNoRules       = errors.New("rule list is empty")
)
