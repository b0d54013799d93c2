package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrInvalidPrize = errors.New("invalid prize")
)
