package score

import "errors"

// Sentinel kinds for score encoding errors.
var (
	ErrNonInteger = errors.New("points must be an integer")
	ErrMalformed  = errors.New("malformed score key")
	ErrOutOfRange = errors.New("points out of encodable range")
)
