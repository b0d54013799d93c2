package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/podium/internal/adapters/cache/ranking"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/rules"
	"github.com/okian/podium/internal/domain/score"
)

// Error kinds returned by the service. Errors from lower layers are wrapped
// so errors.Is matches both the kind and the original sentinel.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("unavailable")
)

// classify wraps err with its kind. Errors already carrying a kind and
// unknown errors keep their chain unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if kindOf(err) != nil {
		return fmt.Errorf("service.%s: %w", op, err)
	}
	var kind error
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ranking.ErrNotFound):
		kind = ErrNotFound
	case errors.Is(err, repository.ErrAlreadyExists),
		errors.Is(err, repository.ErrAlreadyFinalised),
		errors.Is(err, repository.ErrNotFinalised),
		errors.Is(err, repository.ErrAlreadyPaid):
		kind = ErrConflict
	case errors.Is(err, rules.ErrNoRules),
		errors.Is(err, rules.ErrInvalidConfig),
		errors.Is(err, score.ErrNonInteger),
		errors.Is(err, score.ErrOutOfRange),
		errors.Is(err, model.ErrInvalidPrize):
		kind = ErrValidation
	case errors.Is(err, ranking.ErrLockNotObtained),
		errors.Is(err, context.DeadlineExceeded):
		kind = ErrUnavailable
	default:
		return fmt.Errorf("service.%s: %w", op, err)
	}
	return fmt.Errorf("service.%s: %w: %w", op, kind, err)
}

// kindOf returns the service kind err carries, or nil.
func kindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrUnavailable} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
