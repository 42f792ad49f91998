package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the backend is not initialised, closed or unreachable.
	// Callers must not fall back to stale data.
	ErrUnavailable = errors.New("incargo: store unavailable")

	// ErrNotFound is returned when nothing exists at a path that must exist.
	ErrNotFound = errors.New("incargo: path not found")

	// ErrAlreadyExists is returned by a conditional create when the path is taken.
	ErrAlreadyExists = errors.New("incargo: path already exists")

	// ErrInvalidPath is returned for paths with empty segments or reserved characters.
	ErrInvalidPath = errors.New("incargo: invalid path")

	// ErrEmptyValue is returned when a create has nothing to write.
	ErrEmptyValue = errors.New("incargo: empty value")
)

// unavailable wraps a backend failure so it matches ErrUnavailable.
// Context cancellation is passed through unchanged.
func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
