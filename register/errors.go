package register

import (
	"errors"
	"fmt"
)

var (
	// ErrPartialMove is returned when some records of a group could not be moved.
	// It is not fatal: the records that moved stay moved.
	ErrPartialMove = errors.New("incargo: partial move")

	// ErrOutsideRoot is returned for paths that do not lie below the register root.
	ErrOutsideRoot = errors.New("incargo: path outside register root")

	// ErrNotRecord is returned when a path holds a folder or a non-record object
	// where a single record was expected.
	ErrNotRecord = errors.New("incargo: not a record")

	// ErrRecordMismatch is returned when the record stored at a path no longer
	// belongs to the container it was loaded for.
	ErrRecordMismatch = errors.New("incargo: stored record does not match")
)

// PartialMoveError reports the outcome of a group move with failures.
type PartialMoveError struct {
	Succeeded int
	Failed    int
	Failures  []MoveFailure
}

func (e *PartialMoveError) Error() string {
	return fmt.Sprintf("incargo: moved %d of %d records, %d failed",
		e.Succeeded, e.Succeeded+e.Failed, e.Failed)
}

// Is reports whether target is ErrPartialMove.
func (e *PartialMoveError) Is(target error) bool {
	return target == ErrPartialMove
}

// Unwrap returns the per-record causes.
func (e *PartialMoveError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
