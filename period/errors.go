package period

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPeriod is returned for a period name Resolve does not know.
	ErrUnknownPeriod = errors.New("incargo: unknown period")

	// ErrInvalidDate is returned when a date is not a valid yyyy-mm-dd calendar date.
	ErrInvalidDate = errors.New("incargo: invalid date")

	// ErrUnknownWeekday is returned for an unrecognised weekday name.
	ErrUnknownWeekday = errors.New("incargo: unknown weekday")

	// ErrInvalidRange is returned when a custom range starts after it ends.
	ErrInvalidRange = errors.New("incargo: invalid date range")
)

// InvalidRangeError reports a custom range whose start is after its end.
type InvalidRangeError struct {
	Start string
	End   string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("incargo: invalid date range: start %s is after end %s", e.Start, e.End)
}

// Is reports whether target is ErrInvalidRange.
func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}
