package cargo

import (
	"errors"
	"strings"
)

// ErrMissingField is returned when a required record field is empty.
var ErrMissingField = errors.New("incargo: required field missing")

// MissingFieldError names every empty required field of a record.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "incargo: required field missing: " + strings.Join(e.Fields, ", ")
}

// Is reports whether target is ErrMissingField.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
