package cargo

import (
	"time"

	"github.com/jacentio/incargo/internal/keypath"
)

// UnknownDate is the sort date of records with no usable date.
const UnknownDate = "1900-01-01"

// Entry is a record together with the path it was found at.
type Entry struct {
	Path   string
	Key    string
	Record Record
}

// NewEntry builds an entry for a record found at path.
func NewEntry(path string, r Record) Entry {
	return Entry{Path: path, Key: keypath.Base(path), Record: r}
}

// Ref returns the path the record claims to live at, falling back to where it was found.
func (e Entry) Ref() string {
	if e.Record.RefValue != "" {
		return e.Record.RefValue
	}
	return e.Path
}

// SortDate is the date used to order listings: the record date, else the
// yyyy/mm/dd found in the path, else UnknownDate.
func (e Entry) SortDate() string {
	if t, ok := e.Record.Day(); ok {
		return t.Format(time.DateOnly)
	}
	if d, ok := keypath.DateFromPath(e.Path); ok {
		return d
	}
	return UnknownDate
}
