package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jacentio/incargo/internal/keypath"
)

// RecordStore is the narrow contract the register needs from a tree store.
type RecordStore interface {
	// ReadSubtree returns the nested object rooted at path as of one point in time.
	// A missing path yields a snapshot whose Exists reports false.
	ReadSubtree(ctx context.Context, path string) (Snapshot, error)

	// WriteAt replaces everything at path with value. A nil value removes the path.
	WriteAt(ctx context.Context, path string, value map[string]any) error
}

// Creator is implemented by backends with a native conditional write.
type Creator interface {
	// CreateAt writes value at path only if nothing exists there yet.
	// It returns ErrAlreadyExists otherwise.
	CreateAt(ctx context.Context, path string, value map[string]any) error
}

// Snapshot is the result of a subtree read.
type Snapshot struct {
	Path  string
	Value map[string]any
}

// Exists reports whether anything was found at the path.
func (s Snapshot) Exists() bool {
	return len(s.Value) > 0
}

// Child returns the object stored under key, if any.
func (s Snapshot) Child(key string) (map[string]any, bool) {
	v, ok := s.Value[key].(map[string]any)
	return v, ok
}

// Has reports whether key is present directly below the snapshot root.
func (s Snapshot) Has(key string) bool {
	_, ok := s.Value[key]
	return ok
}

// Delete removes whatever is stored at path.
func Delete(ctx context.Context, rs RecordStore, path string) error {
	return rs.WriteAt(ctx, path, nil)
}

// ValidatePath checks that path is a usable store address and returns it in
// canonical form, without leading or trailing slashes.
// The empty path addresses the store root.
func ValidatePath(path string) (string, error) {
	trimmed := strings.Trim(path, keypath.Separator)
	if trimmed == "" {
		return "", nil
	}
	for _, seg := range strings.Split(trimmed, keypath.Separator) {
		if seg == "" {
			return "", fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
		if strings.ContainsAny(seg, ".#$[]") {
			return "", fmt.Errorf("%w: reserved character in %q", ErrInvalidPath, path)
		}
	}
	return trimmed, nil
}
