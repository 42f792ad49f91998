package register

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jacentio/incargo/cargo"
	"github.com/jacentio/incargo/internal/keypath"
	"github.com/jacentio/incargo/store"
)

// KeyComposer derives record keys and places records in the store without
// overwriting a record that already holds the same key.
type KeyComposer struct {
	store  store.RecordStore
	now    func() time.Time
	logger *slog.Logger
}

// NewKeyComposer creates a key composer over rs.
func NewKeyComposer(rs store.RecordStore, cfg Config, logger *slog.Logger) *KeyComposer {
	cfg.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyComposer{store: rs, now: cfg.Now, logger: logger}
}

// Compose returns the canonical key of r. Every required field must be
// non-empty both as written and after sanitising.
func (k *KeyComposer) Compose(r cargo.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{cargo.FieldBL, keypath.Sanitize(r.BL)},
		{cargo.FieldDescription, keypath.SanitizeDescription(r.Description)},
		{cargo.FieldCount, keypath.Sanitize(r.Count)},
		{cargo.FieldContainer, keypath.Sanitize(r.Container)},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "", &cargo.MissingFieldError{Fields: missing}
	}
	return keypath.Compose(r.BL, r.Description, r.Count, r.Container), nil
}

// Place writes r at dir/key and returns the path it landed on. When the key
// is taken, the collision suffix is appended once.
//
// With a store that supports conditional creates the check and the write are
// one step. Otherwise the directory is read first and the write follows; a
// writer that lands in between is overwritten.
func (k *KeyComposer) Place(ctx context.Context, dir, key string, r cargo.Record) (string, error) {
	return k.place(ctx, dir, key, func(path string) map[string]any {
		r.RefValue = path
		return r.Fields()
	})
}

// place writes the object build returns for the final path.
func (k *KeyComposer) place(ctx context.Context, dir, key string, build func(path string) map[string]any) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("place: %w: empty key", store.ErrInvalidPath)
	}
	if c, ok := k.store.(store.Creator); ok {
		return k.create(ctx, c, dir, key, build)
	}

	snap, err := k.store.ReadSubtree(ctx, dir)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", dir, err)
	}
	if snap.Has(key) {
		key = keypath.Disambiguate(key, k.now())
		k.logger.Info("key collision, using suffix", "dir", dir, "key", key)
	}
	path := keypath.Join(dir, key)
	if err := k.store.WriteAt(ctx, path, build(path)); err != nil {
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return path, nil
}

func (k *KeyComposer) create(ctx context.Context, c store.Creator, dir, key string, build func(string) map[string]any) (string, error) {
	path := keypath.Join(dir, key)
	err := c.CreateAt(ctx, path, build(path))
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, store.ErrAlreadyExists) {
		return "", fmt.Errorf("create %q: %w", path, err)
	}

	path = keypath.Join(dir, keypath.Disambiguate(key, k.now()))
	k.logger.Info("key collision, using suffix", "dir", dir, "key", keypath.Base(path))
	if err := c.CreateAt(ctx, path, build(path)); err != nil {
		return "", fmt.Errorf("create %q: %w", path, err)
	}
	return path, nil
}
