package register

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jacentio/incargo/cargo"
	"github.com/jacentio/incargo/internal/keypath"
	"github.com/jacentio/incargo/period"
	"github.com/jacentio/incargo/store"
	"github.com/jacentio/incargo/tree"
)

// MoveFailure is a record of a group that could not be moved.
type MoveFailure struct {
	Entry cargo.Entry
	Err   error

	// Lost is set when the record was deleted at its old path and could be
	// written neither at the new path nor back at the old one.
	Lost bool
}

// MoveResult is the outcome of a group move. Records are moved one by one,
// so a result can be partial.
type MoveResult struct {
	Succeeded int
	Failed    int
	Moved     []cargo.Entry
	Failures  []MoveFailure
}

// Err returns a *PartialMoveError when any record failed, else nil.
func (r MoveResult) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return &PartialMoveError{Succeeded: r.Succeeded, Failed: r.Failed, Failures: r.Failures}
}

// String renders the result as "moved N of M".
func (r MoveResult) String() string {
	return fmt.Sprintf("moved %d of %d", r.Succeeded, r.Succeeded+r.Failed)
}

// Mover relocates container groups to another date.
type Mover struct {
	store  store.RecordStore
	keys   *KeyComposer
	root   string
	logger *slog.Logger
}

// NewMover creates a mover writing below cfg.Root.
func NewMover(rs store.RecordStore, cfg Config, logger *slog.Logger) *Mover {
	cfg.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Mover{
		store:  rs,
		keys:   NewKeyComposer(rs, cfg, logger),
		root:   cfg.Root,
		logger: logger,
	}
}

// MoveGroup moves every record of group to targetDate. Records are taken
// from the path they were found at and must still be leaves of the same
// container. For each record the old path is deleted first, then the record is written under the target
// date with its date and refValue updated. A record whose write fails is put
// back at its old path. Failures never stop the remaining records.
func (m *Mover) MoveGroup(ctx context.Context, group []cargo.Entry, targetDate string) MoveResult {
	var res MoveResult

	day, err := period.ParseDate(targetDate)
	if err != nil {
		for _, e := range group {
			res.fail(MoveFailure{Entry: e, Err: err})
		}
		return res
	}
	date := day.Format(time.DateOnly)

	for _, e := range group {
		moved, failure := m.moveOne(ctx, e, date)
		if failure != nil {
			m.logger.Warn("failed to move record",
				"path", e.Path,
				"container", e.Record.Container,
				"lost", failure.Lost,
				"error", failure.Err,
			)
			res.fail(*failure)
			continue
		}
		res.Succeeded++
		res.Moved = append(res.Moved, moved)
	}

	m.logger.Info("group move completed",
		"target", date,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
	)
	return res
}

func (m *Mover) moveOne(ctx context.Context, e cargo.Entry, date string) (cargo.Entry, *MoveFailure) {
	old, err := m.source(e)
	if err != nil {
		return cargo.Entry{}, &MoveFailure{Entry: e, Err: err}
	}
	snap, err := m.store.ReadSubtree(ctx, old)
	if err != nil {
		return cargo.Entry{}, &MoveFailure{Entry: e, Err: fmt.Errorf("read %q: %w", old, err)}
	}
	if !snap.Exists() {
		return cargo.Entry{}, &MoveFailure{Entry: e, Err: fmt.Errorf("%w: %q", store.ErrNotFound, old)}
	}
	if err := checkRecord(old, snap); err != nil {
		return cargo.Entry{}, &MoveFailure{Entry: e, Err: err}
	}
	if got := cargo.FromFields(snap.Value).Container; strings.TrimSpace(got) != strings.TrimSpace(e.Record.Container) {
		return cargo.Entry{}, &MoveFailure{Entry: e, Err: fmt.Errorf("%w: %q holds container %q, expected %q",
			ErrRecordMismatch, old, got, e.Record.Container)}
	}
	original := snap.Value

	if err := store.Delete(ctx, m.store, old); err != nil {
		return cargo.Entry{}, &MoveFailure{Entry: e, Err: fmt.Errorf("delete %q: %w", old, err)}
	}

	rec := cargo.FromFields(original)
	datePath, _ := keypath.DatePath(date)
	dir := keypath.Join(m.root, datePath, keypath.Segment(rec.Consignee))

	path, err := m.keys.place(ctx, dir, keypath.Base(old), func(path string) map[string]any {
		v := tree.Clone(original)
		v[cargo.FieldDate] = date
		v[cargo.FieldRefValue] = path
		return v
	})
	if err == nil {
		rec.Date = date
		rec.RefValue = path
		return cargo.NewEntry(path, rec), nil
	}

	failure := &MoveFailure{Entry: e, Err: err}
	if rerr := m.store.WriteAt(ctx, old, original); rerr != nil {
		failure.Lost = true
		failure.Err = fmt.Errorf("%w; restore %q: %w", err, old, rerr)
		m.logger.Error("failed to restore record after move failure",
			"path", old,
			"error", rerr,
		)
	}
	return cargo.Entry{}, failure
}

// source is the path a group entry is moved from: where the scan found it.
// The stored refValue is only a fallback for entries built without a path,
// since a drifted ref can point at another record or a whole folder.
func (m *Mover) source(e cargo.Entry) (string, error) {
	p := e.Path
	if p == "" {
		p = e.Record.RefValue
	}
	p, err := store.ValidatePath(p)
	if err != nil {
		return "", err
	}
	if p == m.root || !keypath.Within(p, m.root) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, p)
	}
	if e.Record.RefValue != "" && e.Record.RefValue != p {
		m.logger.Warn("record refValue differs from its path, moving from path",
			"path", p,
			"refValue", e.Record.RefValue,
		)
	}
	return p, nil
}

// checkRecord fails unless snap, read at path, is a single record leaf.
func checkRecord(path string, snap store.Snapshot) error {
	leaf, ok := tree.Classify(keypath.Dir(path), keypath.Base(path), snap.Value).(tree.Leaf)
	if !ok || !tree.IsRecord(leaf) {
		return fmt.Errorf("%w: %q", ErrNotRecord, path)
	}
	return nil
}

func (r *MoveResult) fail(f MoveFailure) {
	r.Failed++
	r.Failures = append(r.Failures, f)
}
