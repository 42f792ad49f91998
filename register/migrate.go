package register

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jacentio/incargo/cargo"
	"github.com/jacentio/incargo/internal/keypath"
	"github.com/jacentio/incargo/period"
	"github.com/jacentio/incargo/store"
)

// MigrateOptions controls a migration run.
type MigrateOptions struct {
	// Since skips records dated before it (yyyy-mm-dd). Empty means no lower bound.
	Since string

	// RemoveSource deletes each source record after it was copied.
	RemoveSource bool

	// DryRun reports what would be copied without writing anything.
	DryRun bool
}

// Migration step actions.
const (
	ActionCopied     = "copied"
	ActionExists     = "exists"
	ActionInPlace    = "in-place"
	ActionUndated    = "undated"
	ActionTooOld     = "before-since"
	ActionInvalid    = "invalid"
	ActionFailed     = "failed"
	ActionPlanned    = "planned"
	ActionRemoved    = "removed"
	ActionKeptSource = "kept-source"
)

// MigrationStep is the log line of one record.
type MigrationStep struct {
	From   string
	To     string
	Action string
	Err    error
}

// MigrationReport summarises a migration run.
type MigrationReport struct {
	RunID     string
	StartedAt time.Time
	Copied    int
	Skipped   int
	Invalid   int
	Removed   int
	Failed    int
	Steps     []MigrationStep
}

// Migrate copies every dated record that is not yet in the canonical
// <date>/<consignee>/<key> layout to its canonical path. Records missing a
// required field are reported and left where they are.
func (s *Service) Migrate(ctx context.Context, opts MigrateOptions) (*MigrationReport, error) {
	var since string
	if opts.Since != "" {
		d, err := period.ParseDate(opts.Since)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		since = d.Format(time.DateOnly)
	}

	leaves, err := s.leaves(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	rep := &MigrationReport{RunID: uuid.NewString(), StartedAt: s.Now()}
	logger := s.logger.With("run", rep.RunID)
	logger.Info("migration started", "records", len(leaves), "since", since, "dryRun", opts.DryRun)

	var changed []string
	for _, l := range leaves {
		rec := cargo.FromFields(l.Data).Trimmed()
		step := MigrationStep{From: l.Path}

		day, ok := rec.Day()
		switch {
		case !ok:
			step.Action = ActionUndated
			rep.Skipped++
		case since != "" && day.Format(time.DateOnly) < since:
			step.Action = ActionTooOld
			rep.Skipped++
		}
		if step.Action != "" {
			rep.Steps = append(rep.Steps, step)
			continue
		}
		rec.Date = day.Format(time.DateOnly)

		key, err := s.keys.Compose(rec)
		if err != nil {
			step.Action, step.Err = ActionInvalid, err
			rep.Invalid++
			rep.Steps = append(rep.Steps, step)
			logger.Warn("skipping invalid record", "path", l.Path, "error", err)
			continue
		}

		dir := s.recordDir(rec.Date, rec.Consignee)
		if keypath.Dir(l.Path) == dir {
			step.Action = ActionInPlace
			rep.Skipped++
			rep.Steps = append(rep.Steps, step)
			continue
		}

		step.To = keypath.Join(dir, key)
		if opts.DryRun {
			step.Action = ActionPlanned
			rep.Steps = append(rep.Steps, step)
			continue
		}

		to, action, err := s.copyRecord(ctx, dir, key, rec)
		if err != nil {
			step.Action, step.Err = ActionFailed, err
			rep.Failed++
			rep.Steps = append(rep.Steps, step)
			logger.Warn("failed to copy record", "path", l.Path, "error", err)
			continue
		}
		step.To, step.Action = to, action
		if action == ActionCopied {
			rep.Copied++
			changed = append(changed, to)
		} else {
			rep.Skipped++
		}
		rep.Steps = append(rep.Steps, step)

		if !opts.RemoveSource {
			continue
		}
		if err := store.Delete(ctx, s.store, l.Path); err != nil {
			rep.Failed++
			rep.Steps = append(rep.Steps, MigrationStep{From: l.Path, Action: ActionKeptSource, Err: err})
			logger.Warn("failed to remove migrated source", "path", l.Path, "error", err)
			continue
		}
		rep.Removed++
		rep.Steps = append(rep.Steps, MigrationStep{From: l.Path, Action: ActionRemoved})
		changed = append(changed, l.Path)
	}

	logger.Info("migration completed",
		"copied", rep.Copied,
		"skipped", rep.Skipped,
		"invalid", rep.Invalid,
		"removed", rep.Removed,
		"failed", rep.Failed,
	)
	if len(changed) > 0 {
		s.changed(OpMigrate, changed...)
	}
	return rep, nil
}

// copyRecord places rec at dir/key unless an identical record is already there.
func (s *Service) copyRecord(ctx context.Context, dir, key string, rec cargo.Record) (string, string, error) {
	path := keypath.Join(dir, key)
	snap, err := s.store.ReadSubtree(ctx, path)
	if err != nil {
		return "", "", err
	}
	if snap.Exists() {
		existing := cargo.FromFields(snap.Value).Trimmed()
		existing.RefValue, rec.RefValue = "", ""
		if existing == rec {
			return path, ActionExists, nil
		}
	}
	path, err = s.keys.Place(ctx, dir, key, rec)
	if err != nil {
		return "", "", err
	}
	return path, ActionCopied, nil
}
