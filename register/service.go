// Package register implements the cargo intake register on top of a tree store.
//
// Records are written under Config.Root using the layout
//
//	<root>/<yyyy>/<mm>/<dd>/<consignee>/<bl><description><count>_<container>
//
// and read back by scanning the whole subtree, so records written by older
// layouts are still listed. Migrate copies such records into the layout above.
package register

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jacentio/incargo/cargo"
	"github.com/jacentio/incargo/internal/keypath"
	"github.com/jacentio/incargo/period"
	"github.com/jacentio/incargo/store"
	"github.com/jacentio/incargo/summary"
	"github.com/jacentio/incargo/tree"
)

// Service is the register: intake, browsing and relocation of cargo records.
type Service struct {
	store  store.RecordStore
	config Config
	keys   *KeyComposer
	mover  *Mover
	logger *slog.Logger
}

// New creates a register over rs.
func New(rs store.RecordStore, cfg Config, logger *slog.Logger) *Service {
	cfg.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  rs,
		config: cfg,
		keys:   NewKeyComposer(rs, cfg, logger),
		mover:  NewMover(rs, cfg, logger),
		logger: logger,
	}
}

// Root returns the store path the register lives under.
func (s *Service) Root() string {
	return s.config.Root
}

// Now returns the current time of the register clock.
func (s *Service) Now() time.Time {
	return s.config.Now()
}

// Keys returns the key composer used for intake.
func (s *Service) Keys() *KeyComposer {
	return s.keys
}

// Intake validates r, derives its key and writes it under its date and
// consignee. An empty date means today.
func (s *Service) Intake(ctx context.Context, r cargo.Record) (cargo.Entry, error) {
	r = r.Trimmed()
	if r.Date == "" {
		r.Date = s.Now().Format(time.DateOnly)
	}
	day, err := period.ParseDate(r.Date)
	if err != nil {
		return cargo.Entry{}, fmt.Errorf("intake: %w", err)
	}
	r.Date = day.Format(time.DateOnly)

	key, err := s.keys.Compose(r)
	if err != nil {
		return cargo.Entry{}, fmt.Errorf("intake: %w", err)
	}
	dir := s.recordDir(r.Date, r.Consignee)
	path, err := s.keys.Place(ctx, dir, key, r)
	if err != nil {
		s.logger.Error("failed to write record", "dir", dir, "key", key, "error", err)
		return cargo.Entry{}, fmt.Errorf("intake: %w", err)
	}

	r.RefValue = path
	s.logger.Info("record registered", "path", path, "container", r.Container)
	s.changed(OpIntake, path)
	return cargo.NewEntry(path, r), nil
}

// Load returns every record below the root, ordered by sort date.
// Records with equal dates keep their scan order.
func (s *Service) Load(ctx context.Context) ([]cargo.Entry, error) {
	leaves, err := s.leaves(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]cargo.Entry, 0, len(leaves))
	for _, l := range leaves {
		entries = append(entries, cargo.NewEntry(l.Path, cargo.FromFields(l.Data)))
	}
	slices.SortStableFunc(entries, func(a, b cargo.Entry) int {
		return cmp.Compare(a.SortDate(), b.SortDate())
	})
	return entries, nil
}

// LoadRange returns the records whose date lies inside r.
func (s *Service) LoadRange(ctx context.Context, r period.Range) ([]cargo.Entry, error) {
	entries, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return summary.InRange(entries, r), nil
}

// LoadPeriod resolves a named period against the register clock and loads it.
func (s *Service) LoadPeriod(ctx context.Context, name period.Name) ([]cargo.Entry, period.Range, error) {
	r, err := period.Resolve(name, s.Now())
	if err != nil {
		return nil, period.Range{}, err
	}
	entries, err := s.LoadRange(ctx, r)
	return entries, r, err
}

// Delete removes the record at path. Folders and objects that are not records
// are refused with ErrNotRecord.
func (s *Service) Delete(ctx context.Context, path string) error {
	p, err := s.within(path)
	if err != nil {
		return err
	}
	snap, err := s.store.ReadSubtree(ctx, p)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if !snap.Exists() {
		return fmt.Errorf("delete: %w: %q", store.ErrNotFound, p)
	}
	if err := checkRecord(p, snap); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := store.Delete(ctx, s.store, p); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	s.logger.Info("record deleted", "path", p)
	s.changed(OpDelete, p)
	return nil
}

// SetDate changes the date of the record at path without relocating it.
// The whole object is rewritten in place.
func (s *Service) SetDate(ctx context.Context, path, date string) (cargo.Entry, error) {
	p, err := s.within(path)
	if err != nil {
		return cargo.Entry{}, err
	}
	day, err := period.ParseDate(date)
	if err != nil {
		return cargo.Entry{}, fmt.Errorf("set date: %w", err)
	}
	snap, err := s.store.ReadSubtree(ctx, p)
	if err != nil {
		return cargo.Entry{}, fmt.Errorf("set date: %w", err)
	}
	if !snap.Exists() {
		return cargo.Entry{}, fmt.Errorf("set date: %w: %q", store.ErrNotFound, p)
	}
	if err := checkRecord(p, snap); err != nil {
		return cargo.Entry{}, fmt.Errorf("set date: %w", err)
	}

	v := snap.Value
	v[cargo.FieldDate] = day.Format(time.DateOnly)
	v[cargo.FieldRefValue] = p
	if err := s.store.WriteAt(ctx, p, v); err != nil {
		return cargo.Entry{}, fmt.Errorf("set date: %w", err)
	}
	s.logger.Info("record date changed", "path", p, "date", v[cargo.FieldDate])
	s.changed(OpSetDate, p)
	return cargo.NewEntry(p, cargo.FromFields(v)), nil
}

// Find returns the first record, in scan order, with the given container,
// shipper and item. Shipper and item also match the legacy field names.
func (s *Service) Find(ctx context.Context, container, shipper, item string) (cargo.Entry, error) {
	leaves, err := s.leaves(ctx)
	if err != nil {
		return cargo.Entry{}, err
	}
	for _, l := range leaves {
		if matches(l.Data, container, cargo.FieldContainer) &&
			matches(l.Data, shipper, cargo.FieldConsignee, cargo.LegacyShipper) &&
			matches(l.Data, item, cargo.FieldDescription, cargo.LegacyItemName) {
			return cargo.NewEntry(l.Path, cargo.FromFields(l.Data)), nil
		}
	}
	return cargo.Entry{}, fmt.Errorf("%w: container %q", store.ErrNotFound, container)
}

// Group returns every record of the container group id.
func (s *Service) Group(ctx context.Context, container string) ([]cargo.Entry, error) {
	entries, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return summary.ByContainer(entries, container), nil
}

// Analyze reports the shape of the tree below the root.
func (s *Service) Analyze(ctx context.Context) (*tree.Structure, error) {
	snap, err := s.store.ReadSubtree(ctx, s.config.Root)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return tree.Analyze(s.config.Root, snap.Value), nil
}

// MoveContainer moves every record of a container group to date.
// The returned error is a *PartialMoveError when only some records moved.
func (s *Service) MoveContainer(ctx context.Context, container, date string) (MoveResult, error) {
	if _, err := period.ParseDate(date); err != nil {
		return MoveResult{}, fmt.Errorf("move: %w", err)
	}
	group, err := s.Group(ctx, container)
	if err != nil {
		return MoveResult{}, fmt.Errorf("move: %w", err)
	}
	if len(group) == 0 {
		return MoveResult{}, fmt.Errorf("move: %w: container %q", store.ErrNotFound, container)
	}

	res := s.mover.MoveGroup(ctx, group, date)
	paths := make([]string, 0, len(res.Moved))
	for _, e := range res.Moved {
		paths = append(paths, e.Path)
	}
	s.changed(OpMove, paths...)
	return res, res.Err()
}

// MoveContainerToWeekday moves a container group to the given weekday of the
// current week. Weekdays are accepted in Korean or English.
func (s *Service) MoveContainerToWeekday(ctx context.Context, container, weekday string) (MoveResult, error) {
	wd, err := period.ParseWeekday(weekday)
	if err != nil {
		return MoveResult{}, fmt.Errorf("move: %w", err)
	}
	date := period.WeekdayDate(s.Now(), wd).Format(time.DateOnly)
	return s.MoveContainer(ctx, container, date)
}

// leaves scans the root and keeps the leaves that look like records.
func (s *Service) leaves(ctx context.Context) ([]tree.Leaf, error) {
	snap, err := s.store.ReadSubtree(ctx, s.config.Root)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", s.config.Root, err)
	}
	var out []tree.Leaf
	for _, l := range tree.Scan(s.config.Root, snap.Value) {
		if tree.IsRecord(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Service) recordDir(date, consignee string) string {
	datePath, _ := keypath.DatePath(date)
	return keypath.Join(s.config.Root, datePath, keypath.Segment(consignee))
}

// within checks that path lies strictly below the root.
func (s *Service) within(path string) (string, error) {
	p, err := store.ValidatePath(path)
	if err != nil {
		return "", err
	}
	if p == s.config.Root || !keypath.Within(p, s.config.Root) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, path)
	}
	return p, nil
}

func (s *Service) changed(op Op, paths ...string) {
	if s.config.OnChange == nil {
		return
	}
	s.config.OnChange(Change{Op: op, Paths: paths})
}

func matches(data map[string]any, want string, names ...string) bool {
	for _, name := range names {
		if v, ok := data[name].(string); ok && strings.TrimSpace(v) == strings.TrimSpace(want) {
			return true
		}
	}
	return false
}
