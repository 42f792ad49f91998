package register_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jacentio/incargo/cargo"
	"github.com/jacentio/incargo/internal/keypath"
	"github.com/jacentio/incargo/register"
	"github.com/jacentio/incargo/store"
)

// wednesday is the register clock used throughout the tests.
var wednesday = time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)

var errRejected = errors.New("write rejected")

func testConfig() register.Config {
	cfg := register.DefaultConfig()
	cfg.Now = func() time.Time { return wednesday }
	return cfg
}

func newService(rs store.RecordStore) *register.Service {
	return register.New(rs, testConfig(), nil)
}

func sampleRecord() cargo.Record {
	return cargo.Record{
		Date:        "2025-03-14",
		Consignee:   "Acme",
		Container:   "CONT1",
		Count:       "10",
		BL:          "BL1",
		Description: "위젯",
		QtyEa:       120,
		QtyPlt:      4,
		Spec:        "40FT",
	}
}

// under nests v below the default root.
func under(v map[string]any) map[string]any {
	out := v
	parts := keypath.Split(register.DefaultRoot)
	for i := len(parts) - 1; i >= 0; i-- {
		out = map[string]any{parts[i]: out}
	}
	return out
}

func rootPath(parts ...string) string {
	return keypath.Join(append([]string{register.DefaultRoot}, parts...)...)
}

// plainStore hides the Creator of the wrapped store so callers fall back to
// read-then-write.
type plainStore struct {
	store.RecordStore

	mu        sync.Mutex
	afterRead func()
	reject    func(path string, value map[string]any) bool
}

func (p *plainStore) ReadSubtree(ctx context.Context, path string) (store.Snapshot, error) {
	snap, err := p.RecordStore.ReadSubtree(ctx, path)
	p.mu.Lock()
	hook := p.afterRead
	p.afterRead = nil
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return snap, err
}

func (p *plainStore) WriteAt(ctx context.Context, path string, value map[string]any) error {
	if value != nil && p.reject != nil && p.reject(path, value) {
		return errRejected
	}
	return p.RecordStore.WriteAt(ctx, path, value)
}

// racyCreator runs beforeCreate once, just before the first conditional create.
type racyCreator struct {
	*store.Memory
	beforeCreate func()
}

func (r *racyCreator) CreateAt(ctx context.Context, path string, value map[string]any) error {
	if hook := r.beforeCreate; hook != nil {
		r.beforeCreate = nil
		hook()
	}
	return r.Memory.CreateAt(ctx, path, value)
}

func mustRead(t *testing.T, rs store.RecordStore, path string) store.Snapshot {
	t.Helper()
	snap, err := rs.ReadSubtree(context.Background(), path)
	if err != nil {
		t.Fatalf("read %q: %v", path, err)
	}
	return snap
}
