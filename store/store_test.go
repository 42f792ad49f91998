package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jacentio/incargo/store"
)

// backend is a RecordStore that also supports conditional creates.
type backend interface {
	store.RecordStore
	store.Creator
}

func backends(t *testing.T) map[string]func(t *testing.T) backend {
	return map[string]func(t *testing.T) backend{
		"memory": func(t *testing.T) backend { return store.NewMemory() },
		"sqlite": func(t *testing.T) backend {
			s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "nodes.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
		"dynamo": func(t *testing.T) backend {
			return store.NewDynamo(newFakeDynamo(), store.DefaultDynamoConfig())
		},
	}
}

// normalize round-trips v through JSON so numeric types compare equal across backends.
func normalize(t *testing.T, v map[string]any) map[string]any {
	t.Helper()
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func record(container string) map[string]any {
	return map[string]any{
		"date":      "2025-03-14",
		"consignee": "Acme",
		"container": container,
		"qtyEa":     3,
	}
}

func TestBackends(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("read missing", func(t *testing.T) {
				rs := open(t)
				snap, err := rs.ReadSubtree(context.Background(), "InCargo/2025")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if snap.Exists() {
					t.Errorf("expected absent snapshot, got %v", snap.Value)
				}
			})

			t.Run("write then read", func(t *testing.T) {
				rs := open(t)
				ctx := context.Background()
				if err := rs.WriteAt(ctx, "InCargo/2025/03/14/Acme/K1", record("C1")); err != nil {
					t.Fatalf("write: %v", err)
				}
				if err := rs.WriteAt(ctx, "InCargo/2025/03/14/Acme/K2", record("C2")); err != nil {
					t.Fatalf("write: %v", err)
				}

				snap, err := rs.ReadSubtree(ctx, "InCargo/2025/03/14/Acme/K1")
				if err != nil {
					t.Fatalf("read: %v", err)
				}
				if diff := cmp.Diff(normalize(t, record("C1")), normalize(t, snap.Value)); diff != "" {
					t.Errorf("record mismatch (-want +got):\n%s", diff)
				}

				day, err := rs.ReadSubtree(ctx, "InCargo/2025/03/14")
				if err != nil {
					t.Fatalf("read day: %v", err)
				}
				want := map[string]any{"Acme": map[string]any{"K1": record("C1"), "K2": record("C2")}}
				if diff := cmp.Diff(normalize(t, want), normalize(t, day.Value)); diff != "" {
					t.Errorf("subtree mismatch (-want +got):\n%s", diff)
				}

				root, err := rs.ReadSubtree(ctx, "")
				if err != nil {
					t.Fatalf("read root: %v", err)
				}
				if _, ok := root.Child("InCargo"); !ok {
					t.Errorf("expected root to contain InCargo, got %v", root.Value)
				}
			})

			t.Run("write replaces whole object", func(t *testing.T) {
				rs := open(t)
				ctx := context.Background()
				path := "InCargo/2025/03/14/Acme/K1"
				_ = rs.WriteAt(ctx, path, map[string]any{"container": "C1", "remark": "old"})
				if err := rs.WriteAt(ctx, path, map[string]any{"container": "C1"}); err != nil {
					t.Fatalf("rewrite: %v", err)
				}
				snap, _ := rs.ReadSubtree(ctx, path)
				if _, ok := snap.Value["remark"]; ok {
					t.Errorf("expected stale field to be gone, got %v", snap.Value)
				}
			})

			t.Run("nil removes and prunes", func(t *testing.T) {
				rs := open(t)
				ctx := context.Background()
				_ = rs.WriteAt(ctx, "InCargo/2025/03/14/Acme/K1", record("C1"))
				_ = rs.WriteAt(ctx, "InCargo/2025/03/15/Beta/K2", record("C2"))

				if err := store.Delete(ctx, rs, "InCargo/2025/03/14/Acme/K1"); err != nil {
					t.Fatalf("delete: %v", err)
				}
				snap, _ := rs.ReadSubtree(ctx, "InCargo/2025/03")
				if snap.Has("14") {
					t.Errorf("expected emptied day to vanish, got %v", snap.Value)
				}
				if !snap.Has("15") {
					t.Errorf("expected other day to remain, got %v", snap.Value)
				}

				if err := store.Delete(ctx, rs, "InCargo/2025/03/14/Acme/K1"); err != nil {
					t.Errorf("expected deleting a missing path to succeed, got %v", err)
				}
			})

			t.Run("sibling prefixes isolated", func(t *testing.T) {
				rs := open(t)
				ctx := context.Background()
				_ = rs.WriteAt(ctx, "a/b", map[string]any{"x": "1"})
				_ = rs.WriteAt(ctx, "a/bc", map[string]any{"x": "2"})

				snap, _ := rs.ReadSubtree(ctx, "a/b")
				if diff := cmp.Diff(map[string]any{"x": "1"}, snap.Value); diff != "" {
					t.Errorf("prefix leak (-want +got):\n%s", diff)
				}
				_ = store.Delete(ctx, rs, "a/b")
				snap, _ = rs.ReadSubtree(ctx, "a/bc")
				if !snap.Exists() {
					t.Error("expected sibling to survive delete")
				}
			})

			t.Run("create conflicts", func(t *testing.T) {
				rs := open(t)
				ctx := context.Background()
				path := "InCargo/2025/03/14/Acme/K1"
				if err := rs.CreateAt(ctx, path, record("C1")); err != nil {
					t.Fatalf("first create: %v", err)
				}
				if err := rs.CreateAt(ctx, path, record("C9")); !errors.Is(err, store.ErrAlreadyExists) {
					t.Errorf("expected ErrAlreadyExists, got %v", err)
				}
				if err := rs.CreateAt(ctx, "InCargo/2025/03/14", record("C9")); !errors.Is(err, store.ErrAlreadyExists) {
					t.Errorf("expected ErrAlreadyExists above existing data, got %v", err)
				}
				snap, _ := rs.ReadSubtree(ctx, path)
				if snap.Value["container"] != "C1" {
					t.Errorf("expected original to be untouched, got %v", snap.Value)
				}
				if err := rs.CreateAt(ctx, "x/y", map[string]any{}); !errors.Is(err, store.ErrEmptyValue) {
					t.Errorf("expected ErrEmptyValue, got %v", err)
				}
			})

			t.Run("invalid path", func(t *testing.T) {
				rs := open(t)
				ctx := context.Background()
				if _, err := rs.ReadSubtree(ctx, "a//b"); !errors.Is(err, store.ErrInvalidPath) {
					t.Errorf("expected ErrInvalidPath on read, got %v", err)
				}
				if err := rs.WriteAt(ctx, "a/b.c", record("C")); !errors.Is(err, store.ErrInvalidPath) {
					t.Errorf("expected ErrInvalidPath on write, got %v", err)
				}
			})
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		in       string
		expected string
		valid    bool
	}{
		{"", "", true},
		{"/", "", true},
		{"InCargo/2025", "InCargo/2025", true},
		{"/InCargo/2025/", "InCargo/2025", true},
		{"한진/상자", "한진/상자", true},
		{"a//b", "", false},
		{"a/b#c", "", false},
		{"a/$b", "", false},
		{"a/[b]", "", false},
	}

	for _, tt := range tests {
		got, err := store.ValidatePath(tt.in)
		if tt.valid {
			if err != nil || got != tt.expected {
				t.Errorf("ValidatePath(%q) = (%q, %v), want (%q, nil)", tt.in, got, err, tt.expected)
			}
			continue
		}
		if !errors.Is(err, store.ErrInvalidPath) {
			t.Errorf("ValidatePath(%q): expected ErrInvalidPath, got %v", tt.in, err)
		}
	}
}

func TestMemory_Isolation(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	in := record("C1")
	_ = m.WriteAt(ctx, "p/k", in)
	in["container"] = "mutated"

	snap, _ := m.ReadSubtree(ctx, "p/k")
	if snap.Value["container"] != "C1" {
		t.Errorf("expected store copy to be unaffected, got %v", snap.Value["container"])
	}
	snap.Value["container"] = "mutated"
	again, _ := m.ReadSubtree(ctx, "p/k")
	if again.Value["container"] != "C1" {
		t.Errorf("expected snapshot mutation not to leak, got %v", again.Value["container"])
	}
}

func TestMemory_Closed(t *testing.T) {
	m := store.NewMemoryFrom(map[string]any{"a": map[string]any{"x": 1}})
	m.Close()
	ctx := context.Background()
	if _, err := m.ReadSubtree(ctx, "a"); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable on read, got %v", err)
	}
	if err := m.WriteAt(ctx, "a", nil); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable on write, got %v", err)
	}
	if err := m.CreateAt(ctx, "b", map[string]any{"x": 1}); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable on create, got %v", err)
	}
}

func TestMemory_ZeroValueUnavailable(t *testing.T) {
	var m store.Memory
	if _, err := m.ReadSubtree(context.Background(), "a"); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for uninitialised store, got %v", err)
	}
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.NewMemory().WriteAt(ctx, "a", record("C")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMemory_ConcurrentCreateOneWinner(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.CreateAt(ctx, "p/k", record("C")); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "nodes.db")
	ctx := context.Background()

	s, err := store.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.WriteAt(ctx, "InCargo/2025/03/14/한진/K1", record("C1")); err != nil {
		t.Fatalf("write: %v", err)
	}
	s.Close()

	if _, err := s.ReadSubtree(ctx, "InCargo"); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable after close, got %v", err)
	}

	reopened, err := store.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	snap, err := reopened.ReadSubtree(ctx, "InCargo/2025/03/14/한진")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, ok := snap.Child("K1"); !ok {
		t.Errorf("expected K1 after reopen, got %v", snap.Value)
	}
	if reopened.Path() != path {
		t.Errorf("expected path %q, got %q", path, reopened.Path())
	}
}

func TestDefaultDynamoConfig(t *testing.T) {
	cfg := store.DefaultDynamoConfig()
	if cfg.Table != "incargo_nodes" {
		t.Errorf("expected table 'incargo_nodes', got %q", cfg.Table)
	}
	if cfg.Namespace != "incargo" {
		t.Errorf("expected namespace 'incargo', got %q", cfg.Namespace)
	}
	if cfg.BatchSize != 25 || cfg.TransactLimit != 100 || cfg.MaxAttempts != 5 {
		t.Errorf("unexpected limits %+v", cfg)
	}
	if cfg.RetryDelay != 50*time.Millisecond {
		t.Errorf("expected 50ms retry delay, got %v", cfg.RetryDelay)
	}
}

func TestDynamoConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		input    store.DynamoConfig
		expected store.DynamoConfig
	}{
		{
			name:     "zero value gets defaults",
			input:    store.DynamoConfig{},
			expected: store.DefaultDynamoConfig(),
		},
		{
			name:  "oversized limits clamp",
			input: store.DynamoConfig{Table: "t", Namespace: "n", BatchSize: 100, TransactLimit: 500, MaxAttempts: 2, RetryDelay: time.Second},
			expected: store.DynamoConfig{
				Table: "t", Namespace: "n", BatchSize: 25, TransactLimit: 100, MaxAttempts: 2, RetryDelay: time.Second,
			},
		},
		{
			name:  "custom values kept",
			input: store.DynamoConfig{Table: "t", Namespace: "n", BatchSize: 10, TransactLimit: 4, MaxAttempts: 1, RetryDelay: time.Millisecond},
			expected: store.DynamoConfig{
				Table: "t", Namespace: "n", BatchSize: 10, TransactLimit: 4, MaxAttempts: 1, RetryDelay: time.Millisecond,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.NewDynamo(nil, tt.input).Config()
			if got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestDynamo_NilClientUnavailable(t *testing.T) {
	d := store.NewDynamo(nil, store.DefaultDynamoConfig())
	if _, err := d.ReadSubtree(context.Background(), "a"); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestDynamo_OutageUnavailable(t *testing.T) {
	fake := newFakeDynamo()
	d := store.NewDynamo(fake, store.DefaultDynamoConfig())
	fake.failWith = errFakeOutage

	_, err := d.ReadSubtree(context.Background(), "a")
	if !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if !errors.Is(err, errFakeOutage) {
		t.Errorf("expected cause to be kept, got %v", err)
	}
}

func TestDynamo_Pagination(t *testing.T) {
	fake := newFakeDynamo()
	fake.pageSize = 1
	d := store.NewDynamo(fake, store.DefaultDynamoConfig())
	ctx := context.Background()

	for _, k := range []string{"K1", "K2", "K3", "K4"} {
		if err := d.WriteAt(ctx, "day/Acme/"+k, record(k)); err != nil {
			t.Fatalf("write %s: %v", k, err)
		}
	}
	fake.queries = 0
	snap, err := d.ReadSubtree(ctx, "day")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	acme, _ := snap.Child("Acme")
	if len(acme) != 4 {
		t.Errorf("expected 4 records across pages, got %d", len(acme))
	}
	if fake.queries < 4 {
		t.Errorf("expected paginated queries, got %d", fake.queries)
	}
}

func TestDynamo_LargeWriteBatchesWithRetry(t *testing.T) {
	fake := newFakeDynamo()
	fake.unprocessOnce = true
	cfg := store.DefaultDynamoConfig()
	cfg.TransactLimit = 2
	cfg.BatchSize = 3
	cfg.RetryDelay = time.Millisecond
	d := store.NewDynamo(fake, cfg)
	ctx := context.Background()

	value := map[string]any{}
	for _, k := range []string{"K1", "K2", "K3", "K4", "K5"} {
		value[k] = record(k)
	}
	if err := d.WriteAt(ctx, "day/Acme", value); err != nil {
		t.Fatalf("write: %v", err)
	}
	if fake.transacts != 0 {
		t.Errorf("expected batch path, got %d transactions", fake.transacts)
	}
	if fake.batches < 3 {
		t.Errorf("expected chunked batches plus a retry, got %d", fake.batches)
	}
	if fake.count() != 5 {
		t.Errorf("expected 5 items stored, got %d", fake.count())
	}
}

func TestDynamo_BatchGivesUp(t *testing.T) {
	fake := newFakeDynamo()
	cfg := store.DefaultDynamoConfig()
	cfg.TransactLimit = 1
	cfg.MaxAttempts = 1
	cfg.RetryDelay = time.Millisecond
	d := store.NewDynamo(fake, cfg)

	fake.unprocessOnce = true
	err := d.WriteAt(context.Background(), "day", map[string]any{"a": record("A"), "b": record("B")})
	if !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable after exhausting attempts, got %v", err)
	}
}

func TestDynamo_CreateRaceMapsCancellation(t *testing.T) {
	fake := newFakeDynamo()
	d := store.NewDynamo(fake, store.DefaultDynamoConfig())
	ctx := context.Background()

	// Another writer lands between the existence check and the transaction.
	fake.beforeTransact = func() {
		fake.beforeTransact = nil
		if err := d.WriteAt(ctx, "day/Acme/K1", record("OTHER")); err != nil {
			t.Errorf("interleaved write: %v", err)
		}
	}
	err := d.CreateAt(ctx, "day/Acme/K1", record("C1"))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	snap, _ := d.ReadSubtree(ctx, "day/Acme/K1")
	if snap.Value["container"] != "OTHER" {
		t.Errorf("expected the interleaved record to win, got %v", snap.Value)
	}
}
