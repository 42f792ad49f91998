package store

import (
	"context"
	"sync"

	"github.com/jacentio/incargo/internal/keypath"
	"github.com/jacentio/incargo/tree"
)

// Memory is an in-process tree store. Values are deep-copied on the way in
// and out, so callers never share maps with the store.
type Memory struct {
	mu     sync.RWMutex
	root   map[string]any
	closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{root: make(map[string]any)}
}

// NewMemoryFrom creates an in-memory store seeded with a copy of root.
func NewMemoryFrom(root map[string]any) *Memory {
	m := NewMemory()
	if root != nil {
		m.root = tree.Clone(root)
	}
	return m
}

// ReadSubtree implements RecordStore.
func (m *Memory) ReadSubtree(ctx context.Context, path string) (Snapshot, error) {
	p, err := ValidatePath(path)
	if err != nil {
		return Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.root == nil || m.closed {
		return Snapshot{}, ErrUnavailable
	}

	node := m.lookup(p)
	return Snapshot{Path: p, Value: tree.Clone(node)}, nil
}

// WriteAt implements RecordStore.
func (m *Memory) WriteAt(ctx context.Context, path string, value map[string]any) error {
	p, err := ValidatePath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.root == nil || m.closed {
		return ErrUnavailable
	}
	m.put(p, value)
	return nil
}

// CreateAt implements Creator.
func (m *Memory) CreateAt(ctx context.Context, path string, value map[string]any) error {
	p, err := ValidatePath(path)
	if err != nil {
		return err
	}
	if prune(tree.Clone(value)) == nil {
		return ErrEmptyValue
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.root == nil || m.closed {
		return ErrUnavailable
	}
	if m.exists(p) {
		return ErrAlreadyExists
	}
	m.put(p, value)
	return nil
}

// Close makes every later call fail with ErrUnavailable.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// lookup returns the object at p, or nil. The caller holds the lock.
func (m *Memory) lookup(p string) map[string]any {
	node := m.root
	for _, seg := range keypath.Split(p) {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// exists reports whether any value, object or scalar, sits at p.
func (m *Memory) exists(p string) bool {
	if p == "" {
		return len(m.root) > 0
	}
	parent := m.lookup(keypath.Dir(p))
	if parent == nil {
		return false
	}
	_, ok := parent[keypath.Base(p)]
	return ok
}

// put replaces the value at p and prunes emptied ancestors. The caller holds the lock.
func (m *Memory) put(p string, value map[string]any) {
	v := prune(tree.Clone(value))
	if p == "" {
		if v == nil {
			v = make(map[string]any)
		}
		m.root = v
		return
	}

	segs := keypath.Split(p)
	if v == nil {
		m.remove(segs)
		return
	}
	node := m.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = v
}

// remove deletes the value at segs and any ancestor left empty.
func (m *Memory) remove(segs []string) {
	chain := []map[string]any{m.root}
	node := m.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return
		}
		chain = append(chain, child)
		node = child
	}
	delete(node, segs[len(segs)-1])
	for i := len(chain) - 1; i > 0; i-- {
		if len(chain[i]) > 0 {
			return
		}
		delete(chain[i-1], segs[i-1])
	}
}

// prune drops nil fields and empty objects, returning nil when nothing is left.
func prune(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	for k, v := range obj {
		switch x := v.(type) {
		case nil:
			delete(obj, k)
		case map[string]any:
			if p := prune(x); p == nil {
				delete(obj, k)
			}
		}
	}
	if len(obj) == 0 {
		return nil
	}
	return obj
}
