// Package tree walks nested path-addressed snapshots and finds the record leaves in them.
//
// A snapshot is the nested object returned by a subtree read: every object node
// is a map[string]any, every other value is a scalar or a list. A child object
// that holds at least one object is an [Internal] node and is walked further.
// Any other non-empty child object is a [Leaf], whatever fields it carries.
// Empty objects and non-object values classify as neither and are skipped.
package tree

import (
	"maps"
	"slices"

	"github.com/jacentio/incargo/internal/keypath"
)

// Node is the classification of a single child of an object node.
// It is either an [Internal] or a [Leaf].
type Node interface {
	node()
	NodePath() string
}

// Internal is an object node with nested objects below it.
type Internal struct {
	Path     string
	Key      string
	Children map[string]any
}

// Leaf is an object node without nested objects: a record candidate.
type Leaf struct {
	Path  string
	Key   string
	Depth int
	Data  map[string]any
}

func (Internal) node() {}
func (Leaf) node()     {}

// NodePath returns the full path of the node.
func (n Internal) NodePath() string { return n.Path }

// NodePath returns the full path of the node.
func (l Leaf) NodePath() string { return l.Path }

// Classify decides the kind of the value v found at parent/key.
// It returns nil when v is not an object or is an empty object.
func Classify(parent, key string, v any) Node {
	obj, ok := v.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil
	}
	path := keypath.Join(parent, key)
	for _, child := range obj {
		if _, nested := child.(map[string]any); nested {
			return Internal{Path: path, Key: key, Children: obj}
		}
	}
	return Leaf{Path: path, Key: key, Data: obj}
}

// Scan walks root depth-first and returns every leaf below it.
// Paths are prefixed with base. Keys are visited in lexicographic order.
// Scan never fails: unexpected shapes are skipped.
func Scan(base string, root map[string]any) []Leaf {
	var leaves []Leaf
	walk(base, root, 1, func(n Node, depth int) {
		if leaf, ok := n.(Leaf); ok {
			leaf.Depth = depth
			leaves = append(leaves, leaf)
		}
	})
	return leaves
}

// walk calls fn for every classified child of obj, recursing into internal nodes.
func walk(path string, obj map[string]any, depth int, fn func(Node, int)) {
	for _, key := range slices.Sorted(maps.Keys(obj)) {
		n := Classify(path, key, obj[key])
		if n == nil {
			continue
		}
		fn(n, depth)
		if in, ok := n.(Internal); ok {
			walk(in.Path, in.Children, depth+1, fn)
		}
	}
}

// IsRecord reports whether a leaf looks like a cargo row.
// Leaves without a date and without a container are structural noise.
func IsRecord(l Leaf) bool {
	return nonEmpty(l.Data["date"]) || nonEmpty(l.Data["container"])
}

func nonEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	}
	return true
}
