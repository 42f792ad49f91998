package tree

import (
	"maps"
	"slices"

	"github.com/jacentio/incargo/internal/keypath"
)

// Doc holds the non-object fields of one object node.
// Backends that cannot store nested objects keep one Doc per node.
type Doc struct {
	Path   string
	Fields map[string]any
}

// Flatten splits value, rooted at path, into one Doc per object node that has
// at least one non-object field. Object nodes without such fields are implied
// by their descendants, so empty objects vanish as they do in a tree store.
// Docs are returned in path order, parents first.
func Flatten(path string, value map[string]any) []Doc {
	var docs []Doc
	flatten(keypath.Join(path), value, &docs)
	slices.SortFunc(docs, func(a, b Doc) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return docs
}

func flatten(path string, obj map[string]any, docs *[]Doc) {
	fields := make(map[string]any)
	for k, v := range obj {
		if child, ok := v.(map[string]any); ok {
			flatten(keypath.Join(path, k), child, docs)
			continue
		}
		if v == nil {
			continue
		}
		fields[k] = v
	}
	if len(fields) > 0 {
		*docs = append(*docs, Doc{Path: path, Fields: fields})
	}
}

// Assemble rebuilds the nested object rooted at base from docs.
// Docs outside base are ignored. When a field name collides with a child
// node, the child wins. It returns nil when no doc lies within base.
func Assemble(base string, docs []Doc) map[string]any {
	base = keypath.Join(base)
	var root map[string]any
	for _, d := range docs {
		if !keypath.Within(d.Path, base) {
			continue
		}
		if root == nil {
			root = make(map[string]any)
		}
		node := root
		for _, seg := range keypath.Split(keypath.Rel(d.Path, base)) {
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[seg] = child
			}
			node = child
		}
		for _, k := range slices.Sorted(maps.Keys(d.Fields)) {
			if _, isNode := node[k].(map[string]any); isNode {
				continue
			}
			node[k] = d.Fields[k]
		}
	}
	return root
}

// Clone returns a deep copy of obj. Nested objects and lists are copied;
// other values are shared.
func Clone(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return Clone(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}
