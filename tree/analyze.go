package tree

import (
	"maps"
	"slices"
	"time"
)

// Structure summarises the shape of a snapshot.
type Structure struct {
	// MaxDepth is the deepest leaf level below the base (direct children are 1).
	MaxDepth int

	// Leaves lists every leaf in scan order.
	Leaves []Leaf

	// Internal maps each internal node path to its sorted child keys.
	Internal map[string][]string

	// DateGroups groups leaves with a valid date field by yyyy/mm/dd.
	DateGroups map[string][]Leaf

	// Undated counts leaves without a parseable date field.
	Undated int
}

// Analyze inspects root and reports its depth, internal layout and date grouping.
func Analyze(base string, root map[string]any) *Structure {
	s := &Structure{
		Internal:   make(map[string][]string),
		DateGroups: make(map[string][]Leaf),
	}
	walk(base, root, 1, func(n Node, depth int) {
		switch v := n.(type) {
		case Internal:
			s.Internal[v.Path] = slices.Sorted(maps.Keys(v.Children))
		case Leaf:
			v.Depth = depth
			s.Leaves = append(s.Leaves, v)
			if depth > s.MaxDepth {
				s.MaxDepth = depth
			}
			date, _ := v.Data["date"].(string)
			t, err := time.Parse(time.DateOnly, date)
			if err != nil {
				s.Undated++
				return
			}
			key := t.Format("2006/01/02")
			s.DateGroups[key] = append(s.DateGroups[key], v)
		}
	})
	return s
}

// DepthHistogram counts leaves per depth.
func (s *Structure) DepthHistogram() map[int]int {
	h := make(map[int]int)
	for _, l := range s.Leaves {
		h[l.Depth]++
	}
	return h
}

// Dates returns the date group keys in ascending order.
func (s *Structure) Dates() []string {
	return slices.Sorted(maps.Keys(s.DateGroups))
}
