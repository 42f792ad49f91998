package tree_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jacentio/incargo/tree"
)

// nest wraps leaf under depth-1 generated parent keys and returns the root
// together with the expected leaf path.
func nest(depth int, leafKey string, leaf map[string]any) (map[string]any, string) {
	segs := make([]string, 0, depth)
	for i := 1; i < depth; i++ {
		segs = append(segs, fmt.Sprintf("l%d", i))
	}
	segs = append(segs, leafKey)

	var node any = leaf
	for i := len(segs) - 1; i >= 0; i-- {
		node = map[string]any{segs[i]: node}
	}
	return node.(map[string]any), strings.Join(segs, "/")
}

func TestScan_Depths(t *testing.T) {
	for _, depth := range []int{1, 3, 7} {
		t.Run(fmt.Sprintf("depth %d", depth), func(t *testing.T) {
			data := map[string]any{"container": "C1", "qtyEa": float64(3)}
			root, path := nest(depth, "rec", data)

			leaves := tree.Scan("InCargo", root)
			if len(leaves) != 1 {
				t.Fatalf("expected 1 leaf, got %d", len(leaves))
			}
			got := leaves[0]
			if got.Path != "InCargo/"+path {
				t.Errorf("expected path %q, got %q", "InCargo/"+path, got.Path)
			}
			if got.Key != "rec" {
				t.Errorf("expected key 'rec', got %q", got.Key)
			}
			if got.Depth != depth {
				t.Errorf("expected depth %d, got %d", depth, got.Depth)
			}
			if diff := cmp.Diff(data, got.Data); diff != "" {
				t.Errorf("leaf data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScan_MixedDepthsComplete(t *testing.T) {
	root := map[string]any{
		"2025": map[string]any{
			"03": map[string]any{
				"14": map[string]any{
					"Acme": map[string]any{
						"K1": map[string]any{"container": "C1"},
						"K2": map[string]any{"container": "C2"},
					},
				},
			},
		},
		"legacy": map[string]any{"date": "2024-01-01", "container": "L1"},
		"shallow": map[string]any{
			"R": map[string]any{"container": "S1"},
		},
		"scalar":  "ignored",
		"empty":   map[string]any{},
		"listish": []any{map[string]any{"a": 1}},
	}

	leaves := tree.Scan("", root)
	var paths []string
	for _, l := range leaves {
		paths = append(paths, l.Path)
	}
	want := []string{
		"2025/03/14/Acme/K1",
		"2025/03/14/Acme/K2",
		"legacy",
		"shallow/R",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("leaf paths mismatch (-want +got):\n%s", diff)
	}
}

func TestScan_EmptyAndNil(t *testing.T) {
	if got := tree.Scan("x", nil); len(got) != 0 {
		t.Errorf("expected no leaves for nil root, got %d", len(got))
	}
	if got := tree.Scan("x", map[string]any{}); len(got) != 0 {
		t.Errorf("expected no leaves for empty root, got %d", len(got))
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"scalar", "text", "none"},
		{"nil", nil, "none"},
		{"empty object", map[string]any{}, "none"},
		{"list", []any{1, 2}, "none"},
		{"scalars only", map[string]any{"a": 1, "b": "x"}, "leaf"},
		{"fields missing", map[string]any{"note": "no date"}, "leaf"},
		{"list child", map[string]any{"tags": []any{"a"}}, "leaf"},
		{"nested object", map[string]any{"a": map[string]any{"b": 1}}, "internal"},
		{"nested empty object", map[string]any{"a": map[string]any{}}, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := "none"
			switch tree.Classify("p", "k", tt.value).(type) {
			case tree.Leaf:
				kind = "leaf"
			case tree.Internal:
				kind = "internal"
			}
			if kind != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, kind)
			}
		})
	}
}

func TestClassify_Path(t *testing.T) {
	n := tree.Classify("a/b", "c", map[string]any{"x": 1})
	if n.NodePath() != "a/b/c" {
		t.Errorf("expected 'a/b/c', got %q", n.NodePath())
	}
}

func TestIsRecord(t *testing.T) {
	tests := []struct {
		data     map[string]any
		expected bool
	}{
		{map[string]any{"date": "2025-01-01"}, true},
		{map[string]any{"container": "C1"}, true},
		{map[string]any{"date": "", "container": ""}, false},
		{map[string]any{"remark": "x"}, false},
	}

	for _, tt := range tests {
		if got := tree.IsRecord(tree.Leaf{Data: tt.data}); got != tt.expected {
			t.Errorf("IsRecord(%v) = %v, want %v", tt.data, got, tt.expected)
		}
	}
}

func TestAnalyze(t *testing.T) {
	root := map[string]any{
		"2025": map[string]any{
			"03": map[string]any{
				"14": map[string]any{
					"Acme": map[string]any{
						"K1": map[string]any{"date": "2025-03-14", "container": "C1"},
					},
				},
			},
		},
		"loose": map[string]any{"date": "2025-03-14", "container": "C2"},
		"bad":   map[string]any{"date": "someday"},
	}

	s := tree.Analyze("InCargo", root)
	if s.MaxDepth != 5 {
		t.Errorf("expected max depth 5, got %d", s.MaxDepth)
	}
	if len(s.Leaves) != 3 {
		t.Errorf("expected 3 leaves, got %d", len(s.Leaves))
	}
	if s.Undated != 1 {
		t.Errorf("expected 1 undated leaf, got %d", s.Undated)
	}
	if got := len(s.DateGroups["2025/03/14"]); got != 2 {
		t.Errorf("expected 2 leaves on 2025/03/14, got %d", got)
	}
	if diff := cmp.Diff([]string{"2025/03/14"}, s.Dates()); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"03"}, s.Internal["InCargo/2025"]); diff != "" {
		t.Errorf("internal children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[int]int{1: 2, 5: 1}, s.DepthHistogram()); diff != "" {
		t.Errorf("histogram mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenAssemble_RoundTrip(t *testing.T) {
	value := map[string]any{
		"2025": map[string]any{
			"03": map[string]any{
				"Acme": map[string]any{
					"K1": map[string]any{"container": "C1", "qtyEa": float64(2)},
				},
			},
		},
		"note":  "top",
		"empty": map[string]any{},
	}

	docs := tree.Flatten("root/in", value)
	wantPaths := []string{"root/in", "root/in/2025/03/Acme/K1"}
	var gotPaths []string
	for _, d := range docs {
		gotPaths = append(gotPaths, d.Path)
	}
	if diff := cmp.Diff(wantPaths, gotPaths); diff != "" {
		t.Fatalf("doc paths mismatch (-want +got):\n%s", diff)
	}

	got := tree.Assemble("root/in", docs)
	want := tree.Clone(value)
	delete(want, "empty")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assembled value mismatch (-want +got):\n%s", diff)
	}

	sub := tree.Assemble("root/in/2025/03", docs)
	if diff := cmp.Diff(map[string]any{
		"Acme": map[string]any{"K1": map[string]any{"container": "C1", "qtyEa": float64(2)}},
	}, sub); diff != "" {
		t.Errorf("subtree mismatch (-want +got):\n%s", diff)
	}

	if tree.Assemble("root/other", docs) != nil {
		t.Error("expected nil for a base without docs")
	}
}

func TestAssemble_ChildWinsOverField(t *testing.T) {
	docs := []tree.Doc{
		{Path: "a", Fields: map[string]any{"b": "scalar"}},
		{Path: "a/b", Fields: map[string]any{"x": 1}},
	}
	got := tree.Assemble("a", docs)
	if _, ok := got["b"].(map[string]any); !ok {
		t.Errorf("expected child object at 'b', got %#v", got["b"])
	}

	reversed := tree.Assemble("a", []tree.Doc{docs[1], docs[0]})
	if _, ok := reversed["b"].(map[string]any); !ok {
		t.Errorf("expected child object at 'b' regardless of order, got %#v", reversed["b"])
	}
}

func TestClone_Deep(t *testing.T) {
	orig := map[string]any{"a": map[string]any{"b": []any{"x"}}}
	c := tree.Clone(orig)
	c["a"].(map[string]any)["b"].([]any)[0] = "y"
	if orig["a"].(map[string]any)["b"].([]any)[0] != "x" {
		t.Error("expected clone to be independent of the original")
	}
}
