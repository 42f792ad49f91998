package summary_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jacentio/incargo/cargo"
	"github.com/jacentio/incargo/summary"
)

func entry(date, shipper, container, spec, desc string, ea, plt int) cargo.Entry {
	return cargo.NewEntry("InCargo/"+container+"/"+desc, cargo.Record{
		Date:        date,
		Consignee:   shipper,
		Container:   container,
		Spec:        spec,
		Description: desc,
		QtyEa:       ea,
		QtyPlt:      plt,
	})
}

func TestAggregate_DistinctContainers(t *testing.T) {
	entries := []cargo.Entry{
		entry("2025-03-10", "Acme", "X", "40FT", "a", 1, 0),
		entry("2025-03-10", "Acme", "X", "40FT", "b", 1, 0),
		entry("2025-03-10", "Acme", "X", "40FT", "c", 1, 0),
		entry("2025-03-10", "Acme", "Y", "40FT", "d", 1, 0),
		entry("2025-03-10", "Acme", "Y", "40FT", "e", 1, 0),
	}

	res := summary.Aggregate(entries)
	if len(res.Shippers) != 1 {
		t.Fatalf("expected 1 shipper, got %d", len(res.Shippers))
	}
	if got := res.Shippers[0].Count(); got != 2 {
		t.Errorf("expected 2 distinct containers, got %d", got)
	}
	if got := res.Shippers[0].Records; got != 5 {
		t.Errorf("expected 5 records, got %d", got)
	}
	if res.Totals.Containers != 2 {
		t.Errorf("expected grand total 2 containers, got %d", res.Totals.Containers)
	}
	spec, ok := res.Spec("40FT")
	if !ok || spec.Count() != 2 {
		t.Errorf("expected 40FT total 2, got %+v", spec)
	}
	if res.Totals.QtyEa != 5 {
		t.Errorf("expected 5 EA, got %d", res.Totals.QtyEa)
	}
}

func TestAggregate_ShipperNormalizationGroups(t *testing.T) {
	entries := []cargo.Entry{
		entry("2025-03-10", "Acme Corp (ACM)", "C1", "40ft", "a", 0, 0),
		entry("2025-03-10", "ACM", "C2", "20 f", "b", 0, 0),
		entry("2025-03-10", "", "C3", "", "c", 0, 0),
	}

	res := summary.Aggregate(entries)
	acm, ok := res.Shipper("ACM")
	if !ok {
		t.Fatal("expected ACM group")
	}
	if acm.Count() != 2 {
		t.Errorf("expected ACM to have 2 containers, got %d", acm.Count())
	}
	if _, ok := res.Shipper(summary.Unclassified); !ok {
		t.Errorf("expected %q group for empty shipper", summary.Unclassified)
	}
	if _, ok := res.Spec(summary.OtherSpec); !ok {
		t.Errorf("expected %q spec group for empty spec", summary.OtherSpec)
	}

	var specs []string
	for _, s := range acm.Specs {
		specs = append(specs, s.Spec)
	}
	if diff := cmp.Diff([]string{"40FT", "20FT"}, specs); diff != "" {
		t.Errorf("ACM specs mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_RankingStable(t *testing.T) {
	entries := []cargo.Entry{
		entry("2025-03-10", "B", "b1", "", "x", 0, 0),
		entry("2025-03-10", "A", "a1", "", "x", 0, 0),
		entry("2025-03-10", "C", "c1", "", "x", 0, 0),
		entry("2025-03-10", "C", "c2", "", "x", 0, 0),
		entry("2025-03-10", "D", "d1", "", "x", 0, 0),
	}

	res := summary.Aggregate(entries)
	var order []string
	for _, s := range res.Shippers {
		order = append(order, s.Shipper)
	}
	if diff := cmp.Diff([]string{"C", "B", "A", "D"}, order); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}

	// Repeated runs must agree.
	for i := 0; i < 5; i++ {
		again := summary.Aggregate(entries)
		if again.Shippers[1].Shipper != "B" {
			t.Fatalf("run %d: expected stable tie order, got %q", i, again.Shippers[1].Shipper)
		}
	}
}

func TestAggregate_TopDoesNotTruncateResult(t *testing.T) {
	var entries []cargo.Entry
	for _, s := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		entries = append(entries, entry("2025-03-10", s, s+"1", "LCL", "x", 0, 0))
	}

	res := summary.Aggregate(entries)
	if got := len(res.Top(summary.DayTop)); got != 4 {
		t.Errorf("expected 4 shippers in day top, got %d", got)
	}
	if got := len(res.Top(summary.WeekTop)); got != 6 {
		t.Errorf("expected 6 shippers in week top, got %d", got)
	}
	if got := len(res.Shippers); got != 8 {
		t.Errorf("expected full result to keep 8 shippers, got %d", got)
	}
	if got := len(res.Top(20)); got != 8 {
		t.Errorf("expected all 8 when n exceeds size, got %d", got)
	}
}

func TestAggregate_EmptyContainerNotCounted(t *testing.T) {
	entries := []cargo.Entry{
		entry("2025-03-10", "A", "", "LCL", "x", 3, 1),
		entry("2025-03-10", "A", "  ", "LCL", "y", 2, 0),
	}

	res := summary.Aggregate(entries)
	if res.Totals.Containers != 0 {
		t.Errorf("expected 0 containers, got %d", res.Totals.Containers)
	}
	if res.Totals.Records != 2 || res.Totals.QtyEa != 5 || res.Totals.QtyPlt != 1 {
		t.Errorf("unexpected totals %+v", res.Totals)
	}
	if len(res.Containers) != 0 {
		t.Errorf("expected no container groups, got %d", len(res.Containers))
	}
}

func TestAggregate_ContainerGroupsAndProducts(t *testing.T) {
	entries := []cargo.Entry{
		entry("2025-03-10", "A", "C1", "40FT", "bolts", 10, 0),
		entry("2025-03-10", "A", "C1", "40FT", "nuts", 5, 1),
		entry("2025-03-10", "A", "C2", "40FT", "bolts", 7, 0),
	}

	res := summary.Aggregate(entries)
	if len(res.Containers) != 2 {
		t.Fatalf("expected 2 container groups, got %d", len(res.Containers))
	}
	c1 := res.Containers[0]
	if c1.Container != "C1" || len(c1.Entries) != 2 || c1.QtyEa != 15 || c1.QtyPlt != 1 {
		t.Errorf("unexpected C1 group %+v", c1)
	}

	products := res.Shippers[0].Products
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Description != "bolts" || products[0].Count() != 2 || products[0].QtyEa != 17 {
		t.Errorf("unexpected bolts product %+v", products[0])
	}
}

func TestAggregate_Empty(t *testing.T) {
	res := summary.Aggregate(nil)
	if len(res.Shippers) != 0 || res.Totals != (summary.Totals{}) {
		t.Errorf("expected empty result, got %+v", res)
	}
	if len(res.Top(summary.DayTop)) != 0 {
		t.Error("expected empty top")
	}
}
