// Package summary groups cargo records by shipper, spec and container and renders
// the derived reports.
//
// Counts are always distinct container ids, never record counts: several line
// items may share one container. Records without a container id still add to
// record and quantity totals but never to a container count.
package summary

import (
	"slices"
	"strings"

	"github.com/jacentio/incargo/cargo"
)

// Top-N limits used when rendering summaries.
const (
	DayTop  = 4
	WeekTop = 6
)

// Totals are running sums over a set of records.
type Totals struct {
	Records    int
	Containers int
	QtyEa      int
	QtyPlt     int
}

// SpecGroup aggregates records sharing a normalized spec.
type SpecGroup struct {
	Spec       string
	Containers []string
	QtyEa      int
	QtyPlt     int
	Records    int
}

// Count returns the number of distinct containers in the group.
func (g SpecGroup) Count() int { return len(g.Containers) }

// ProductGroup aggregates records of one shipper sharing description and spec.
type ProductGroup struct {
	Description string
	Spec        string
	Containers  []string
	QtyEa       int
	QtyPlt      int
	Records     int
}

// Count returns the number of distinct containers in the group.
func (g ProductGroup) Count() int { return len(g.Containers) }

// ShipperGroup aggregates records of one normalized shipper.
type ShipperGroup struct {
	Shipper    string
	Containers []string
	Specs      []SpecGroup
	Products   []ProductGroup
	QtyEa      int
	QtyPlt     int
	Records    int
}

// Count returns the number of distinct containers shipped.
func (g ShipperGroup) Count() int { return len(g.Containers) }

// ContainerGroup is every record sharing one container id.
type ContainerGroup struct {
	Container string
	Shipper   string
	Spec      string
	Entries   []cargo.Entry
	QtyEa     int
	QtyPlt    int
}

// Result is the full, untruncated aggregation of a record set.
type Result struct {
	// Shippers are ranked by distinct container count, descending.
	// Ties keep encounter order.
	Shippers []ShipperGroup

	// Specs are grand totals per normalized spec across all shippers.
	Specs []SpecGroup

	// Containers lists container groups in encounter order.
	Containers []ContainerGroup

	Totals Totals
}

// Top returns at most n shippers. The result itself is left untouched.
func (r *Result) Top(n int) []ShipperGroup {
	if n < 0 || n >= len(r.Shippers) {
		return r.Shippers
	}
	return r.Shippers[:n]
}

// Shipper returns the group for a normalized shipper name.
func (r *Result) Shipper(name string) (ShipperGroup, bool) {
	for _, g := range r.Shippers {
		if g.Shipper == name {
			return g, true
		}
	}
	return ShipperGroup{}, false
}

// Spec returns the grand total group for a normalized spec.
func (r *Result) Spec(spec string) (SpecGroup, bool) {
	for _, g := range r.Specs {
		if g.Spec == spec {
			return g, true
		}
	}
	return SpecGroup{}, false
}

// Aggregate groups entries by shipper, spec and container.
func Aggregate(entries []cargo.Entry) *Result {
	var (
		shippers   = newIndex[*shipperAcc]()
		specs      = newIndex[*specAcc]()
		containers = newIndex[*ContainerGroup]()
		all        = newSet()
		res        = &Result{}
	)

	for _, e := range entries {
		rec := e.Record
		shipper := NormalizeShipper(rec.Consignee)
		spec := NormalizeSpec(rec.Spec)
		container := strings.TrimSpace(rec.Container)
		ea, plt := max(rec.QtyEa, 0), max(rec.QtyPlt, 0)

		res.Totals.Records++
		res.Totals.QtyEa += ea
		res.Totals.QtyPlt += plt
		all.add(container)

		sh := shippers.get(shipper, func() *shipperAcc { return newShipperAcc(shipper) })
		sh.add(rec.Description, spec, container, ea, plt)

		sp := specs.get(spec, func() *specAcc { return &specAcc{spec: spec, containers: newSet()} })
		sp.add(container, ea, plt)

		if container != "" {
			cg := containers.get(container, func() *ContainerGroup {
				return &ContainerGroup{Container: container, Shipper: shipper, Spec: spec}
			})
			cg.Entries = append(cg.Entries, e)
			cg.QtyEa += ea
			cg.QtyPlt += plt
		}
	}

	res.Totals.Containers = all.len()
	for _, sh := range shippers.values() {
		res.Shippers = append(res.Shippers, sh.group())
	}
	rankShippers(res.Shippers)
	for _, sp := range specs.values() {
		res.Specs = append(res.Specs, sp.group())
	}
	rankSpecs(res.Specs)
	for _, cg := range containers.values() {
		res.Containers = append(res.Containers, *cg)
	}
	return res
}

func rankShippers(gs []ShipperGroup) {
	slices.SortStableFunc(gs, func(a, b ShipperGroup) int { return b.Count() - a.Count() })
}

func rankSpecs(gs []SpecGroup) {
	slices.SortStableFunc(gs, func(a, b SpecGroup) int { return b.Count() - a.Count() })
}

type shipperAcc struct {
	name       string
	containers *set
	specs      *index[*specAcc]
	products   *index[*productAcc]
	ea, plt    int
	records    int
}

func newShipperAcc(name string) *shipperAcc {
	return &shipperAcc{
		name:       name,
		containers: newSet(),
		specs:      newIndex[*specAcc](),
		products:   newIndex[*productAcc](),
	}
}

func (a *shipperAcc) add(description, spec, container string, ea, plt int) {
	a.containers.add(container)
	a.ea += ea
	a.plt += plt
	a.records++

	a.specs.get(spec, func() *specAcc { return &specAcc{spec: spec, containers: newSet()} }).
		add(container, ea, plt)

	description = strings.TrimSpace(description)
	pa := a.products.get(description+"|"+spec, func() *productAcc {
		return &productAcc{description: description, spec: spec, containers: newSet()}
	})
	pa.containers.add(container)
	pa.ea += ea
	pa.plt += plt
	pa.records++
}

func (a *shipperAcc) group() ShipperGroup {
	g := ShipperGroup{
		Shipper:    a.name,
		Containers: a.containers.items(),
		QtyEa:      a.ea,
		QtyPlt:     a.plt,
		Records:    a.records,
	}
	for _, sp := range a.specs.values() {
		g.Specs = append(g.Specs, sp.group())
	}
	rankSpecs(g.Specs)
	for _, pa := range a.products.values() {
		g.Products = append(g.Products, ProductGroup{
			Description: pa.description,
			Spec:        pa.spec,
			Containers:  pa.containers.items(),
			QtyEa:       pa.ea,
			QtyPlt:      pa.plt,
			Records:     pa.records,
		})
	}
	return g
}

type specAcc struct {
	spec       string
	containers *set
	ea, plt    int
	records    int
}

func (a *specAcc) add(container string, ea, plt int) {
	a.containers.add(container)
	a.ea += ea
	a.plt += plt
	a.records++
}

func (a *specAcc) group() SpecGroup {
	return SpecGroup{
		Spec:       a.spec,
		Containers: a.containers.items(),
		QtyEa:      a.ea,
		QtyPlt:     a.plt,
		Records:    a.records,
	}
}

type productAcc struct {
	description string
	spec        string
	containers  *set
	ea, plt     int
	records     int
}

// set is an insertion-ordered set of non-empty strings.
type set struct {
	seen  map[string]struct{}
	order []string
}

func newSet() *set { return &set{seen: make(map[string]struct{})} }

func (s *set) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.order = append(s.order, v)
}

func (s *set) len() int { return len(s.order) }

func (s *set) items() []string { return slices.Clone(s.order) }

// index keeps values by key in first-seen order.
type index[V any] struct {
	byKey map[string]V
	keys  []string
}

func newIndex[V any]() *index[V] { return &index[V]{byKey: make(map[string]V)} }

func (ix *index[V]) get(key string, create func() V) V {
	if v, ok := ix.byKey[key]; ok {
		return v
	}
	v := create()
	ix.byKey[key] = v
	ix.keys = append(ix.keys, key)
	return v
}

func (ix *index[V]) values() []V {
	out := make([]V, 0, len(ix.keys))
	for _, k := range ix.keys {
		out = append(out, ix.byKey[k])
	}
	return out
}
