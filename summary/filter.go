package summary

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/jacentio/incargo/cargo"
	"github.com/jacentio/incargo/period"
)

// InRange keeps entries whose record date is a valid date inside r.
func InRange(entries []cargo.Entry, r period.Range) []cargo.Entry {
	var out []cargo.Entry
	for _, e := range entries {
		if r.Contains(e.Record.Date) {
			out = append(out, e)
		}
	}
	return out
}

// ByShipper keeps entries whose shipper matches name, either as written or
// after normalization. An empty name keeps everything.
func ByShipper(entries []cargo.Entry, name string) []cargo.Entry {
	name = strings.TrimSpace(name)
	if name == "" {
		return entries
	}
	var out []cargo.Entry
	for _, e := range entries {
		raw := strings.TrimSpace(e.Record.Consignee)
		if raw == name || NormalizeShipper(raw) == name {
			out = append(out, e)
		}
	}
	return out
}

// ByContainer keeps entries belonging to the container group id.
func ByContainer(entries []cargo.Entry, id string) []cargo.Entry {
	id = strings.TrimSpace(id)
	var out []cargo.Entry
	for _, e := range entries {
		if id != "" && strings.TrimSpace(e.Record.Container) == id {
			out = append(out, e)
		}
	}
	return out
}

// Shippers returns the distinct trimmed shipper names, sorted.
func Shippers(entries []cargo.Entry) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range entries {
		s := strings.TrimSpace(e.Record.Consignee)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			names = append(names, s)
		}
	}
	slices.Sort(names)
	return names
}

// Search keeps entries where any listed column contains q, ignoring case.
func Search(entries []cargo.Entry, q string) []cargo.Entry {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return entries
	}
	var out []cargo.Entry
	for _, e := range entries {
		r := e.Record
		for _, field := range []string{
			r.Date, r.Consignee, r.Container, r.Count, r.BL, r.Description,
			r.Spec, r.Shape, r.Remark, r.Working,
		} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Column names a sortable listing column.
type Column string

// Sortable columns.
const (
	ColumnDate      Column = "date"
	ColumnShipper   Column = "shipper"
	ColumnContainer Column = "container"
	ColumnCount     Column = "count"
	ColumnBL        Column = "bl"
	ColumnItem      Column = "item"
)

// ParseColumn accepts column names, including the legacy seal and itemName names.
func ParseColumn(s string) (Column, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "date":
		return ColumnDate, nil
	case "shipper", "consignee":
		return ColumnShipper, nil
	case "container":
		return ColumnContainer, nil
	case "count", "seal":
		return ColumnCount, nil
	case "bl":
		return ColumnBL, nil
	case "item", "itemname", "description":
		return ColumnItem, nil
	}
	return "", fmt.Errorf("unknown sort column %q", s)
}

// Sort orders entries by column, stable, ascending unless desc is set.
// Entries are sorted in place and returned.
func Sort(entries []cargo.Entry, col Column, desc bool) []cargo.Entry {
	key := columnKey(col)
	slices.SortStableFunc(entries, func(a, b cargo.Entry) int {
		c := cmp.Compare(key(a), key(b))
		if desc {
			return -c
		}
		return c
	})
	return entries
}

func columnKey(col Column) func(cargo.Entry) string {
	switch col {
	case ColumnShipper:
		return func(e cargo.Entry) string { return strings.ToLower(strings.TrimSpace(e.Record.Consignee)) }
	case ColumnContainer:
		return func(e cargo.Entry) string { return strings.ToLower(e.Record.Container) }
	case ColumnCount:
		return func(e cargo.Entry) string { return strings.ToLower(e.Record.Count) }
	case ColumnBL:
		return func(e cargo.Entry) string { return strings.ToLower(e.Record.BL) }
	case ColumnItem:
		return func(e cargo.Entry) string { return strings.ToLower(e.Record.Description) }
	}
	return cargo.Entry.SortDate
}
