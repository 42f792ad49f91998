package summary

import (
	"time"

	"github.com/jacentio/incargo/cargo"
	"github.com/jacentio/incargo/period"
)

// Day is the aggregation of a single calendar date.
type Day struct {
	Date    time.Time
	Entries []cargo.Entry
	Result  *Result
}

// Empty reports whether nothing arrived that day.
func (d Day) Empty() bool { return len(d.Entries) == 0 }

// Weekly is a per-day breakdown of a range plus its overall aggregation.
type Weekly struct {
	Range period.Range
	Days  []Day
	Total *Result
}

// Week aggregates entries day by day over r. Entries without a valid date or
// outside r are left out of both the days and the total.
func Week(entries []cargo.Entry, r period.Range) *Weekly {
	byDate := make(map[string][]cargo.Entry)
	var inRange []cargo.Entry
	for _, e := range entries {
		t, ok := e.Record.Day()
		if !ok || !r.ContainsDay(t) {
			continue
		}
		key := t.Format(time.DateOnly)
		byDate[key] = append(byDate[key], e)
		inRange = append(inRange, e)
	}

	w := &Weekly{Range: r, Total: Aggregate(inRange)}
	for _, d := range r.Days() {
		es := byDate[d.Format(time.DateOnly)]
		w.Days = append(w.Days, Day{Date: d, Entries: es, Result: Aggregate(es)})
	}
	return w
}
