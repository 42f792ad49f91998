package summary

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jacentio/incargo/period"
)

// QuantityText renders quantities the way the intake sheet does: pieces and
// pallets when known, otherwise the container count.
func QuantityText(ea, plt, containers int) string {
	switch {
	case ea > 0 && plt > 0:
		return fmt.Sprintf("%dEA / %dPLT", ea, plt)
	case ea > 0:
		return fmt.Sprintf("%dEA", ea)
	case plt > 0:
		return fmt.Sprintf("%dPLT", plt)
	}
	return fmt.Sprintf("%dCTR", containers)
}

// SpecLine renders spec totals as "40FT 2 / 20FT 1".
func SpecLine(specs []SpecGroup) string {
	parts := make([]string, 0, len(specs))
	for _, s := range specs {
		if s.Count() == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d", s.Spec, s.Count()))
	}
	return strings.Join(parts, " / ")
}

// TopLine renders ranked shippers as "ACM 3, BCO 1".
func TopLine(shippers []ShipperGroup) string {
	parts := make([]string, 0, len(shippers))
	for _, s := range shippers {
		parts = append(parts, fmt.Sprintf("%s %d", s.Shipper, s.Count()))
	}
	return strings.Join(parts, ", ")
}

// WriteSummary renders a single aggregation with at most top shippers.
func WriteSummary(w io.Writer, title string, res *Result, top int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s: %d containers, %d records, %s\n",
		title, res.Totals.Containers, res.Totals.Records,
		QuantityText(res.Totals.QtyEa, res.Totals.QtyPlt, res.Totals.Containers))
	for i, s := range res.Top(top) {
		fmt.Fprintf(bw, "  %d. %s %d", i+1, s.Shipper, s.Count())
		if line := SpecLine(s.Specs); line != "" {
			fmt.Fprintf(bw, " (%s)", line)
		}
		bw.WriteString("\n")
	}
	if hidden := len(res.Shippers) - len(res.Top(top)); hidden > 0 {
		fmt.Fprintf(bw, "  ... %d more\n", hidden)
	}
	if line := SpecLine(res.Specs); line != "" {
		fmt.Fprintf(bw, "  %s\n", line)
	}
	return bw.Flush()
}

// WriteReport renders the plain-text weekly report, ranking at most dayTop
// shippers per day and weekTop for the week. Limits below 1 fall back to
// DayTop and WeekTop.
func WriteReport(w io.Writer, wk *Weekly, generatedAt time.Time, dayTop, weekTop int) error {
	if dayTop < 1 {
		dayTop = DayTop
	}
	if weekTop < 1 {
		weekTop = WeekTop
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Weekly intake report: %s (week %d)\n", wk.Range, period.WeekNumber(wk.Range.Start))
	fmt.Fprintf(bw, "Generated %s\n\n", generatedAt.Format("2006-01-02 15:04"))

	for _, d := range wk.Days {
		label := d.Date.Format("2006-01-02 Mon")
		if d.Empty() {
			fmt.Fprintf(bw, "[%s] no arrivals\n", label)
			continue
		}
		fmt.Fprintf(bw, "[%s] %d containers\n", label, d.Result.Totals.Containers)
		fmt.Fprintf(bw, "  top: %s\n", TopLine(d.Result.Top(dayTop)))
		for _, s := range d.Result.Shippers {
			for _, p := range s.Products {
				fmt.Fprintf(bw, "  %s | %s | %s | %s\n",
					s.Shipper, p.Description, p.Spec, QuantityText(p.QtyEa, p.QtyPlt, p.Count()))
			}
		}
		if line := SpecLine(d.Result.Specs); line != "" {
			fmt.Fprintf(bw, "  %s\n", line)
		}
	}

	bw.WriteString("\n")
	if err := bw.Flush(); err != nil {
		return err
	}
	return WriteSummary(w, "[Week total]", wk.Total, weekTop)
}
