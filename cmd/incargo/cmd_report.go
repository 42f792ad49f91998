package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jacentio/incargo/cargo"
	"github.com/jacentio/incargo/period"
	"github.com/jacentio/incargo/summary"
)

// rangeFlags selects a date range by name or by explicit bounds.
type rangeFlags struct {
	period string
	from   string
	to     string
}

func (rf *rangeFlags) bind(cmd *cobra.Command, def period.Name) {
	cmd.Flags().StringVarP(&rf.period, "period", "p", string(def),
		"named period: today, tomorrow, thisWeek, nextWeek, thisMonth, thisYear")
	cmd.Flags().StringVar(&rf.from, "from", "", "range start yyyy-mm-dd (overrides --period)")
	cmd.Flags().StringVar(&rf.to, "to", "", "range end yyyy-mm-dd (overrides --period)")
}

// set reports whether any range was asked for.
func (rf *rangeFlags) set() bool {
	return rf.period != "" || rf.from != "" || rf.to != ""
}

// resolve turns the flags into a range. A single bound is a one-day range.
func (rf *rangeFlags) resolve(a *app) (period.Range, error) {
	if rf.from != "" || rf.to != "" {
		from, to := rf.from, rf.to
		if from == "" {
			from = to
		}
		if to == "" {
			to = from
		}
		return period.NewCustom(from, to)
	}
	return period.Resolve(period.Name(rf.period), a.svc.Now())
}

// entries loads the register restricted to the selected range, or all of it
// when no range was given.
func (rf *rangeFlags) entries(cmd *cobra.Command, a *app) ([]cargo.Entry, string, error) {
	if !rf.set() {
		all, err := a.svc.Load(cmd.Context())
		return all, "all", err
	}
	r, err := rf.resolve(a)
	if err != nil {
		return nil, "", err
	}
	es, err := a.svc.LoadRange(cmd.Context(), r)
	return es, r.String(), err
}

// output opens path for writing, or returns stdout when path is empty or "-".
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func newListCmd(a *app) *cobra.Command {
	var (
		rf      rangeFlags
		shipper string
		search  string
		sortBy  string
		desc    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Long: `Lists records as a table. Without a period every record is listed.

Example:
  incargo list -p thisWeek --shipper Acme --sort container`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := summary.ParseColumn(sortBy)
			if err != nil {
				return err
			}
			es, _, err := rf.entries(cmd, a)
			if err != nil {
				return err
			}
			es = summary.Search(summary.ByShipper(es, shipper), search)
			summary.Sort(es, col, desc)
			return writeTable(cmd.OutOrStdout(), es)
		},
	}
	rf.bind(cmd, "")
	cmd.Flags().StringVar(&shipper, "shipper", "", "only this shipper (raw or normalized name)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "substring to look for in any column")
	cmd.Flags().StringVar(&sortBy, "sort", "date", "sort column: date, shipper, container, count, bl, item")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

func writeTable(w io.Writer, es []cargo.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSHIPPER\tCONTAINER\tCOUNT\tBL\tITEM\tQTY\tSPEC\tPATH")
	for _, e := range es {
		r := e.Record
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.SortDate(), r.Consignee, r.Container, r.Count, r.BL, r.Description,
			qtyText(r), summary.NormalizeSpec(r.Spec), e.Path)
	}
	fmt.Fprintf(tw, "\n%d records\n", len(es))
	return tw.Flush()
}

func qtyText(r cargo.Record) string {
	if r.QtyEa == 0 && r.QtyPlt == 0 {
		return "-"
	}
	return summary.QuantityText(r.QtyEa, r.QtyPlt, 0)
}

func newSummaryCmd(a *app) *cobra.Command {
	var (
		rf  rangeFlags
		top int
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate records by shipper and spec",
		Long: `Counts distinct containers per shipper and per container spec.

Example:
  incargo summary -p today
  incargo summary -p thisWeek --top 6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			es, title, err := rf.entries(cmd, a)
			if err != nil {
				return err
			}
			n := top
			if n < 1 {
				n = a.cfg.Report.DayTop
				if rf.period != string(period.Today) && rf.period != string(period.Tomorrow) {
					n = a.cfg.Report.WeekTop
				}
			}
			return summary.WriteSummary(cmd.OutOrStdout(), title, summary.Aggregate(es), n)
		},
	}
	rf.bind(cmd, period.Today)
	cmd.Flags().IntVar(&top, "top", 0, "shippers to show (default from config)")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the weekly intake report",
		Long: `Renders this week's arrivals day by day, Monday to Sunday, followed by
the week totals.

Example:
  incargo report --out week.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			es, r, err := a.svc.LoadPeriod(cmd.Context(), period.ThisWeek)
			if err != nil {
				return err
			}
			w, closeFn, err := output(cmd, out)
			if err != nil {
				return err
			}
			if err := summary.WriteReport(w, summary.Week(es, r), a.svc.Now(),
				a.cfg.Report.DayTop, a.cfg.Report.WeekTop); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		rf  rangeFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records as CSV",
		Long: `Writes records as a UTF-8 CSV file with a byte order mark, so that
spreadsheet applications read Hangul correctly.

Example:
  incargo export -p thisMonth -o march.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			es, _, err := rf.entries(cmd, a)
			if err != nil {
				return err
			}
			w, closeFn, err := output(cmd, out)
			if err != nil {
				return err
			}
			if err := summary.WriteCSV(w, es); err != nil {
				closeFn()
				return err
			}
			if err := closeFn(); err != nil {
				return err
			}
			a.logger.Info("exported records", "count", len(es), "out", out)
			return nil
		},
	}
	rf.bind(cmd, "")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
