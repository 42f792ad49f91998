package main

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jacentio/incargo/register"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var showInternal bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Describe the shape of the stored tree",
		Long: `Reports how deep records sit below the root, how many were found per
date folder and how many carry no usable date. Useful before a migrate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc.Analyze(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "root:      %s\n", a.svc.Root())
			fmt.Fprintf(out, "leaves:    %d\n", len(s.Leaves))
			fmt.Fprintf(out, "max depth: %d\n", s.MaxDepth)
			fmt.Fprintf(out, "undated:   %d\n", s.Undated)

			hist := s.DepthHistogram()
			for _, depth := range slices.Sorted(maps.Keys(hist)) {
				fmt.Fprintf(out, "  depth %d: %d\n", depth, hist[depth])
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\nDATE\tRECORDS")
			for _, d := range s.Dates() {
				fmt.Fprintf(tw, "%s\t%d\n", d, len(s.DateGroups[d]))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if showInternal {
				fmt.Fprintln(out)
				for _, p := range slices.Sorted(maps.Keys(s.Internal)) {
					fmt.Fprintf(out, "%s/ %v\n", p, s.Internal[p])
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showInternal, "internal", false, "also list every folder and its children")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	var opts register.MigrateOptions
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy records into the canonical date/consignee layout",
		Long: `Copies every dated record that does not yet live at
<root>/<yyyy>/<mm>/<dd>/<consignee>/<key> to that path. Records missing a
required field are reported and left alone. Running it twice is harmless.

Example:
  incargo migrate --dry-run
  incargo migrate --since 2025-01-01 --remove-source`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.svc.Migrate(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACTION\tFROM\tTO")
			for _, st := range rep.Steps {
				to := st.To
				if st.Err != nil {
					to = st.Err.Error()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Action, st.From, to)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nrun %s: copied %d, skipped %d, invalid %d, removed %d, failed %d\n",
				rep.RunID, rep.Copied, rep.Skipped, rep.Invalid, rep.Removed, rep.Failed)
			if rep.Failed > 0 {
				return fmt.Errorf("migrate: %d records failed", rep.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Since, "since", "", "skip records dated before yyyy-mm-dd")
	cmd.Flags().BoolVar(&opts.RemoveSource, "remove-source", false, "delete each source after copying")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would be copied without writing")
	return cmd
}
