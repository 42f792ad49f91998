package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacentio/incargo/cargo"
	"github.com/jacentio/incargo/register"
)

func newMoveCmd(a *app) *cobra.Command {
	var container, date, weekday string
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move every record of a container to another date",
		Long: `Moves all records of a container group to a new arrival date. Keys are
kept; the consignee folder is recreated under the new date.

Records are moved one at a time. When some fail the others stay moved and
the failures are listed.

Example:
  incargo move --container CONT1 --date 2025-03-17
  incargo move --container CONT1 --weekday 금`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				res register.MoveResult
				err error
			)
			switch {
			case date != "" && weekday != "":
				return errors.New("use either --date or --weekday")
			case weekday != "":
				res, err = a.svc.MoveContainerToWeekday(cmd.Context(), container, weekday)
			case date != "":
				res, err = a.svc.MoveContainer(cmd.Context(), container, date)
			default:
				return errors.New("one of --date or --weekday is required")
			}

			out := cmd.OutOrStdout()
			for _, e := range res.Moved {
				fmt.Fprintf(out, "moved  %s\n", e.Path)
			}
			for _, f := range res.Failures {
				state := "kept"
				if f.Lost {
					state = "LOST"
				}
				fmt.Fprintf(out, "failed %s (%s): %v\n", f.Entry.Path, state, f.Err)
			}
			if res.Succeeded+res.Failed > 0 {
				fmt.Fprintln(out, res.String())
			}
			return err
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "container number of the group")
	cmd.Flags().StringVar(&date, "date", "", "target date yyyy-mm-dd")
	cmd.Flags().StringVar(&weekday, "weekday", "", "target weekday of the current week, e.g. fri or 금")
	_ = cmd.MarkFlagRequired("container")
	return cmd
}

func newSetDateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-date <path> <date>",
		Short: "Change the date field of a record in place",
		Long: `Rewrites the date field of the record at path without moving it.
Use move to relocate a whole container group.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.svc.SetDate(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s date=%s\n", e.Path, e.Record.Date)
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a record",
		Long: `Deletes the single record stored at path. Date and consignee folders are
refused; move or delete their records one by one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	var shipper, item string
	cmd := &cobra.Command{
		Use:   "find <container>",
		Short: "Find the record of a container, shipper and item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.svc.Find(cmd.Context(), args[0], shipper, item)
			if err != nil {
				return err
			}
			return writeTable(cmd.OutOrStdout(), []cargo.Entry{e})
		},
	}
	cmd.Flags().StringVar(&shipper, "shipper", "", "consignee / shipper name")
	cmd.Flags().StringVar(&item, "item", "", "item description")
	_ = cmd.MarkFlagRequired("shipper")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}
