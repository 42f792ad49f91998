package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacentio/incargo/cargo"
)

func newIntakeCmd(a *app) *cobra.Command {
	var r cargo.Record
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Record an incoming container line item",
		Long: `Stores one record under its arrival date and consignee.

The key is derived from the BL, item description, count and container. When a
record with the same key already exists a time suffix is appended.

Example:
  incargo intake --date 2025-03-14 --shipper Acme --container CONT1 \
    --count 10 --bl BL1 --item 위젯 --ea 120 --plt 4 --spec 40FT`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.svc.Intake(cmd.Context(), r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.Path)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&r.Date, "date", "", "arrival date yyyy-mm-dd (default today)")
	f.StringVar(&r.Consignee, "shipper", "", "consignee / shipper name")
	f.StringVar(&r.Container, "container", "", "container number")
	f.StringVar(&r.Count, "count", "", "seal / package count")
	f.StringVar(&r.BL, "bl", "", "bill of lading number")
	f.StringVar(&r.Description, "item", "", "item description")
	f.IntVar(&r.QtyEa, "ea", 0, "quantity in pieces")
	f.IntVar(&r.QtyPlt, "plt", 0, "quantity in pallets")
	f.StringVar(&r.Spec, "spec", "", "container spec, e.g. 40FT")
	f.StringVar(&r.Shape, "shape", "", "packing shape")
	f.StringVar(&r.Remark, "remark", "", "free text remark")
	f.StringVar(&r.Working, "working", "", "working note")
	return cmd
}
