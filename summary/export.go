package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jacentio/incargo/cargo"
)

// utf8BOM lets spreadsheet applications detect the encoding of Hangul text.
const utf8BOM = "\uFEFF"

var csvHeader = []string{
	"date", "shipper", "container", "count", "bl", "item",
	"qtyEa", "qtyPlt", "spec", "shape", "remark", "working", "path",
}

// WriteCSV exports entries as a spreadsheet-friendly CSV listing.
func WriteCSV(w io.Writer, entries []cargo.Entry) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("csv: write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, e := range entries {
		r := e.Record
		row := []string{
			r.Date,
			r.Consignee,
			r.Container,
			r.Count,
			r.BL,
			r.Description,
			strconv.Itoa(r.QtyEa),
			strconv.Itoa(r.QtyPlt),
			NormalizeSpec(r.Spec),
			r.Shape,
			r.Remark,
			r.Working,
			e.Ref(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return nil
}
