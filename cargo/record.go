// Package cargo defines the cargo intake record and its stored field layout.
package cargo

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Stored field names.
const (
	FieldDate        = "date"
	FieldConsignee   = "consignee"
	FieldContainer   = "container"
	FieldCount       = "count"
	FieldBL          = "bl"
	FieldDescription = "description"
	FieldQtyEa       = "qtyEa"
	FieldQtyPlt      = "qtyPlt"
	FieldSpec        = "spec"
	FieldShape       = "shape"
	FieldRemark      = "remark"
	FieldWorking     = "working"
	FieldRefValue    = "refValue"
)

// Legacy field names still found in older data.
const (
	LegacyShipper  = "shipper"
	LegacySeal     = "seal"
	LegacyItemName = "itemName"
)

// Record is one container line item.
type Record struct {
	Date        string
	Consignee   string
	Container   string
	Count       string
	BL          string
	Description string
	QtyEa       int
	QtyPlt      int
	Spec        string
	Shape       string
	Remark      string
	Working     string

	// RefValue is the store path the record currently lives at.
	RefValue string
}

// FromFields decodes a stored object. It never fails: absent or malformed
// fields become empty strings or zero quantities.
func FromFields(m map[string]any) Record {
	return Record{
		Date:        str(m, FieldDate),
		Consignee:   str(m, FieldConsignee, LegacyShipper),
		Container:   str(m, FieldContainer),
		Count:       str(m, FieldCount, LegacySeal),
		BL:          str(m, FieldBL),
		Description: str(m, FieldDescription, LegacyItemName),
		QtyEa:       qty(m[FieldQtyEa]),
		QtyPlt:      qty(m[FieldQtyPlt]),
		Spec:        str(m, FieldSpec),
		Shape:       str(m, FieldShape),
		Remark:      str(m, FieldRemark),
		Working:     str(m, FieldWorking),
		RefValue:    str(m, FieldRefValue),
	}
}

// Fields encodes the record as a whole stored object.
func (r Record) Fields() map[string]any {
	return map[string]any{
		FieldDate:        r.Date,
		FieldConsignee:   r.Consignee,
		FieldContainer:   r.Container,
		FieldCount:       r.Count,
		FieldBL:          r.BL,
		FieldDescription: r.Description,
		FieldQtyEa:       max(r.QtyEa, 0),
		FieldQtyPlt:      max(r.QtyPlt, 0),
		FieldSpec:        r.Spec,
		FieldShape:       r.Shape,
		FieldRemark:      r.Remark,
		FieldWorking:     r.Working,
		FieldRefValue:    r.RefValue,
	}
}

// Validate checks the fields required before a record may be written.
func (r Record) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{FieldBL, r.BL},
		{FieldDescription, r.Description},
		{FieldCount, r.Count},
		{FieldContainer, r.Container},
		{FieldConsignee, r.Consignee},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	return nil
}

// Trimmed returns a copy with surrounding whitespace removed from every text field.
func (r Record) Trimmed() Record {
	for _, p := range []*string{
		&r.Date, &r.Consignee, &r.Container, &r.Count, &r.BL, &r.Description,
		&r.Spec, &r.Shape, &r.Remark, &r.Working,
	} {
		*p = strings.TrimSpace(*p)
	}
	return r
}

// Day parses the record date. ok is false when the date is missing or invalid.
func (r Record) Day() (time.Time, bool) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(r.Date))
	return t, err == nil
}

// str returns the first non-empty value among names, formatted as text.
func str(m map[string]any, names ...string) string {
	for _, name := range names {
		switch v := m[name].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case json.Number:
			return v.String()
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

// qty reads a quantity the way a lenient integer parse would: leading digits
// of a string count, anything else is zero. Negative values clamp to zero.
func qty(v any) int {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		n = int(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			n = int(i)
		} else if f, err := x.Float64(); err == nil {
			n = int(f)
		}
	case string:
		n = leadingInt(x)
	}
	return max(n, 0)
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for i, r := range s {
		if i == 0 && (r == '-' || r == '+') {
			end = 1
			continue
		}
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			break
		}
		end = i + 1
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
