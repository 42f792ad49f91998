package summary

import (
	"regexp"
	"strings"
)

// Closed spec vocabulary.
const (
	Spec40FT = "40FT"
	Spec20FT = "20FT"
	SpecLCL  = "LCL"

	// OtherSpec labels records with no spec at all.
	OtherSpec = "기타"

	// Unclassified labels records with no shipper.
	Unclassified = "미분류"
)

var shortCode = regexp.MustCompile(`\(([^)]+)\)`)

// NormalizeShipper returns the grouping name of a shipper. A parenthesised
// short code wins over the full name: "Acme Corp (ACM)" groups as "ACM".
func NormalizeShipper(raw string) string {
	if m := shortCode.FindStringSubmatch(raw); m != nil {
		if code := strings.TrimSpace(m[1]); code != "" {
			return code
		}
	}
	if s := strings.TrimSpace(raw); s != "" {
		return s
	}
	return Unclassified
}

// NormalizeSpec maps free-text container specs onto 40FT, 20FT and LCL.
// The checks run in this order and the "L" catch is deliberately broad:
// existing data relies on it. Unmatched values are returned upper-cased.
func NormalizeSpec(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case s == "":
		return OtherSpec
	case strings.Contains(s, "40") && strings.Contains(s, "F"):
		return Spec40FT
	case strings.Contains(s, "20") && strings.Contains(s, "F"):
		return Spec20FT
	case strings.Contains(s, "LCL") || strings.Contains(s, "L"):
		return SpecLCL
	}
	return s
}
