// Package keypath provides composite key and store path derivation for cargo records.
package keypath

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Separator delimits path segments.
const Separator = "/"

// SuffixDigits is the width of the collision suffix.
const SuffixDigits = 6

// Sanitize keeps ASCII letters and digits only.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if isASCIIAlnum(r) {
			return r
		}
		return -1
	}, s)
}

// SanitizeDescription keeps ASCII letters, digits and Hangul syllables (U+AC00..U+D7A3).
func SanitizeDescription(s string) string {
	return strings.Map(func(r rune) rune {
		if isASCIIAlnum(r) || isHangulSyllable(r) {
			return r
		}
		return -1
	}, s)
}

// Compose builds the canonical record key.
// The field order and the lack of separators between bl, description and count
// must not change: previously written keys depend on it.
func Compose(bl, description, count, container string) string {
	return Sanitize(bl) + SanitizeDescription(description) + Sanitize(count) + "_" + Sanitize(container)
}

// Legacy builds the per-consignee key form written by older uploads.
// It is only used to recognise and migrate existing data.
func Legacy(consignee, bl, description, count, container string) string {
	return consignee + Separator + bl + "_" + description + "_" + count + "_" + container
}

// Suffix returns the last six digits of t in epoch milliseconds, zero padded.
func Suffix(t time.Time) string {
	return fmt.Sprintf("%0*d", SuffixDigits, t.UnixMilli()%1_000_000)
}

// Disambiguate appends the collision suffix derived from t to key.
func Disambiguate(key string, t time.Time) string {
	return key + "_" + Suffix(t)
}

// HasSuffix reports whether key ends with a collision suffix.
func HasSuffix(key string) bool {
	i := strings.LastIndex(key, "_")
	if i < 0 || len(key)-i-1 != SuffixDigits {
		return false
	}
	for _, r := range key[i+1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DatePath converts an ISO date (yyyy-mm-dd) into a yyyy/mm/dd path.
func DatePath(date string) (string, error) {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return "", fmt.Errorf("date path: %w", err)
	}
	return t.Format("2006/01/02"), nil
}

// DateFromPath finds the first yyyy/mm/dd run inside path and returns it as yyyy-mm-dd.
func DateFromPath(path string) (string, bool) {
	parts := Split(path)
	for i := 0; i+2 < len(parts); i++ {
		if len(parts[i]) != 4 || len(parts[i+1]) != 2 || len(parts[i+2]) != 2 {
			continue
		}
		date := parts[i] + "-" + parts[i+1] + "-" + parts[i+2]
		if _, err := time.Parse(time.DateOnly, date); err == nil {
			return date, true
		}
	}
	return "", false
}

// Segment turns free text into a single path segment.
// Characters the store reserves are replaced with '_'.
func Segment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '.', '#', '$', '[', ']':
			return '_'
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "_"
	}
	return s
}

// Join joins non-empty segments with the separator, trimming stray slashes.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, Separator)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, Separator)
}

// Split returns the non-empty segments of path.
func Split(path string) []string {
	raw := strings.Split(path, Separator)
	out := raw[:0]
	for _, p := range raw {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Base returns the last segment of path.
func Base(path string) string {
	parts := Split(path)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// Dir returns path without its last segment.
func Dir(path string) string {
	parts := Split(path)
	if len(parts) <= 1 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], Separator)
}

// Within reports whether path equals base or lies below it.
func Within(path, base string) bool {
	path, base = Join(path), Join(base)
	if base == "" {
		return true
	}
	return path == base || strings.HasPrefix(path, base+Separator)
}

// Rel returns path relative to base, or path itself when it is not below base.
func Rel(path, base string) string {
	path, base = Join(path), Join(base)
	if base == "" || !Within(path, base) {
		return path
	}
	return strings.TrimPrefix(strings.TrimPrefix(path, base), Separator)
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isHangulSyllable(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}
