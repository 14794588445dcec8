package utils

import (
	"strings"
)

// NormalizeSpace collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeSeatID trims and upper-cases a seat label.
func NormalizeSeatID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// CleanSeatList normalizes seat labels and reports the first duplicate or empty entry.
func CleanSeatList(raw []string) (out []string, bad string, ok bool) {
	seen := make(map[string]bool, len(raw))
	out = make([]string, 0, len(raw))
	for _, s := range raw {
		seat := NormalizeSeatID(s)
		if seat == "" || seen[seat] {
			return nil, s, false
		}
		seen[seat] = true
		out = append(out, seat)
	}
	return out, "", true
}

// SplitSeatList splits "1A, 1B;2C" into seat labels. Empty entries are dropped.
func SplitSeatList(raw string) []string {
	out := []string{}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	for _, p := range parts {
		if p = NormalizeSeatID(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
