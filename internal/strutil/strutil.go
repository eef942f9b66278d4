// Package strutil holds the small string helpers shared by the probes,
// the registry and the table renderer.
package strutil

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Trim strips leading and trailing ASCII whitespace.
func Trim(s string) string {
	return strings.TrimFunc(s, isSpace)
}

// Clip trims s and truncates it to at most max bytes, marking a
// truncation with a trailing "..". max <= 0 disables clipping.
func Clip(s string, max int) string {
	s = Trim(s)
	if max <= 0 || len(s)+2 <= max {
		return s
	}
	if max <= 2 {
		return s[:max]
	}
	return s[:max-2] + ".."
}

// CollapseSpace replaces every run of whitespace with a single space.
func CollapseSpace(s string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if isSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// SizeString renders a byte count as a compact decimal-scaled string:
// plain bytes below 2000, then K, M, G, T and finally P. Matches the
// camcontrol-style capacity column rather than IEC units.
func SizeString(n int64) string {
	if n < 2000 {
		return fmt.Sprintf("%d", n)
	}
	v := float64(n)
	for _, unit := range []string{"K", "M", "G", "T"} {
		v /= 1000
		if v < 2000 {
			return fmt.Sprintf("%.0f%s", v, unit)
		}
	}
	return fmt.Sprintf("%.0fP", v/1000)
}

// FixedASCII extracts a fixed-width, space-padded identify field: the
// bytes up to the first NUL, with surrounding whitespace removed.
func FixedASCII(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return Trim(string(b))
}

// AppendUnique appends s to list unless an equal element is already
// present. Order of first appearance is preserved.
func AppendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}

// JoinSorted renders an ordered set as a comma-joined string in
// lexicographic order, independent of insertion order.
func JoinSorted(list []string) string {
	sorted := make([]string, len(list))
	copy(sorted, list)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
