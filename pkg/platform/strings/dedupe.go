// Package strings provides string list helpers shared by services.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and blank entries, trimming whitespace.
// Order of first occurrence is preserved.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// NormalizeIndicators dedupes fraud or risk indicator names, folding case and
// turning inner spaces into underscores so "Name Mismatch" and "name_mismatch"
// collapse into one entry.
func NormalizeIndicators(values []string) []string {
	return dedupe(values, func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.Join(strings.Fields(s), "_")
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	return result
}
