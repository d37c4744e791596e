// Package strings provides string slice helpers shared by request parsing and
// catalog normalization.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice, trimming
// whitespace from each element. Order is preserved.
//
//	DedupeAndTrim([]string{"  over18 ", "over18", ""})
//	// Returns: []string{"over18"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, func(s string) string { return s })
}

// DedupeAndTrimUpper is like DedupeAndTrim but also upper-cases each element,
// matching the SKU normalization rule.
//
//	DedupeAndTrimUpper([]string{" knife-1", "KNIFE-1 ", "shirt-9"})
//	// Returns: []string{"KNIFE-1", "SHIRT-9"}
func DedupeAndTrimUpper(values []string) []string {
	return dedupe(values, strings.ToUpper)
}

func dedupe(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := fold(strings.TrimSpace(v))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
