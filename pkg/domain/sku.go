package domain

import "strings"

// SKU is a normalized stock keeping unit: trimmed and upper-cased. Every SKU
// comparison between the catalog and a cart goes through NormalizeSKU.
type SKU string

// NormalizeSKU trims surrounding whitespace and upper-cases s.
func NormalizeSKU(s string) SKU {
	return SKU(strings.ToUpper(strings.TrimSpace(s)))
}

func (s SKU) String() string { return string(s) }

// IsZero reports whether the SKU is empty after normalization.
func (s SKU) IsZero() bool { return s == "" }
