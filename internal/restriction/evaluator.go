// Package restriction intersects cart contents with the restricted SKU set.
// It performs no I/O.
package restriction

import (
	"agegate/internal/cart"
	"agegate/pkg/domain"
	strutil "agegate/pkg/platform/strings"
)

// Set answers membership for a normalized SKU.
type Set interface {
	IsRestricted(sku string) bool
}

// Evaluation is the outcome of intersecting one cart with the restricted set.
type Evaluation struct {
	// Items are the offending line items, in cart order.
	Items []cart.LineItem
	// SKUs are the distinct normalized SKUs of Items, in first-seen order.
	SKUs []domain.SKU
}

// Empty reports whether the cart holds nothing restricted.
func (e Evaluation) Empty() bool {
	return len(e.Items) == 0
}

// Evaluate returns the line items whose normalized SKU is restricted.
func Evaluate(items []cart.LineItem, restricted Set) Evaluation {
	var out Evaluation
	var raw []string
	for _, item := range items {
		sku := item.NormalizedSKU()
		if sku.IsZero() || !restricted.IsRestricted(string(sku)) {
			continue
		}
		out.Items = append(out.Items, item)
		raw = append(raw, item.SKU)
	}
	for _, sku := range strutil.DedupeAndTrimUpper(raw) {
		out.SKUs = append(out.SKUs, domain.SKU(sku))
	}
	return out
}

// SKUSet is a fixed Set, used where the restricted SKUs are known up front.
type SKUSet map[domain.SKU]struct{}

// NewSKUSet normalizes raw and drops empties.
func NewSKUSet(raw ...string) SKUSet {
	s := make(SKUSet, len(raw))
	for _, r := range raw {
		if sku := domain.NormalizeSKU(r); !sku.IsZero() {
			s[sku] = struct{}{}
		}
	}
	return s
}

func (s SKUSet) IsRestricted(sku string) bool {
	_, ok := s[domain.NormalizeSKU(sku)]
	return ok
}
