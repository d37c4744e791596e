package cart

import (
	"github.com/shopspring/decimal"

	"agegate/pkg/domain"
)

// LineItem is one entry of a BigCommerce cart. SKU is kept as the upstream
// sent it; use NormalizedSKU for comparisons.
type LineItem struct {
	ID        string          `json:"id"`
	ProductID int             `json:"productId"`
	VariantID int             `json:"variantId"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	ListPrice decimal.Decimal `json:"listPrice"`
}

func (li LineItem) NormalizedSKU() domain.SKU {
	return domain.NormalizeSKU(li.SKU)
}

// LineTotal is list price times quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.ListPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type cartResponse struct {
	Data struct {
		ID        string `json:"id"`
		LineItems struct {
			PhysicalItems []upstreamItem `json:"physical_items"`
			DigitalItems  []upstreamItem `json:"digital_items"`
			CustomItems   []upstreamItem `json:"custom_items"`
		} `json:"line_items"`
	} `json:"data"`
}

type upstreamItem struct {
	ID        string          `json:"id"`
	ProductID int             `json:"product_id"`
	VariantID int             `json:"variant_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	ListPrice decimal.Decimal `json:"list_price"`
}

func (u upstreamItem) toLineItem() LineItem {
	return LineItem(u)
}
