package restriction

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"agegate/internal/cart"
	"agegate/pkg/domain"
)

func TestEvaluate(t *testing.T) {
	restricted := NewSKUSet("KNIFE-1", " wine-7 ")

	t.Run("membership ignores case and surrounding whitespace", func(t *testing.T) {
		got := Evaluate([]cart.LineItem{{ID: "1", SKU: " knife-1 "}}, restricted)
		assert.Equal(t, []domain.SKU{"KNIFE-1"}, got.SKUs)
	})

	t.Run("scenario: only the restricted item is reported", func(t *testing.T) {
		items := []cart.LineItem{
			{ID: "li-1", SKU: "KNIFE-1", Name: "Chef knife"},
			{ID: "li-2", SKU: "shirt-9", Name: "Shirt"},
		}
		got := Evaluate(items, restricted)
		if diff := cmp.Diff([]cart.LineItem{items[0]}, got.Items); diff != "" {
			t.Errorf("items (-want +got):\n%s", diff)
		}
	})

	t.Run("duplicate SKUs are reported once but every line is kept", func(t *testing.T) {
		items := []cart.LineItem{
			{ID: "a", SKU: "wine-7"},
			{ID: "b", SKU: "WINE-7"},
			{ID: "c", SKU: "knife-1"},
		}
		got := Evaluate(items, restricted)
		assert.Len(t, got.Items, 3)
		assert.Equal(t, []domain.SKU{"WINE-7", "KNIFE-1"}, got.SKUs)
	})

	t.Run("empty SKUs never match", func(t *testing.T) {
		got := Evaluate([]cart.LineItem{{ID: "x", SKU: "   "}}, NewSKUSet(""))
		assert.True(t, got.Empty())
	})

	t.Run("unrestricted cart is empty", func(t *testing.T) {
		assert.True(t, Evaluate(nil, restricted).Empty())
	})
}

func TestEvaluate_RandomCartsKeepUnrestrictedItems(t *testing.T) {
	faker := gofakeit.New(42)
	restricted := NewSKUSet("KNIFE-1")
	for range 50 {
		var items []cart.LineItem
		restrictedLines := 0
		for i := range faker.IntRange(1, 10) {
			sku := faker.LetterN(6)
			if faker.Bool() {
				sku = "knife-1"
				restrictedLines++
			}
			items = append(items, cart.LineItem{ID: faker.UUID(), SKU: sku, Quantity: i + 1})
		}
		got := Evaluate(items, restricted)
		assert.Len(t, got.Items, restrictedLines)
		for _, item := range got.Items {
			assert.Equal(t, domain.SKU("KNIFE-1"), item.NormalizedSKU())
		}
	}
}
