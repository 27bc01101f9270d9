package pricing_test

import (
	"testing"

	"sooicy-orders/internal/models"
	"sooicy-orders/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPriceItemFormula(t *testing.T) {
	product := &models.Product{ID: 1, Name: "Mango Sorbet", Price: dec("10.00"), Discount: dec("20")}
	addons := []*models.Addon{
		{ID: 1, Name: "Sprinkles", Price: dec("1.00")},
		{ID: 2, Name: "Fudge", Price: dec("1.50")},
	}

	q := pricing.PriceItem(product, addons, 3)

	assert.True(t, q.UnitPrice.Equal(dec("10.00")), "discount is not applied at checkout")
	assert.True(t, q.AddonsPrice.Equal(dec("2.50")))
	assert.True(t, q.TotalPrice.Equal(dec("37.50")), "got %s", q.TotalPrice)
	assert.Equal(t, 3, q.Quantity)
}

func TestPriceItemWithoutAddons(t *testing.T) {
	q := pricing.PriceItem(&models.Product{Price: dec("4.00")}, nil, 1)
	assert.True(t, q.AddonsPrice.IsZero())
	assert.True(t, q.TotalPrice.Equal(dec("4.00")))
}

func TestQuoteDeliveryFeePolicy(t *testing.T) {
	loc := &models.Location{ID: 9, DeliveryFee: dec("5.00"), DeliveryTimeMinutes: 15}
	items := []pricing.ItemQuote{
		pricing.PriceItem(&models.Product{Price: dec("10.00")}, nil, 2),
	}

	delivery := pricing.Quote(items, models.DeliveryTypeDelivery, loc)
	assert.True(t, delivery.DeliveryFee.Equal(dec("5.00")))

	pickup := pricing.Quote(items, models.DeliveryTypePickup, loc)
	assert.True(t, pickup.DeliveryFee.IsZero())

	noLocation := pricing.Quote(items, models.DeliveryTypeDelivery, nil)
	assert.True(t, noLocation.DeliveryFee.IsZero())
}

func TestQuoteTotalInvariant(t *testing.T) {
	items := []pricing.ItemQuote{
		pricing.PriceItem(&models.Product{Price: dec("3.33")}, []*models.Addon{{Price: dec("0.10")}}, 3),
		pricing.PriceItem(&models.Product{Price: dec("7.19")}, nil, 1),
	}
	b := pricing.Quote(items, models.DeliveryTypeDelivery, &models.Location{DeliveryFee: dec("2.75")})

	// 3.43*3 + 7.19 = 17.48; 17.48*0.08 = 1.3984
	assert.True(t, b.Subtotal.Equal(dec("17.48")), "subtotal %s", b.Subtotal)
	assert.True(t, b.Tax.Equal(dec("1.40")), "tax %s", b.Tax)
	assert.True(t, b.Total.Equal(b.Subtotal.Add(b.Tax).Add(b.DeliveryFee)))
	assert.True(t, b.Total.Equal(dec("21.63")), "total %s", b.Total)
}

func TestTaxRoundsHalfAwayFromZero(t *testing.T) {
	// 0.0625 * 0.08 = 0.005 -> 0.01
	assert.True(t, pricing.Tax(dec("0.0625")).Equal(dec("0.01")))
	assert.True(t, pricing.Tax(decimal.Zero).IsZero())
}

func TestEmptyQuoteIsZero(t *testing.T) {
	b := pricing.Quote(nil, models.DeliveryTypePickup, nil)
	assert.True(t, b.Total.IsZero())
}

func TestEstimatedTime(t *testing.T) {
	tests := []struct {
		name         string
		deliveryType models.DeliveryType
		location     *models.Location
		want         string
	}{
		{"pickup", models.DeliveryTypePickup, &models.Location{DeliveryTimeMinutes: 40}, "15-20 minutes"},
		{"delivery default", models.DeliveryTypeDelivery, nil, "35-45 minutes"},
		{"delivery zero minutes", models.DeliveryTypeDelivery, &models.Location{}, "35-45 minutes"},
		{"delivery location minutes", models.DeliveryTypeDelivery, &models.Location{DeliveryTimeMinutes: 20}, "45-55 minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pricing.EstimatedTime(tt.deliveryType, tt.location))
		})
	}
}
