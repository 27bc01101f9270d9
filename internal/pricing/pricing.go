// Package pricing computes line-item and order totals from catalog snapshots.
// It does no lookups of its own: callers resolve products, add-ons and
// locations first and pass in only what resolved.
package pricing

import (
	"fmt"

	"sooicy-orders/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// TaxRate is applied to the order subtotal.
	TaxRate = "0.08"

	PickupEstimate         = "15-20 minutes"
	BaseDeliveryMinutes    = 25
	DefaultLocationMinutes = 10
	deliveryWindowMinutes  = 10
)

const moneyPlaces int32 = 2

var taxRate = decimal.RequireFromString(TaxRate)

// ItemQuote is the priced snapshot of one order line.
type ItemQuote struct {
	Product     *models.Product
	Addons      []*models.Addon
	Quantity    int
	UnitPrice   decimal.Decimal
	AddonsPrice decimal.Decimal
	TotalPrice  decimal.Decimal
}

// Breakdown holds order-level amounts. Total is always exactly
// Subtotal + Tax + DeliveryFee.
type Breakdown struct {
	Items       []ItemQuote
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// PriceItem prices one line at the product's list price. Callers validate
// quantity first.
func PriceItem(product *models.Product, addons []*models.Addon, quantity int) ItemQuote {
	addonsPrice := decimal.Zero
	for _, a := range addons {
		addonsPrice = addonsPrice.Add(a.Price)
	}
	unit := product.Price
	return ItemQuote{
		Product:     product,
		Addons:      addons,
		Quantity:    quantity,
		UnitPrice:   unit,
		AddonsPrice: addonsPrice,
		TotalPrice:  unit.Add(addonsPrice).Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Tax rounds half away from zero to cents.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(taxRate).Round(moneyPlaces)
}

// DeliveryFee is the location's fee for delivery orders and zero otherwise.
func DeliveryFee(deliveryType models.DeliveryType, location *models.Location) decimal.Decimal {
	if deliveryType != models.DeliveryTypeDelivery || location == nil {
		return decimal.Zero
	}
	return location.DeliveryFee
}

func Quote(items []ItemQuote, deliveryType models.DeliveryType, location *models.Location) Breakdown {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.TotalPrice)
	}
	tax := Tax(subtotal)
	fee := DeliveryFee(deliveryType, location)
	return Breakdown{
		Items:       items,
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fee,
		Total:       subtotal.Add(tax).Add(fee),
	}
}

func EstimatedTime(deliveryType models.DeliveryType, location *models.Location) string {
	if deliveryType == models.DeliveryTypePickup {
		return PickupEstimate
	}
	adj := DefaultLocationMinutes
	if location != nil && location.DeliveryTimeMinutes > 0 {
		adj = location.DeliveryTimeMinutes
	}
	t := BaseDeliveryMinutes + adj
	return fmt.Sprintf("%d-%d minutes", t, t+deliveryWindowMinutes)
}
