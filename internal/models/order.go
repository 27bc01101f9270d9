package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPreparing  OrderStatus = "preparing"
	OrderDelivering OrderStatus = "delivering"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []OrderStatus{OrderPending, OrderPreparing, OrderDelivering, OrderDelivered, OrderCancelled}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

type PaymentMethod string

const (
	PaymentCard    PaymentMethod = "card"
	PaymentCash    PaymentMethod = "cash"
	PaymentDigital PaymentMethod = "digital"
)

var PaymentMethods = []PaymentMethod{PaymentCard, PaymentCash, PaymentDigital}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID                  int64           `bun:"id,pk,autoincrement" json:"id"`
	CustomerName        string          `bun:"customer_name,notnull" json:"customer_name"`
	CustomerPhone       string          `bun:"customer_phone,notnull" json:"customer_phone"`
	CustomerEmail       string          `bun:"customer_email,nullzero" json:"customer_email,omitempty"`
	DeliveryAddress     string          `bun:"delivery_address" json:"delivery_address"`
	PaymentMethod       PaymentMethod   `bun:"payment_method,notnull" json:"payment_method"`
	DeliveryType        DeliveryType    `bun:"delivery_type,notnull" json:"delivery_type"`
	PickupLocation      string          `bun:"pickup_location,nullzero" json:"pickup_location,omitempty"`
	SelectedLocationID  int64           `bun:"selected_location_id,nullzero" json:"selected_location,omitempty"`
	RiderID             int64           `bun:"rider_id,nullzero" json:"rider_id,omitempty"`
	SooicyUserID        int64           `bun:"sooicy_user_id,nullzero" json:"sooicy_user,omitempty"`
	Status              OrderStatus     `bun:"status,notnull" json:"status"`
	Subtotal            decimal.Decimal `bun:"subtotal,type:decimal(10,2),notnull" json:"subtotal"`
	Tax                 decimal.Decimal `bun:"tax,type:decimal(10,2),notnull" json:"tax"`
	DeliveryFee         decimal.Decimal `bun:"delivery_fee,type:decimal(10,2),notnull" json:"delivery_fee"`
	Total               decimal.Decimal `bun:"total,type:decimal(10,2),notnull" json:"total"`
	EstimatedTime       string          `bun:"estimated_time,nullzero" json:"estimated_time,omitempty"`
	SpecialInstructions string          `bun:"special_instructions,nullzero" json:"special_instructions,omitempty"`
	CreatedAt           time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt           time.Time       `bun:"updated_at,notnull" json:"updated_at"`

	Items    []*OrderItem     `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
	Tracking []*OrderTracking `bun:"rel:has-many,join:id=order_id" json:"tracking,omitempty"`
	Rider    *Rider           `bun:"rel:belongs-to,join:rider_id=id" json:"rider,omitempty"`
	Location *Location        `bun:"rel:belongs-to,join:selected_location_id=id" json:"location,omitempty"`

	// AllowedNext is filled by the order service on reads; it is not stored.
	AllowedNext []OrderStatus `bun:"-" json:"allowed_next"`
}

// VerifyTotals checks that the stored monetary fields agree with each other
// and with the item rows, when the items are loaded.
func (o *Order) VerifyTotals() error {
	if o.Subtotal.IsNegative() || o.Tax.IsNegative() || o.DeliveryFee.IsNegative() || o.Total.IsNegative() {
		return fmt.Errorf("order %d has a negative monetary field", o.ID)
	}
	if !o.Subtotal.Add(o.Tax).Add(o.DeliveryFee).Equal(o.Total) {
		return fmt.Errorf("order %d total %s != subtotal %s + tax %s + delivery fee %s",
			o.ID, o.Total, o.Subtotal, o.Tax, o.DeliveryFee)
	}
	if o.Items == nil {
		return nil
	}
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.TotalPrice)
	}
	if !sum.Equal(o.Subtotal) {
		return fmt.Errorf("order %d subtotal %s != sum of items %s", o.ID, o.Subtotal, sum)
	}
	return nil
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID                  int64           `bun:"id,pk,autoincrement" json:"id"`
	OrderID             int64           `bun:"order_id,notnull" json:"order"`
	ProductID           int64           `bun:"product_id,notnull" json:"product"`
	ProductName         string          `bun:"product_name,notnull" json:"product_name"`
	Quantity            int             `bun:"quantity,notnull" json:"quantity"`
	UnitPrice           decimal.Decimal `bun:"unit_price,type:decimal(10,2),notnull" json:"unit_price"`
	AddonsPrice         decimal.Decimal `bun:"addons_price,type:decimal(10,2),notnull" json:"addons_price"`
	TotalPrice          decimal.Decimal `bun:"total_price,type:decimal(10,2),notnull" json:"total_price"`
	SpecialInstructions string          `bun:"special_instructions,nullzero" json:"special_instructions,omitempty"`

	Addons []*OrderItemAddon `bun:"rel:has-many,join:id=order_item_id" json:"addons_detail,omitempty"`
}

// OrderItemAddon is the snapshot of an add-on selected for an order item.
type OrderItemAddon struct {
	bun.BaseModel `bun:"table:order_item_addons"`

	ID          int64           `bun:"id,pk,autoincrement" json:"id"`
	OrderItemID int64           `bun:"order_item_id,notnull" json:"order_item"`
	AddonID     int64           `bun:"addon_id,notnull" json:"addon"`
	Name        string          `bun:"name,notnull" json:"name"`
	Price       decimal.Decimal `bun:"price,type:decimal(10,2),notnull" json:"price"`
}

// OrderFilter narrows order listings. Zero values are ignored.
type OrderFilter struct {
	Status       OrderStatus
	DateFrom     time.Time
	DateTo       time.Time
	Search       string
	SooicyUserID int64
	Limit        int
}
