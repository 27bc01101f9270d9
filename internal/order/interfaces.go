package order

import (
	"context"
	"time"

	"sooicy-orders/internal/models"

	"github.com/shopspring/decimal"
)

// Store persists orders and the rows that change with them. WithinTx runs fn
// against a Store bound to one transaction; an error from fn rolls it back.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	CreateOrder(ctx context.Context, o *models.Order) error
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	CreateOrderItemAddons(ctx context.Context, addons []*models.OrderItemAddon) error
	AppendTracking(ctx context.Context, entry *models.OrderTracking) error
	RecordCustomerOrder(ctx context.Context, accountID int64, total decimal.Decimal, at time.Time) error

	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderDetail(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)

	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus, at time.Time) error
	SetOrderRider(ctx context.Context, id, riderID int64, status models.OrderStatus, at time.Time) error

	// ClaimRider takes one slot on an active, available rider with room for
	// another order. It reports false when the rider has no slot left.
	ClaimRider(ctx context.Context, riderID int64) (bool, error)
	// ReleaseRider gives a slot back when an order reaches a terminal status.
	ReleaseRider(ctx context.Context, riderID int64, delivered bool) error
}

type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetAddons(ctx context.Context, ids []int64) ([]*models.Addon, error)
	GetLocation(ctx context.Context, id int64) (*models.Location, error)
	GetRider(ctx context.Context, id int64) (*models.Rider, error)
}

type Accounts interface {
	Get(ctx context.Context, id int64) (*models.SooicyUser, error)
}

type OrderLock interface {
	LockOrder(ctx context.Context, orderID int64, owner string) (bool, error)
	UnlockOrder(ctx context.Context, orderID int64, owner string) error
}

// EventPublisher announces committed changes. entry is the tracking row the
// change wrote.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o *models.Order, entry *models.OrderTracking) error
	PublishOrderStatusChanged(ctx context.Context, o *models.Order, from models.OrderStatus, entry *models.OrderTracking) error
	PublishRiderAssigned(ctx context.Context, o *models.Order, rider *models.Rider, entry *models.OrderTracking) error
}

type TrackingFeed interface {
	Publish(entry models.OrderTracking)
}
