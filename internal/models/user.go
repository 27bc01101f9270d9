package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// SooicyUser is a customer account keyed by email. The order counters only
// ever grow.
type SooicyUser struct {
	bun.BaseModel `bun:"table:sooicy_users"`

	ID            int64           `bun:"id,pk,autoincrement" json:"id"`
	Name          string          `bun:"name,notnull" json:"name"`
	Email         string          `bun:"email,unique,notnull" json:"email"`
	Phone         string          `bun:"phone,notnull" json:"phone"`
	Address       string          `bun:"address,nullzero" json:"address,omitempty"`
	IsMember      bool            `bun:"is_member,notnull" json:"is_member"`
	TotalOrders   int             `bun:"total_orders,notnull" json:"total_orders"`
	TotalSpent    decimal.Decimal `bun:"total_spent,type:decimal(10,2),notnull" json:"total_spent"`
	JoinDate      time.Time       `bun:"join_date,notnull" json:"join_date"`
	LastOrderDate *time.Time      `bun:"last_order_date" json:"last_order_date"`
	CreatedAt     time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at,notnull" json:"updated_at"`
}

// Tables lists every model in dependency order, for schema creation.
var Tables = []interface{}{
	(*SooicyUser)(nil),
	(*Addon)(nil),
	(*Product)(nil),
	(*ProductAddon)(nil),
	(*Location)(nil),
	(*Rider)(nil),
	(*Order)(nil),
	(*OrderItem)(nil),
	(*OrderItemAddon)(nil),
	(*OrderTracking)(nil),
}

// RegisterModels registers the join models bun needs for m2m relations.
func RegisterModels(db *bun.DB) {
	db.RegisterModel((*ProductAddon)(nil))
}
