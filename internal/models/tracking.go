package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TrackingAssigned labels the ledger entry written when a rider takes an order.
const TrackingAssigned = "assigned"

type OrderTracking struct {
	bun.BaseModel `bun:"table:order_tracking"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	OrderID   int64     `bun:"order_id,notnull" json:"order"`
	Status    string    `bun:"status,notnull" json:"status"`
	Timestamp time.Time `bun:"timestamp,notnull" json:"timestamp"`
	Notes     string    `bun:"notes,nullzero" json:"notes,omitempty"`
	UpdatedBy string    `bun:"updated_by,nullzero" json:"updated_by,omitempty"`
}
