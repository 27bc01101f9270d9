package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type RiderStatus string

const (
	RiderAvailable   RiderStatus = "available"
	RiderBusy        RiderStatus = "busy"
	RiderUnavailable RiderStatus = "unavailable"
	RiderOffline     RiderStatus = "offline"
)

var RiderStatuses = []RiderStatus{RiderAvailable, RiderBusy, RiderUnavailable, RiderOffline}

var VehicleTypes = []string{"bike", "scooter", "car", "bicycle"}

func ParseRiderStatus(s string) (RiderStatus, bool) {
	for _, st := range RiderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func IsVehicleType(s string) bool {
	for _, v := range VehicleTypes {
		if v == s {
			return true
		}
	}
	return false
}

// MaxConcurrentOrders is the number of active orders that makes a rider busy.
const MaxConcurrentOrders = 3

type Rider struct {
	bun.BaseModel `bun:"table:riders"`

	ID              int64           `bun:"id,pk,autoincrement" json:"id"`
	Name            string          `bun:"name,notnull" json:"name"`
	Phone           string          `bun:"phone,notnull,unique" json:"phone"`
	Email           string          `bun:"email,nullzero" json:"email,omitempty"`
	VehicleType     string          `bun:"vehicle_type,notnull" json:"vehicle_type"`
	Status          RiderStatus     `bun:"status,notnull" json:"status"`
	Rating          decimal.Decimal `bun:"rating,type:decimal(3,2),notnull" json:"rating"`
	TotalDeliveries int             `bun:"total_deliveries,notnull" json:"total_deliveries"`
	CurrentOrders   int             `bun:"current_orders,notnull" json:"current_orders"`
	IsActive        bool            `bun:"is_active,notnull" json:"is_active"`
	Version         int64           `bun:"version,notnull" json:"-"`
	CreatedAt       time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time       `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
