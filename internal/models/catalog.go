package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

var hundred = decimal.NewFromInt(100)

type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID              int64           `bun:"id,pk,autoincrement" json:"id"`
	Name            string          `bun:"name,notnull" json:"name"`
	Description     string          `bun:"description" json:"description"`
	Price           decimal.Decimal `bun:"price,type:decimal(10,2),notnull" json:"price"`
	Discount        decimal.Decimal `bun:"discount,type:decimal(5,2),notnull" json:"discount"`
	Category        string          `bun:"category,notnull" json:"category"`
	Image           string          `bun:"image,nullzero" json:"image,omitempty"`
	PreparationTime string          `bun:"preparation_time,nullzero" json:"preparation_time,omitempty"`
	Rating          decimal.Decimal `bun:"rating,type:decimal(3,2),notnull" json:"rating"`
	IsAvailable     bool            `bun:"is_available,notnull" json:"is_available"`
	IsPopular       bool            `bun:"is_popular,notnull" json:"is_popular"`
	CreatedAt       time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time       `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Addons []*Addon `bun:"m2m:product_addons,join:Product=Addon" json:"addons,omitempty"`
}

// DiscountedPrice is informational; checkout charges Price.
func (p *Product) DiscountedPrice() decimal.Decimal {
	if p.Discount.GreaterThan(decimal.Zero) {
		return p.Price.Mul(decimal.NewFromInt(1).Sub(p.Discount.Div(hundred)))
	}
	return p.Price
}

type Addon struct {
	bun.BaseModel `bun:"table:addons"`

	ID          int64           `bun:"id,pk,autoincrement" json:"id"`
	Name        string          `bun:"name,notnull" json:"name"`
	Price       decimal.Decimal `bun:"price,type:decimal(10,2),notnull" json:"price"`
	Description string          `bun:"description,nullzero" json:"description,omitempty"`
	IsAvailable bool            `bun:"is_available,notnull" json:"is_available"`
	CreatedAt   time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

type ProductAddon struct {
	bun.BaseModel `bun:"table:product_addons"`

	ProductID int64    `bun:"product_id,pk"`
	Product   *Product `bun:"rel:belongs-to,join:product_id=id"`
	AddonID   int64    `bun:"addon_id,pk"`
	Addon     *Addon   `bun:"rel:belongs-to,join:addon_id=id"`
}

type Location struct {
	bun.BaseModel `bun:"table:locations"`

	ID                  int64           `bun:"id,pk,autoincrement" json:"id"`
	Name                string          `bun:"name,notnull" json:"name"`
	Area                string          `bun:"area,notnull" json:"area"`
	Address             string          `bun:"address" json:"address"`
	DeliveryTimeMinutes int             `bun:"delivery_time_minutes,notnull" json:"delivery_time_minutes"`
	DeliveryFee         decimal.Decimal `bun:"delivery_fee,type:decimal(10,2),notnull" json:"delivery_fee"`
	CoverageRadius      int             `bun:"coverage_radius,notnull" json:"coverage_radius"`
	MinOrderAmount      decimal.Decimal `bun:"min_order_amount,type:decimal(10,2),notnull" json:"min_order_amount"`
	Available           bool            `bun:"available,notnull" json:"available"`
	CreatedAt           time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt           time.Time       `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
