package analytics

import (
	"context"
	"time"

	"sooicy-orders/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// DB handles analytics database operations
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// CountOrders counts orders, optionally by status and creation window.
// A zero status or bound is ignored.
func (db *DB) CountOrders(ctx context.Context, status models.OrderStatus, from, to time.Time) (int, error) {
	q := db.bun.NewSelect().Model((*models.Order)(nil))
	q = window(q, status, from, to)
	return q.Count(ctx)
}

// SumRevenue sums order totals under the same filters as CountOrders.
func (db *DB) SumRevenue(ctx context.Context, status models.OrderStatus, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	q := db.bun.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("COALESCE(SUM(?TableAlias.total), 0)")
	q = window(q, status, from, to)
	err := q.Scan(ctx, &total)
	return total, err
}

func window(q *bun.SelectQuery, status models.OrderStatus, from, to time.Time) *bun.SelectQuery {
	if status != "" {
		q = q.Where("?TableAlias.status = ?", status)
	}
	if !from.IsZero() {
		q = q.Where("?TableAlias.created_at >= ?", from.UTC())
	}
	if !to.IsZero() {
		q = q.Where("?TableAlias.created_at < ?", to.UTC())
	}
	return q
}

// CountRiders counts active riders, optionally only those in status.
func (db *DB) CountRiders(ctx context.Context, status models.RiderStatus) (int, error) {
	q := db.bun.NewSelect().Model((*models.Rider)(nil)).Where("is_active = ?", true)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return q.Count(ctx)
}

func (db *DB) CountProducts(ctx context.Context) (int, error) {
	return db.bun.NewSelect().Model((*models.Product)(nil)).Count(ctx)
}

func (db *DB) CountLocations(ctx context.Context) (int, error) {
	return db.bun.NewSelect().Model((*models.Location)(nil)).Count(ctx)
}

// SaleRow is one delivered order reduced to what daily bucketing needs.
type SaleRow struct {
	Total     decimal.Decimal `bun:"total"`
	CreatedAt time.Time       `bun:"created_at"`
}

// GetDeliveredSince returns delivered orders created at or after from.
func (db *DB) GetDeliveredSince(ctx context.Context, from time.Time) ([]SaleRow, error) {
	var rows []SaleRow
	err := db.bun.NewSelect().
		Model((*models.Order)(nil)).
		Column("total", "created_at").
		Where("status = ?", models.OrderDelivered).
		Where("created_at >= ?", from.UTC()).
		OrderExpr("created_at ASC").
		Scan(ctx, &rows)
	return rows, err
}

// ProductSalesData is raw per-product delivered sales.
type ProductSalesData struct {
	ProductID  int64           `bun:"product_id"`
	Name       string          `bun:"name"`
	OrderCount int             `bun:"order_count"`
	Revenue    decimal.Decimal `bun:"revenue"`
}

// GetTopProducts ranks products by the number of delivered orders they
// appear in.
func (db *DB) GetTopProducts(ctx context.Context, limit int) ([]ProductSalesData, error) {
	var rows []ProductSalesData
	err := db.bun.NewSelect().
		TableExpr("order_items AS oi").
		Join("JOIN orders AS o ON o.id = oi.order_id").
		Join("JOIN products AS p ON p.id = oi.product_id").
		ColumnExpr("p.id AS product_id").
		ColumnExpr("p.name AS name").
		ColumnExpr("COUNT(DISTINCT oi.order_id) AS order_count").
		ColumnExpr("COALESCE(SUM(oi.total_price), 0) AS revenue").
		Where("o.status = ?", models.OrderDelivered).
		GroupExpr("p.id, p.name").
		OrderExpr("order_count DESC, revenue DESC, p.id ASC").
		Limit(limit).
		Scan(ctx, &rows)
	return rows, err
}

// CategoryRevenueData is raw delivered revenue for one product category.
type CategoryRevenueData struct {
	Category string          `bun:"category"`
	Revenue  decimal.Decimal `bun:"revenue"`
}

func (db *DB) GetCategoryRevenue(ctx context.Context) ([]CategoryRevenueData, error) {
	var rows []CategoryRevenueData
	err := db.bun.NewSelect().
		TableExpr("order_items AS oi").
		Join("JOIN orders AS o ON o.id = oi.order_id").
		Join("JOIN products AS p ON p.id = oi.product_id").
		ColumnExpr("p.category AS category").
		ColumnExpr("COALESCE(SUM(oi.total_price), 0) AS revenue").
		Where("o.status = ?", models.OrderDelivered).
		GroupExpr("p.category").
		Scan(ctx, &rows)
	return rows, err
}
