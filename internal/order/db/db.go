package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sooicy-orders/internal/account"
	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/models"
	"sooicy-orders/internal/order"
	"sooicy-orders/internal/tracking"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// DB is the bun-backed order.Store. A DB returned to a WithinTx callback runs
// every statement on that transaction.
type DB struct {
	Bun  *bun.DB
	conn bun.IDB
}

func New(b *bun.DB) *DB {
	return &DB{Bun: b, conn: b}
}

func (d *DB) idb() bun.IDB {
	if d.conn != nil {
		return d.conn
	}
	return d.Bun
}

func (d *DB) WithinTx(ctx context.Context, fn func(tx order.Store) error) error {
	if _, inTx := d.conn.(bun.Tx); inTx {
		return fn(d)
	}
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(&DB{Bun: d.Bun, conn: tx})
	})
}

// ---------------- ORDERS ----------------

func (d *DB) CreateOrder(ctx context.Context, o *models.Order) error {
	if _, err := d.idb().NewInsert().Model(o).Exec(ctx); err != nil {
		return apperr.Storage("db.CreateOrder", "failed to insert order", err)
	}
	return nil
}

func (d *DB) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	if _, err := d.idb().NewInsert().Model(item).Exec(ctx); err != nil {
		return apperr.Storage("db.CreateOrderItem", "failed to insert order item", err)
	}
	return nil
}

func (d *DB) CreateOrderItemAddons(ctx context.Context, addons []*models.OrderItemAddon) error {
	if len(addons) == 0 {
		return nil
	}
	if _, err := d.idb().NewInsert().Model(&addons).Exec(ctx); err != nil {
		return apperr.Storage("db.CreateOrderItemAddons", "failed to insert add-on snapshots", err)
	}
	return nil
}

func (d *DB) AppendTracking(ctx context.Context, entry *models.OrderTracking) error {
	return tracking.Insert(ctx, d.idb(), entry)
}

func (d *DB) RecordCustomerOrder(ctx context.Context, accountID int64, total decimal.Decimal, at time.Time) error {
	return account.RecordOrder(ctx, d.idb(), accountID, total, at)
}

// GetOrder loads the order row only.
func (d *DB) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	o := new(models.Order)
	err := d.idb().NewSelect().Model(o).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, notFoundOr("db.GetOrder", id, err)
	}
	return o, nil
}

// GetOrderDetail loads the order with its items, add-ons, history, rider and
// location.
func (d *DB) GetOrderDetail(ctx context.Context, id int64) (*models.Order, error) {
	o := new(models.Order)
	err := d.idb().NewSelect().
		Model(o).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("id ASC")
		}).
		Relation("Items.Addons").
		Relation("Tracking", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("timestamp DESC", "id DESC")
		}).
		Relation("Rider").
		Relation("Location").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr("db.GetOrderDetail", id, err)
	}
	return o, nil
}

// ListOrders returns orders newest first with their items.
func (d *DB) ListOrders(ctx context.Context, f models.OrderFilter) ([]*models.Order, error) {
	orders := make([]*models.Order, 0)
	q := d.idb().NewSelect().
		Model(&orders).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("id ASC")
		}).
		Relation("Rider").
		OrderExpr("?TableAlias.created_at DESC").
		OrderExpr("?TableAlias.id DESC")

	if f.Status != "" {
		q = q.Where("?TableAlias.status = ?", f.Status)
	}
	if f.SooicyUserID != 0 {
		q = q.Where("?TableAlias.sooicy_user_id = ?", f.SooicyUserID)
	}
	if !f.DateFrom.IsZero() {
		q = q.Where("?TableAlias.created_at >= ?", f.DateFrom)
	}
	if !f.DateTo.IsZero() {
		q = q.Where("?TableAlias.created_at < ?", f.DateTo)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(?TableAlias.customer_name) LIKE LOWER(?)", like).
				WhereOr("LOWER(?TableAlias.customer_email) LIKE LOWER(?)", like).
				WhereOr("?TableAlias.customer_phone LIKE ?", like)
		})
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, apperr.Storage("db.ListOrders", "failed to list orders", err)
	}
	return orders, nil
}

func (d *DB) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus, at time.Time) error {
	res, err := d.idb().NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return checkUpdated("db.UpdateOrderStatus", id, res, err)
}

func (d *DB) SetOrderRider(ctx context.Context, id, riderID int64, status models.OrderStatus, at time.Time) error {
	res, err := d.idb().NewUpdate().
		Model((*models.Order)(nil)).
		Set("rider_id = ?", riderID).
		Set("status = ?", status).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return checkUpdated("db.SetOrderRider", id, res, err)
}

// ---------------- RIDERS ----------------

// ClaimRider takes a slot in a single conditional UPDATE. The guard on status
// and current_orders means concurrent claims only fail once the rider is full.
func (d *DB) ClaimRider(ctx context.Context, riderID int64) (bool, error) {
	res, err := d.idb().NewUpdate().
		Model((*models.Rider)(nil)).
		Set("current_orders = current_orders + 1").
		Set("status = CASE WHEN current_orders + 1 >= ? THEN ? ELSE status END", models.MaxConcurrentOrders, models.RiderBusy).
		Set("version = version + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", riderID).
		Where("is_active = ?", true).
		Where("status = ?", models.RiderAvailable).
		Where("current_orders < ?", models.MaxConcurrentOrders).
		Exec(ctx)
	if err != nil {
		return false, apperr.Storage("db.ClaimRider", "failed to claim rider", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("db.ClaimRider", "failed to read affected rows", err)
	}
	return n == 1, nil
}

// ReleaseRider never takes current_orders below zero. Only a busy rider is
// re-opened; unavailable and offline riders keep their status.
func (d *DB) ReleaseRider(ctx context.Context, riderID int64, delivered bool) error {
	completed := 0
	if delivered {
		completed = 1
	}
	res, err := d.idb().NewUpdate().
		Model((*models.Rider)(nil)).
		Set("current_orders = CASE WHEN current_orders > 0 THEN current_orders - 1 ELSE 0 END").
		Set("status = CASE WHEN status = ? AND current_orders - 1 < ? THEN ? ELSE status END",
			models.RiderBusy, models.MaxConcurrentOrders, models.RiderAvailable).
		Set("total_deliveries = total_deliveries + ?", completed).
		Set("version = version + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", riderID).
		Exec(ctx)
	return checkUpdated("db.ReleaseRider", riderID, res, err)
}

func notFoundOr(op string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(op, "order %d not found", id)
	}
	return apperr.Storage(op, "failed to load order", err)
}

func checkUpdated(op string, id int64, res sql.Result, err error) error {
	if err != nil {
		return apperr.Storage(op, "update failed", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound(op, "row %d not found", id)
	}
	return nil
}
