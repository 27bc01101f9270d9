// Package tracking owns the append-only order history.
package tracking

import (
	"context"
	"time"

	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/models"

	"github.com/uptrace/bun"
)

// DefaultActor is recorded when a caller does not name itself.
const DefaultActor = "System"

// NewEntry builds an entry stamped with the current time.
func NewEntry(orderID int64, status, note, actor string) *models.OrderTracking {
	if actor == "" {
		actor = DefaultActor
	}
	return &models.OrderTracking{
		OrderID:   orderID,
		Status:    status,
		Timestamp: time.Now().UTC(),
		Notes:     note,
		UpdatedBy: actor,
	}
}

// Insert appends an entry. db may be a transaction; entries are never
// updated afterwards.
func Insert(ctx context.Context, db bun.IDB, entry *models.OrderTracking) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return apperr.Storage("tracking.Insert", "failed to insert tracking entry", err)
	}
	return nil
}

// ListByOrder returns the entries for an order, newest first.
func ListByOrder(ctx context.Context, db bun.IDB, orderID int64) ([]*models.OrderTracking, error) {
	entries := make([]*models.OrderTracking, 0)
	err := db.NewSelect().
		Model(&entries).
		Where("order_id = ?", orderID).
		Order("timestamp DESC", "id DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.Storage("tracking.List", "failed to list tracking entries", err)
	}
	return entries, nil
}

type Ledger struct {
	DB *bun.DB
}

func NewLedger(db *bun.DB) *Ledger {
	return &Ledger{DB: db}
}

// List fails with not found when the order does not exist.
func (l *Ledger) List(ctx context.Context, orderID int64) ([]*models.OrderTracking, error) {
	exists, err := l.DB.NewSelect().
		Model((*models.Order)(nil)).
		Where("id = ?", orderID).
		Exists(ctx)
	if err != nil {
		return nil, apperr.Storage("tracking.List", "failed to look up order", err)
	}
	if !exists {
		return nil, apperr.NotFound("tracking.List", "order %d not found", orderID)
	}
	return ListByOrder(ctx, l.DB, orderID)
}
