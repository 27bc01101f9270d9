package tracking_test

import (
	"context"
	"testing"
	"time"

	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/database/testdb"
	"sooicy-orders/internal/models"
	"sooicy-orders/internal/tracking"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func insertOrder(t *testing.T, db *bun.DB) *models.Order {
	t.Helper()
	now := time.Now().UTC()
	o := &models.Order{
		CustomerName:  "Ama",
		CustomerPhone: "0700000000",
		PaymentMethod: models.PaymentCash,
		DeliveryType:  models.DeliveryTypePickup,
		Status:        models.OrderPending,
		Subtotal:      decimal.Zero,
		Tax:           decimal.Zero,
		DeliveryFee:   decimal.Zero,
		Total:         decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err := db.NewInsert().Model(o).Exec(context.Background())
	require.NoError(t, err)
	return o
}

func TestNewEntryDefaultsActor(t *testing.T) {
	e := tracking.NewEntry(3, "pending", "created", "")
	assert.Equal(t, tracking.DefaultActor, e.UpdatedBy)
	assert.Equal(t, int64(3), e.OrderID)
	assert.False(t, e.Timestamp.IsZero())

	e = tracking.NewEntry(3, "pending", "", "dispatcher")
	assert.Equal(t, "dispatcher", e.UpdatedBy)
}

func TestLedgerListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	order := insertOrder(t, db)
	ledger := tracking.NewLedger(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	statuses := []string{"pending", "assigned", "delivering"}
	for i, s := range statuses {
		e := tracking.NewEntry(order.ID, s, "note "+s, "")
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, tracking.Insert(ctx, db, e))
	}

	entries, err := ledger.List(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "delivering", entries[0].Status)
	assert.Equal(t, "assigned", entries[1].Status)
	assert.Equal(t, "pending", entries[2].Status)
	assert.True(t, entries[2].Timestamp.Equal(base))
}

func TestLedgerListTiesBrokenByID(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	order := insertOrder(t, db)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, s := range []string{"pending", "preparing"} {
		e := tracking.NewEntry(order.ID, s, "", "")
		e.Timestamp = at
		require.NoError(t, tracking.Insert(ctx, db, e))
	}

	entries, err := tracking.ListByOrder(ctx, db, order.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "preparing", entries[0].Status)
}

func TestLedgerListUnknownOrder(t *testing.T) {
	db := testdb.New(t)
	_, err := tracking.NewLedger(db).List(context.Background(), 404)
	assert.True(t, apperr.IsNotFound(err))
}

func TestLedgerListEmptyForOrderWithoutEntries(t *testing.T) {
	db := testdb.New(t)
	order := insertOrder(t, db)

	entries, err := tracking.NewLedger(db).List(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
