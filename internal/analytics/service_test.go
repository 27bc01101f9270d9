package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"sooicy-orders/internal/database/testdb"
	"sooicy-orders/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var fixedNow = time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type seedItem struct {
	product int64
	total   string
}

func seedOrder(t *testing.T, db *bun.DB, status models.OrderStatus, total string, createdAt time.Time, items ...seedItem) {
	t.Helper()
	ctx := context.Background()
	o := &models.Order{
		CustomerName:  "Ama",
		CustomerPhone: "0200000000",
		PaymentMethod: models.PaymentCash,
		DeliveryType:  models.DeliveryTypePickup,
		Status:        status,
		Subtotal:      dec(total),
		Tax:           decimal.Zero,
		DeliveryFee:   decimal.Zero,
		Total:         dec(total),
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	_, err := db.NewInsert().Model(o).Exec(ctx)
	require.NoError(t, err)
	for _, it := range items {
		item := &models.OrderItem{
			OrderID:     o.ID,
			ProductID:   it.product,
			ProductName: fmt.Sprintf("product %d", it.product),
			Quantity:    1,
			UnitPrice:   dec(it.total),
			AddonsPrice: decimal.Zero,
			TotalPrice:  dec(it.total),
		}
		_, err := db.NewInsert().Model(item).Exec(ctx)
		require.NoError(t, err)
	}
}

func setup(t *testing.T) *Service {
	t.Helper()
	db := testdb.New(t)
	ctx := context.Background()

	products := []*models.Product{
		{ID: 1, Name: "Belgian Waffle", Price: dec("10.00"), Category: "waffles", IsAvailable: true},
		{ID: 2, Name: "Vanilla Swirl", Price: dec("8.50"), Category: "swirls", IsAvailable: true},
	}
	_, err := db.NewInsert().Model(&products).Exec(ctx)
	require.NoError(t, err)

	riders := []*models.Rider{
		{Name: "Kojo", Phone: "1", VehicleType: "bike", Status: models.RiderAvailable, IsActive: true},
		{Name: "Esi", Phone: "2", VehicleType: "car", Status: models.RiderBusy, IsActive: true},
		{Name: "Yaw", Phone: "3", VehicleType: "bike", Status: models.RiderAvailable, IsActive: false},
	}
	_, err = db.NewInsert().Model(&riders).Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewInsert().Model(&models.Location{Name: "Osu", Area: "Accra", DeliveryFee: dec("5.00"), Available: true}).Exec(ctx)
	require.NoError(t, err)

	today := fixedNow.Add(-5 * time.Hour)
	seedOrder(t, db, models.OrderDelivered, "20.00", today, seedItem{1, "10.00"}, seedItem{2, "8.50"})
	seedOrder(t, db, models.OrderDelivered, "10.80", today.AddDate(0, 0, -2), seedItem{1, "10.00"})
	seedOrder(t, db, models.OrderPending, "5.40", today, seedItem{2, "5.00"})
	seedOrder(t, db, models.OrderCancelled, "9.00", today.AddDate(0, 0, -1), seedItem{2, "8.50"})
	seedOrder(t, db, models.OrderDelivered, "7.00", today.AddDate(0, 0, -40), seedItem{1, "7.00"})

	svc := NewService(db)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestGetDashboardStats(t *testing.T) {
	svc := setup(t)

	stats, err := svc.GetDashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalOrders)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 0, stats.DeliveringOrders)
	assert.Equal(t, 3, stats.CompletedOrders)
	assert.Equal(t, 1, stats.CancelledOrders)
	assert.Equal(t, 2, stats.OrdersToday)
	assert.True(t, stats.TotalRevenue.Equal(dec("37.80")), "total revenue %s", stats.TotalRevenue)
	assert.True(t, stats.RevenueToday.Equal(dec("20.00")), "revenue today %s", stats.RevenueToday)
	assert.Equal(t, 2, stats.TotalRiders)
	assert.Equal(t, 1, stats.AvailableRiders)
	assert.Equal(t, 2, stats.TotalProducts)
	assert.Equal(t, 1, stats.TotalLocations)
}

func TestGetSalesAnalytics(t *testing.T) {
	svc := setup(t)

	a, err := svc.GetSalesAnalytics(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, a.DailySales, DefaultAnalyticsDays+1)
	assert.Equal(t, "2026-09-16", a.DateRange.Start)
	assert.Equal(t, "2026-10-16", a.DateRange.End)

	last := a.DailySales[len(a.DailySales)-1]
	assert.Equal(t, "2026-10-16", last.Date)
	assert.Equal(t, 1, last.Orders)
	assert.True(t, last.Revenue.Equal(dec("20.00")))

	twoDaysAgo := a.DailySales[len(a.DailySales)-3]
	assert.Equal(t, "2026-10-14", twoDaysAgo.Date)
	assert.True(t, twoDaysAgo.Revenue.Equal(dec("10.80")))

	yesterday := a.DailySales[len(a.DailySales)-2]
	assert.Zero(t, yesterday.Orders, "cancelled orders are not sales")

	require.Len(t, a.TopProducts, 2)
	assert.Equal(t, int64(1), a.TopProducts[0].ID)
	assert.Equal(t, 3, a.TopProducts[0].Orders)
	assert.True(t, a.TopProducts[0].Revenue.Equal(dec("27.00")))
	assert.Equal(t, 1, a.TopProducts[1].Orders)

	assert.Len(t, a.CategoryPerformance, len(models.ProductCategories))
	assert.True(t, a.CategoryPerformance["Waffles"].Equal(dec("27.00")))
	assert.True(t, a.CategoryPerformance["Swirls"].Equal(dec("8.50")))
	assert.True(t, a.CategoryPerformance["Sassy-Pancakes"].IsZero())
}

func TestGetSalesAnalyticsWindow(t *testing.T) {
	svc := setup(t)

	a, err := svc.GetSalesAnalytics(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, a.DailySales, 2)
	assert.Equal(t, "2026-10-15", a.DailySales[0].Date)
}
