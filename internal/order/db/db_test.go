package db_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"sooicy-orders/internal/account"
	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/catalog"
	"sooicy-orders/internal/database/testdb"
	"sooicy-orders/internal/logger"
	"sooicy-orders/internal/models"
	"sooicy-orders/internal/order"
	"sooicy-orders/internal/order/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	bun      *bun.DB
	store    *db.DB
	svc      *order.OrderService
	accounts *account.Service
	product  *models.Product
	addons   []*models.Addon
	location *models.Location
}

type memLock struct {
	mu    sync.Mutex
	owner map[int64]string
}

func (l *memLock) LockOrder(_ context.Context, id int64, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.owner[id]; held {
		return false, nil
	}
	l.owner[id] = owner
	return true, nil
}

func (l *memLock) UnlockOrder(_ context.Context, id int64, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner[id] == owner {
		delete(l.owner, id)
	}
	return nil
}

type nopEvents struct{}

func (nopEvents) PublishOrderCreated(context.Context, *models.Order, *models.OrderTracking) error {
	return nil
}
func (nopEvents) PublishOrderStatusChanged(context.Context, *models.Order, models.OrderStatus, *models.OrderTracking) error {
	return nil
}
func (nopEvents) PublishRiderAssigned(context.Context, *models.Order, *models.Rider, *models.OrderTracking) error {
	return nil
}

type nopFeed struct{}

func (nopFeed) Publish(models.OrderTracking) {}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	b := testdb.New(t)
	log := logger.NewNopLogger()

	f := &fixture{bun: b, store: db.New(b), accounts: account.NewService(b, log)}

	f.product = &models.Product{Name: "Berry Swirl", Price: dec("10.00"), Discount: dec("10"), Rating: dec("4.5"), Category: "ice-cream", IsAvailable: true}
	f.addons = []*models.Addon{
		{Name: "Sprinkles", Price: dec("1.00"), IsAvailable: true},
		{Name: "Fudge", Price: dec("1.50"), IsAvailable: true},
	}
	f.location = &models.Location{Name: "Osu", Area: "Accra", DeliveryFee: dec("5.00"), DeliveryTimeMinutes: 20, MinOrderAmount: decimal.Zero, CoverageRadius: 5, Available: true}

	_, err := b.NewInsert().Model(f.product).Exec(ctx)
	require.NoError(t, err)
	_, err = b.NewInsert().Model(&f.addons).Exec(ctx)
	require.NoError(t, err)
	_, err = b.NewInsert().Model(f.location).Exec(ctx)
	require.NoError(t, err)

	f.svc = order.NewOrderService(f.store, catalog.NewLookup(b), f.accounts, &memLock{owner: map[int64]string{}}, nopEvents{}, nopFeed{}, log)
	return f
}

func (f *fixture) addRider(t *testing.T, name string, status models.RiderStatus, current int) *models.Rider {
	t.Helper()
	r := &models.Rider{Name: name, Phone: name + "-phone", VehicleType: "bike", Status: status, Rating: dec("4.8"), CurrentOrders: current, IsActive: true}
	_, err := f.bun.NewInsert().Model(r).Exec(context.Background())
	require.NoError(t, err)
	return r
}

func (f *fixture) getRider(t *testing.T, id int64) *models.Rider {
	t.Helper()
	r := new(models.Rider)
	require.NoError(t, f.bun.NewSelect().Model(r).Where("id = ?", id).Scan(context.Background()))
	return r
}

func (f *fixture) createOrder(t *testing.T, req order.CreateOrderRequest) *models.Order {
	t.Helper()
	res, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	return res.Order
}

func (f *fixture) basicRequest() order.CreateOrderRequest {
	return order.CreateOrderRequest{
		CustomerName:       "Adjoa",
		CustomerPhone:      "0555000111",
		DeliveryAddress:    "4 Ring Rd",
		DeliveryType:       models.DeliveryTypeDelivery,
		SelectedLocationID: f.location.ID,
		Items: []order.ItemSpec{
			{ProductID: f.product.ID, Quantity: 3, AddonIDs: []int64{f.addons[0].ID}, SelectedAddons: []order.AddonRef{{ID: f.addons[1].ID}}, SpecialInstructions: "no nuts"},
		},
	}
}

func count(t *testing.T, b *bun.DB, model interface{}) int {
	t.Helper()
	n, err := b.NewSelect().Model(model).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestCreateOrderPersistsSnapshotAndTotals(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.CreateOrder(ctx, f.basicRequest())
	require.NoError(t, err)
	assert.Equal(t, "Order created successfully", res.Message)
	assert.Equal(t, "45-55 minutes", res.EstimatedTime)

	// Later catalog changes must not reach existing orders.
	_, err = f.bun.NewUpdate().Model((*models.Product)(nil)).Set("price = ?", dec("99.00")).Where("id = ?", f.product.ID).Exec(ctx)
	require.NoError(t, err)

	got, err := f.store.GetOrderDetail(ctx, res.Order.ID)
	require.NoError(t, err)
	require.NoError(t, got.VerifyTotals())

	require.Len(t, got.Items, 1)
	item := got.Items[0]
	assert.True(t, item.UnitPrice.Equal(dec("10.00")))
	assert.True(t, item.AddonsPrice.Equal(dec("2.50")))
	assert.True(t, item.TotalPrice.Equal(dec("37.50")))
	assert.Equal(t, "no nuts", item.SpecialInstructions)
	assert.Len(t, item.Addons, 2)

	assert.True(t, got.Subtotal.Equal(dec("37.50")))
	assert.True(t, got.Tax.Equal(dec("3.00")))
	assert.True(t, got.DeliveryFee.Equal(dec("5.00")))
	assert.True(t, got.Total.Equal(dec("45.50")))
	assert.Equal(t, models.OrderPending, got.Status)
	require.NotNil(t, got.Location)
	assert.Equal(t, f.location.ID, got.Location.ID)

	require.Len(t, got.Tracking, 1)
	assert.Equal(t, "pending", got.Tracking[0].Status)
	assert.Equal(t, "System", got.Tracking[0].UpdatedBy)
	assert.Contains(t, got.Tracking[0].Notes, "created successfully")
}

func TestCreatePickupOrderHasNoDeliveryFee(t *testing.T) {
	f := setup(t)
	req := f.basicRequest()
	req.DeliveryType = models.DeliveryTypePickup

	o := f.createOrder(t, req)
	assert.True(t, o.DeliveryFee.IsZero())
	assert.Zero(t, o.SelectedLocationID)
	assert.Equal(t, "15-20 minutes", o.EstimatedTime)
}

func TestCreateOrderSkipsUnknownProducts(t *testing.T) {
	f := setup(t)
	req := f.basicRequest()
	req.Items = append(req.Items, order.ItemSpec{ProductID: 999, Quantity: 2})

	o := f.createOrder(t, req)
	assert.Len(t, o.Items, 1)
	assert.Equal(t, 1, count(t, f.bun, (*models.OrderItem)(nil)))
}

func TestCreateOrderEmptyCartPersistsNothing(t *testing.T) {
	f := setup(t)
	req := f.basicRequest()
	req.Items = nil

	_, err := f.svc.CreateOrder(context.Background(), req)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, 0, count(t, f.bun, (*models.Order)(nil)))
}

func TestCreateOrderUnknownAccount(t *testing.T) {
	f := setup(t)
	req := f.basicRequest()
	req.SooicyUserID = 77

	_, err := f.svc.CreateOrder(context.Background(), req)
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, 0, count(t, f.bun, (*models.Order)(nil)))
}

func TestCreateOrderUpdatesAccountTotals(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user, _, err := f.accounts.CreateOrGet(ctx, account.Profile{Email: "adjoa@example.com", Name: "Adjoa", Phone: "0555000111"})
	require.NoError(t, err)

	req := f.basicRequest()
	req.SooicyUserID = user.ID
	o := f.createOrder(t, req)

	got, err := f.accounts.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalOrders)
	assert.True(t, got.TotalSpent.Equal(o.Total))
	assert.NotNil(t, got.LastOrderDate)

	orders, err := f.svc.ListCustomerOrders(ctx, user.ID, models.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].ID)
}

func TestCreateOrderRollsBackOnFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.bun.NewDropTable().Model((*models.OrderTracking)(nil)).Exec(ctx)
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(ctx, f.basicRequest())
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))

	assert.Equal(t, 0, count(t, f.bun, (*models.Order)(nil)))
	assert.Equal(t, 0, count(t, f.bun, (*models.OrderItem)(nil)))
	assert.Equal(t, 0, count(t, f.bun, (*models.OrderItemAddon)(nil)))
}

func TestStatusUpdatesAppendToLedger(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.createOrder(t, f.basicRequest())

	created, err := f.store.GetOrderDetail(ctx, o.ID)
	require.NoError(t, err)
	first := created.Tracking[0]

	for _, s := range []string{"preparing", "delivering", "delivered"} {
		_, err := f.svc.UpdateOrderStatus(ctx, o.ID, s, "", "kitchen")
		require.NoError(t, err)
	}

	got, err := f.store.GetOrderDetail(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, got.Status)
	require.Len(t, got.Tracking, 4)
	assert.Equal(t, "delivered", got.Tracking[0].Status)
	assert.Equal(t, "Status changed from delivering to delivered", got.Tracking[0].Notes)
	assert.Equal(t, "kitchen", got.Tracking[0].UpdatedBy)

	last := got.Tracking[3]
	assert.Equal(t, first.ID, last.ID)
	assert.Equal(t, first.Status, last.Status)
	assert.True(t, first.Timestamp.Equal(last.Timestamp))
}

func TestIllegalTransitionWritesNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.createOrder(t, f.basicRequest())

	_, err := f.svc.UpdateOrderStatus(ctx, o.ID, "delivered", "", "")
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.UpdateOrderStatus(ctx, o.ID, "shipped", "", "")
	assert.True(t, apperr.IsValidation(err))

	assert.Equal(t, 1, count(t, f.bun, (*models.OrderTracking)(nil)))
}

func TestAssignRiderClaimsSlot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rider := f.addRider(t, "Kojo", models.RiderAvailable, 0)
	o := f.createOrder(t, f.basicRequest())

	got, err := f.svc.AssignRider(ctx, o.ID, rider.ID, "dispatcher")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPreparing, got.Status)
	assert.Equal(t, rider.ID, got.RiderID)
	require.NotNil(t, got.Rider)
	assert.Equal(t, "Kojo", got.Rider.Name)
	assert.Equal(t, models.TrackingAssigned, got.Tracking[0].Status)
	assert.Equal(t, "Order assigned to rider Kojo", got.Tracking[0].Notes)

	r := f.getRider(t, rider.ID)
	assert.Equal(t, 1, r.CurrentOrders)
	assert.Equal(t, models.RiderAvailable, r.Status)
	assert.Equal(t, int64(1), r.Version)
}

func TestAssignRiderFlipsToBusyAtThreshold(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rider := f.addRider(t, "Efua", models.RiderAvailable, 0)

	for i := 0; i < models.MaxConcurrentOrders; i++ {
		o := f.createOrder(t, f.basicRequest())
		_, err := f.svc.AssignRider(ctx, o.ID, rider.ID, "")
		require.NoError(t, err)
	}
	r := f.getRider(t, rider.ID)
	assert.Equal(t, 3, r.CurrentOrders)
	assert.Equal(t, models.RiderBusy, r.Status)

	o := f.createOrder(t, f.basicRequest())
	_, err := f.svc.AssignRider(ctx, o.ID, rider.ID, "")
	assert.True(t, apperr.IsConflict(err))
}

func TestAssignRiderErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	busy := f.addRider(t, "Busy", models.RiderBusy, 3)
	free := f.addRider(t, "Free", models.RiderAvailable, 0)
	o := f.createOrder(t, f.basicRequest())

	_, err := f.svc.AssignRider(ctx, o.ID, 0, "")
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.AssignRider(ctx, 12345, free.ID, "")
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.svc.AssignRider(ctx, o.ID, 999, "")
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.svc.AssignRider(ctx, o.ID, busy.ID, "")
	assert.True(t, apperr.IsConflict(err))

	_, err = f.svc.AssignRider(ctx, o.ID, free.ID, "")
	require.NoError(t, err)
	_, err = f.svc.AssignRider(ctx, o.ID, free.ID, "")
	assert.True(t, apperr.IsConflict(err), "already assigned")
}

func TestClaimRiderFillsUpToLimit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rider := f.addRider(t, "Yaa", models.RiderAvailable, 0)

	for i := 1; i <= models.MaxConcurrentOrders; i++ {
		ok, err := f.store.ClaimRider(ctx, rider.ID)
		require.NoError(t, err)
		assert.True(t, ok, "claim %d", i)
	}
	ok, err := f.store.ClaimRider(ctx, rider.ID)
	require.NoError(t, err)
	assert.False(t, ok, "a full rider takes no more orders")

	r := f.getRider(t, rider.ID)
	assert.Equal(t, models.MaxConcurrentOrders, r.CurrentOrders)
	assert.Equal(t, models.RiderBusy, r.Status)
}

func TestConcurrentClaimsOnlyFailWhenFull(t *testing.T) {
	tests := []struct {
		name    string
		current int
		claims  int
		wantOK  int
	}{
		{"empty rider", 0, 3, 3},
		{"one slot left", 2, 6, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			rider := f.addRider(t, "Kofi", models.RiderAvailable, tt.current)

			var (
				wg  sync.WaitGroup
				mu  sync.Mutex
				won int
			)
			for i := 0; i < tt.claims; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := f.store.ClaimRider(context.Background(), rider.ID)
					assert.NoError(t, err)
					if ok {
						mu.Lock()
						won++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, tt.wantOK, won)
			assert.Equal(t, models.MaxConcurrentOrders, f.getRider(t, rider.ID).CurrentOrders)
		})
	}
}

func TestClaimRiderSkipsInactiveAndOffline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	offline := f.addRider(t, "Esi", models.RiderOffline, 0)
	gone := f.addRider(t, "Fiifi", models.RiderAvailable, 0)
	_, err := f.bun.NewUpdate().Model((*models.Rider)(nil)).Set("is_active = ?", false).Where("id = ?", gone.ID).Exec(ctx)
	require.NoError(t, err)

	for _, id := range []int64{offline.ID, gone.ID} {
		ok, err := f.store.ClaimRider(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestTerminalStatusReleasesRider(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rider := f.addRider(t, "Nana", models.RiderAvailable, 2)

	delivered := f.createOrder(t, f.basicRequest())
	_, err := f.svc.AssignRider(ctx, delivered.ID, rider.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.RiderBusy, f.getRider(t, rider.ID).Status)

	_, err = f.svc.UpdateOrderStatus(ctx, delivered.ID, "delivering", "", "")
	require.NoError(t, err)
	_, err = f.svc.UpdateOrderStatus(ctx, delivered.ID, "delivered", "left at door", "")
	require.NoError(t, err)

	r := f.getRider(t, rider.ID)
	assert.Equal(t, 2, r.CurrentOrders)
	assert.Equal(t, models.RiderAvailable, r.Status)
	assert.Equal(t, 1, r.TotalDeliveries)

	got, err := f.store.GetOrderDetail(ctx, delivered.ID)
	require.NoError(t, err)
	assert.Equal(t, "Status changed from delivering to delivered. left at door", got.Tracking[0].Notes)
}

func TestCancelReleasesWithoutCountingDelivery(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rider := f.addRider(t, "Akua", models.RiderAvailable, 0)
	o := f.createOrder(t, f.basicRequest())

	_, err := f.svc.AssignRider(ctx, o.ID, rider.ID, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateOrderStatus(ctx, o.ID, "cancelled", "customer changed mind", "support")
	require.NoError(t, err)

	r := f.getRider(t, rider.ID)
	assert.Equal(t, 0, r.CurrentOrders)
	assert.Equal(t, 0, r.TotalDeliveries)
}

func TestReleaseRiderFloorsAtZero(t *testing.T) {
	f := setup(t)
	rider := f.addRider(t, "Zero", models.RiderAvailable, 0)

	require.NoError(t, f.store.ReleaseRider(context.Background(), rider.ID, false))
	assert.Equal(t, 0, f.getRider(t, rider.ID).CurrentOrders)
}

func TestListOrdersFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.createOrder(t, f.basicRequest())
	req := f.basicRequest()
	req.CustomerName = "Kwesi Boateng"
	req.CustomerPhone = "0244999888"
	second := f.createOrder(t, req)
	_, err := f.svc.UpdateOrderStatus(ctx, second.ID, "cancelled", "", "")
	require.NoError(t, err)

	all, err := f.store.ListOrders(ctx, models.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	cancelled, err := f.store.ListOrders(ctx, models.OrderFilter{Status: models.OrderCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, second.ID, cancelled[0].ID)

	found, err := f.store.ListOrders(ctx, models.OrderFilter{Search: "kwesi"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, second.ID, found[0].ID)

	byPhone, err := f.store.ListOrders(ctx, models.OrderFilter{Search: "0555"})
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, first.ID, byPhone[0].ID)

	future, err := f.store.ListOrders(ctx, models.OrderFilter{DateFrom: time.Now().UTC().Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)

	limited, err := f.store.ListOrders(ctx, models.OrderFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetOrderNotFound(t *testing.T) {
	f := setup(t)
	_, err := f.store.GetOrder(context.Background(), 42)
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.store.GetOrderDetail(context.Background(), 42)
	assert.True(t, apperr.IsNotFound(err))
}
