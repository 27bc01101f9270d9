package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/logger"
	"sooicy-orders/internal/models"
	"sooicy-orders/internal/pricing"
	"sooicy-orders/internal/tracking"

	"github.com/google/uuid"
)

const createdMessage = "Order created successfully"

type OrderService struct {
	Store    Store
	Catalog  Catalog
	Accounts Accounts
	Lock     OrderLock
	Events   EventPublisher
	Feed     TrackingFeed
	Logger   *logger.Logger
	now      func() time.Time
}

func NewOrderService(store Store, catalog Catalog, accounts Accounts, lock OrderLock, events EventPublisher, feed TrackingFeed, log *logger.Logger) *OrderService {
	return &OrderService{
		Store:    store,
		Catalog:  catalog,
		Accounts: accounts,
		Lock:     lock,
		Events:   events,
		Feed:     feed,
		Logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ---------------- CREATE ----------------

// CreateOrder prices the cart and persists the order, its items, the add-on
// snapshots, the first tracking entry and the customer's totals in one
// transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	const op = "order.Create"

	if err := normalise(&req); err != nil {
		return nil, err
	}

	if req.SooicyUserID != 0 {
		if _, err := s.Accounts.Get(ctx, req.SooicyUserID); err != nil {
			return nil, err
		}
	}

	var location *models.Location
	if req.DeliveryType == models.DeliveryTypeDelivery {
		loc, err := s.Catalog.GetLocation(ctx, req.SelectedLocationID)
		if err != nil {
			return nil, err
		}
		location = loc
	}

	lines, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	quotes := make([]pricing.ItemQuote, len(lines))
	for i, l := range lines {
		quotes[i] = l.quote
	}
	if len(quotes) == 0 {
		s.Logger.Warn("ORDER", fmt.Sprintf("No products resolved for %s; creating an empty order", req.CustomerPhone))
	}

	breakdown := pricing.Quote(quotes, req.DeliveryType, location)
	estimate := pricing.EstimatedTime(req.DeliveryType, location)
	now := s.now()

	o := &models.Order{
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		CustomerEmail:       req.CustomerEmail,
		DeliveryAddress:     req.DeliveryAddress,
		PaymentMethod:       req.PaymentMethod,
		DeliveryType:        req.DeliveryType,
		PickupLocation:      req.PickupLocation,
		SooicyUserID:        req.SooicyUserID,
		Status:              models.OrderPending,
		Subtotal:            breakdown.Subtotal,
		Tax:                 breakdown.Tax,
		DeliveryFee:         breakdown.DeliveryFee,
		Total:               breakdown.Total,
		EstimatedTime:       estimate,
		SpecialInstructions: req.SpecialInstructions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if location != nil {
		o.SelectedLocationID = location.ID
		o.Location = location
	}
	o.Items = buildItems(lines)
	if err := o.VerifyTotals(); err != nil {
		return nil, apperr.Storage(op, "inconsistent totals", err)
	}

	var created *models.OrderTracking
	err = s.Store.WithinTx(ctx, func(tx Store) error {
		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}
		for _, item := range o.Items {
			item.OrderID = o.ID
			if err := tx.CreateOrderItem(ctx, item); err != nil {
				return err
			}
			for _, a := range item.Addons {
				a.OrderItemID = item.ID
			}
			if err := tx.CreateOrderItemAddons(ctx, item.Addons); err != nil {
				return err
			}
		}

		created = tracking.NewEntry(o.ID, string(models.OrderPending), fmt.Sprintf("Order #%d created successfully", o.ID), tracking.DefaultActor)
		created.Timestamp = now
		if err := tx.AppendTracking(ctx, created); err != nil {
			return err
		}

		if o.SooicyUserID != 0 {
			return tx.RecordCustomerOrder(ctx, o.SooicyUserID, o.Total, now)
		}
		return nil
	})
	if err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to create order for %s: %v", req.CustomerPhone, err))
		return nil, wrapStorage(op, "failed to create order", err)
	}

	o.Tracking = []*models.OrderTracking{created}
	o.AllowedNext = NextStatuses(o.Status)
	s.Logger.LogOrder("CREATE", o.ID, fmt.Sprintf("%d items, total %s", len(o.Items), o.Total.StringFixed(2)))

	if err := s.Events.PublishOrderCreated(ctx, o, created); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish order created for #%d: %v", o.ID, err))
	}
	s.Feed.Publish(*created)

	return &OrderResult{Order: o, EstimatedTime: estimate, Message: createdMessage}, nil
}

func normalise(req *CreateOrderRequest) error {
	const op = "order.Create"

	if len(req.Items) == 0 {
		return apperr.Validation(op, "order must contain at least one item")
	}
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return apperr.Validation(op, "item %d: quantity must be at least 1, got %d", i+1, item.Quantity)
		}
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	if req.CustomerName == "" || req.CustomerPhone == "" {
		return apperr.Validation(op, "customer name and phone are required")
	}

	switch req.DeliveryType {
	case "":
		req.DeliveryType = models.DeliveryTypeDelivery
	case models.DeliveryTypeDelivery, models.DeliveryTypePickup:
	default:
		return apperr.Validation(op, "invalid delivery type %q", req.DeliveryType)
	}
	if req.DeliveryType == models.DeliveryTypeDelivery && req.SelectedLocationID == 0 {
		return apperr.Validation(op, "selected location is required for delivery orders")
	}

	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentCash
	}
	valid := false
	for _, m := range models.PaymentMethods {
		if req.PaymentMethod == m {
			valid = true
			break
		}
	}
	if !valid {
		return apperr.Validation(op, "invalid payment method %q", req.PaymentMethod)
	}
	return nil
}

type line struct {
	quote        pricing.ItemQuote
	instructions string
}

// resolveItems prices the lines whose product exists. Unknown products are
// skipped and unknown add-on ids dropped.
func (s *OrderService) resolveItems(ctx context.Context, specs []ItemSpec) ([]line, error) {
	lines := make([]line, 0, len(specs))
	for _, spec := range specs {
		product, err := s.Catalog.GetProduct(ctx, spec.ProductID)
		if apperr.IsNotFound(err) {
			s.Logger.Warn("ORDER", fmt.Sprintf("Skipping unknown product %d", spec.ProductID))
			continue
		}
		if err != nil {
			return nil, err
		}

		addons, err := s.Catalog.GetAddons(ctx, spec.addonIDs())
		if err != nil {
			return nil, err
		}
		lines = append(lines, line{
			quote:        pricing.PriceItem(product, addons, spec.Quantity),
			instructions: strings.TrimSpace(spec.SpecialInstructions),
		})
	}
	return lines, nil
}

func buildItems(lines []line) []*models.OrderItem {
	items := make([]*models.OrderItem, 0, len(lines))
	for _, l := range lines {
		q := l.quote
		item := &models.OrderItem{
			ProductID:           q.Product.ID,
			ProductName:         q.Product.Name,
			Quantity:            q.Quantity,
			UnitPrice:           q.UnitPrice,
			AddonsPrice:         q.AddonsPrice,
			TotalPrice:          q.TotalPrice,
			SpecialInstructions: l.instructions,
			Addons:              make([]*models.OrderItemAddon, 0, len(q.Addons)),
		}
		for _, a := range q.Addons {
			item.Addons = append(item.Addons, &models.OrderItemAddon{AddonID: a.ID, Name: a.Name, Price: a.Price})
		}
		items = append(items, item)
	}
	return items
}

// ---------------- READ ----------------

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.detail(ctx, id)
}

// detail loads the order with its relations and the statuses it may move to.
func (s *OrderService) detail(ctx context.Context, id int64) (*models.Order, error) {
	o, err := s.Store.GetOrderDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	o.AllowedNext = NextStatuses(o.Status)
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	return s.list(ctx, filter)
}

func (s *OrderService) RecentOrders(ctx context.Context, limit int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.list(ctx, models.OrderFilter{Limit: limit})
}

func (s *OrderService) list(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	orders, err := s.Store.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.AllowedNext = NextStatuses(o.Status)
	}
	return orders, nil
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, accountID int64, filter models.OrderFilter) ([]*models.Order, error) {
	if _, err := s.Accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	filter.SooicyUserID = accountID
	return s.list(ctx, filter)
}

// ---------------- FULFILLMENT ----------------

// UpdateOrderStatus moves an order along the fulfillment graph. Entering a
// terminal status frees the order's rider.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, status, note, actor string) (*models.Order, error) {
	const op = "order.UpdateStatus"

	to, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, apperr.Validation(op, "invalid status %q", status)
	}

	unlock, err := s.lock(ctx, op, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if !CanTransition(from, to) {
		return nil, apperr.Validation(op, "cannot change order #%d from %s to %s", orderID, from, to)
	}

	msg := fmt.Sprintf("Status changed from %s to %s", from, to)
	if note = strings.TrimSpace(note); note != "" {
		msg += ". " + note
	}
	entry := tracking.NewEntry(orderID, string(to), msg, actor)
	now := s.now()
	entry.Timestamp = now

	err = s.Store.WithinTx(ctx, func(tx Store) error {
		if err := tx.UpdateOrderStatus(ctx, orderID, to, now); err != nil {
			return err
		}
		if err := tx.AppendTracking(ctx, entry); err != nil {
			return err
		}
		if to.Terminal() && o.RiderID != 0 {
			return tx.ReleaseRider(ctx, o.RiderID, to == models.OrderDelivered)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorage(op, "failed to update order status", err)
	}

	o.Status = to
	o.UpdatedAt = now
	s.Logger.LogOrder("STATUS", orderID, msg)

	if err := s.Events.PublishOrderStatusChanged(ctx, o, from, entry); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish status change for #%d: %v", orderID, err))
	}
	s.Feed.Publish(*entry)

	return s.detail(ctx, orderID)
}

// AssignRider gives an order to an available rider and moves a pending order
// to preparing. The rider's slot is claimed with a guarded update so two
// concurrent assignments cannot both take the last slot.
func (s *OrderService) AssignRider(ctx context.Context, orderID, riderID int64, actor string) (*models.Order, error) {
	const op = "order.AssignRider"

	if riderID == 0 {
		return nil, apperr.Validation(op, "rider id is required")
	}

	unlock, err := s.lock(ctx, op, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, apperr.Conflict(op, "order #%d is already %s", orderID, o.Status)
	}
	if o.RiderID != 0 {
		return nil, apperr.Conflict(op, "order #%d already has rider %d", orderID, o.RiderID)
	}

	rider, err := s.Catalog.GetRider(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if rider.Status != models.RiderAvailable {
		return nil, apperr.Conflict(op, "rider %s is %s", rider.Name, rider.Status)
	}

	from := o.Status
	to := from
	if from == models.OrderPending {
		to = models.OrderPreparing
	}
	entry := tracking.NewEntry(orderID, models.TrackingAssigned, fmt.Sprintf("Order assigned to rider %s", rider.Name), actor)
	now := s.now()
	entry.Timestamp = now

	err = s.Store.WithinTx(ctx, func(tx Store) error {
		claimed, err := tx.ClaimRider(ctx, rider.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return apperr.Conflict(op, "rider %s has no free slot", rider.Name)
		}
		if err := tx.SetOrderRider(ctx, orderID, rider.ID, to, now); err != nil {
			return err
		}
		return tx.AppendTracking(ctx, entry)
	})
	if err != nil {
		return nil, wrapStorage(op, "failed to assign rider", err)
	}

	o.RiderID = rider.ID
	o.Status = to
	o.UpdatedAt = now
	s.Logger.LogOrder("ASSIGN", orderID, fmt.Sprintf("rider %d (%s), status %s", rider.ID, rider.Name, to))

	if err := s.Events.PublishRiderAssigned(ctx, o, rider, entry); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish rider assignment for #%d: %v", orderID, err))
	}
	s.Feed.Publish(*entry)

	return s.detail(ctx, orderID)
}

// lock takes the per-order mutation lock and returns its release func.
func (s *OrderService) lock(ctx context.Context, op string, orderID int64) (func(), error) {
	owner := uuid.NewString()
	ok, err := s.Lock.LockOrder(ctx, orderID, owner)
	if err != nil {
		return nil, apperr.Storage(op, "failed to lock order", err)
	}
	if !ok {
		return nil, apperr.Conflict(op, "order #%d is being updated, try again", orderID)
	}
	return func() {
		if err := s.Lock.UnlockOrder(context.Background(), orderID, owner); err != nil {
			s.Logger.Warn("REDIS", fmt.Sprintf("Failed to unlock order #%d: %v", orderID, err))
		}
	}, nil
}

// wrapStorage keeps typed errors as they are and marks anything else as a
// storage failure.
func wrapStorage(op, message string, err error) error {
	var typed *apperr.Error
	if errors.As(err, &typed) {
		return err
	}
	return apperr.Storage(op, message, err)
}
