package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"sooicy-orders/internal/logger"
	"sooicy-orders/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventRiderAssigned      = "order.rider_assigned"
)

type Topics struct {
	OrderCreated string
	OrderStatus  string
	OrderRider   string
}

func DefaultTopics() Topics {
	return Topics{
		OrderCreated: "sooicy.order.created",
		OrderStatus:  "sooicy.order.status",
		OrderRider:   "sooicy.order.rider",
	}
}

func (t Topics) All() []string {
	return []string{t.OrderCreated, t.OrderStatus, t.OrderRider}
}

// OrderEvent is the message body on every order topic.
type OrderEvent struct {
	EventID        string                `json:"event_id"`
	Type           string                `json:"type"`
	OrderID        int64                 `json:"order_id"`
	Status         models.OrderStatus    `json:"status"`
	PreviousStatus models.OrderStatus    `json:"previous_status,omitempty"`
	RiderID        int64                 `json:"rider_id,omitempty"`
	RiderName      string                `json:"rider_name,omitempty"`
	Total          decimal.Decimal       `json:"total"`
	DeliveryType   models.DeliveryType   `json:"delivery_type"`
	SooicyUserID   int64                 `json:"sooicy_user_id,omitempty"`
	Tracking       *models.OrderTracking `json:"tracking,omitempty"`
	OccurredAt     time.Time             `json:"occurred_at"`
}

type MessagePublisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Publisher turns order changes into OrderEvents keyed by order id.
type Publisher struct {
	Producer MessagePublisher
	Topics   Topics
	Logger   *logger.Logger
}

func NewPublisher(producer MessagePublisher, topics Topics, log *logger.Logger) *Publisher {
	return &Publisher{Producer: producer, Topics: topics, Logger: log}
}

func newEvent(eventType string, o *models.Order, entry *models.OrderTracking) OrderEvent {
	return OrderEvent{
		EventID:      uuid.NewString(),
		Type:         eventType,
		OrderID:      o.ID,
		Status:       o.Status,
		RiderID:      o.RiderID,
		Total:        o.Total,
		DeliveryType: o.DeliveryType,
		SooicyUserID: o.SooicyUserID,
		Tracking:     entry,
		OccurredAt:   time.Now().UTC(),
	}
}

func (p *Publisher) PublishOrderCreated(ctx context.Context, o *models.Order, entry *models.OrderTracking) error {
	return p.publish(ctx, p.Topics.OrderCreated, newEvent(EventOrderCreated, o, entry))
}

func (p *Publisher) PublishOrderStatusChanged(ctx context.Context, o *models.Order, from models.OrderStatus, entry *models.OrderTracking) error {
	ev := newEvent(EventOrderStatusChanged, o, entry)
	ev.PreviousStatus = from
	return p.publish(ctx, p.Topics.OrderStatus, ev)
}

func (p *Publisher) PublishRiderAssigned(ctx context.Context, o *models.Order, rider *models.Rider, entry *models.OrderTracking) error {
	ev := newEvent(EventRiderAssigned, o, entry)
	ev.RiderID = rider.ID
	ev.RiderName = rider.Name
	return p.publish(ctx, p.Topics.OrderRider, ev)
}

func (p *Publisher) publish(ctx context.Context, topic string, ev OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	if err := p.Producer.Publish(ctx, topic, strconv.FormatInt(ev.OrderID, 10), body); err != nil {
		return err
	}
	p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("%s #%d (%s)", ev.Type, ev.OrderID, ev.Status))
	return nil
}

// NopPublisher is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(context.Context, *models.Order, *models.OrderTracking) error {
	return nil
}

func (NopPublisher) PublishOrderStatusChanged(context.Context, *models.Order, models.OrderStatus, *models.OrderTracking) error {
	return nil
}

func (NopPublisher) PublishRiderAssigned(context.Context, *models.Order, *models.Rider, *models.OrderTracking) error {
	return nil
}
