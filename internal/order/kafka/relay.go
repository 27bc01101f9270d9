package kafka

import (
	"encoding/json"
	"fmt"

	"sooicy-orders/internal/models"

	"github.com/segmentio/kafka-go"
)

type TrackingFeed interface {
	Publish(entry models.OrderTracking)
}

// Relay forwards the tracking entry of every consumed order event to the
// local live feed, so subscribers see changes made on any instance.
type Relay struct {
	Feed TrackingFeed
}

func NewRelay(feed TrackingFeed) *Relay {
	return &Relay{Feed: feed}
}

// Handle is a kafka consumer handler.
func (r *Relay) Handle(msg kafka.Message) error {
	var ev OrderEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("decode order event: %w", err)
	}
	if ev.Tracking == nil {
		return nil
	}
	r.Feed.Publish(*ev.Tracking)
	return nil
}

// NopFeed drops entries. The service uses it when the relay delivers them.
type NopFeed struct{}

func (NopFeed) Publish(models.OrderTracking) {}
