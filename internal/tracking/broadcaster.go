package tracking

import (
	"context"
	"sync"

	"sooicy-orders/internal/models"
)

const subscriberBuffer = 10

// Broadcaster fans tracking entries out to live subscribers of an order.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[int64][]chan models.OrderTracking
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[int64][]chan models.OrderTracking)}
}

// Subscribe returns a channel that receives the order's new entries until
// ctx is done, after which the channel is closed.
func (b *Broadcaster) Subscribe(ctx context.Context, orderID int64) <-chan models.OrderTracking {
	ch := make(chan models.OrderTracking, subscriberBuffer)

	b.mu.Lock()
	b.clients[orderID] = append(b.clients[orderID], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(orderID, ch)
	}()

	return ch
}

// Publish never blocks; a subscriber with a full buffer misses the entry.
func (b *Broadcaster) Publish(entry models.OrderTracking) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.clients[entry.OrderID] {
		select {
		case ch <- entry:
		default:
		}
	}
}

func (b *Broadcaster) ClientCount(orderID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[orderID])
}

func (b *Broadcaster) remove(orderID int64, ch chan models.OrderTracking) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients := b.clients[orderID]
	for i, c := range clients {
		if c == ch {
			b.clients[orderID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(b.clients[orderID]) == 0 {
		delete(b.clients, orderID)
	}
}
