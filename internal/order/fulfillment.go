package order

import "sooicy-orders/internal/models"

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:    {models.OrderPreparing, models.OrderCancelled},
	models.OrderPreparing:  {models.OrderDelivering, models.OrderCancelled},
	models.OrderDelivering: {models.OrderDelivered, models.OrderCancelled},
	models.OrderDelivered:  nil,
	models.OrderCancelled:  nil,
}

// NextStatuses lists the statuses an order may move to from s. Terminal
// statuses give an empty, non-nil slice.
func NextStatuses(s models.OrderStatus) []models.OrderStatus {
	return append([]models.OrderStatus{}, transitions[s]...)
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
