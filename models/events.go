package models

import "time"

// Order event types published to the event stream.
const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the payload fanned out to kafka and SNS after an order
// mutation commits. Publishing is best-effort and never fails the
// originating request.
type OrderEvent struct {
	EventID     string      `json:"event_id"`
	Type        string      `json:"type"`
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	Status      OrderStatus `json:"status"`
	TotalAmount float64     `json:"total_amount,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}
