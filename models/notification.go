package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types
const (
	NotificationTypeOrderPlaced    = "order_placed"
	NotificationTypeOrderCancelled = "order_cancelled"
	NotificationTypeOrderStatus    = "order_status"
	NotificationTypeGeneral        = "general"
)

// Notification is append-only; only the Read flag is ever mutated.
// UserID is empty for broadcast notifications.
type Notification struct {
	ID        primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	UserID    string             `json:"user_id,omitempty" bson:"user_id,omitempty"`
	OrderID   string             `json:"order_id,omitempty" bson:"order_id,omitempty"`
	Title     string             `json:"title" bson:"title"`
	Message   string             `json:"message" bson:"message"`
	Type      string             `json:"type" bson:"type"`
	Read      bool               `json:"read" bson:"read"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
