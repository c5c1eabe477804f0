package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the single order-level lifecycle state.
type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusPickupScheduled OrderStatus = "pickup_scheduled"
	StatusPickupDone      OrderStatus = "pickup_done"
	StatusOnTheWay        OrderStatus = "on_the_way"
	StatusOutForDelivery  OrderStatus = "out_for_delivery"
	StatusDelivered       OrderStatus = "delivered"
	StatusCancelled       OrderStatus = "cancelled"
	StatusReturnInitiated OrderStatus = "return_initiated"
	StatusReturnDelivered OrderStatus = "return_delivered"
)

// statusRank is the fixed ordinal used to reject regressions from
// out-of-order or duplicate carrier callbacks.
var statusRank = map[OrderStatus]int{
	StatusPending:         0,
	StatusPickupScheduled: 1,
	StatusPickupDone:      2,
	StatusOnTheWay:        3,
	StatusOutForDelivery:  4,
	StatusDelivered:       5,
	StatusReturnInitiated: 6,
	StatusReturnDelivered: 7,
}

// Rank returns the ordinal of s, or -1 for Cancelled and unknown states.
func (s OrderStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// IsTerminal reports whether no further transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturnDelivered
}

// CanTransitionTo reports whether a carrier-driven transition from s to
// next is allowed: no-op on same state, no backward moves, nothing out
// of a terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() || next == s {
		return false
	}
	return next.Rank() > s.Rank()
}

// CancellableStatuses lists the states a client cancel is accepted from:
// everything before the parcel is out for delivery.
func CancellableStatuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusPickupScheduled, StatusPickupDone, StatusOnTheWay}
}

// IsCancellable reports whether a client cancel is accepted from s.
func (s OrderStatus) IsCancellable() bool {
	for _, c := range CancellableStatuses() {
		if s == c {
			return true
		}
	}
	return false
}

// MapCarrierStatus maps the carrier's numeric shipment status to an
// internal state. ok=false means the code is unrecognized and the stored
// status must not change.
func MapCarrierStatus(code int) (OrderStatus, bool) {
	switch code {
	case 1:
		return StatusPickupScheduled, true
	case 2:
		return StatusPickupDone, true
	case 3:
		return StatusOnTheWay, true
	case 4:
		return StatusOutForDelivery, true
	case 7:
		return StatusDelivered, true
	case 8:
		return StatusReturnInitiated, true
	case 9:
		return StatusReturnDelivered, true
	default:
		return "", false
	}
}

// Payment methods
const (
	PaymentOnline         = "online"
	PaymentCashOnDelivery = "cod"
)

// OrderItem captures a snapshot of the product at time of purchase.
// Snapshots never change retroactively, even if the catalog does.
type OrderItem struct {
	ProductID    primitive.ObjectID `json:"product_id" bson:"product_id"`
	ProductName  string             `json:"product_name" bson:"product_name"`
	SellingPrice float64            `json:"selling_price" bson:"selling_price"`
	Units        int                `json:"units" bson:"units"`
}

// ShippingAddress is denormalized into the order document.
type ShippingAddress struct {
	Name         string `json:"name" bson:"name" binding:"required"`
	Address      string `json:"address" bson:"address" binding:"required"`
	Pincode      string `json:"pincode" bson:"pincode" binding:"required"`
	MobileNumber string `json:"mobile_number" bson:"mobile_number" binding:"required"`
}

// Order is the persisted order document. OrderID is the human-shareable
// identifier, distinct from the internal storage key.
type Order struct {
	ID              primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	OrderID         string             `json:"order_id" bson:"order_id"`
	UserID          string             `json:"user_id" bson:"user_id"`
	Items           []OrderItem        `json:"items" bson:"items"`
	ShippingAddress ShippingAddress    `json:"shipping_address" bson:"shipping_address"`
	PaymentMethod   string             `json:"payment_method" bson:"payment_method"`
	TotalAmount     float64            `json:"total_amount" bson:"total_amount"`
	Status          OrderStatus        `json:"status" bson:"status"`
	AWBNumber       string             `json:"awb_number,omitempty" bson:"awb_number,omitempty"`
	CourierCharge   float64            `json:"courier_charge,omitempty" bson:"courier_charge,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// ItemTotal returns the sum of line snapshots. TotalAmount must always
// equal this.
func (o *Order) ItemTotal() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.SellingPrice * float64(it.Units)
	}
	return total
}
