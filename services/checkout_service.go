package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/plantbazaar/backend/apperrors"
	"github.com/plantbazaar/backend/models"
	"github.com/plantbazaar/backend/repository"
)

// maxOrderIDAttempts bounds the collision-retry loop. The order id
// scheme is a low-entropy token, so collisions are expected at scale and
// handled, not assumed impossible.
const maxOrderIDAttempts = 10

// CheckoutRequest is the client's checkout submission. TotalAmount is
// optional; when present it is validated against the server-side total.
type CheckoutRequest struct {
	ShippingAddress models.ShippingAddress `json:"shipping_address" binding:"required"`
	PaymentMethod   string                 `json:"payment_method" binding:"required,oneof=online cod"`
	TotalAmount     float64                `json:"total_amount"`
}

// CheckoutService validates the cart against live catalog state,
// reserves stock, creates the order and clears the cart.
type CheckoutService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	carts    repository.CartRepository
	notifier *NotificationService
	events   *EventPublisher

	// newOrderID is swapped in tests to force collisions.
	newOrderID func() string
}

func NewCheckoutService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	carts repository.CartRepository,
	notifier *NotificationService,
	events *EventPublisher,
) *CheckoutService {
	return &CheckoutService{
		orders:     orders,
		products:   products,
		carts:      carts,
		notifier:   notifier,
		events:     events,
		newOrderID: generateOrderID,
	}
}

func generateOrderID() string {
	return fmt.Sprintf("ORD-%05d", 10000+rand.Intn(90000))
}

// Checkout runs the full coordination flow. On any failure before the
// stock reservation commits, no order exists and no stock has moved.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, req *CheckoutRequest) (*models.Order, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, apperrors.ErrEmptyCart
	}

	items, err := s.buildLineItems(ctx, cart)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for _, item := range items {
		total += item.SellingPrice * float64(item.Units)
	}
	if req.TotalAmount > 0 && math.Abs(req.TotalAmount-total) > 0.009 {
		return nil, apperrors.New(400, "Submitted total does not match order total", nil)
	}

	orderID, err := s.allocateOrderID(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &models.Order{
		OrderID:         orderID,
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TotalAmount:     total,
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// Order first, stock second: a crash in between leaves an order that
	// overstates available stock, which a reconciliation job can repair.
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	if err := s.reserveStock(ctx, order); err != nil {
		return nil, err
	}

	if err := s.carts.Delete(ctx, userID); err != nil {
		zap.L().Warn("Failed to clear cart after checkout",
			zap.String("user_id", userID),
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)
	}

	s.events.PublishOrderEvent(ctx, models.EventOrderCreated, order)
	if s.notifier != nil {
		if err := s.notifier.Dispatch(ctx, userID, order.OrderID,
			"Order placed",
			fmt.Sprintf("Your order %s has been placed.", order.OrderID),
			models.NotificationTypeOrderPlaced,
		); err != nil {
			zap.L().Warn("Order-placed notification failed",
				zap.String("order_id", order.OrderID),
				zap.Error(err),
			)
		}
	}

	return order, nil
}

// buildLineItems re-checks the cart against live catalog state. Lines
// referencing unavailable or deleted products are dropped; a line short
// on stock fails the whole checkout.
func (s *CheckoutService) buildLineItems(ctx context.Context, cart *models.Cart) ([]models.OrderItem, error) {
	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, line := range cart.Items {
		id, err := primitive.ObjectIDFromHex(line.ProductID)
		if err != nil {
			zap.L().Warn("Dropping cart line with invalid product id",
				zap.String("product_id", line.ProductID),
			)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, apperrors.ErrEmptyCart
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		id, err := primitive.ObjectIDFromHex(line.ProductID)
		if err != nil {
			continue
		}
		product, ok := products[id]
		if !ok || !product.Purchasable() {
			zap.L().Warn("Dropping cart line for unavailable product",
				zap.String("product_id", line.ProductID),
			)
			continue
		}
		if product.Quantity < line.Quantity {
			return nil, &apperrors.InsufficientStockError{
				ProductID: line.ProductID,
				Available: product.Quantity,
				Requested: line.Quantity,
			}
		}
		items = append(items, models.OrderItem{
			ProductID:    id,
			ProductName:  product.Name,
			SellingPrice: product.Price,
			Units:        line.Quantity,
		})
	}
	if len(items) == 0 {
		return nil, apperrors.ErrEmptyCart
	}
	return items, nil
}

func (s *CheckoutService) allocateOrderID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		id := s.newOrderID()
		exists, err := s.orders.ExistsOrderID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check order id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", apperrors.ErrOrderIDExhausted
}

// reserveStock applies the atomic conditional decrement per line. Losing
// the decrement race rolls back everything (stock and order) and fails
// with InsufficientStock. An infrastructure error after the order is
// durable is surfaced to the operator without failing the order.
func (s *CheckoutService) reserveStock(ctx context.Context, order *models.Order) error {
	decremented := make([]models.OrderItem, 0, len(order.Items))

	for _, item := range order.Items {
		ok, err := s.products.DecrementStock(ctx, item.ProductID, item.Units)
		if err != nil {
			zap.L().Error("Stock decrement failed after order was persisted; stock overstates availability",
				zap.String("order_id", order.OrderID),
				zap.String("product_id", item.ProductID.Hex()),
				zap.Int("units", item.Units),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			s.rollbackReservation(ctx, order, decremented)
			available := 0
			if live, err := s.products.FindByID(ctx, item.ProductID); err == nil && live != nil {
				available = live.Quantity
			}
			return &apperrors.InsufficientStockError{
				ProductID: item.ProductID.Hex(),
				Available: available,
				Requested: item.Units,
			}
		}
		decremented = append(decremented, item)
	}
	return nil
}

func (s *CheckoutService) rollbackReservation(ctx context.Context, order *models.Order, decremented []models.OrderItem) {
	for _, item := range decremented {
		if err := s.products.RestoreStock(ctx, item.ProductID, item.Units); err != nil {
			zap.L().Error("Failed to restore stock during checkout rollback",
				zap.String("order_id", order.OrderID),
				zap.String("product_id", item.ProductID.Hex()),
				zap.Int("units", item.Units),
				zap.Error(err),
			)
		}
	}
	if err := s.orders.Delete(ctx, order.ID); err != nil {
		zap.L().Error("Failed to delete order during checkout rollback",
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)
	}
}
