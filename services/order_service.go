package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/plantbazaar/backend/apperrors"
	"github.com/plantbazaar/backend/models"
	"github.com/plantbazaar/backend/repository"
)

// OrderItemView is a line item with display fields resolved from the
// live catalog. Price and quantity stay the purchase-time snapshots.
type OrderItemView struct {
	ProductID    string   `json:"product_id"`
	ProductName  string   `json:"product_name"`
	SellingPrice float64  `json:"selling_price"`
	Units        int      `json:"units"`
	Images       []string `json:"images,omitempty"`
}

// OrderView is the client-facing order shape.
type OrderView struct {
	ID              string                 `json:"id"`
	OrderID         string                 `json:"order_id"`
	Items           []OrderItemView        `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	TotalAmount     float64                `json:"total_amount"`
	Status          models.OrderStatus     `json:"status"`
	AWBNumber       string                 `json:"awb_number,omitempty"`
	CourierCharge   float64                `json:"courier_charge,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// OrderService serves order retrieval and client-initiated cancellation.
type OrderService struct {
	orders        repository.OrderRepository
	products      repository.ProductRepository
	notifier      *NotificationService
	events        *EventPublisher
	publicBaseURL string
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	notifier *NotificationService,
	events *EventPublisher,
	publicBaseURL string,
) *OrderService {
	return &OrderService{
		orders:        orders,
		products:      products,
		notifier:      notifier,
		events:        events,
		publicBaseURL: publicBaseURL,
	}
}

// ListForUser returns the user's orders newest-first with product images
// denormalized for display.
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]OrderView, error) {
	orders, err := s.orders.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, apperrors.ErrNotFound
	}

	idSet := map[primitive.ObjectID]struct{}{}
	for _, order := range orders {
		for _, item := range order.Items {
			idSet[item.ProductID] = struct{}{}
		}
	}
	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		// Display enrichment only; the orders themselves are intact.
		zap.L().Warn("Failed to resolve products for order display", zap.Error(err))
		products = map[primitive.ObjectID]models.Product{}
	}

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, s.toView(&orders[i], products))
	}
	return views, nil
}

// GetByOrderID returns a single order owned by the user.
func (s *OrderService) GetByOrderID(ctx context.Context, userID, orderID string) (*OrderView, error) {
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, apperrors.ErrNotFound
	}

	ids := make([]primitive.ObjectID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		products = map[primitive.ObjectID]models.Product{}
	}

	view := s.toView(order, products)
	return &view, nil
}

// Cancel flips the order to cancelled and restores every line's stock.
// The status flip is conditional on the current status, so a second
// cancel fails NotCancellable and stock is restored exactly once.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	if !order.Status.IsCancellable() {
		return nil, apperrors.ErrNotCancellable
	}

	ok, err := s.orders.UpdateStatusFrom(ctx, order.ID, models.CancellableStatuses(), models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if !ok {
		return nil, apperrors.ErrNotCancellable
	}

	for _, item := range order.Items {
		if err := s.products.RestoreStock(ctx, item.ProductID, item.Units); err != nil {
			zap.L().Error("Failed to restore stock on cancel",
				zap.String("order_id", order.OrderID),
				zap.String("product_id", item.ProductID.Hex()),
				zap.Int("units", item.Units),
				zap.Error(err),
			)
		}
	}

	order.Status = models.StatusCancelled
	order.UpdatedAt = time.Now()

	s.events.PublishOrderEvent(ctx, models.EventOrderCancelled, order)
	if s.notifier != nil {
		if err := s.notifier.Dispatch(ctx, userID, order.OrderID,
			"Order cancelled",
			fmt.Sprintf("Your order %s has been cancelled.", order.OrderID),
			models.NotificationTypeOrderCancelled,
		); err != nil {
			zap.L().Warn("Cancel notification failed",
				zap.String("order_id", order.OrderID),
				zap.Error(err),
			)
		}
	}

	return order, nil
}

func (s *OrderService) toView(order *models.Order, products map[primitive.ObjectID]models.Product) OrderView {
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		view := OrderItemView{
			ProductID:    item.ProductID.Hex(),
			ProductName:  item.ProductName,
			SellingPrice: item.SellingPrice,
			Units:        item.Units,
		}
		if product, ok := products[item.ProductID]; ok {
			view.Images = s.absoluteImageURLs(product.Images)
		}
		items = append(items, view)
	}

	return OrderView{
		ID:              order.ID.Hex(),
		OrderID:         order.OrderID,
		Items:           items,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		TotalAmount:     order.TotalAmount,
		Status:          order.Status,
		AWBNumber:       order.AWBNumber,
		CourierCharge:   order.CourierCharge,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func (s *OrderService) absoluteImageURLs(images []string) []string {
	if len(images) == 0 {
		return nil
	}
	out := make([]string, 0, len(images))
	for _, img := range images {
		if strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
			out = append(out, img)
			continue
		}
		out = append(out, strings.TrimSuffix(s.publicBaseURL, "/")+"/"+strings.TrimPrefix(img, "/"))
	}
	return out
}
