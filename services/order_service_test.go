package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/plantbazaar/backend/apperrors"
	"github.com/plantbazaar/backend/models"
)

type orderFixture struct {
	svc           *OrderService
	orders        *fakeOrderRepo
	products      *fakeProductRepo
	notifications *fakeNotificationRepo
}

func newOrderFixture() *orderFixture {
	orders := newFakeOrderRepo()
	products := newFakeProductRepo()
	notifications := &fakeNotificationRepo{}
	notifier := NewNotificationService(notifications, nil)

	return &orderFixture{
		svc:           NewOrderService(orders, products, notifier, nil, "https://cdn.plantbazaar.in"),
		orders:        orders,
		products:      products,
		notifications: notifications,
	}
}

func (f *orderFixture) seedOrder(t *testing.T, userID string, status models.OrderStatus, items ...models.OrderItem) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderID:       "ORD-" + primitive.NewObjectID().Hex()[:5],
		UserID:        userID,
		Items:         items,
		PaymentMethod: models.PaymentOnline,
		Status:        status,
	}
	for _, item := range items {
		order.TotalAmount += item.SellingPrice * float64(item.Units)
	}
	require.NoError(t, f.orders.Create(context.Background(), order))
	return order
}

func TestCancel_RestoresStockOnce(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	productID := f.products.put(models.Product{Name: "Areca Palm", Price: 10.00, Quantity: 3, Active: true})
	order := f.seedOrder(t, "user-1", models.StatusPending,
		models.OrderItem{ProductID: productID, ProductName: "Areca Palm", SellingPrice: 10.00, Units: 2})

	cancelled, err := f.svc.Cancel(ctx, "user-1", order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, f.products.stock(productID))
	assert.Equal(t, 1, f.notifications.countByType(models.NotificationTypeOrderCancelled))

	// Second cancel must not restore stock again.
	_, err = f.svc.Cancel(ctx, "user-1", order.OrderID)
	assert.ErrorIs(t, err, apperrors.ErrNotCancellable)
	assert.Equal(t, 5, f.products.stock(productID))
	assert.Equal(t, 1, f.notifications.countByType(models.NotificationTypeOrderCancelled))
}

func TestCancel_RejectedOnceOutForDelivery(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	productID := f.products.put(models.Product{Name: "Areca Palm", Price: 10.00, Quantity: 3, Active: true})
	order := f.seedOrder(t, "user-1", models.StatusOutForDelivery,
		models.OrderItem{ProductID: productID, ProductName: "Areca Palm", SellingPrice: 10.00, Units: 1})

	_, err := f.svc.Cancel(ctx, "user-1", order.OrderID)
	assert.ErrorIs(t, err, apperrors.ErrNotCancellable)
	assert.Equal(t, 3, f.products.stock(productID))
	assert.Equal(t, models.StatusOutForDelivery, f.orders.get(order.ID).Status)
}

func TestCancel_UnknownOrOtherUsersOrder(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	order := f.seedOrder(t, "user-1", models.StatusPending,
		models.OrderItem{ProductID: primitive.NewObjectID(), ProductName: "Fern", SellingPrice: 4.00, Units: 1})

	_, err := f.svc.Cancel(ctx, "user-2", order.OrderID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.Cancel(ctx, "user-1", "ORD-99999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListForUser_ResolvesAbsoluteImageURLs(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	productID := f.products.put(models.Product{
		Name:     "Areca Palm",
		Price:    10.00,
		Quantity: 3,
		Active:   true,
		Images:   []string{"/images/areca.jpg", "https://img.example.com/areca-2.jpg"},
	})
	f.seedOrder(t, "user-1", models.StatusPending,
		models.OrderItem{ProductID: productID, ProductName: "Areca Palm", SellingPrice: 10.00, Units: 1})

	views, err := f.svc.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Items, 1)
	assert.Equal(t, []string{
		"https://cdn.plantbazaar.in/images/areca.jpg",
		"https://img.example.com/areca-2.jpg",
	}, views[0].Items[0].Images)
}

func TestListForUser_NoOrders(t *testing.T) {
	f := newOrderFixture()

	_, err := f.svc.ListForUser(context.Background(), "user-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetByOrderID_EnforcesOwnership(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	productID := f.products.put(models.Product{Name: "Areca Palm", Price: 10.00, Quantity: 3, Active: true})
	order := f.seedOrder(t, "user-1", models.StatusPending,
		models.OrderItem{ProductID: productID, ProductName: "Areca Palm", SellingPrice: 10.00, Units: 1})

	view, err := f.svc.GetByOrderID(ctx, "user-1", order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, view.OrderID)
	assert.Equal(t, 10.00, view.TotalAmount)

	_, err = f.svc.GetByOrderID(ctx, "user-2", order.OrderID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
