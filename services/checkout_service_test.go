package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantbazaar/backend/apperrors"
	"github.com/plantbazaar/backend/models"
)

type checkoutFixture struct {
	svc           *CheckoutService
	orders        *fakeOrderRepo
	products      *fakeProductRepo
	carts         *fakeCartRepo
	notifications *fakeNotificationRepo
}

func newCheckoutFixture() *checkoutFixture {
	orders := newFakeOrderRepo()
	products := newFakeProductRepo()
	carts := newFakeCartRepo()
	notifications := &fakeNotificationRepo{}
	notifier := NewNotificationService(notifications, nil)

	return &checkoutFixture{
		svc:           NewCheckoutService(orders, products, carts, notifier, nil),
		orders:        orders,
		products:      products,
		carts:         carts,
		notifications: notifications,
	}
}

func checkoutReq() *CheckoutRequest {
	return &CheckoutRequest{
		ShippingAddress: models.ShippingAddress{
			Name:         "Asha Rao",
			Address:      "14 MG Road",
			Pincode:      "560001",
			MobileNumber: "9900112233",
		},
		PaymentMethod: models.PaymentCashOnDelivery,
	}
}

func TestCheckout_Succeeds(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	productA := f.products.put(models.Product{Name: "Areca Palm", Price: 10.00, Quantity: 5, Active: true})
	productB := f.products.put(models.Product{Name: "Clay Pot", Price: 5.00, Quantity: 3, Active: true})

	require.NoError(t, f.carts.Save(ctx, &models.Cart{
		UserID: "user-1",
		Items: []models.CartItem{
			{ProductID: productA.Hex(), Quantity: 2},
			{ProductID: productB.Hex(), Quantity: 1},
		},
	}))

	order, err := f.svc.Checkout(ctx, "user-1", checkoutReq())
	require.NoError(t, err)

	assert.Equal(t, 25.00, order.TotalAmount)
	assert.Equal(t, order.ItemTotal(), order.TotalAmount)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "Areca Palm", order.Items[0].ProductName)
	assert.Equal(t, 10.00, order.Items[0].SellingPrice)

	assert.Equal(t, 3, f.products.stock(productA))
	assert.Equal(t, 2, f.products.stock(productB))

	cart, err := f.carts.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, cart, "cart must be emptied on successful checkout")

	assert.Equal(t, 1, f.notifications.countByType(models.NotificationTypeOrderPlaced))
}

func TestCheckout_InsufficientStockFailsWholeOrder(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	productA := f.products.put(models.Product{Name: "Areca Palm", Price: 10.00, Quantity: 5, Active: true})
	productB := f.products.put(models.Product{Name: "Clay Pot", Price: 5.00, Quantity: 0, Active: true})

	require.NoError(t, f.carts.Save(ctx, &models.Cart{
		UserID: "user-1",
		Items: []models.CartItem{
			{ProductID: productA.Hex(), Quantity: 2},
			{ProductID: productB.Hex(), Quantity: 1},
		},
	}))

	_, err := f.svc.Checkout(ctx, "user-1", checkoutReq())

	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, productB.Hex(), stockErr.ProductID)
	assert.Equal(t, 0, stockErr.Available)

	assert.Equal(t, 5, f.products.stock(productA), "no partial decrement")
	assert.Equal(t, 0, f.orders.count(), "no order on failure")

	cart, err := f.carts.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, cart, "cart untouched on failure")
	assert.Len(t, cart.Items, 2)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, "user-1", checkoutReq())
	assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
}

func TestCheckout_AllLinesUnavailableFailsEmptyCart(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	inactive := f.products.put(models.Product{Name: "Retired", Price: 9.99, Quantity: 4, Active: false})
	deleted := f.products.put(models.Product{Name: "Gone", Price: 3.50, Quantity: 4, Active: true, Deleted: true})

	require.NoError(t, f.carts.Save(ctx, &models.Cart{
		UserID: "user-1",
		Items: []models.CartItem{
			{ProductID: inactive.Hex(), Quantity: 1},
			{ProductID: deleted.Hex(), Quantity: 1},
		},
	}))

	_, err := f.svc.Checkout(ctx, "user-1", checkoutReq())
	assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
	assert.Equal(t, 0, f.orders.count())
}

func TestCheckout_DropsUnavailableLineKeepsRest(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	ok := f.products.put(models.Product{Name: "Areca Palm", Price: 10.00, Quantity: 5, Active: true})
	gone := f.products.put(models.Product{Name: "Gone", Price: 3.50, Quantity: 4, Active: true, Deleted: true})

	require.NoError(t, f.carts.Save(ctx, &models.Cart{
		UserID: "user-1",
		Items: []models.CartItem{
			{ProductID: ok.Hex(), Quantity: 1},
			{ProductID: gone.Hex(), Quantity: 1},
		},
	}))

	order, err := f.svc.Checkout(ctx, "user-1", checkoutReq())
	require.NoError(t, err)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, 10.00, order.TotalAmount)
	assert.Equal(t, 4, f.products.stock(gone), "unavailable line never touches stock")
}

func TestCheckout_TotalMismatchRejected(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	product := f.products.put(models.Product{Name: "Areca Palm", Price: 10.00, Quantity: 5, Active: true})
	require.NoError(t, f.carts.Save(ctx, &models.Cart{
		UserID: "user-1",
		Items:  []models.CartItem{{ProductID: product.Hex(), Quantity: 2}},
	}))

	req := checkoutReq()
	req.TotalAmount = 19.00

	_, err := f.svc.Checkout(ctx, "user-1", req)
	require.Error(t, err)
	assert.Equal(t, 0, f.orders.count())
	assert.Equal(t, 5, f.products.stock(product))
}

func TestCheckout_ConcurrentLastUnits(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	const stock = 3
	const contenders = 8
	product := f.products.put(models.Product{Name: "Bonsai", Price: 99.00, Quantity: stock, Active: true})

	for i := 0; i < contenders; i++ {
		userID := fmt.Sprintf("user-%d", i)
		require.NoError(t, f.carts.Save(ctx, &models.Cart{
			UserID: userID,
			Items:  []models.CartItem{{ProductID: product.Hex(), Quantity: 1}},
		}))
	}

	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Checkout(ctx, fmt.Sprintf("user-%d", i), checkoutReq())
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var stockErr *apperrors.InsufficientStockError
		assert.ErrorAs(t, err, &stockErr, "losers must fail with InsufficientStock")
	}

	assert.Equal(t, stock, successes, "successful decrements never exceed available stock")
	assert.Equal(t, 0, f.products.stock(product))
	assert.Equal(t, stock, f.orders.count(), "losing checkouts leave no order behind")
}

func TestCheckout_OrderIDsDistinctUnderForcedCollisions(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	const total = 10000
	product := f.products.put(models.Product{Name: "Seed Pack", Price: 1.00, Quantity: total, Active: true})

	// Yield every candidate id twice so each checkout after the first
	// hits at least one collision before finding a fresh id.
	var calls int
	f.svc.newOrderID = func() string {
		calls++
		return fmt.Sprintf("ORD-%05d", (calls-1)/2)
	}

	seen := make(map[string]struct{}, total)
	for i := 0; i < total; i++ {
		require.NoError(t, f.carts.Save(ctx, &models.Cart{
			UserID: "user-1",
			Items:  []models.CartItem{{ProductID: product.Hex(), Quantity: 1}},
		}))

		order, err := f.svc.Checkout(ctx, "user-1", checkoutReq())
		require.NoError(t, err)
		seen[order.OrderID] = struct{}{}
	}

	assert.Len(t, seen, total)
}

func TestCheckout_OrderIDExhaustion(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	product := f.products.put(models.Product{Name: "Seed Pack", Price: 1.00, Quantity: 10, Active: true})
	f.svc.newOrderID = func() string { return "ORD-00042" }

	require.NoError(t, f.carts.Save(ctx, &models.Cart{
		UserID: "user-1",
		Items:  []models.CartItem{{ProductID: product.Hex(), Quantity: 1}},
	}))
	_, err := f.svc.Checkout(ctx, "user-1", checkoutReq())
	require.NoError(t, err)

	require.NoError(t, f.carts.Save(ctx, &models.Cart{
		UserID: "user-2",
		Items:  []models.CartItem{{ProductID: product.Hex(), Quantity: 1}},
	}))
	_, err = f.svc.Checkout(ctx, "user-2", checkoutReq())
	assert.ErrorIs(t, err, apperrors.ErrOrderIDExhausted)
	assert.Equal(t, 1, f.orders.count())
}

func TestCheckout_PriceSnapshotSurvivesCatalogChange(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	product := f.products.put(models.Product{Name: "Areca Palm", Price: 10.00, Quantity: 5, Active: true})
	require.NoError(t, f.carts.Save(ctx, &models.Cart{
		UserID: "user-1",
		Items:  []models.CartItem{{ProductID: product.Hex(), Quantity: 1}},
	}))

	order, err := f.svc.Checkout(ctx, "user-1", checkoutReq())
	require.NoError(t, err)

	// Catalog price change after purchase must not affect the snapshot.
	f.products.mu.Lock()
	f.products.products[product].Price = 42.00
	f.products.mu.Unlock()

	stored := f.orders.get(order.ID)
	require.NotNil(t, stored)
	assert.Equal(t, 10.00, stored.Items[0].SellingPrice)
	assert.Equal(t, 10.00, stored.TotalAmount)
}
