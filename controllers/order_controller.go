package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plantbazaar/backend/apperrors"
	"github.com/plantbazaar/backend/middleware"
	"github.com/plantbazaar/backend/services"
)

type OrderController struct {
	checkout *services.CheckoutService
	orders   *services.OrderService
}

func NewOrderController(checkout *services.CheckoutService, orders *services.OrderService) *OrderController {
	return &OrderController{
		checkout: checkout,
		orders:   orders,
	}
}

// CreateOrder runs the checkout flow for the authenticated user's cart.
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req services.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, err := oc.checkout.Checkout(ctx.Request.Context(), userID, &req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":      "Order placed successfully",
		"order_id":     order.OrderID,
		"total_amount": order.TotalAmount,
		"data":         order,
	})
}

// GetOrders returns the authenticated user's orders with resolved
// product display fields.
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orders, err := oc.orders.ListForUser(ctx.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrderByID returns one of the user's orders by its external id.
func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, err := oc.orders.GetByOrderID(ctx.Request.Context(), userID, ctx.Param("order_id"))
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelOrder cancels the order and restores its stock.
func (oc *OrderController) CancelOrder(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, err := oc.orders.Cancel(ctx.Request.Context(), userID, ctx.Param("order_id"))
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":        "Order cancelled and stock restored",
		"order_id":       order.OrderID,
		"status":         order.Status,
		"stock_restored": true,
	})
}
