package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/plantbazaar/backend/controllers"
	"github.com/plantbazaar/backend/middleware"
)

// Register wires all route groups. Everything but serviceability is
// scoped to the authenticated user.
func Register(
	r *gin.Engine,
	orders *controllers.OrderController,
	carts *controllers.CartController,
	tracking *controllers.TrackingController,
	notifications *controllers.NotificationController,
) {
	cartRoutes := r.Group("/cart")
	cartRoutes.Use(middleware.AuthMiddleware())
	{
		cartRoutes.GET("/", carts.GetCart)
		cartRoutes.POST("/add", carts.AddItem)
		cartRoutes.DELETE("/remove/:product_id", carts.RemoveItem)
		cartRoutes.DELETE("/clear", carts.ClearCart)
	}

	orderRoutes := r.Group("/orders")
	orderRoutes.Use(middleware.AuthMiddleware())
	{
		orderRoutes.POST("/", orders.CreateOrder)
		orderRoutes.GET("/", orders.GetOrders)
		orderRoutes.GET("/:order_id", orders.GetOrderByID)
		orderRoutes.POST("/:order_id/cancel", orders.CancelOrder)
	}

	shippingRoutes := r.Group("/shipping")
	shippingRoutes.Use(middleware.AuthMiddleware())
	{
		shippingRoutes.POST("/serviceability", tracking.CheckServiceability)
		shippingRoutes.POST("/shipments", tracking.CreateShipment)
		shippingRoutes.POST("/awb", tracking.AssignWaybill)
		shippingRoutes.GET("/track/:order_id", tracking.TrackOrder)
	}

	notificationRoutes := r.Group("/notifications")
	notificationRoutes.Use(middleware.AuthMiddleware())
	{
		notificationRoutes.GET("/", notifications.GetNotifications)
		notificationRoutes.PATCH("/:id/read", notifications.MarkRead)
	}
}
