package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plantbazaar/backend/middleware"
	"github.com/plantbazaar/backend/models"
	"github.com/plantbazaar/backend/services"
)

type CartController struct {
	carts *services.CartService
}

func NewCartController(carts *services.CartService) *CartController {
	return &CartController{carts: carts}
}

// GetCart returns the current cart for the user.
func (cc *CartController) GetCart(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	cart, err := cc.carts.Get(ctx.Request.Context(), userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get cart"})
		return
	}

	ctx.JSON(http.StatusOK, cart)
}

// AddItem adds a product to the cart, accumulating quantity on repeats.
func (cc *CartController) AddItem(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var item models.CartItem
	if err := ctx.ShouldBindJSON(&item); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	cart, err := cc.carts.AddItem(ctx.Request.Context(), userID, item)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save cart"})
		return
	}

	ctx.JSON(http.StatusOK, cart)
}

// RemoveItem removes a product from the cart.
func (cc *CartController) RemoveItem(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	cart, err := cc.carts.RemoveItem(ctx.Request.Context(), userID, ctx.Param("product_id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}
	if cart == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
		return
	}

	ctx.JSON(http.StatusOK, cart)
}

// ClearCart empties the user's cart.
func (cc *CartController) ClearCart(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := cc.carts.Clear(ctx.Request.Context(), userID); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
