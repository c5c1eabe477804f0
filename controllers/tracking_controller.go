package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plantbazaar/backend/apperrors"
	"github.com/plantbazaar/backend/middleware"
	"github.com/plantbazaar/backend/services"
)

type TrackingController struct {
	tracking *services.TrackingService
}

func NewTrackingController(tracking *services.TrackingService) *TrackingController {
	return &TrackingController{tracking: tracking}
}

// CheckServiceability quotes couriers for a lane and returns the
// cheapest prepaid option.
func (tc *TrackingController) CheckServiceability(ctx *gin.Context) {
	var req services.ServiceabilityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	courier, err := tc.tracking.Serviceability(ctx.Request.Context(), req)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": courier})
}

type createShipmentRequest struct {
	OrderID    string                      `json:"order_id" binding:"required"`
	Billing    services.ShipmentBilling    `json:"billing" binding:"required"`
	Courier    services.CourierSelection   `json:"courier" binding:"required"`
	Dimensions services.ShipmentDimensions `json:"dimensions"`
}

// CreateShipment registers the order with the carrier.
func (tc *TrackingController) CreateShipment(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req createShipmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := tc.tracking.CreateShipment(ctx.Request.Context(), userID, req.OrderID, req.Billing, req.Courier, req.Dimensions)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Shipment created successfully",
		"data":    result,
	})
}

type assignWaybillRequest struct {
	OrderID    string `json:"order_id" binding:"required"`
	ShipmentID int64  `json:"shipment_id" binding:"required"`
	CourierID  int64  `json:"courier_id" binding:"required"`
}

// AssignWaybill assigns an AWB to the order and records the freight
// charge.
func (tc *TrackingController) AssignWaybill(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req assignWaybillRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, err := tc.tracking.AssignWaybill(ctx.Request.Context(), userID, req.OrderID, req.ShipmentID, req.CourierID)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Waybill assigned and order updated",
		"data": gin.H{
			"order_id":       order.OrderID,
			"awb_number":     order.AWBNumber,
			"courier_charge": order.CourierCharge,
			"status":         order.Status,
		},
	})
}

// TrackOrder polls the carrier for one order and applies any status
// transition.
func (tc *TrackingController) TrackOrder(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	status, err := tc.tracking.TrackOrder(ctx.Request.Context(), userID, ctx.Param("order_id"))
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": status})
}
