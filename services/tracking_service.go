package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/plantbazaar/backend/apperrors"
	"github.com/plantbazaar/backend/models"
	"github.com/plantbazaar/backend/repository"
)

// TrackingStatus is the client-facing result of a tracking poll.
type TrackingStatus struct {
	OrderID           string             `json:"order_id"`
	AWBNumber         string             `json:"awb_number"`
	ShipmentStatus    int                `json:"shipment_status"`
	CarrierStatusText string             `json:"carrier_status_text"`
	OrderStatus       models.OrderStatus `json:"order_status"`
	TrackURL          string             `json:"track_url,omitempty"`
}

// TrackingService synchronizes order state with the carrier: waybill
// assignment, single-order polls, and the periodic reconciliation sweep.
type TrackingService struct {
	orders      repository.OrderRepository
	carrier     CarrierAPI
	notifier    *NotificationService
	events      *EventPublisher
	pollTimeout time.Duration
}

func NewTrackingService(
	orders repository.OrderRepository,
	carrier CarrierAPI,
	notifier *NotificationService,
	events *EventPublisher,
	pollTimeout time.Duration,
) *TrackingService {
	return &TrackingService{
		orders:      orders,
		carrier:     carrier,
		notifier:    notifier,
		events:      events,
		pollTimeout: pollTimeout,
	}
}

// AssignWaybill assigns a carrier waybill to the order and records the
// freight charge. The order moves to on_the_way: the carrier handoff
// point.
func (s *TrackingService) AssignWaybill(ctx context.Context, userID, orderID string, shipmentID, courierID int64) (*models.Order, error) {
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	if order.Status.IsTerminal() {
		return nil, apperrors.New(409, "Order is in a terminal state", nil)
	}

	assignment, err := s.carrier.AssignAWB(ctx, shipmentID, courierID)
	if err != nil {
		return nil, err
	}

	if err := s.orders.SetWaybill(ctx, order.ID, assignment.AWBCode, assignment.FreightCharge, models.StatusOnTheWay); err != nil {
		return nil, fmt.Errorf("persist waybill: %w", err)
	}

	order.AWBNumber = assignment.AWBCode
	order.CourierCharge = assignment.FreightCharge
	order.Status = models.StatusOnTheWay
	order.UpdatedAt = time.Now()
	return order, nil
}

// Serviceability quotes the lane and returns the cheapest prepaid
// courier.
func (s *TrackingService) Serviceability(ctx context.Context, req ServiceabilityRequest) (*CourierOption, error) {
	return s.carrier.CheckServiceability(ctx, req)
}

// CreateShipment registers the order with the carrier.
func (s *TrackingService) CreateShipment(ctx context.Context, userID, orderID string, billing ShipmentBilling, courier CourierSelection, dims ShipmentDimensions) (*ShipmentResult, error) {
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return s.carrier.CreateShipment(ctx, order, billing, courier, dims)
}

// TrackOrder polls the carrier for one order and applies the transition
// rule immediately.
func (s *TrackingService) TrackOrder(ctx context.Context, userID, orderID string) (*TrackingStatus, error) {
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	if order.AWBNumber == "" {
		return nil, apperrors.New(400, "Order has no waybill assigned", nil)
	}

	tracking, err := s.pollCarrier(ctx, order.AWBNumber)
	if err != nil {
		return nil, err
	}

	status, _ := s.applyTracking(ctx, order, tracking)
	return &TrackingStatus{
		OrderID:           order.OrderID,
		AWBNumber:         order.AWBNumber,
		ShipmentStatus:    tracking.ShipmentStatus,
		CarrierStatusText: tracking.CurrentStatus,
		OrderStatus:       status,
		TrackURL:          tracking.TrackURL,
	}, nil
}

// RunReconciliation walks open orders on an interval until ctx is done.
func (s *TrackingService) RunReconciliation(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	zap.L().Info("Tracking reconciliation started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Tracking reconciliation stopped")
			return
		case <-ticker.C:
			s.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce polls every order with a waybill and a non-terminal
// status. Each order is isolated: a carrier failure or timeout on one
// order is "no update this cycle" and never aborts the rest.
func (s *TrackingService) ReconcileOnce(ctx context.Context) {
	orders, err := s.orders.FindTrackable(ctx)
	if err != nil {
		zap.L().Error("Failed to load trackable orders", zap.Error(err))
		return
	}

	for i := range orders {
		order := &orders[i]

		tracking, err := s.pollCarrier(ctx, order.AWBNumber)
		if err != nil {
			zap.L().Warn("Carrier poll failed; skipping order this cycle",
				zap.String("order_id", order.OrderID),
				zap.String("awb", order.AWBNumber),
				zap.Error(err),
			)
			continue
		}

		if _, err := s.applyTracking(ctx, order, tracking); err != nil {
			zap.L().Error("Failed to apply tracking update",
				zap.String("order_id", order.OrderID),
				zap.Error(err),
			)
		}
	}
}

func (s *TrackingService) pollCarrier(ctx context.Context, awb string) (*TrackingResult, error) {
	pollCtx, cancel := context.WithTimeout(ctx, s.pollTimeout)
	defer cancel()
	return s.carrier.TrackAWB(pollCtx, awb)
}

// applyTracking maps the external code and applies the transition rule:
// idempotent no-op on a repeated status, no regressions, exactly one
// notification per applied transition per order.
func (s *TrackingService) applyTracking(ctx context.Context, order *models.Order, tracking *TrackingResult) (models.OrderStatus, error) {
	next, recognized := models.MapCarrierStatus(tracking.ShipmentStatus)
	if !recognized {
		return order.Status, nil
	}
	if !order.Status.CanTransitionTo(next) {
		return order.Status, nil
	}

	applied, err := s.orders.UpdateStatusFrom(ctx, order.ID, []models.OrderStatus{order.Status}, next)
	if err != nil {
		return order.Status, fmt.Errorf("update status: %w", err)
	}
	if !applied {
		// Lost a concurrent update; the other writer owns the notification.
		return order.Status, nil
	}

	previous := order.Status
	order.Status = next
	order.UpdatedAt = time.Now()

	zap.L().Info("Order status transitioned",
		zap.String("order_id", order.OrderID),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
	)

	s.events.PublishOrderEvent(ctx, models.EventOrderStatusChanged, order)
	if s.notifier != nil {
		if err := s.notifier.Dispatch(ctx, order.UserID, order.OrderID,
			"Order update",
			fmt.Sprintf("Your order %s is now %s.", order.OrderID, statusLabel(next)),
			models.NotificationTypeOrderStatus,
		); err != nil {
			zap.L().Warn("Status notification failed",
				zap.String("order_id", order.OrderID),
				zap.Error(err),
			)
		}
	}
	return next, nil
}

func statusLabel(s models.OrderStatus) string {
	switch s {
	case models.StatusPickupScheduled:
		return "scheduled for pickup"
	case models.StatusPickupDone:
		return "picked up"
	case models.StatusOnTheWay:
		return "on the way"
	case models.StatusOutForDelivery:
		return "out for delivery"
	case models.StatusDelivered:
		return "delivered"
	case models.StatusReturnInitiated:
		return "being returned"
	case models.StatusReturnDelivered:
		return "returned"
	default:
		return string(s)
	}
}
