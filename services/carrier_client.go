package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/plantbazaar/backend/apperrors"
	"github.com/plantbazaar/backend/models"
)

// CarrierAPI is the carrier surface the tracking paths use; tests swap
// in a fake.
type CarrierAPI interface {
	TrackAWB(ctx context.Context, awb string) (*TrackingResult, error)
	AssignAWB(ctx context.Context, shipmentID, courierID int64) (*AWBAssignment, error)
	CheckServiceability(ctx context.Context, req ServiceabilityRequest) (*CourierOption, error)
	CreateShipment(ctx context.Context, order *models.Order, billing ShipmentBilling, courier CourierSelection, dims ShipmentDimensions) (*ShipmentResult, error)
}

// TrackingResult is the carrier's view of a shipment.
type TrackingResult struct {
	ShipmentStatus int    `json:"shipment_status"`
	CurrentStatus  string `json:"current_status"`
	TrackURL       string `json:"track_url"`
}

// AWBAssignment is the result of assigning a waybill to a shipment.
type AWBAssignment struct {
	AWBCode       string  `json:"awb_code"`
	FreightCharge float64 `json:"freight_charge"`
}

// CourierOption is one serviceable courier for a lane.
type CourierOption struct {
	CourierName           string  `json:"courier_name"`
	CourierCompanyID      int64   `json:"courier_company_id"`
	Rate                  float64 `json:"rate"`
	EstimatedDeliveryDays string  `json:"estimated_delivery_days"`
	ETD                   string  `json:"etd"`
}

// ServiceabilityRequest describes the lane to quote.
type ServiceabilityRequest struct {
	PickupPostcode   string  `json:"pickup_postcode" binding:"required"`
	DeliveryPostcode string  `json:"delivery_postcode" binding:"required"`
	Weight           float64 `json:"weight" binding:"required"`
	COD              bool    `json:"cod"`
}

// ShipmentDimensions defaults to a 10x10x10cm 1kg parcel when the client
// sends nothing.
type ShipmentDimensions struct {
	Length  float64 `json:"length"`
	Breadth float64 `json:"breadth"`
	Height  float64 `json:"height"`
	Weight  float64 `json:"weight"`
}

// ShipmentBilling carries the billing fields the order document does not
// hold.
type ShipmentBilling struct {
	Email string `json:"email" binding:"required,email"`
	City  string `json:"city" binding:"required"`
	State string `json:"state" binding:"required"`
}

// CourierSelection is the courier the client picked for a shipment.
type CourierSelection struct {
	CourierCompanyID int64   `json:"courier_company_id" binding:"required"`
	ShippingCharge   float64 `json:"shipping_charge"`
}

// ShipmentResult is the carrier's response to creating a shipment order.
type ShipmentResult struct {
	OrderID    int64 `json:"order_id"`
	ShipmentID int64 `json:"shipment_id"`
}

// CarrierClient wraps the external carrier HTTP API. The bearer token is
// cached with a conservative TTL; an authorization failure forces one
// re-login and a single retry.
type CarrierClient struct {
	baseURL    string
	email      string
	password   string
	tokenTTL   time.Duration
	httpClient *http.Client

	mu         sync.Mutex
	token      string
	tokenSince time.Time
}

func NewCarrierClient(baseURL, email, password string, timeout, tokenTTL time.Duration) *CarrierClient {
	return &CarrierClient{
		baseURL:  baseURL,
		email:    email,
		password: password,
		tokenTTL: tokenTTL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *CarrierClient) getToken(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.token != "" && time.Since(c.tokenSince) < c.tokenTTL {
		return c.token, nil
	}

	body, _ := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &apperrors.CarrierError{Err: err}
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &apperrors.CarrierError{StatusCode: resp.StatusCode, Payload: string(payload)}
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(payload, &out); err != nil || out.Token == "" {
		return "", &apperrors.CarrierError{StatusCode: resp.StatusCode, Payload: string(payload), Err: err}
	}

	c.token = out.Token
	c.tokenSince = time.Now()
	zap.L().Info("Carrier token refreshed")
	return c.token, nil
}

// request performs an authenticated call, re-authenticating exactly once
// on a 401.
func (c *CarrierClient) request(ctx context.Context, method, path string, body, out interface{}) error {
	resp, payload, err := c.doOnce(ctx, method, path, body, false)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp, payload, err = c.doOnce(ctx, method, path, body, true)
		if err != nil {
			return err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperrors.CarrierError{StatusCode: resp.StatusCode, Payload: string(payload)}
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return &apperrors.CarrierError{StatusCode: resp.StatusCode, Payload: string(payload), Err: err}
		}
	}
	return nil
}

func (c *CarrierClient) doOnce(ctx context.Context, method, path string, body interface{}, forceAuth bool) (*http.Response, []byte, error) {
	token, err := c.getToken(ctx, forceAuth)
	if err != nil {
		return nil, nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &apperrors.CarrierError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &apperrors.CarrierError{Err: err}
	}
	return resp, payload, nil
}

// TrackAWB returns the carrier's current view of a waybill.
func (c *CarrierClient) TrackAWB(ctx context.Context, awb string) (*TrackingResult, error) {
	var out struct {
		TrackingData *struct {
			ShipmentStatus int `json:"shipment_status"`
			ShipmentTrack  []struct {
				CurrentStatus string `json:"current_status"`
			} `json:"shipment_track"`
			TrackURL string `json:"track_url"`
		} `json:"tracking_data"`
	}
	if err := c.request(ctx, http.MethodGet, "/courier/track/awb/"+awb, nil, &out); err != nil {
		return nil, err
	}
	if out.TrackingData == nil {
		return nil, &apperrors.CarrierError{StatusCode: http.StatusOK, Payload: "missing tracking_data"}
	}

	result := &TrackingResult{
		ShipmentStatus: out.TrackingData.ShipmentStatus,
		CurrentStatus:  "NA",
		TrackURL:       out.TrackingData.TrackURL,
	}
	if len(out.TrackingData.ShipmentTrack) > 0 {
		result.CurrentStatus = out.TrackingData.ShipmentTrack[0].CurrentStatus
	}
	return result, nil
}

// AssignAWB assigns a waybill to a shipment/courier pair.
func (c *CarrierClient) AssignAWB(ctx context.Context, shipmentID, courierID int64) (*AWBAssignment, error) {
	body := map[string]int64{
		"shipment_id": shipmentID,
		"courier_id":  courierID,
	}

	var out struct {
		AWBAssignStatus int `json:"awb_assign_status"`
		Response        struct {
			Data struct {
				AWBCode        string  `json:"awb_code"`
				FreightCharges float64 `json:"freight_charges"`
			} `json:"data"`
		} `json:"response"`
	}
	if err := c.request(ctx, http.MethodPost, "/courier/assign/awb", body, &out); err != nil {
		return nil, err
	}
	if out.AWBAssignStatus != 1 {
		return nil, &apperrors.CarrierError{StatusCode: http.StatusOK, Payload: "awb assignment failed"}
	}

	return &AWBAssignment{
		AWBCode:       out.Response.Data.AWBCode,
		FreightCharge: out.Response.Data.FreightCharges,
	}, nil
}

// CheckServiceability quotes the lane and returns the cheapest prepaid
// courier.
func (c *CarrierClient) CheckServiceability(ctx context.Context, req ServiceabilityRequest) (*CourierOption, error) {
	cod := 0
	if req.COD {
		cod = 1
	}
	path := fmt.Sprintf("/courier/serviceability?pickup_postcode=%s&delivery_postcode=%s&weight=%v&cod=%d",
		req.PickupPostcode, req.DeliveryPostcode, req.Weight, cod)

	var out struct {
		Data struct {
			AvailableCourierCompanies []struct {
				CourierName           string  `json:"courier_name"`
				CourierCompanyID      int64   `json:"courier_company_id"`
				Rate                  float64 `json:"rate"`
				EstimatedDeliveryDays string  `json:"estimated_delivery_days"`
				ETD                   string  `json:"etd"`
				COD                   int     `json:"cod"`
			} `json:"available_courier_companies"`
		} `json:"data"`
	}
	if err := c.request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	var cheapest *CourierOption
	for _, courier := range out.Data.AvailableCourierCompanies {
		if courier.COD != 0 {
			continue
		}
		option := CourierOption{
			CourierName:           courier.CourierName,
			CourierCompanyID:      courier.CourierCompanyID,
			Rate:                  courier.Rate,
			EstimatedDeliveryDays: courier.EstimatedDeliveryDays,
			ETD:                   courier.ETD,
		}
		if cheapest == nil || option.Rate < cheapest.Rate {
			cheapest = &option
		}
	}
	if cheapest == nil {
		return nil, &apperrors.CarrierError{StatusCode: http.StatusOK, Payload: "no prepaid courier available"}
	}
	return cheapest, nil
}

// getPickupLocation fetches the company's registered pickup location.
func (c *CarrierClient) getPickupLocation(ctx context.Context) (string, error) {
	var out struct {
		Data struct {
			ShippingAddress []struct {
				PickupLocation string `json:"pickup_location"`
			} `json:"shipping_address"`
		} `json:"data"`
	}
	if err := c.request(ctx, http.MethodGet, "/settings/company/pickup", nil, &out); err != nil {
		return "", err
	}
	if len(out.Data.ShippingAddress) == 0 {
		return "", &apperrors.CarrierError{StatusCode: http.StatusOK, Payload: "no pickup location configured"}
	}
	return out.Data.ShippingAddress[0].PickupLocation, nil
}

// CreateShipment registers the order with the carrier, building the
// payload from the stored line item snapshots.
func (c *CarrierClient) CreateShipment(ctx context.Context, order *models.Order, billing ShipmentBilling, courier CourierSelection, dims ShipmentDimensions) (*ShipmentResult, error) {
	pickupLocation, err := c.getPickupLocation(ctx)
	if err != nil {
		return nil, err
	}

	if dims.Length == 0 {
		dims.Length = 10
	}
	if dims.Breadth == 0 {
		dims.Breadth = 10
	}
	if dims.Height == 0 {
		dims.Height = 10
	}
	if dims.Weight == 0 {
		dims.Weight = 1
	}

	items := make([]map[string]interface{}, 0, len(order.Items))
	subTotal := 0.0
	for i, item := range order.Items {
		items = append(items, map[string]interface{}{
			"name":          item.ProductName,
			"sku":           fmt.Sprintf("SKU_%s_%d", order.OrderID, i+1),
			"units":         item.Units,
			"selling_price": item.SellingPrice,
			"discount":      0,
			"tax":           0,
			"hsn":           0,
		})
		subTotal += item.SellingPrice * float64(item.Units)
	}

	paymentMethod := "Prepaid"
	if order.PaymentMethod == models.PaymentCashOnDelivery {
		paymentMethod = "COD"
	}

	payload := map[string]interface{}{
		"order_id":        order.OrderID,
		"order_date":      time.Now().Format("2006-01-02 15:04"),
		"pickup_location": pickupLocation,

		"billing_customer_name": order.ShippingAddress.Name,
		"billing_last_name":     "",
		"billing_address":       order.ShippingAddress.Address,
		"billing_city":          billing.City,
		"billing_state":         billing.State,
		"billing_pincode":       order.ShippingAddress.Pincode,
		"billing_country":       "India",
		"billing_email":         billing.Email,
		"billing_phone":         order.ShippingAddress.MobileNumber,

		"shipping_is_billing": true,

		"order_items":    items,
		"payment_method": paymentMethod,

		"shipping_charges": courier.ShippingCharge,
		"sub_total":        subTotal,
		"order_total":      subTotal + courier.ShippingCharge,

		"length":  dims.Length,
		"breadth": dims.Breadth,
		"height":  dims.Height,
		"weight":  dims.Weight,

		"courier_id": courier.CourierCompanyID,
	}

	var out ShipmentResult
	if err := c.request(ctx, http.MethodPost, "/orders/create/adhoc", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
