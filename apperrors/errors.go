package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is the application error shape returned to clients.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error types
var (
	ErrBadRequest     = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized   = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrNotFound       = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer = New(http.StatusInternalServerError, "Internal server error", nil)
)

// Checkout / order lifecycle errors
var (
	// ErrEmptyCart means no valid cart line survived validation.
	ErrEmptyCart = New(http.StatusBadRequest, "Cart is empty", nil)
	// ErrNotCancellable means the order is terminal or already handed to the carrier.
	ErrNotCancellable = New(http.StatusConflict, "Order can no longer be cancelled", nil)
	// ErrOrderIDExhausted means the order id generator ran out of retries.
	ErrOrderIDExhausted = New(http.StatusInternalServerError, "Could not allocate a unique order id", nil)
)

// InsufficientStockError names the offending product and how much is left.
type InsufficientStockError struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available=%d requested=%d",
		e.ProductID, e.Available, e.Requested)
}

// CarrierError carries the upstream carrier payload. Callers in the
// reconciliation path treat it as "no update this cycle".
type CarrierError struct {
	StatusCode int    `json:"status_code"`
	Payload    string `json:"payload"`
	Err        error  `json:"-"`
}

func (e *CarrierError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("carrier request failed: %v", e.Err)
	}
	return fmt.Sprintf("carrier returned %d: %s", e.StatusCode, e.Payload)
}

func (e *CarrierError) Unwrap() error {
	return e.Err
}

// Respond writes err as a JSON response with the appropriate status code.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":      "Insufficient stock",
			"product_id": stockErr.ProductID,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
		return
	}

	var carrierErr *CarrierError
	if errors.As(err, &carrierErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Carrier request failed",
			"details": carrierErr.Payload,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
