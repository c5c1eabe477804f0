package models

import "time"

// CartItem references a product by its hex id with a desired quantity.
type CartItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// Cart is owned by exactly one user. No duplicate product entries:
// quantity accumulates on repeated adds.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}
