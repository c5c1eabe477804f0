package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is the catalog record the checkout path reads and mutates.
// Only Quantity is mutated here (decrement on checkout, restore on
// cancel); everything else belongs to catalog-management collaborators.
type Product struct {
	ID       primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name     string             `json:"name" bson:"name"`
	Images   []string           `json:"images" bson:"images"`
	Price    float64            `json:"price" bson:"price"`
	Quantity int                `json:"quantity" bson:"quantity"`
	Active   bool               `json:"active" bson:"active"`
	Deleted  bool               `json:"deleted" bson:"deleted"`

	CreatedAt time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// Purchasable reports whether the product may appear on a new order.
func (p *Product) Purchasable() bool {
	return p.Active && !p.Deleted
}
