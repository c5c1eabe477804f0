package services

import (
	"context"

	"github.com/plantbazaar/backend/models"
	"github.com/plantbazaar/backend/repository"
)

// CartService owns the quantity-accumulation invariant: a product never
// appears twice in a cart.
type CartService struct {
	repo repository.CartRepository
}

func NewCartService(repo repository.CartRepository) *CartService {
	return &CartService{repo: repo}
}

// Get returns the user's cart, or an empty one if none exists yet.
func (s *CartService) Get(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}
	return cart, nil
}

// AddItem creates the cart lazily and accumulates quantity on repeat
// adds of the same product.
func (s *CartService) AddItem(ctx context.Context, userID string, item models.CartItem) (*models.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Quantity += item.Quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, item)
	}

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem drops a product from the cart entirely.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, nil
	}

	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	cart.Items = items

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear deletes the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.repo.Delete(ctx, userID)
}
