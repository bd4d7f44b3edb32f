package services

import (
	"errors"
	"fmt"
	"lapak/internal/models"
	"lapak/internal/repositories"
)

// CartService handles business logic related to shopping carts. The cart only
// references products and snapshots their price; stock is checked and
// decremented later, when the order is placed.
type CartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(carts repositories.CartRepository, products repositories.ProductRepository) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
	}
}

// GetCart retrieves the user's cart. A user who never added anything gets an
// empty cart back rather than an error.
func (s *CartService) GetCart(userID string) (*models.Cart, error) {
	cart, err := s.carts.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart, nil
}

// AddItem puts quantity units of a product into the user's cart, creating the
// cart on first use. The product's current price is snapshotted on the line.
func (s *CartService) AddItem(userID, productID string, quantity int) (*models.Cart, error) {
	product, err := s.products.GetByID(productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &ProductNotFoundError{ProductID: productID}
		}
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}

	return s.carts.AddItem(userID, models.CartItem{
		ProductID: product.ID,
		Quantity:  quantity,
		Price:     product.Price,
	})
}

// UpdateItemQuantity changes how many units of a product the cart holds.
func (s *CartService) UpdateItemQuantity(userID, productID string, quantity int) (*models.Cart, error) {
	cart, err := s.carts.UpdateItemQuantity(userID, productID, quantity)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &ProductNotFoundError{ProductID: productID}
		}
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return cart, nil
}

// RemoveItem deletes a product line from the cart.
func (s *CartService) RemoveItem(userID, productID string) (*models.Cart, error) {
	cart, err := s.carts.RemoveItem(userID, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &ProductNotFoundError{ProductID: productID}
		}
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	return cart, nil
}

// ClearCart empties the user's cart.
func (s *CartService) ClearCart(userID string) error {
	return s.carts.Clear(userID)
}
