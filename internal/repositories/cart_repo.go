package repositories

import (
	"lapak/internal/models"
)

// CartRepository defines the interface for cart data access. A user has at
// most one cart, created lazily by AddItem. Clear empties the item list but
// keeps the cart row for reuse.
type CartRepository interface {
	GetByUserID(userID string) (*models.Cart, error)
	AddItem(userID string, item models.CartItem) (*models.Cart, error)
	UpdateItemQuantity(userID, productID string, quantity int) (*models.Cart, error)
	RemoveItem(userID, productID string) (*models.Cart, error)
	Clear(userID string) error
}
