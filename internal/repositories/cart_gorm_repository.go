package repositories

import (
	"errors"
	"fmt"
	"lapak/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

// GetByUserID retrieves the user's cart with its items in insertion order.
func (r *GORMCartRepository) GetByUserID(userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("cart_items.id ASC")
	}).First(&cart, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

// AddItem adds an item to the user's cart, creating the cart if it does not
// exist yet. Adding a product already in the cart increases its quantity and
// refreshes the price snapshot.
func (r *GORMCartRepository) AddItem(userID string, item models.CartItem) (*models.Cart, error) {
	cart, err := r.ensureCart(userID)
	if err != nil {
		return nil, err
	}

	var existing models.CartItem
	err = r.db.First(&existing, "cart_id = ? AND product_id = ?", cart.ID, item.ProductID).Error
	switch {
	case err == nil:
		existing.Quantity += item.Quantity
		existing.Price = item.Price
		if err := r.db.Save(&existing).Error; err != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item.CartID = cart.ID
		if err := r.db.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to add cart item: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to look up cart item: %w", err)
	}

	return r.GetByUserID(userID)
}

// UpdateItemQuantity sets the quantity of one cart line.
func (r *GORMCartRepository) UpdateItemQuantity(userID, productID string, quantity int) (*models.Cart, error) {
	cart, err := r.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	res := r.db.Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cart.ID, productID).
		Update("quantity", quantity)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update cart item quantity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("cart item for product %s: %w", productID, ErrNotFound)
	}
	return r.GetByUserID(userID)
}

// RemoveItem deletes one line from the user's cart.
func (r *GORMCartRepository) RemoveItem(userID, productID string) (*models.Cart, error) {
	cart, err := r.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	res := r.db.Delete(&models.CartItem{}, "cart_id = ? AND product_id = ?", cart.ID, productID)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("cart item for product %s: %w", productID, ErrNotFound)
	}
	return r.GetByUserID(userID)
}

// Clear empties the cart's item list. The cart row itself is kept so it can be
// reused for the user's next order. A user without a cart is a no-op.
func (r *GORMCartRepository) Clear(userID string) error {
	var cart models.Cart
	err := r.db.First(&cart, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	if err := r.db.Delete(&models.CartItem{}, "cart_id = ?", cart.ID).Error; err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %w", userID, err)
	}
	return nil
}

// ensureCart fetches the user's cart row, creating it lazily on first use.
func (r *GORMCartRepository) ensureCart(userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.First(&cart, "user_id = ?", userID).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	cart = models.Cart{ID: uuid.New().String(), UserID: userID}
	if err := r.db.Create(&cart).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart for user %s: %w", userID, err)
	}
	return &cart, nil
}
