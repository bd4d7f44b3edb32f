package repositories

import (
	"lapak/internal/models"
)

// ProductRepository defines the interface for product data access. The catalog
// uses the CRUD methods; the order service is the only caller of
// DecrementQuantity and RestoreQuantity, which both keep in_stock equal to
// quantity > 0 in the same write.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error

	// DecrementQuantity subtracts amount from the product's quantity as one
	// guarded write. It returns ErrStockConflict if the product is missing or
	// holds less than amount, so concurrent orders can never jointly oversell.
	DecrementQuantity(id string, amount int) error

	// RestoreQuantity adds amount back and marks the product in stock. A
	// missing product is reported as ErrNotFound.
	RestoreQuantity(id string, amount int) error
}
