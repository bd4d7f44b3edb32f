package repositories

import (
	"errors"
	"fmt"
	"lapak/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products from the database.
func (r *GORMProductRepository) GetAll() ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create creates a new product in the database. InStock is derived from the
// initial quantity so catalog writes cannot break the stock invariant.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.InStock = product.Quantity > 0
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(product *models.Product) error {
	product.InStock = product.Quantity > 0
	res := r.db.Save(product) // Save will update all fields, including zero values
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// GORM's Save doesn't return ErrRecordNotFound if no rows were
		// affected by an update, so we check RowsAffected.
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(id string) error {
	res := r.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// DecrementQuantity subtracts amount from the product's stock in a single
// guarded UPDATE. The quantity >= amount condition is re-evaluated against the
// latest committed row, so a concurrent order that drained the stock first
// makes this call fail with ErrStockConflict instead of going negative.
// in_stock is recomputed in the same statement to keep the invariant.
func (r *GORMProductRepository) DecrementQuantity(id string, amount int) error {
	res := r.db.Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", id, amount).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity - ?", amount),
			"in_stock": gorm.Expr("quantity - ? > 0", amount),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock for product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, ErrStockConflict)
	}
	return nil
}

// RestoreQuantity adds amount back to the product's stock and marks it
// sellable again.
func (r *GORMProductRepository) RestoreQuantity(id string, amount int) error {
	res := r.db.Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", amount),
			"in_stock": true,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to restore stock for product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return nil
}
