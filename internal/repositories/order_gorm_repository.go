package repositories

import (
	"errors"
	"fmt"
	"lapak/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// GetByID retrieves a single order with its items from the database.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByUserID retrieves all orders placed by one user, newest first.
func (r *GORMOrderRepository) GetByUserID(userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// List retrieves orders matching the filter with pagination, newest first,
// returning the page and the total match count.
func (r *GORMOrderRepository) List(filter OrderFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	var orders []models.Order
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// Create persists a new order together with its item snapshots.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// Update saves the order's mutable fields. Items are snapshots and are never
// rewritten here.
func (r *GORMOrderRepository) Update(order *models.Order) error {
	res := r.db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":       order.Status,
			"total_amount": order.TotalAmount,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", order.ID, ErrNotFound)
	}
	return nil
}

// AggregateByStatus groups all orders by status with count and summed amount.
func (r *GORMOrderRepository) AggregateByStatus() ([]StatusAggregate, error) {
	var aggregates []StatusAggregate
	err := r.db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total_amount").
		Group("status").
		Scan(&aggregates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders by status: %w", err)
	}
	return aggregates, nil
}
