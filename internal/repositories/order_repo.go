package repositories

import (
	"lapak/internal/models"
)

// OrderFilter narrows and pages the admin order listing. Zero values mean
// "no filter"; Page and Limit default to 1 and 20.
type OrderFilter struct {
	Status models.OrderStatus
	UserID string
	Page   int
	Limit  int
}

// StatusAggregate is one row of the per-status order aggregation.
type StatusAggregate struct {
	Status      models.OrderStatus `json:"status"`
	Count       int64              `json:"count"`
	TotalAmount float64            `json:"total_amount"`
}

// OrderRepository defines the interface for order data access. Orders are
// created and mutated only through the order service.
type OrderRepository interface {
	GetByID(id string) (*models.Order, error)
	GetByUserID(userID string) ([]models.Order, error)
	List(filter OrderFilter) ([]models.Order, int64, error)
	Create(order *models.Order) error
	Update(order *models.Order) error
	AggregateByStatus() ([]StatusAggregate, error)
	// Deletion of orders is intentionally not supported; cancelled orders are
	// kept as terminal records.
}
