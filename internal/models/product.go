package models

import "gorm.io/gorm"

// Product represents a product in the store. The catalog owns name, description
// and price; quantity and in_stock are mutated only by the order service, which
// keeps in_stock equal to quantity > 0.
type Product struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,min=3,max=100"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	InStock     bool    `json:"in_stock"`
	gorm.Model          // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
