package models

import "time"

// CartItem is a single line in a user's cart. Price is snapshotted when the
// item is added so the order service can bill the price the customer saw.
type CartItem struct {
	ID        uint    `json:"-" gorm:"primaryKey;autoIncrement"`
	CartID    string  `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string  `json:"product_id" gorm:"type:varchar(36)" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
	Price     float64 `json:"price"` // Unit price at the time the item was added
}

// Cart holds a user's pending items. It is created lazily on the first add and
// emptied, not deleted, when an order is placed from it.
type Cart struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36)"`
	Items     []CartItem `json:"items" gorm:"foreignKey:CartID;references:ID"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
