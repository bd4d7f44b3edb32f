package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// validTransitions is the strictly-forward order state machine. Delivered and
// cancelled are terminal.
var validTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed: {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:   {OrderStatusDelivered: true},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// IsValid reports whether s is one of the known order statuses.
func (s OrderStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminal reports whether an order in status s can never change again.
func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && len(validTransitions[s]) == 0
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return validTransitions[from][to]
}

// OrderItem is a snapshot of a product at order-creation time. Later changes
// to the product's name or price never affect historical orders.
type OrderItem struct {
	ID        uint    `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID   string  `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string  `json:"product_id" gorm:"type:varchar(36)"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"` // Price at the time of order
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"` // Price * Quantity, fixed at creation
}

// Order represents a customer order. Orders are created only by the order
// service's placement workflow, and TotalAmount always equals the sum of the
// item subtotals recorded at creation.
type Order struct {
	ID          string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string      `json:"user_id" gorm:"index;type:varchar(36)"`
	Items       []OrderItem `json:"items" gorm:"foreignKey:OrderID;references:ID"`
	TotalAmount float64     `json:"total_amount"`
	Status      OrderStatus `json:"status" gorm:"type:varchar(20);index"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
