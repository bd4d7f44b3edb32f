package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"lapak/internal/models"
	"lapak/internal/repositories"

	"github.com/google/uuid"
)

// EventPublisher publishes order events to the message broker. The RabbitMQ
// client implements it; tests substitute a mock.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderStatistics is the admin aggregation over all orders. TotalRevenue
// covers non-cancelled orders only.
type OrderStatistics struct {
	TotalOrders  int64                          `json:"total_orders"`
	TotalRevenue float64                        `json:"total_revenue"`
	ByStatus     []repositories.StatusAggregate `json:"by_status"`
}

// OrderService orchestrates the order placement and cancellation transactions.
// Placing an order reads the user's cart, decrements product stock, creates
// the order and clears the cart as one atomic unit; cancelling restores stock
// and marks the order cancelled the same way. All stock mutations in the
// system go through this service.
type OrderService struct {
	tx       repositories.TxManager
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	carts    repositories.CartRepository
	mq       EventPublisher
}

// NewOrderService creates a new OrderService. The repositories are used for
// reads outside transactions; every write happens inside tx. mq may be nil,
// in which case event publication is skipped.
func NewOrderService(
	tx repositories.TxManager,
	orders repositories.OrderRepository,
	products repositories.ProductRepository,
	carts repositories.CartRepository,
	mq EventPublisher,
) *OrderService {
	return &OrderService{
		tx:       tx,
		orders:   orders,
		products: products,
		carts:    carts,
		mq:       mq,
	}
}

// PlaceOrder creates an order from the user's current cart. For each cart
// item, in cart order, the product is validated and its stock decremented; the
// order is created with price snapshots and pending status, and the cart is
// emptied. Either every one of those writes commits or none does, so a failed
// placement leaves stock and cart exactly as they were.
func (s *OrderService) PlaceOrder(userID string) (*models.Order, error) {
	var placed *models.Order

	err := s.tx.Do(func(uow repositories.UnitOfWork) error {
		cart, err := uow.Carts().GetByUserID(userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrEmptyCart
			}
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		items := make([]models.OrderItem, 0, len(cart.Items))
		var totalAmount float64
		for _, cartItem := range cart.Items {
			product, err := uow.Products().GetByID(cartItem.ProductID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return &ProductNotFoundError{ProductID: cartItem.ProductID}
				}
				return fmt.Errorf("failed to load product %s: %w", cartItem.ProductID, err)
			}
			if !product.InStock || product.Quantity < cartItem.Quantity {
				return &InsufficientStockError{
					ProductID: product.ID,
					Requested: cartItem.Quantity,
					Available: product.Quantity,
				}
			}

			if err := uow.Products().DecrementQuantity(product.ID, cartItem.Quantity); err != nil {
				if errors.Is(err, repositories.ErrStockConflict) {
					// The guarded update lost a race with a concurrent order.
					return &InsufficientStockError{
						ProductID: product.ID,
						Requested: cartItem.Quantity,
						Available: product.Quantity,
					}
				}
				return fmt.Errorf("failed to decrement stock for product %s: %w", product.ID, err)
			}

			subtotal := product.Price * float64(cartItem.Quantity)
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price, // Price at the time of order
				Quantity:  cartItem.Quantity,
				Subtotal:  subtotal,
			})
			totalAmount += subtotal
		}

		order := &models.Order{
			ID:          uuid.New().String(),
			UserID:      userID,
			Items:       items,
			TotalAmount: totalAmount,
			Status:      models.OrderStatusPending,
		}
		if err := uow.Orders().Create(order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if err := uow.Carts().Clear(userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		placed = order
		return nil
	})
	if err != nil {
		return nil, classifyOrderError(err)
	}

	s.publishOrderEvent("order.created", placed)
	return placed, nil
}

// CancelOrder cancels a pending order owned by the requesting user, returning
// every ordered quantity to product stock. The stock restores and the status
// change commit atomically together.
func (s *OrderService) CancelOrder(orderID, requestingUserID string) (*models.Order, error) {
	var cancelled *models.Order

	err := s.tx.Do(func(uow repositories.UnitOfWork) error {
		order, err := uow.Orders().GetByID(orderID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to load order %s: %w", orderID, err)
		}
		if order.UserID != requestingUserID {
			return ErrNotOrderOwner
		}
		if order.Status != models.OrderStatusPending {
			return &InvalidCancelStateError{Status: order.Status}
		}

		for _, item := range order.Items {
			err := uow.Products().RestoreQuantity(item.ProductID, item.Quantity)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					// Product removed from the catalog since the order was
					// placed; nothing to restore.
					continue
				}
				return fmt.Errorf("failed to restore stock for product %s: %w", item.ProductID, err)
			}
		}

		order.Status = models.OrderStatusCancelled
		if err := uow.Orders().Update(order); err != nil {
			return fmt.Errorf("failed to update order %s: %w", orderID, err)
		}

		cancelled = order
		return nil
	})
	if err != nil {
		return nil, classifyOrderError(err)
	}

	s.publishOrderEvent("order.cancelled", cancelled)
	return cancelled, nil
}

// UpdateOrderStatus moves an order to a new status along the forward-only
// state machine. This is an administrative single-document write; it does not
// touch inventory.
func (s *OrderService) UpdateOrderStatus(orderID string, newStatus models.OrderStatus) (*models.Order, error) {
	if !newStatus.IsValid() {
		return nil, &InvalidStatusError{Status: string(newStatus)}
	}

	order, err := s.orders.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, &TransientError{Err: err}
	}

	if !models.CanTransition(order.Status, newStatus) {
		return nil, &InvalidStatusTransitionError{From: order.Status, To: newStatus}
	}

	order.Status = newStatus
	if err := s.orders.Update(order); err != nil {
		return nil, &TransientError{Err: err}
	}

	s.publishOrderEvent("order.status_updated", order)
	return order, nil
}

// GetOrderByID retrieves a single order.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	order, err := s.orders.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, &TransientError{Err: err}
	}
	return order, nil
}

// GetOrdersByUser retrieves the orders placed by one user, newest first.
func (s *OrderService) GetOrdersByUser(userID string) ([]models.Order, error) {
	return s.orders.GetByUserID(userID)
}

// ListOrders retrieves orders matching the filter with pagination.
func (s *OrderService) ListOrders(filter repositories.OrderFilter) ([]models.Order, int64, error) {
	return s.orders.List(filter)
}

// GetOrderStatistics aggregates all orders by status and computes the overall
// order count and the revenue across non-cancelled orders.
func (s *OrderService) GetOrderStatistics() (*OrderStatistics, error) {
	aggregates, err := s.orders.AggregateByStatus()
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	stats := &OrderStatistics{ByStatus: aggregates}
	for _, agg := range aggregates {
		stats.TotalOrders += agg.Count
		if agg.Status != models.OrderStatusCancelled {
			stats.TotalRevenue += agg.TotalAmount
		}
	}
	return stats, nil
}

// classifyOrderError passes the closed set of domain errors through unchanged
// and wraps everything else (transaction aborts, connectivity loss) as
// transient, so callers can tell a rejection from a retryable failure.
func classifyOrderError(err error) error {
	var (
		productNotFound   *ProductNotFoundError
		insufficientStock *InsufficientStockError
		invalidCancel     *InvalidCancelStateError
	)
	switch {
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrNotOrderOwner),
		errors.As(err, &productNotFound),
		errors.As(err, &insufficientStock),
		errors.As(err, &invalidCancel):
		return err
	}
	return &TransientError{Err: err}
}

// publishOrderEvent sends an order event to the broker. Publication failures
// are logged, not returned: the order state is already committed.
func (s *OrderService) publishOrderEvent(routingKey string, order *models.Order) {
	if s.mq == nil {
		log.Println("Event publisher is not initialized. Skipping message publication.")
		return
	}

	event := map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
		"total":    order.TotalAmount,
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal order event to JSON: %v", err)
		return
	}

	if err := s.mq.Publish("orders", routingKey, body); err != nil {
		log.Printf("Warning: Failed to publish %s event for order %s: %v", routingKey, order.ID, err)
	} else {
		log.Printf("Published %s event for order %s", routingKey, order.ID)
	}
}
