package services

import (
	"errors"
	"fmt"

	"lapak/internal/models"
)

// Sentinel errors for the order workflows. Handlers branch on these with
// errors.Is / errors.As rather than matching message text.
var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOrderNotFound = errors.New("order not found")
	ErrNotOrderOwner = errors.New("order belongs to another user")
)

// ProductNotFoundError indicates a cart line references a product that does
// not exist. The whole placement is aborted.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError indicates a product cannot cover the requested
// quantity. Available reflects the stock at the time of the check.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested: %d, available: %d)",
		e.ProductID, e.Requested, e.Available)
}

// InvalidCancelStateError indicates a cancellation was attempted on an order
// that is no longer pending.
type InvalidCancelStateError struct {
	Status models.OrderStatus
}

func (e *InvalidCancelStateError) Error() string {
	return fmt.Sprintf("order in status %q cannot be cancelled, only pending orders can", e.Status)
}

// InvalidStatusError indicates the requested status is not a known order
// status at all.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status: %s", e.Status)
}

// InvalidStatusTransitionError indicates the requested status change is not
// allowed by the order state machine.
type InvalidStatusTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %q to %q", e.From, e.To)
}

// TransientError wraps infrastructure failures (transaction aborts,
// connectivity loss). The underlying operation did not commit, so the caller
// may retry it whole after verifying no order was created.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient storage error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
