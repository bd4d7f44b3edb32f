package services_test

import (
	"errors"
	"sync"
	"testing"

	"lapak/internal/models"
	"lapak/internal/repositories"
	"lapak/internal/services"

	"github.com/stretchr/testify/assert"
)

// newOrderEngine wires an OrderService over the in-memory store so the
// transaction semantics can be tested without a database.
func newOrderEngine() (*services.OrderService, *repositories.MemoryStore) {
	store := repositories.NewMemoryStore()
	tx := repositories.NewMemoryTxManager(store)
	svc := services.NewOrderService(tx, store.Orders(), store.Products(), store.Carts(), nil)
	return svc, store
}

func seedProduct(t *testing.T, store *repositories.MemoryStore, id, name string, price float64, quantity int) {
	t.Helper()
	err := store.Products().Create(&models.Product{ID: id, Name: name, Price: price, Quantity: quantity})
	assert.NoError(t, err)
}

func seedCartItem(t *testing.T, store *repositories.MemoryStore, userID, productID string, quantity int, price float64) {
	t.Helper()
	_, err := store.Carts().AddItem(userID, models.CartItem{ProductID: productID, Quantity: quantity, Price: price})
	assert.NoError(t, err)
}

func TestOrderService_PlaceOrder(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 2, 10.00)

	order, err := svc.PlaceOrder("user-1")
	assert.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 20.00, order.TotalAmount)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, "prod-a", order.Items[0].ProductID)
	assert.Equal(t, "Laptop", order.Items[0].Name)
	assert.Equal(t, 10.00, order.Items[0].Price)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 20.00, order.Items[0].Subtotal)

	// Stock decremented, invariant held.
	product, err := store.Products().GetByID("prod-a")
	assert.NoError(t, err)
	assert.Equal(t, 3, product.Quantity)
	assert.True(t, product.InStock)

	// Cart emptied but kept.
	cart, err := store.Carts().GetByUserID("user-1")
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)

	// Order persisted.
	stored, err := store.Orders().GetByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, order.TotalAmount, stored.TotalAmount)
}

func TestOrderService_PlaceOrder_DrainsStock(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 2)
	seedCartItem(t, store, "user-1", "prod-a", 2, 10.00)

	_, err := svc.PlaceOrder("user-1")
	assert.NoError(t, err)

	product, err := store.Products().GetByID("prod-a")
	assert.NoError(t, err)
	assert.Equal(t, 0, product.Quantity)
	assert.False(t, product.InStock, "a drained product must be marked out of stock")
}

func TestOrderService_PlaceOrder_EmptyCart(t *testing.T) {
	svc, store := newOrderEngine()

	// No cart at all.
	_, err := svc.PlaceOrder("user-1")
	assert.ErrorIs(t, err, services.ErrEmptyCart)

	// Cart exists but holds no items.
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 1, 10.00)
	assert.NoError(t, store.Carts().Clear("user-1"))

	_, err = svc.PlaceOrder("user-1")
	assert.ErrorIs(t, err, services.ErrEmptyCart)
}

func TestOrderService_PlaceOrder_ProductNotFound(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 1, 10.00)
	assert.NoError(t, store.Products().Delete("prod-a"))

	_, err := svc.PlaceOrder("user-1")
	var notFound *services.ProductNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, "prod-a", notFound.ProductID)

	// Nothing was created and the cart is untouched.
	orders, err := store.Orders().GetByUserID("user-1")
	assert.NoError(t, err)
	assert.Empty(t, orders)
	cart, err := store.Carts().GetByUserID("user-1")
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestOrderService_PlaceOrder_InsufficientStock(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-b", "Keyboard", 75.00, 3)
	seedCartItem(t, store, "user-1", "prod-b", 10, 75.00)

	_, err := svc.PlaceOrder("user-1")
	var insufficient *services.InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "prod-b", insufficient.ProductID)
	assert.Equal(t, 10, insufficient.Requested)
	assert.Equal(t, 3, insufficient.Available)

	// Stock unchanged, no order created.
	product, err := store.Products().GetByID("prod-b")
	assert.NoError(t, err)
	assert.Equal(t, 3, product.Quantity)
	orders, err := store.Orders().GetByUserID("user-1")
	assert.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_PlaceOrder_RollsBackEarlierItems(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedProduct(t, store, "prod-b", "Keyboard", 75.00, 1)
	seedCartItem(t, store, "user-1", "prod-a", 2, 10.00)
	seedCartItem(t, store, "user-1", "prod-b", 5, 75.00)

	_, err := svc.PlaceOrder("user-1")
	var insufficient *services.InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "prod-b", insufficient.ProductID)

	// The first item's decrement was rolled back with the rest.
	productA, err := store.Products().GetByID("prod-a")
	assert.NoError(t, err)
	assert.Equal(t, 5, productA.Quantity)

	// Cart still intact, no order created.
	cart, err := store.Carts().GetByUserID("user-1")
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	orders, err := store.Orders().GetByUserID("user-1")
	assert.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_PlaceOrder_SnapshotsPrices(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 2, 10.00)

	order, err := svc.PlaceOrder("user-1")
	assert.NoError(t, err)

	// Reprice and rename the product after the order was placed.
	product, err := store.Products().GetByID("prod-a")
	assert.NoError(t, err)
	product.Price = 99.99
	product.Name = "Gaming Laptop"
	assert.NoError(t, store.Products().Update(product))

	stored, err := store.Orders().GetByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, 20.00, stored.TotalAmount)
	assert.Equal(t, "Laptop", stored.Items[0].Name)
	assert.Equal(t, 10.00, stored.Items[0].Price)
	assert.Equal(t, 20.00, stored.Items[0].Subtotal)
}

func TestOrderService_PlaceOrder_ConcurrentNoOversell(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 5, 10.00)
	seedCartItem(t, store, "user-2", "prod-a", 5, 10.00)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, userID := range []string{"user-1", "user-2"} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, err := svc.PlaceOrder(userID)
			results[i] = err
		}(i, userID)
	}
	wg.Wait()

	var successes, stockFailures int
	for _, err := range results {
		var insufficient *services.InsufficientStockError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &insufficient):
			stockFailures++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one order must win the stock")
	assert.Equal(t, 1, stockFailures, "the other must fail with insufficient stock")

	product, err := store.Products().GetByID("prod-a")
	assert.NoError(t, err)
	assert.Equal(t, 0, product.Quantity)
	assert.False(t, product.InStock)
}

func TestOrderService_CancelOrder(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 2, 10.00)

	order, err := svc.PlaceOrder("user-1")
	assert.NoError(t, err)

	cancelled, err := svc.CancelOrder(order.ID, "user-1")
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	// Stock restored and sellable again.
	product, err := store.Products().GetByID("prod-a")
	assert.NoError(t, err)
	assert.Equal(t, 5, product.Quantity)
	assert.True(t, product.InStock)
}

func TestOrderService_CancelOrder_NotFound(t *testing.T) {
	svc, _ := newOrderEngine()

	_, err := svc.CancelOrder("missing-order", "user-1")
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestOrderService_CancelOrder_NotOwner(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 2, 10.00)

	order, err := svc.PlaceOrder("user-1")
	assert.NoError(t, err)

	_, err = svc.CancelOrder(order.ID, "user-2")
	assert.ErrorIs(t, err, services.ErrNotOrderOwner)

	// Order and stock untouched by the rejected attempt.
	stored, err := store.Orders().GetByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	product, err := store.Products().GetByID("prod-a")
	assert.NoError(t, err)
	assert.Equal(t, 3, product.Quantity)
}

func TestOrderService_CancelOrder_NotPending(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 2, 10.00)

	order, err := svc.PlaceOrder("user-1")
	assert.NoError(t, err)
	_, err = svc.UpdateOrderStatus(order.ID, models.OrderStatusConfirmed)
	assert.NoError(t, err)

	_, err = svc.CancelOrder(order.ID, "user-1")
	var invalidState *services.InvalidCancelStateError
	assert.ErrorAs(t, err, &invalidState)
	assert.Equal(t, models.OrderStatusConfirmed, invalidState.Status)
}

func TestOrderService_CancelOrder_AlreadyCancelled(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 2, 10.00)

	order, err := svc.PlaceOrder("user-1")
	assert.NoError(t, err)
	_, err = svc.CancelOrder(order.ID, "user-1")
	assert.NoError(t, err)

	_, err = svc.CancelOrder(order.ID, "user-1")
	var invalidState *services.InvalidCancelStateError
	assert.ErrorAs(t, err, &invalidState)
	assert.Equal(t, models.OrderStatusCancelled, invalidState.Status)

	// The failed second cancel must not restore stock again.
	product, err := store.Products().GetByID("prod-a")
	assert.NoError(t, err)
	assert.Equal(t, 5, product.Quantity)
}

func TestOrderService_CancelOrder_ProductRemoved(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 2, 10.00)

	order, err := svc.PlaceOrder("user-1")
	assert.NoError(t, err)
	assert.NoError(t, store.Products().Delete("prod-a"))

	// Cancellation still succeeds; there is simply nothing to restore.
	cancelled, err := svc.CancelOrder(order.ID, "user-1")
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 2, 10.00)

	order, err := svc.PlaceOrder("user-1")
	assert.NoError(t, err)

	// Forward walk through the full lifecycle.
	for _, status := range []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
	} {
		updated, err := svc.UpdateOrderStatus(order.ID, status)
		assert.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}

	// Delivered is terminal.
	_, err = svc.UpdateOrderStatus(order.ID, models.OrderStatusCancelled)
	var invalidTransition *services.InvalidStatusTransitionError
	assert.ErrorAs(t, err, &invalidTransition)
	assert.Equal(t, models.OrderStatusDelivered, invalidTransition.From)
	assert.Equal(t, models.OrderStatusCancelled, invalidTransition.To)
}

func TestOrderService_UpdateOrderStatus_NoSkips(t *testing.T) {
	svc, store := newOrderEngine()
	seedProduct(t, store, "prod-a", "Laptop", 10.00, 5)
	seedCartItem(t, store, "user-1", "prod-a", 2, 10.00)

	order, err := svc.PlaceOrder("user-1")
	assert.NoError(t, err)

	// pending -> shipped skips confirmed and must be rejected.
	_, err = svc.UpdateOrderStatus(order.ID, models.OrderStatusShipped)
	var invalidTransition *services.InvalidStatusTransitionError
	assert.ErrorAs(t, err, &invalidTransition)

	stored, err := store.Orders().GetByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}

func TestOrderService_UpdateOrderStatus_UnknownStatus(t *testing.T) {
	svc, _ := newOrderEngine()

	_, err := svc.UpdateOrderStatus("order-1", models.OrderStatus("processing"))
	var invalidStatus *services.InvalidStatusError
	assert.ErrorAs(t, err, &invalidStatus)
	assert.Equal(t, "processing", invalidStatus.Status)
}

func TestOrderService_UpdateOrderStatus_OrderNotFound(t *testing.T) {
	svc, _ := newOrderEngine()

	_, err := svc.UpdateOrderStatus("missing-order", models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestOrderService_GetOrderStatistics(t *testing.T) {
	svc, store := newOrderEngine()

	orders := []models.Order{
		{ID: "o-1", UserID: "user-1", Status: models.OrderStatusPending, TotalAmount: 20.00},
		{ID: "o-2", UserID: "user-1", Status: models.OrderStatusCancelled, TotalAmount: 50.00},
		{ID: "o-3", UserID: "user-2", Status: models.OrderStatusDelivered, TotalAmount: 30.00},
	}
	for i := range orders {
		assert.NoError(t, store.Orders().Create(&orders[i]))
	}

	stats, err := svc.GetOrderStatistics()
	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, 50.00, stats.TotalRevenue, "revenue excludes cancelled orders")
	assert.Len(t, stats.ByStatus, 3)
	for _, agg := range stats.ByStatus {
		assert.Equal(t, int64(1), agg.Count)
	}
}

func TestOrderService_ListOrders_FilterAndPaginate(t *testing.T) {
	svc, store := newOrderEngine()

	for _, o := range []models.Order{
		{ID: "o-1", UserID: "user-1", Status: models.OrderStatusPending, TotalAmount: 10},
		{ID: "o-2", UserID: "user-1", Status: models.OrderStatusDelivered, TotalAmount: 20},
		{ID: "o-3", UserID: "user-2", Status: models.OrderStatusPending, TotalAmount: 30},
	} {
		o := o
		assert.NoError(t, store.Orders().Create(&o))
	}

	orders, total, err := svc.ListOrders(repositories.OrderFilter{Status: models.OrderStatusPending})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)

	orders, total, err = svc.ListOrders(repositories.OrderFilter{UserID: "user-1", Page: 1, Limit: 1})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 1)
}
