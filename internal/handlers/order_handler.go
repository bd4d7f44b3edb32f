package handlers

import (
	"errors"
	"log"
	"lapak/internal/models"
	"lapak/internal/repositories"
	"lapak/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the customer order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandlePlaceOrder)
	orderRoutes.Get("/", h.HandleGetMyOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
}

// RegisterAdminRoutes registers the administrative order routes.
func (h *OrderHandler) RegisterAdminRoutes(router fiber.Router) {
	adminRoutes := router.Group("/orders")
	adminRoutes.Get("/", h.HandleListOrders)
	adminRoutes.Get("/statistics", h.HandleGetStatistics)
	adminRoutes.Patch("/:id/status", h.HandleUpdateOrderStatus)
}

// HandlePlaceOrder creates an order from the caller's cart. The request has
// no body; the user comes from the JWT claims.
func (h *OrderHandler) HandlePlaceOrder(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Missing user identity",
		})
	}

	order, err := h.service.PlaceOrder(userID)
	if err != nil {
		log.Printf("Error placing order for user %s: %v", userID, err)
		return orderErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleGetMyOrders lists the caller's own orders.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	orders, err := h.service.GetOrdersByUser(userID)
	if err != nil {
		log.Printf("Error getting orders for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
			"error":   err.Error(),
		})
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order. Customers may only read their
// own orders; admins may read any.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	userID, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)

	order, err := h.service.GetOrderByID(orderID)
	if err != nil {
		log.Printf("Error getting order %s: %v", orderID, err)
		return orderErrorResponse(c, err)
	}

	if order.UserID != userID && role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You do not have access to this order",
		})
	}
	return c.JSON(order)
}

// HandleCancelOrder cancels a pending order owned by the caller and restores
// the ordered quantities to stock.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	userID, _ := c.Locals("user_id").(string)

	order, err := h.service.CancelOrder(orderID, userID)
	if err != nil {
		log.Printf("Error cancelling order %s for user %s: %v", orderID, userID, err)
		return orderErrorResponse(c, err)
	}
	return c.JSON(order)
}

// HandleListOrders lists all orders for admins, filtered by status and/or
// user and paginated.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	filter := repositories.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		UserID: c.Query("user_id"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid status filter",
		})
	}

	orders, total, err := h.service.ListOrders(filter)
	if err != nil {
		log.Printf("Error listing orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"orders": orders,
		"pagination": fiber.Map{
			"page":  filter.Page,
			"limit": filter.Limit,
			"total": total,
		},
	})
}

// HandleUpdateOrderStatus moves an order along the status state machine.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var updateData struct {
		Status string `json:"status"`
	}

	if err := c.BodyParser(&updateData); err != nil {
		log.Printf("Error parsing request body for status update: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body for status update",
			"error":   err.Error(),
		})
	}
	if updateData.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Status is required for order status update.",
		})
	}

	order, err := h.service.UpdateOrderStatus(orderID, models.OrderStatus(updateData.Status))
	if err != nil {
		log.Printf("Error updating order status for order %s: %v", orderID, err)
		return orderErrorResponse(c, err)
	}
	return c.JSON(order)
}

// HandleGetStatistics returns the per-status aggregation and overall totals.
func (h *OrderHandler) HandleGetStatistics(c *fiber.Ctx) error {
	stats, err := h.service.GetOrderStatistics()
	if err != nil {
		log.Printf("Error computing order statistics: %v", err)
		return orderErrorResponse(c, err)
	}
	return c.JSON(stats)
}

// orderErrorResponse maps the order service's typed errors to HTTP responses.
func orderErrorResponse(c *fiber.Ctx, err error) error {
	var (
		productNotFound   *services.ProductNotFoundError
		insufficientStock *services.InsufficientStockError
		invalidCancel     *services.InvalidCancelStateError
		invalidStatus     *services.InvalidStatusError
		invalidTransition *services.InvalidStatusTransitionError
		transient         *services.TransientError
	)

	switch {
	case errors.Is(err, services.ErrEmptyCart):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Cart is empty, nothing to order",
		})
	case errors.As(err, &insufficientStock):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message":    "Insufficient stock",
			"product_id": insufficientStock.ProductID,
			"requested":  insufficientStock.Requested,
			"available":  insufficientStock.Available,
		})
	case errors.As(err, &productNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message":    "Product not found",
			"product_id": productNotFound.ProductID,
		})
	case errors.Is(err, services.ErrOrderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Order not found",
		})
	case errors.Is(err, services.ErrNotOrderOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You do not have access to this order",
		})
	case errors.As(err, &invalidCancel),
		errors.As(err, &invalidStatus),
		errors.As(err, &invalidTransition):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid order state change",
			"error":   err.Error(),
		})
	case errors.As(err, &transient):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Temporary storage failure, please retry",
			"error":   err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not process order request",
			"error":   err.Error(),
		})
	}
}
