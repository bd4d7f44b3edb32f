package handlers

import (
	"errors"
	"fmt"
	"log"
	"lapak/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the caller's shopping cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Put("/items/:productId", h.HandleUpdateItem)
	cartRoutes.Delete("/items/:productId", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

// AddItemRequest represents the request body for adding a cart item.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateItemRequest represents the request body for changing a line quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// HandleGetCart returns the caller's cart, empty if they never added anything.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	cart, err := h.service.GetCart(userID)
	if err != nil {
		log.Printf("Error getting cart for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart",
			"error":   err.Error(),
		})
	}
	return c.JSON(cart)
}

// HandleAddItem adds a product to the caller's cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing add-item request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	cart, err := h.service.AddItem(userID, req.ProductID, req.Quantity)
	if err != nil {
		log.Printf("Error adding item to cart for user %s: %v", userID, err)
		return cartErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cart)
}

// HandleUpdateItem changes the quantity of one cart line.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	productID := c.Params("productId")

	var req UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing update-item request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	cart, err := h.service.UpdateItemQuantity(userID, productID, req.Quantity)
	if err != nil {
		log.Printf("Error updating cart item for user %s: %v", userID, err)
		return cartErrorResponse(c, err)
	}
	return c.JSON(cart)
}

// HandleRemoveItem deletes one line from the caller's cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	productID := c.Params("productId")

	cart, err := h.service.RemoveItem(userID, productID)
	if err != nil {
		log.Printf("Error removing cart item for user %s: %v", userID, err)
		return cartErrorResponse(c, err)
	}
	return c.JSON(cart)
}

// HandleClearCart empties the caller's cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	if err := h.service.ClearCart(userID); err != nil {
		log.Printf("Error clearing cart for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not clear cart",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Cart cleared",
	})
}

// cartErrorResponse maps cart service errors to HTTP responses.
func cartErrorResponse(c *fiber.Ctx, err error) error {
	var productNotFound *services.ProductNotFoundError
	if errors.As(err, &productNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message":    "Product not found",
			"product_id": productNotFound.ProductID,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Could not update cart",
		"error":   err.Error(),
	})
}

// validationErrorResponse renders validator errors field by field.
func validationErrorResponse(c *fiber.Ctx, err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
