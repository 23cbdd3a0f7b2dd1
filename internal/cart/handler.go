package cart

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dmarinescu-dev/storefront-backend/internal/auth"
	"github.com/dmarinescu-dev/storefront-backend/internal/order"
	"github.com/dmarinescu-dev/storefront-backend/internal/product"
	"github.com/dmarinescu-dev/storefront-backend/internal/respond"
	"github.com/dmarinescu-dev/storefront-backend/pkg/logging"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/orders/cart/me", h.getCart)
	app.Post("/orders/cart/items", h.addItem)
	app.Delete("/orders/cart/items/:itemId", h.removeItem)
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return respond.Fail(c, fiber.StatusUnauthorized, "unauthorized", nil)
	}

	cart, err := h.service.GetOrCreateCart(userID)
	if err != nil {
		h.logInternal(c, userID, "get_cart", err)
		return respond.Fail(c, fiber.StatusInternalServerError, "Error retrieving cart", nil)
	}
	return respond.OK(c, "Cart retrieved successfully", cart)
}

type addItemRequest struct {
	ProductID int  `json:"productId"`
	Quantity  *int `json:"quantity"`
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return respond.Fail(c, fiber.StatusUnauthorized, "unauthorized", nil)
	}
	payload := new(addItemRequest)
	if err := c.BodyParser(payload); err != nil {
		return respond.Fail(c, fiber.StatusBadRequest, "Request body is not valid", nil)
	}
	if payload.ProductID <= 0 {
		return respond.Fail(c, fiber.StatusBadRequest, "Product id is not valid", nil)
	}
	qty := 1
	if payload.Quantity != nil {
		qty = *payload.Quantity
	}

	cart, err := h.service.AddItem(userID, payload.ProductID, qty)
	if err != nil {
		var short *InsufficientStockError
		switch {
		case errors.Is(err, ErrInvalidQuantity):
			return respond.Fail(c, fiber.StatusBadRequest, "Quantity must be a positive integer", nil)
		case errors.Is(err, product.ErrNotFound):
			return respond.Fail(c, fiber.StatusNotFound, "Product not found", nil)
		case errors.Is(err, ErrOutOfStock):
			return respond.Fail(c, fiber.StatusBadRequest, "Product is out of stock", fiber.Map{"availableStock": 0})
		case errors.As(err, &short):
			message := "Not enough stock for requested quantity"
			if short.Merged {
				message = "Quantity exceeds available stock"
			}
			return respond.Fail(c, fiber.StatusBadRequest, message, fiber.Map{"availableStock": short.Available})
		case errors.Is(err, order.ErrConflict):
			return respond.Fail(c, fiber.StatusConflict, "Cart was modified concurrently, please retry", nil)
		}
		h.logInternal(c, userID, "add_item", err)
		return respond.Fail(c, fiber.StatusInternalServerError, "Error adding product to cart", nil)
	}
	return respond.Created(c, "Product added to cart", cart)
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return respond.Fail(c, fiber.StatusUnauthorized, "unauthorized", nil)
	}
	itemID, err := strconv.Atoi(c.Params("itemId"))
	if err != nil {
		return respond.Fail(c, fiber.StatusBadRequest, "Item id is not valid", nil)
	}

	cart, err := h.service.RemoveItem(userID, itemID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrItemNotFound):
			return respond.Fail(c, fiber.StatusNotFound, "Cart item not found", nil)
		case errors.Is(err, ErrForbidden):
			return respond.Fail(c, fiber.StatusForbidden, "You are not allowed to modify this cart", nil)
		}
		h.logInternal(c, userID, "remove_item", err)
		return respond.Fail(c, fiber.StatusInternalServerError, "Error removing item from cart", nil)
	}
	return respond.OK(c, "Item removed from cart", cart)
}

func (h *Handler) logInternal(c *fiber.Ctx, userID int, step string, err error) {
	logging.Log(logging.Fields{
		Service:   "cart",
		RequestID: respond.RequestID(c),
		UserID:    userID,
		Step:      step,
		Status:    "error",
		Message:   err.Error(),
	})
}
