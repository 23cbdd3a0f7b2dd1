package order

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/dmarinescu-dev/storefront-backend/internal/auth"
	"github.com/dmarinescu-dev/storefront-backend/internal/respond"
	"github.com/dmarinescu-dev/storefront-backend/pkg/logging"
)

// Handler serves generic order administration. Admins see every order;
// regular users only their own.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/orders", h.list)
	app.Post("/orders", h.create)
	app.Get("/orders/:id<[0-9]+>", h.get)
	app.Put("/orders/:id<[0-9]+>", h.update)
	app.Delete("/orders/:id<[0-9]+>", h.del)
}

func (h *Handler) list(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return respond.Fail(c, fiber.StatusUnauthorized, "unauthorized", nil)
	}

	var orders []Order
	if auth.IsAdmin(c) {
		orders, err = h.service.List()
	} else {
		orders, err = h.service.ListByUser(userID)
	}
	if err != nil {
		h.logInternal(c, userID, 0, "list", err)
		return respond.Fail(c, fiber.StatusInternalServerError, "Error retrieving orders", nil)
	}
	return respond.OK(c, "Orders retrieved successfully", orders)
}

func (h *Handler) get(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return respond.Fail(c, fiber.StatusUnauthorized, "unauthorized", nil)
	}
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return respond.Fail(c, fiber.StatusBadRequest, "Order id is not valid", nil)
	}

	ord, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Fail(c, fiber.StatusNotFound, "Order not found", nil)
		}
		h.logInternal(c, userID, id, "get", err)
		return respond.Fail(c, fiber.StatusInternalServerError, "Error retrieving order", nil)
	}
	if !auth.IsAdmin(c) && ord.UserID != userID {
		return respond.Fail(c, fiber.StatusForbidden, "You are not allowed to view this order", nil)
	}
	return respond.OK(c, "Order retrieved successfully", ord)
}

type createOrderRequest struct {
	Status string   `json:"status"`
	Total  *float64 `json:"total"`
}

func (h *Handler) create(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return respond.Fail(c, fiber.StatusUnauthorized, "unauthorized", nil)
	}
	payload := new(createOrderRequest)
	if err := c.BodyParser(payload); err != nil && err != fiber.ErrUnprocessableEntity {
		return respond.Fail(c, fiber.StatusBadRequest, "Request body is not valid", nil)
	}

	total := decimal.Zero
	if payload.Total != nil {
		total = decimal.NewFromFloat(*payload.Total)
	}
	ord, err := h.service.Create(userID, Status(payload.Status), total)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			return respond.Fail(c, fiber.StatusBadRequest, "Order status is not valid", nil)
		case errors.Is(err, ErrDuplicateCart):
			return respond.Fail(c, fiber.StatusConflict, "User already has an active cart", nil)
		}
		h.logInternal(c, userID, 0, "create", err)
		return respond.Fail(c, fiber.StatusInternalServerError, "Error creating order", nil)
	}
	return respond.Created(c, "Order created successfully", ord)
}

type updateOrderRequest struct {
	Status *string  `json:"status"`
	Total  *float64 `json:"total"`
}

func (h *Handler) update(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return respond.Fail(c, fiber.StatusUnauthorized, "unauthorized", nil)
	}
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return respond.Fail(c, fiber.StatusBadRequest, "Order id is not valid", nil)
	}
	payload := new(updateOrderRequest)
	if err := c.BodyParser(payload); err != nil {
		return respond.Fail(c, fiber.StatusBadRequest, "Request body is not valid", nil)
	}

	existing, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Fail(c, fiber.StatusNotFound, "Order not found", nil)
		}
		h.logInternal(c, userID, id, "update", err)
		return respond.Fail(c, fiber.StatusInternalServerError, "Error updating order", nil)
	}
	if !auth.IsAdmin(c) && existing.UserID != userID {
		return respond.Fail(c, fiber.StatusForbidden, "You are not allowed to update this order", nil)
	}

	var status *Status
	if payload.Status != nil {
		s := Status(*payload.Status)
		status = &s
	}
	var total *decimal.Decimal
	if payload.Total != nil {
		t := decimal.NewFromFloat(*payload.Total)
		total = &t
	}
	updated, err := h.service.Update(id, status, total)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			return respond.Fail(c, fiber.StatusBadRequest, "Order status is not valid", nil)
		}
		if errors.Is(err, ErrDuplicateCart) {
			return respond.Fail(c, fiber.StatusConflict, "User already has an active cart", nil)
		}
		h.logInternal(c, userID, id, "update", err)
		return respond.Fail(c, fiber.StatusInternalServerError, "Error updating order", nil)
	}
	return respond.OK(c, "Order updated successfully", updated)
}

func (h *Handler) del(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return respond.Fail(c, fiber.StatusUnauthorized, "unauthorized", nil)
	}
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return respond.Fail(c, fiber.StatusBadRequest, "Order id is not valid", nil)
	}

	existing, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respond.Fail(c, fiber.StatusNotFound, "Order not found", nil)
		}
		h.logInternal(c, userID, id, "delete", err)
		return respond.Fail(c, fiber.StatusInternalServerError, "Error deleting order", nil)
	}
	if !auth.IsAdmin(c) && existing.UserID != userID {
		return respond.Fail(c, fiber.StatusForbidden, "You are not allowed to delete this order", nil)
	}

	if err := h.service.Delete(id); err != nil {
		h.logInternal(c, userID, id, "delete", err)
		return respond.Fail(c, fiber.StatusInternalServerError, "Error deleting order", nil)
	}
	return respond.OK(c, "Order deleted successfully", nil)
}

func (h *Handler) logInternal(c *fiber.Ctx, userID, orderID int, step string, err error) {
	logging.Log(logging.Fields{
		Service:   "orders",
		RequestID: respond.RequestID(c),
		UserID:    userID,
		OrderID:   orderID,
		Step:      step,
		Status:    "error",
		Message:   err.Error(),
	})
}
