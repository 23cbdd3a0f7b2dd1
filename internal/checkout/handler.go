package checkout

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dmarinescu-dev/storefront-backend/internal/auth"
	"github.com/dmarinescu-dev/storefront-backend/internal/order"
	"github.com/dmarinescu-dev/storefront-backend/internal/respond"
	"github.com/dmarinescu-dev/storefront-backend/pkg/logging"
	"github.com/dmarinescu-dev/storefront-backend/pkg/metrics"
)

type Handler struct {
	service *Service
	metrics *metrics.ServerMetrics
}

// NewHandler accepts a nil metrics receiver (tests).
func NewHandler(s *Service, m *metrics.ServerMetrics) *Handler {
	return &Handler{service: s, metrics: m}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/orders/cart/checkout", h.checkout)
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return respond.Fail(c, fiber.StatusUnauthorized, "unauthorized", nil)
	}

	paid, newCartID, err := h.service.Checkout(userID)
	if err != nil {
		var missing *ProductMissingError
		var short *InsufficientStockError
		switch {
		case errors.Is(err, ErrNoCart):
			h.count("no_cart")
			return respond.Fail(c, fiber.StatusBadRequest, "No cart found for this user", nil)
		case errors.Is(err, ErrEmptyCart):
			h.count("empty_cart")
			return respond.Fail(c, fiber.StatusBadRequest, "Cart is empty", nil)
		case errors.As(err, &missing):
			h.count("product_missing")
			return respond.Fail(c, fiber.StatusBadRequest,
				"Product with id "+strconv.Itoa(missing.ProductID)+" not found", nil)
		case errors.As(err, &short):
			h.count("insufficient_stock")
			return respond.Fail(c, fiber.StatusBadRequest,
				"Not enough stock for product "+short.Name, fiber.Map{
					"productId":      short.ProductID,
					"availableStock": short.Available,
					"requested":      short.Requested,
				})
		case errors.Is(err, order.ErrConflict):
			h.count("conflict")
			logging.Log(logging.Fields{
				Service: "checkout", RequestID: respond.RequestID(c),
				UserID: userID, Step: "finalize", Status: "conflict", Message: err.Error(),
			})
			return respond.Fail(c, fiber.StatusConflict, "Checkout could not complete, please retry", nil)
		}
		h.count("error")
		logging.Log(logging.Fields{
			Service: "checkout", RequestID: respond.RequestID(c),
			UserID: userID, Step: "checkout", Status: "error", Message: err.Error(),
		})
		return respond.Fail(c, fiber.StatusInternalServerError, "Error during checkout", nil)
	}

	h.count("success")
	return respond.OK(c, "Checkout successful", fiber.Map{
		"order":     paid,
		"newCartId": newCartID,
	})
}

func (h *Handler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.Checkouts.WithLabelValues(outcome).Inc()
	}
}
