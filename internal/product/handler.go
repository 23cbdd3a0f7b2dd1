package product

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dmarinescu-dev/storefront-backend/internal/respond"
)

// Handler exposes the read-only catalog surface. Catalog management belongs
// to the catalog subsystem and is not served here.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/products", h.list)
	app.Get("/products/:id", h.get)
}

func (h *Handler) list(c *fiber.Ctx) error {
	products, err := h.service.List()
	if err != nil {
		return respond.Fail(c, fiber.StatusInternalServerError, "Error retrieving products", nil)
	}
	return respond.OK(c, "Products retrieved successfully", products)
}

func (h *Handler) get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return respond.Fail(c, fiber.StatusBadRequest, "Product id is not valid", nil)
	}

	p, err := h.service.GetByID(id)
	if err != nil {
		if err == ErrNotFound {
			return respond.Fail(c, fiber.StatusNotFound, "Product not found", nil)
		}
		return respond.Fail(c, fiber.StatusInternalServerError, "Error retrieving product", nil)
	}
	return respond.OK(c, "Product retrieved successfully", p)
}
