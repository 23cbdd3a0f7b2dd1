package product

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func makeApp(seed []Product) *fiber.App {
	app := fiber.New()
	NewHandler(NewService(NewInMemoryRepository(seed))).RegisterPublicRoutes(app)
	return app
}

func TestProductRoutes(t *testing.T) {
	app := makeApp([]Product{
		{ID: 1, Name: "Mouse", Price: price("5.00"), Stock: 10},
		{ID: 2, Name: "Keyboard", Price: price("9.99"), Stock: 4},
	})

	res, _ := app.Test(httptest.NewRequest("GET", "/products", nil))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	var body map[string]any
	if err := json.Unmarshal(b, &body); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	if got := len(body["data"].([]any)); got != 2 {
		t.Fatalf("expected 2 products, got %d", got)
	}

	res2, _ := app.Test(httptest.NewRequest("GET", "/products/2", nil))
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res2.StatusCode)
	}

	res3, _ := app.Test(httptest.NewRequest("GET", "/products/99", nil))
	if res3.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", res3.StatusCode)
	}

	res4, _ := app.Test(httptest.NewRequest("GET", "/products/x", nil))
	if res4.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res4.StatusCode)
	}
}
