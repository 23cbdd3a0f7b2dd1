package cart

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/dmarinescu-dev/storefront-backend/internal/order"
	"github.com/dmarinescu-dev/storefront-backend/internal/product"
)

func makeAppWithCartHandler(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id}
				tok := &jwt.Token{Claims: claims}
				c.Locals("user", tok)
			}
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	return app
}

func decodeEnvelope(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return out
}

func TestCartRoutes_Basic(t *testing.T) {
	svc, _, _ := newTestService([]product.Product{
		{ID: 5, Name: "Mechanical keyboard", Price: price("9.99"), Stock: 10},
	})
	app := makeAppWithCartHandler(NewHandler(svc))

	// unauthorized access is blocked
	req := httptest.NewRequest("GET", "/orders/cart/me", nil)
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated GET, got %d", res.StatusCode)
	}

	// first authenticated GET creates the cart
	req2 := httptest.NewRequest("GET", "/orders/cart/me", nil)
	req2.Header.Set("X-User-ID", "42")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for authenticated GET, got %d", res2.StatusCode)
	}
	body := decodeEnvelope(t, res2.Body)
	if body["success"] != true {
		t.Fatalf("expected success envelope, got %v", body)
	}
	data := body["data"].(map[string]any)
	if data["status"] != "CART" {
		t.Fatalf("expected CART status, got %v", data["status"])
	}

	// add with explicit quantity
	req3 := httptest.NewRequest("POST", "/orders/cart/items", strings.NewReader(`{"productId":5,"quantity":2}`))
	req3.Header.Set("Content-Type", "application/json")
	req3.Header.Set("X-User-ID", "42")
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 for add, got %d", res3.StatusCode)
	}
	body3 := decodeEnvelope(t, res3.Body)
	if body3["message"] != "Product added to cart" {
		t.Fatalf("unexpected message %v", body3["message"])
	}
	cart := body3["data"].(map[string]any)
	items := cart["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if q := items[0].(map[string]any)["quantity"]; q != float64(2) {
		t.Fatalf("expected quantity 2, got %v", q)
	}

	// omitted quantity defaults to 1 and merges into the same line
	req4 := httptest.NewRequest("POST", "/orders/cart/items", strings.NewReader(`{"productId":5}`))
	req4.Header.Set("Content-Type", "application/json")
	req4.Header.Set("X-User-ID", "42")
	res4, _ := app.Test(req4)
	if res4.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 for merge add, got %d", res4.StatusCode)
	}
	body4 := decodeEnvelope(t, res4.Body)
	items4 := body4["data"].(map[string]any)["items"].([]any)
	if len(items4) != 1 {
		t.Fatalf("expected merged single line, got %d", len(items4))
	}
	if q := items4[0].(map[string]any)["quantity"]; q != float64(3) {
		t.Fatalf("expected quantity 3 after merge, got %v", q)
	}

	// remove the line again
	itemID := int(items4[0].(map[string]any)["id"].(float64))
	req5 := httptest.NewRequest("DELETE", "/orders/cart/items/"+strconv.Itoa(itemID), nil)
	req5.Header.Set("X-User-ID", "42")
	res5, _ := app.Test(req5)
	if res5.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for remove, got %d", res5.StatusCode)
	}
	body5 := decodeEnvelope(t, res5.Body)
	if len(body5["data"].(map[string]any)["items"].([]any)) != 0 {
		t.Fatalf("expected empty cart after remove, got %v", body5["data"])
	}
}

func TestCartRoutes_AddItemErrors(t *testing.T) {
	svc, _, _ := newTestService([]product.Product{
		{ID: 1, Name: "Mouse", Price: price("5.00"), Stock: 3},
		{ID: 2, Name: "Webcam", Price: price("50.00"), Stock: 0},
	})
	app := makeAppWithCartHandler(NewHandler(svc))

	post := func(payload string) (map[string]any, int) {
		req := httptest.NewRequest("POST", "/orders/cart/items", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "42")
		res, _ := app.Test(req)
		return decodeEnvelope(t, res.Body), res.StatusCode
	}

	body, code := post(`{"productId":1,"quantity":0}`)
	if code != fiber.StatusBadRequest || body["message"] != "Quantity must be a positive integer" {
		t.Fatalf("explicit zero quantity: got %d %v", code, body["message"])
	}

	body, code = post(`{"productId":99}`)
	if code != fiber.StatusNotFound || body["message"] != "Product not found" {
		t.Fatalf("unknown product: got %d %v", code, body["message"])
	}

	body, code = post(`{"productId":2}`)
	if code != fiber.StatusBadRequest || body["message"] != "Product is out of stock" {
		t.Fatalf("out of stock: got %d %v", code, body["message"])
	}
	if avail := body["data"].(map[string]any)["availableStock"]; avail != float64(0) {
		t.Fatalf("expected availableStock 0, got %v", avail)
	}

	body, code = post(`{"productId":1,"quantity":4}`)
	if code != fiber.StatusBadRequest || body["message"] != "Not enough stock for requested quantity" {
		t.Fatalf("insufficient stock: got %d %v", code, body["message"])
	}
	if avail := body["data"].(map[string]any)["availableStock"]; avail != float64(3) {
		t.Fatalf("expected availableStock 3, got %v", avail)
	}
}

func TestCartRoutes_AddItemConflict(t *testing.T) {
	orders := order.NewInMemoryRepository()
	catalog := product.NewInMemoryRepository([]product.Product{
		{ID: 1, Name: "Mouse", Price: price("5.00"), Stock: 10},
	})
	wrapped := &interceptingOrders{Repository: orders}
	svc := NewService(wrapped, catalog)
	app := makeAppWithCartHandler(NewHandler(svc))

	cart, err := svc.AddItem(42, 1, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	wrapped.beforeTx = func() { finalize(t, orders, cart) }

	req := httptest.NewRequest("POST", "/orders/cart/items", strings.NewReader(`{"productId":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "42")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", res.StatusCode)
	}
	body := decodeEnvelope(t, res.Body)
	if body["message"] != "Cart was modified concurrently, please retry" {
		t.Fatalf("unexpected message %v", body["message"])
	}
}

func TestCartRoutes_RemoveItemErrors(t *testing.T) {
	svc, _, _ := newTestService([]product.Product{
		{ID: 1, Name: "Mouse", Price: price("5.00"), Stock: 10},
	})
	app := makeAppWithCartHandler(NewHandler(svc))

	// seed a line for user 42
	cart, err := svc.AddItem(42, 1, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	itemID := strconv.Itoa(cart.Items[0].ID)

	req := httptest.NewRequest("DELETE", "/orders/cart/items/999", nil)
	req.Header.Set("X-User-ID", "42")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown item, got %d", res.StatusCode)
	}

	req2 := httptest.NewRequest("DELETE", "/orders/cart/items/"+itemID, nil)
	req2.Header.Set("X-User-ID", "43")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 for foreign item, got %d", res2.StatusCode)
	}
	body := decodeEnvelope(t, res2.Body)
	if body["message"] != "You are not allowed to modify this cart" {
		t.Fatalf("unexpected message %v", body["message"])
	}
}
