package main

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/dmarinescu-dev/storefront-backend/internal/auth"
	"github.com/dmarinescu-dev/storefront-backend/internal/cart"
	"github.com/dmarinescu-dev/storefront-backend/internal/checkout"
	"github.com/dmarinescu-dev/storefront-backend/internal/config"
	"github.com/dmarinescu-dev/storefront-backend/internal/order"
	"github.com/dmarinescu-dev/storefront-backend/internal/product"
	"github.com/dmarinescu-dev/storefront-backend/pkg/events"
	"github.com/dmarinescu-dev/storefront-backend/pkg/logging"
	"github.com/dmarinescu-dev/storefront-backend/pkg/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	app := fiber.New()
	setupCORS(app)

	m := metrics.NewServerMetrics("app")
	app.Use(requestMiddleware(m))

	db := mustOpenDB(cfg.DatabaseURL)
	defer db.Close()
	ensureSchema(db)

	orderRepo := order.NewPostgresRepository(db)
	productRepo := product.NewPostgresRepository(db)

	productHandler := product.NewHandler(product.NewService(productRepo))
	productHandler.RegisterPublicRoutes(app)

	app.Use(auth.NewMiddleware(cfg.JWTSecret))

	cartHandler := cart.NewHandler(cart.NewService(orderRepo, productRepo))
	cartHandler.RegisterProtectedRoutes(app)

	publisher := events.NewPublisher(events.NewClient(cfg.KafkaBrokers), events.TopicOrderPaid)
	defer publisher.Close()
	checkoutService := checkout.NewService(orderRepo, productRepo, checkout.NewPostgresFinalizer(db), publisher)
	checkoutHandler := checkout.NewHandler(checkoutService, m)
	checkoutHandler.RegisterProtectedRoutes(app)

	// register last so /orders/:id does not shadow the cart routes
	orderHandler := order.NewHandler(order.NewService(orderRepo))
	orderHandler.RegisterProtectedRoutes(app)

	go func() {
		logging.Log(logging.Fields{Service: "app", Step: "metrics", Message: "metrics listening on " + cfg.MetricsAddr})
		if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
			logging.Log(logging.Fields{Service: "app", Step: "metrics", Status: "error", Message: err.Error()})
		}
	}()

	logging.Log(logging.Fields{Service: "app", Step: "start", Message: "listening on " + cfg.Addr})
	if err := app.Listen(cfg.Addr); err != nil {
		logging.Log(logging.Fields{Service: "app", Step: "start", Status: "error", Message: err.Error()})
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

// requestMiddleware assigns a request id, records metrics and logs one line
// per request.
func requestMiddleware(m *metrics.ServerMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals("request_id", rid)
		c.Set("X-Request-ID", rid)

		start := time.Now()
		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		route := c.Route().Path
		elapsed := time.Since(start)
		m.Requests.WithLabelValues(route, status).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))
		logging.Log(logging.Fields{
			Service:    "app",
			RequestID:  rid,
			Step:       "http",
			Status:     status,
			DurationMS: elapsed.Milliseconds(),
			Message:    c.Method() + " " + c.OriginalURL(),
		})
		return err
	}
}

func mustOpenDB(url string) *sql.DB {
	if url == "" {
		panic("DATABASE_URL is not set")
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		panic(err)
	}
	if err := db.Ping(); err != nil {
		panic(err)
	}
	return db
}

// ensureSchema creates the order tables on boot. The products table is owned
// by the catalog service; it is only created here so local development works
// without it.
func ensureSchema(db *sql.DB) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id SERIAL PRIMARY KEY,
            user_id INT NOT NULL,
            status TEXT NOT NULL DEFAULT 'CART',
            total NUMERIC NOT NULL DEFAULT 0,
            created_at TEXT,
            updated_at TEXT
        )`,
		// one active cart per user, enforced by the store
		`CREATE UNIQUE INDEX IF NOT EXISTS orders_one_cart_per_user
            ON orders (user_id) WHERE status = 'CART'`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id SERIAL PRIMARY KEY,
            order_id INT NOT NULL,
            product_id INT NOT NULL,
            quantity INT NOT NULL DEFAULT 1,
            price NUMERIC NOT NULL,
            created_at TEXT,
            updated_at TEXT
        )`,
		// one line per product while the order is a cart; adds merge instead
		`CREATE UNIQUE INDEX IF NOT EXISTS order_items_order_product
            ON order_items (order_id, product_id)`,
		`CREATE TABLE IF NOT EXISTS products (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            price NUMERIC NOT NULL DEFAULT 0,
            stock INT NOT NULL DEFAULT 0,
            created_at TEXT,
            updated_at TEXT
        )`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			panic(err)
		}
	}
}
