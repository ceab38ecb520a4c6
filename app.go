package main

import (
	"context"
	"time"

	"bookstore/internal/handlers"
	"bookstore/internal/middleware"
	"bookstore/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

// appDeps are the services the HTTP layer is built from.
type appDeps struct {
	Auth     *services.AuthService
	Books    *services.BookService
	Payments *services.PaymentService
	Catalog  *services.CatalogService
	// Checks are run by /health, keyed by dependency name.
	Checks map[string]HealthChecker
}

// newApp builds the Fiber application with every route registered.
func newApp(deps appDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "bookstore",
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New()) // Request logger

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "BookStore API is Working...."})
	})
	app.Get("/health", healthHandler(deps.Checks))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	authRequired := middleware.AuthRequired(deps.Auth)

	handlers.NewAuthHandler(deps.Auth).RegisterRoutes(apiV1)
	handlers.NewBookHandler(deps.Books, deps.Payments).RegisterRoutes(apiV1, authRequired)
	handlers.NewCatalogHandler(deps.Catalog).RegisterRoutes(apiV1)

	return app
}

func healthHandler(checks map[string]HealthChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		deps := fiber.Map{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = fiber.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		health := "healthy"
		if status != fiber.StatusOK {
			health = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":       health,
			"time":         time.Now().Format(time.RFC3339),
			"dependencies": deps,
		})
	}
}
