package main

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/noteduco342/OMGroups-backend/internal/config"
	"github.com/noteduco342/OMGroups-backend/internal/httpx"
	"github.com/noteduco342/OMGroups-backend/internal/middleware"
	"go.uber.org/zap"
)

// newApp builds the fiber app with the global middleware chain. Routes are
// registered by the caller.
func newApp(cfg *config.Config, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "OM Groups Backend",
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: httpx.ErrorHandler,
	})

	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(recover.New())
	app.Use(helmet.New())

	origins := cfg.Origins()
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(origins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return httpx.Error(c, fiber.StatusTooManyRequests, "rate_limited", "Too many requests, please try again later.")
		},
	}))

	return app
}

func corsOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ", ")
}
