package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMGroups-backend/internal/httpx"
	"github.com/samber/lo"
)

// OriginAllowed rejects browser requests whose Origin is not listed. An empty
// list disables the check; requests without an Origin always pass.
func OriginAllowed(allowedOrigins []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := strings.TrimSpace(c.Get(fiber.HeaderOrigin))
		if origin == "" || len(allowedOrigins) == 0 {
			return c.Next()
		}
		if !lo.Contains(allowedOrigins, origin) {
			return httpx.Forbidden(c, "forbidden_origin", "Origin not allowed")
		}
		return c.Next()
	}
}
