package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMGroups-backend/internal/auth"
	"github.com/noteduco342/OMGroups-backend/internal/httpx"
	"github.com/noteduco342/OMGroups-backend/internal/service"
)

const (
	LocalUserID = "userID"
	LocalEmail  = "email"
)

// TokenParser verifies an access token and returns its claims.
type TokenParser interface {
	Parse(tokenString string) (*auth.Claims, error)
}

// AuthRequired accepts "Authorization: Bearer <token>". When allowQuery is
// set the token may also come from ?token=, which browsers need for the
// websocket upgrade.
func AuthRequired(tokens TokenParser, allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var tokenString string
		if authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); authHeader != "" {
			scheme, rest, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				return httpx.BadRequest(c, "invalid_token", service.MsgInvalidToken)
			}
			tokenString = strings.TrimSpace(rest)
		} else if allowQuery {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return httpx.Unauthorized(c, "missing_token", service.MsgNoToken)
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			return httpx.BadRequest(c, "invalid_token", service.MsgInvalidToken)
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalEmail, claims.Email)

		return c.Next()
	}
}
