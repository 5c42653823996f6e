package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/noteduco342/OMGroups-backend/internal/middleware"
)

// Routes wires handlers onto an app. Every route except /health and the
// auth endpoints requires a bearer token.
type Routes struct {
	Auth      *AuthHandler
	Groups    *GroupHandler
	Messages  *MessageHandler
	WebSocket *WebSocketHandler

	Tokens  middleware.TokenParser
	Origins []string
}

func (r *Routes) Register(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Group messaging API is running",
		})
	})

	api := app.Group("/api", middleware.OriginAllowed(r.Origins))

	auth := api.Group("/auth")
	auth.Post("/register", r.Auth.Register)
	auth.Post("/login", r.Auth.Login)

	requireAuth := middleware.AuthRequired(r.Tokens, false)

	groups := api.Group("/groups", requireAuth)
	groups.Post("/", r.Groups.CreateGroup)
	groups.Post("/:id/join", r.Groups.JoinGroup)
	groups.Post("/:id/approve", r.Groups.ApproveJoinRequest)
	groups.Post("/:id/leave", r.Groups.LeaveGroup)
	groups.Post("/:id/banish", r.Groups.BanishMember)
	groups.Post("/:id/transfer", r.Groups.TransferOwnership)
	groups.Delete("/:id", r.Groups.DeleteGroup)

	messages := api.Group("/messages", requireAuth)
	messages.Post("/:groupId", r.Messages.SendMessage)
	messages.Get("/:groupId", r.Messages.GetMessages)

	if r.WebSocket != nil {
		app.Use(
			"/ws",
			middleware.OriginAllowed(r.Origins),
			middleware.AuthRequired(r.Tokens, true),
			r.WebSocket.RequireUpgrade,
		)
		app.Get("/ws", websocket.New(r.WebSocket.HandleWebSocket))
	}
}
