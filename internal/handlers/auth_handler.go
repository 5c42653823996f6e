package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMGroups-backend/internal/httpx"
	"github.com/noteduco342/OMGroups-backend/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input service.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if _, err := h.authService.Register(c.UserContext(), input); err != nil {
		return httpx.FromError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": service.MsgUserRegistered,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input service.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	token, err := h.authService.Login(c.UserContext(), input)
	if err != nil {
		return httpx.FromError(c, err)
	}

	return c.JSON(fiber.Map{"token": token})
}
