package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMGroups-backend/internal/httpx"
	"github.com/noteduco342/OMGroups-backend/internal/service"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	userID, ok := actor(c)
	if !ok {
		return httpx.Unauthorized(c, "missing_token", service.MsgNoToken)
	}

	var req SendMessageRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	result, err := h.messageService.SendMessage(c.UserContext(), userID, c.Params("groupId"), req.Content)
	if err != nil {
		return httpx.FromError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     service.MsgMessageSent,
		"ack":         result.Ack,
		"messageData": result.Message,
	})
}

func (h *MessageHandler) GetMessages(c *fiber.Ctx) error {
	userID, ok := actor(c)
	if !ok {
		return httpx.Unauthorized(c, "missing_token", service.MsgNoToken)
	}

	messages, err := h.messageService.GetMessages(c.UserContext(), userID, c.Params("groupId"))
	if err != nil {
		return httpx.FromError(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages})
}
