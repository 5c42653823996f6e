package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMGroups-backend/internal/httpx"
	"github.com/noteduco342/OMGroups-backend/internal/middleware"
	"github.com/noteduco342/OMGroups-backend/internal/service"
)

type GroupHandler struct {
	groupService *service.GroupService
}

func NewGroupHandler(groupService *service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

type TargetUserRequest struct {
	UserID string `json:"userId"`
}

type TransferOwnershipRequest struct {
	NewOwnerID string `json:"newOwnerId"`
}

func actor(c *fiber.Ctx) (string, bool) {
	userID, err := httpx.LocalString(c, middleware.LocalUserID)
	return userID, err == nil
}

// parseOptionalBody accepts an empty body; action endpoints treat a missing
// field the same as a blank one.
func parseOptionalBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func (h *GroupHandler) CreateGroup(c *fiber.Ctx) error {
	userID, ok := actor(c)
	if !ok {
		return httpx.Unauthorized(c, "missing_token", service.MsgNoToken)
	}

	var input service.CreateGroupInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	group, err := h.groupService.CreateGroup(c.UserContext(), userID, input)
	if err != nil {
		return httpx.FromError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": service.MsgGroupCreated,
		"group":   group,
	})
}

func (h *GroupHandler) JoinGroup(c *fiber.Ctx) error {
	userID, ok := actor(c)
	if !ok {
		return httpx.Unauthorized(c, "missing_token", service.MsgNoToken)
	}

	outcome, err := h.groupService.JoinGroup(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return httpx.FromError(c, err)
	}

	return c.JSON(fiber.Map{"message": outcome.Message()})
}

func (h *GroupHandler) ApproveJoinRequest(c *fiber.Ctx) error {
	userID, ok := actor(c)
	if !ok {
		return httpx.Unauthorized(c, "missing_token", service.MsgNoToken)
	}

	var req TargetUserRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if err := h.groupService.ApproveJoinRequest(c.UserContext(), userID, c.Params("id"), req.UserID); err != nil {
		return httpx.FromError(c, err)
	}

	return c.JSON(fiber.Map{"message": service.MsgUserAdded})
}

func (h *GroupHandler) LeaveGroup(c *fiber.Ctx) error {
	userID, ok := actor(c)
	if !ok {
		return httpx.Unauthorized(c, "missing_token", service.MsgNoToken)
	}

	if err := h.groupService.LeaveGroup(c.UserContext(), userID, c.Params("id")); err != nil {
		return httpx.FromError(c, err)
	}

	return c.JSON(fiber.Map{"message": service.MsgLeftGroup})
}

func (h *GroupHandler) BanishMember(c *fiber.Ctx) error {
	userID, ok := actor(c)
	if !ok {
		return httpx.Unauthorized(c, "missing_token", service.MsgNoToken)
	}

	var req TargetUserRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if err := h.groupService.BanishMember(c.UserContext(), userID, c.Params("id"), req.UserID); err != nil {
		return httpx.FromError(c, err)
	}

	return c.JSON(fiber.Map{"message": service.MsgUserBanished})
}

func (h *GroupHandler) TransferOwnership(c *fiber.Ctx) error {
	userID, ok := actor(c)
	if !ok {
		return httpx.Unauthorized(c, "missing_token", service.MsgNoToken)
	}

	var req TransferOwnershipRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if err := h.groupService.TransferOwnership(c.UserContext(), userID, c.Params("id"), req.NewOwnerID); err != nil {
		return httpx.FromError(c, err)
	}

	return c.JSON(fiber.Map{"message": service.MsgOwnerTransferred})
}

func (h *GroupHandler) DeleteGroup(c *fiber.Ctx) error {
	userID, ok := actor(c)
	if !ok {
		return httpx.Unauthorized(c, "missing_token", service.MsgNoToken)
	}

	if err := h.groupService.DeleteGroup(c.UserContext(), userID, c.Params("id")); err != nil {
		return httpx.FromError(c, err)
	}

	return c.JSON(fiber.Map{"message": service.MsgGroupDeleted})
}
