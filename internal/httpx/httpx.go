package httpx

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMGroups-backend/internal/logging"
	"github.com/noteduco342/OMGroups-backend/internal/service"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	if v := c.Locals("requestid"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func Error(c *fiber.Ctx, status int, code string, message string) error {
	if message == "" {
		message = "Request failed"
	}
	return c.Status(status).JSON(ErrorResponse{
		Message:   message,
		Code:      code,
		RequestID: requestID(c),
	})
}

func BadRequest(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusBadRequest, code, message)
}

func Unauthorized(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusUnauthorized, code, message)
}

func Forbidden(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusForbidden, code, message)
}

func Internal(c *fiber.Ctx, code string) error {
	return Error(c, fiber.StatusInternalServerError, code, service.MsgInternal)
}

// Status maps a service error kind to its HTTP status.
func Status(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation, service.KindConflict, service.KindInvalidToken:
		return fiber.StatusBadRequest
	case service.KindAuth:
		return fiber.StatusUnauthorized
	case service.KindForbidden:
		return fiber.StatusForbidden
	case service.KindNotFound:
		return fiber.StatusNotFound
	case service.KindExists, service.KindStale:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// FromError writes the envelope for err. Internal failures are logged with
// their cause and rendered without it.
func FromError(c *fiber.Ctx, err error) error {
	se, ok := service.AsError(err)
	if !ok || se.Kind == service.KindInternal {
		logging.FromContext(c.UserContext()).Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return Internal(c, "internal_error")
	}
	if se.RetryAfter > 0 {
		secs := int64(math.Ceil(se.RetryAfter.Seconds()))
		c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(secs, 10))
	}
	return Error(c, Status(se.Kind), se.Code, se.Message)
}

// ErrorHandler renders errors that escape handlers, including fiber's own.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return Error(c, fe.Code, "http_error", fe.Message)
	}
	return FromError(c, err)
}

func LocalString(c *fiber.Ctx, key string) (string, error) {
	v := c.Locals(key)
	if v == nil {
		return "", fmt.Errorf("missing local %s", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("invalid local %s", key)
	}
	return s, nil
}
