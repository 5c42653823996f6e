package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/noteduco342/OMGroups-backend/internal/auth"
	"github.com/noteduco342/OMGroups-backend/internal/httpx"
	"github.com/noteduco342/OMGroups-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func authApp(tokens *auth.TokenIssuer, allowQuery bool) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler})
	app.Get("/me", AuthRequired(tokens, allowQuery), func(c *fiber.Ctx) error {
		uid, _ := c.Locals(LocalUserID).(string)
		email, _ := c.Locals(LocalEmail).(string)
		return c.JSON(fiber.Map{"userId": uid, "email": email})
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	valid, err := tokens.Issue("user-1", "a@example.com")
	require.NoError(t, err)
	foreign, err := auth.NewTokenIssuer("other-secret", time.Hour).Issue("user-1", "a@example.com")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		query      string
		allowQuery bool
		wantStatus int
		wantMsg    string
	}{
		{"valid bearer", "Bearer " + valid, "", false, 200, ""},
		{"lowercase scheme", "bearer " + valid, "", false, 200, ""},
		{"missing", "", "", false, 401, service.MsgNoToken},
		{"query ignored when not allowed", "", valid, false, 401, service.MsgNoToken},
		{"query allowed", "", valid, true, 200, ""},
		{"wrong scheme", "Basic " + valid, "", false, 400, service.MsgInvalidToken},
		{"foreign signature", "Bearer " + foreign, "", false, 400, service.MsgInvalidToken},
		{"garbage", "Bearer not-a-jwt", "", false, 400, service.MsgInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest("GET", target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := authApp(tokens, tt.allowQuery).Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.wantStatus == 200 {
				assert.Equal(t, "user-1", body["userId"])
				assert.Equal(t, "a@example.com", body["email"])
			} else {
				assert.Equal(t, tt.wantMsg, body["message"])
			}
		})
	}
}

func TestOriginAllowed(t *testing.T) {
	app := fiber.New()
	app.Use(OriginAllowed([]string{"https://app.example.com"}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(204) })

	tests := []struct {
		origin string
		want   int
	}{
		{"", 204},
		{"https://app.example.com", 204},
		{"https://evil.example.com", 403},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tt.want, resp.StatusCode, tt.origin)
	}

	open := fiber.New()
	open.Use(OriginAllowed(nil))
	open.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(204) })
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://anything.example.com")
	resp, err := open.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler})
	app.Use(requestid.New())
	app.Use(RequestLogger(zap.New(core)))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(200) })
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok", entries[0].ContextMap()["path"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.EqualValues(t, 404, entries[1].ContextMap()["status"])
}
