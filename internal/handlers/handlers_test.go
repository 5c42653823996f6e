package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/noteduco342/OMGroups-backend/internal/auth"
	"github.com/noteduco342/OMGroups-backend/internal/cipher"
	"github.com/noteduco342/OMGroups-backend/internal/handlers/ws"
	"github.com/noteduco342/OMGroups-backend/internal/httpx"
	"github.com/noteduco342/OMGroups-backend/internal/models"
	"github.com/noteduco342/OMGroups-backend/internal/service"
	"github.com/noteduco342/OMGroups-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.RoomEvent
}

func (n *recordingNotifier) Publish(_ context.Context, room string, event models.RoomEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	event.Room = room
	n.events = append(n.events, event)
	return nil
}

type testServer struct {
	app      *fiber.App
	tokens   *auth.TokenIssuer
	groups   *testutil.MemoryGroupRepository
	messages *testutil.MemoryMessageRepository
	notifier *recordingNotifier
	helper   *testutil.TestHelper
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	users := testutil.NewMemoryUserRepository()
	groups := testutil.NewMemoryGroupRepository()
	messages := testutil.NewMemoryMessageRepository()
	notifier := &recordingNotifier{}
	tokens := auth.NewTokenIssuer("handler-test-secret", time.Hour)

	aes, err := cipher.New(cipher.Config{Key: "1234567890abcdef", IV: "abcdef1234567890"})
	require.NoError(t, err)

	groupService := service.NewGroupService(groups, nil)
	routes := &Routes{
		Auth:      NewAuthHandler(service.NewAuthService(users, tokens, bcrypt.MinCost, 6)),
		Groups:    NewGroupHandler(groupService),
		Messages:  NewMessageHandler(service.NewMessageService(messages, groups, aes, notifier, nil, nil, 50)),
		WebSocket: NewWebSocketHandler(ws.NewHub(nil)),
		Tokens:    tokens,
	}

	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler})
	routes.Register(app)

	return &testServer{
		app:      app,
		tokens:   tokens,
		groups:   groups,
		messages: messages,
		notifier: notifier,
		helper:   testutil.NewTestHelper(t),
	}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.tokens.Issue(userID, userID+"@example.com")
	require.NoError(t, err)
	return tok
}

type response struct {
	status int
	header http.Header
	body   map[string]any
}

func (r response) message() string {
	s, _ := r.body["message"].(string)
	return s
}

func (s *testServer) do(t *testing.T, method, path, userID string, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, userID))
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{status: resp.StatusCode, header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func (s *testServer) seedGroup(owner string, groupType models.GroupType, maxMembers int, members ...string) *models.Group {
	return s.helper.SeedGroup(s.groups, s.helper.CreateTestGroup(owner, groupType, maxMembers, members...))
}

func (s *testServer) stored(t *testing.T, id string) *models.Group {
	t.Helper()
	g, err := s.groups.FindByID(context.Background(), id)
	require.NoError(t, err)
	return g
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, "ok", resp.body["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	creds := map[string]string{"email": "john@example.com", "password": "secret1"}

	resp := s.do(t, "POST", "/api/auth/register", "", creds)
	assert.Equal(t, 201, resp.status)
	assert.Equal(t, service.MsgUserRegistered, resp.message())

	resp = s.do(t, "POST", "/api/auth/register", "", creds)
	assert.Equal(t, 409, resp.status)
	assert.Equal(t, service.MsgEmailInUse, resp.message())

	resp = s.do(t, "POST", "/api/auth/register", "", map[string]string{"email": "bad", "password": "secret1"})
	assert.Equal(t, 400, resp.status)
	assert.Equal(t, service.MsgInvalidEmail, resp.message())

	resp = s.do(t, "POST", "/api/auth/login", "", creds)
	require.Equal(t, 200, resp.status)
	token, _ := resp.body["token"].(string)
	claims, err := s.tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", claims.Email)
	assert.NotEmpty(t, claims.UserID)

	resp = s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "john@example.com", "password": "wrong!!"})
	assert.Equal(t, 401, resp.status)
	assert.Equal(t, service.MsgInvalidCredentials, resp.message())

	resp = s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "john@example.com"})
	assert.Equal(t, 400, resp.status)
	assert.Equal(t, service.MsgCredentialsRequired, resp.message())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, "POST", "/api/groups", "", map[string]any{"name": "x"})
	assert.Equal(t, 401, resp.status)
	assert.Equal(t, service.MsgNoToken, resp.message())

	req := httptest.NewRequest("GET", "/api/messages/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, r.StatusCode)
}

func TestCreateGroup(t *testing.T) {
	s := newTestServer(t)
	alice := uuid.NewString()

	resp := s.do(t, "POST", "/api/groups", alice, map[string]any{"name": "Gophers", "type": "private", "maxMembers": 3})
	require.Equal(t, 201, resp.status)
	assert.Equal(t, service.MsgGroupCreated, resp.message())
	group, _ := resp.body["group"].(map[string]any)
	assert.Equal(t, alice, group["owner"])
	assert.Equal(t, []any{alice}, group["members"])
	assert.Equal(t, "private", group["type"])

	tests := []struct {
		name string
		body map[string]any
		msg  string
	}{
		{"missing fields", map[string]any{"name": "x"}, service.MsgGroupFieldsRequired},
		{"bad type", map[string]any{"name": "x", "type": "secret", "maxMembers": 3}, service.MsgGroupTypeInvalid},
		{"too small", map[string]any{"name": "x", "type": "open", "maxMembers": 1}, service.MsgMaxMembersInvalid},
		{"fractional", map[string]any{"name": "x", "type": "open", "maxMembers": 2.5}, service.MsgMaxMembersInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, "POST", "/api/groups", alice, tt.body)
			assert.Equal(t, 400, resp.status)
			assert.Equal(t, tt.msg, resp.message())
		})
	}
}

func TestOpenGroupCapacity(t *testing.T) {
	s := newTestServer(t)
	owner, u1, u2 := uuid.NewString(), uuid.NewString(), uuid.NewString()
	g := s.seedGroup(owner, models.GroupOpen, 2)
	path := "/api/groups/" + g.ID + "/join"

	resp := s.do(t, "POST", path, u1, nil)
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, service.MsgJoinedOpen, resp.message())

	resp = s.do(t, "POST", path, u1, nil)
	assert.Equal(t, 400, resp.status)
	assert.Equal(t, service.MsgAlreadyMember, resp.message())

	resp = s.do(t, "POST", path, u2, nil)
	assert.Equal(t, 400, resp.status)
	assert.Equal(t, service.MsgGroupFull, resp.message())

	resp = s.do(t, "POST", "/api/groups/"+uuid.NewString()+"/join", u2, nil)
	assert.Equal(t, 404, resp.status)
	assert.Equal(t, service.MsgGroupNotFound, resp.message())
}

func TestPrivateGroupApprovalAndCooldown(t *testing.T) {
	s := newTestServer(t)
	owner, bob := uuid.NewString(), uuid.NewString()
	g := s.seedGroup(owner, models.GroupPrivate, 5)
	base := "/api/groups/" + g.ID

	resp := s.do(t, "POST", base+"/join", bob, nil)
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, service.MsgRequestSubmitted, resp.message())

	resp = s.do(t, "POST", base+"/join", bob, nil)
	assert.Equal(t, 400, resp.status)
	assert.Equal(t, service.MsgRequestExists, resp.message())

	resp = s.do(t, "POST", base+"/approve", bob, map[string]string{"userId": bob})
	assert.Equal(t, 403, resp.status)
	assert.Equal(t, service.MsgOnlyOwnerApprove, resp.message())

	resp = s.do(t, "POST", base+"/approve", owner, map[string]string{"userId": bob})
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, service.MsgUserAdded, resp.message())
	assert.True(t, s.stored(t, g.ID).IsMember(bob))

	resp = s.do(t, "POST", base+"/leave", bob, nil)
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, service.MsgLeftGroup, resp.message())

	resp = s.do(t, "POST", base+"/join", bob, nil)
	assert.Equal(t, 403, resp.status)
	assert.Equal(t, service.MsgRejoinCooldown, resp.message())
	assert.Equal(t, "172800", resp.header.Get("Retry-After"))
}

func TestBanishTransferDelete(t *testing.T) {
	s := newTestServer(t)
	owner, bob, carol := uuid.NewString(), uuid.NewString(), uuid.NewString()
	g := s.seedGroup(owner, models.GroupOpen, 5, bob, carol)
	base := "/api/groups/" + g.ID

	resp := s.do(t, "POST", base+"/banish", bob, map[string]string{"userId": carol})
	assert.Equal(t, 403, resp.status)
	assert.Equal(t, service.MsgOnlyOwnerBanish, resp.message())

	resp = s.do(t, "POST", base+"/banish", owner, map[string]string{"userId": carol})
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, service.MsgUserBanished, resp.message())
	assert.True(t, s.stored(t, g.ID).IsBanned(carol))

	resp = s.do(t, "POST", base+"/join", carol, nil)
	assert.Equal(t, 403, resp.status)
	assert.Equal(t, service.MsgBanned, resp.message())

	resp = s.do(t, "POST", base+"/leave", owner, nil)
	assert.Equal(t, 400, resp.status)
	assert.Equal(t, service.MsgOwnerMustTransfer, resp.message())

	resp = s.do(t, "DELETE", base, owner, nil)
	assert.Equal(t, 400, resp.status)
	assert.Equal(t, service.MsgGroupNotEmpty, resp.message())

	resp = s.do(t, "POST", base+"/transfer", owner, map[string]string{"newOwnerId": carol})
	assert.Equal(t, 400, resp.status)
	assert.Equal(t, service.MsgNewOwnerNotMember, resp.message())

	resp = s.do(t, "POST", base+"/transfer", owner, map[string]string{"newOwnerId": bob})
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, service.MsgOwnerTransferred, resp.message())

	resp = s.do(t, "POST", base+"/leave", owner, nil)
	assert.Equal(t, 200, resp.status)

	resp = s.do(t, "DELETE", base, owner, nil)
	assert.Equal(t, 403, resp.status)
	assert.Equal(t, service.MsgOnlyOwnerDelete, resp.message())

	resp = s.do(t, "DELETE", base, bob, nil)
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, service.MsgGroupDeleted, resp.message())

	resp = s.do(t, "DELETE", base, bob, nil)
	assert.Equal(t, 404, resp.status)
}

func TestSendAndFetchMessages(t *testing.T) {
	s := newTestServer(t)
	owner, bob, mallory := uuid.NewString(), uuid.NewString(), uuid.NewString()
	g := s.seedGroup(owner, models.GroupOpen, 5, bob)
	path := "/api/messages/" + g.ID

	resp := s.do(t, "POST", path, bob, map[string]string{"content": "hello team"})
	require.Equal(t, 201, resp.status)
	assert.Equal(t, service.MsgMessageSent, resp.message())
	ack, _ := resp.body["ack"].(map[string]any)
	assert.NotEmpty(t, ack["deliveredAt"])
	data, _ := resp.body["messageData"].(map[string]any)
	assert.Equal(t, "hello team", data["content"])
	assert.Equal(t, bob, data["sender"])

	stored := s.messages.All()
	require.Len(t, stored, 1)
	assert.NotEqual(t, "hello team", stored[0].Content)

	require.Len(t, s.notifier.events, 1)
	assert.Equal(t, g.ID, s.notifier.events[0].Room)
	assert.Equal(t, models.EventNewMessage, s.notifier.events[0].Type)

	resp = s.do(t, "POST", path, bob, map[string]string{"content": "   "})
	assert.Equal(t, 400, resp.status)
	assert.Equal(t, service.MsgContentRequired, resp.message())

	resp = s.do(t, "POST", path, mallory, map[string]string{"content": "hi"})
	assert.Equal(t, 403, resp.status)
	assert.Equal(t, service.MsgNotMember, resp.message())

	resp = s.do(t, "GET", path, owner, nil)
	require.Equal(t, 200, resp.status)
	msgs, _ := resp.body["messages"].([]any)
	require.Len(t, msgs, 1)
	first, _ := msgs[0].(map[string]any)
	assert.Equal(t, "hello team", first["content"])

	resp = s.do(t, "GET", path, mallory, nil)
	assert.Equal(t, 403, resp.status)
	assert.Equal(t, service.MsgNotAuthorizedView, resp.message())

	resp = s.do(t, "GET", "/api/messages/"+uuid.NewString(), owner, nil)
	assert.Equal(t, 404, resp.status)
}

func TestEmptyHistoryIsArray(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.NewString()
	g := s.seedGroup(owner, models.GroupOpen, 5)

	resp := s.do(t, "GET", "/api/messages/"+g.ID, owner, nil)
	require.Equal(t, 200, resp.status)
	assert.Equal(t, []any{}, resp.body["messages"])
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, "GET", "/ws", "", nil)
	assert.Equal(t, 401, resp.status)

	req := httptest.NewRequest("GET", "/ws?token="+s.token(t, uuid.NewString()), nil)
	r, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, r.StatusCode)
}
