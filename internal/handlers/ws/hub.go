package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/noteduco342/OMGroups-backend/internal/models"
	"go.uber.org/zap"
)

// Conn is the subset of a websocket connection the hub drives.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// MembershipChecker answers whether a user currently belongs to a group.
type MembershipChecker interface {
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

// Client is one socket. A user with several tabs has several clients.
type Client struct {
	ID           string
	UserID       string
	SupportsGzip bool

	conn      Conn
	writeMu   sync.Mutex
	lastPong  time.Time
	rooms     map[string]struct{}
	closeChan chan struct{}
	closeOnce sync.Once
}

// Hub tracks sockets and the rooms they subscribed to. It is the local
// notification channel: Publish fans an event out to every socket in a room
// on this instance.
type Hub struct {
	log     *zap.Logger
	members MembershipChecker

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client

	pingInterval time.Duration
	pongTimeout  time.Duration
	gzipMinSize  int
}

type Option func(*Hub)

// WithMembershipCheck makes joinGroup require current membership.
func WithMembershipCheck(members MembershipChecker) Option {
	return func(h *Hub) { h.members = members }
}

func WithPingInterval(ping, pongTimeout time.Duration) Option {
	return func(h *Hub) {
		h.pingInterval = ping
		h.pongTimeout = pongTimeout
	}
}

func NewHub(log *zap.Logger, opts ...Option) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		log:          log,
		clients:      make(map[string]*Client),
		rooms:        make(map[string]map[string]*Client),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
		gzipMinSize:  512,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a socket and starts its ping routine.
func (h *Hub) Register(userID string, conn Conn, supportsGzip bool) *Client {
	client := &Client{
		ID:           uuid.NewString(),
		UserID:       userID,
		SupportsGzip: supportsGzip,
		conn:         conn,
		lastPong:     time.Now(),
		rooms:        make(map[string]struct{}),
		closeChan:    make(chan struct{}),
	}

	conn.SetPongHandler(func(string) error {
		h.mu.Lock()
		client.lastPong = time.Now()
		h.mu.Unlock()
		return conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	go h.pingRoutine(client)

	h.log.Debug("socket registered",
		zap.String("conn_id", client.ID),
		zap.String("user_id", userID),
		zap.Int("total", total),
		zap.Bool("gzip", supportsGzip),
	)
	return client
}

// Unregister drops the socket from every room it joined and closes it.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	for room := range client.rooms {
		h.removeFromRoomLocked(room, client)
	}
	delete(h.clients, client.ID)
	total := len(h.clients)
	h.mu.Unlock()

	client.closeOnce.Do(func() {
		close(client.closeChan)
		_ = client.conn.Close()
	})
	h.log.Debug("socket unregistered",
		zap.String("conn_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", total),
	)
}

func (h *Hub) removeFromRoomLocked(room string, client *Client) {
	members := h.rooms[room]
	delete(members, client.ID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	delete(client.rooms, room)
}

// Join subscribes the socket to room. With a membership checker configured
// only current members may subscribe.
func (h *Hub) Join(ctx context.Context, client *Client, room string) error {
	if room == "" {
		return ErrRoomRequired
	}
	if h.members != nil {
		ok, err := h.members.IsMember(ctx, room, client.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotRoomMember
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return ErrClientClosed
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[client.ID] = client
	client.rooms[room] = struct{}{}
	return nil
}

func (h *Hub) Leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := client.rooms[room]; ok {
		h.removeFromRoomLocked(room, client)
	}
}

// Publish delivers event to every socket in room on this instance.
func (h *Hub) Publish(_ context.Context, room string, event models.RoomEvent) error {
	h.Deliver(room, event)
	return nil
}

// Deliver is the sink brokers call for events received from other instances.
func (h *Hub) Deliver(room string, event models.RoomEvent) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(Frame{Type: event.Type, Payload: event.Payload})
	if err != nil {
		h.log.Error("marshal room event", zap.String("room", room), zap.Error(err))
		return
	}

	var compressed []byte
	for _, c := range targets {
		frameType, out := websocket.TextMessage, data
		if c.SupportsGzip && len(data) > h.gzipMinSize {
			if compressed == nil {
				if compressed, err = CompressMessage(data); err != nil {
					h.log.Warn("gzip room event", zap.Error(err))
					compressed = data
				}
			}
			if len(compressed) < len(data) {
				frameType, out = websocket.BinaryMessage, compressed
			}
		}
		if err := c.write(frameType, out); err != nil {
			h.log.Warn("deliver to socket failed",
				zap.String("conn_id", c.ID),
				zap.String("room", room),
				zap.Error(err),
			)
			h.Unregister(c)
		}
	}
}

// Send writes a single frame to one socket.
func (h *Hub) Send(client *Client, frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return client.write(websocket.TextMessage, data)
}

func (c *Client) write(frameType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(frameType, data)
}

// Count returns the number of connected sockets.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of sockets subscribed to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Run removes sockets that stopped answering pings until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.reapDead(time.Now())
		}
	}
}

func (h *Hub) reapDead(now time.Time) {
	h.mu.RLock()
	dead := make([]*Client, 0)
	for _, c := range h.clients {
		if now.Sub(c.lastPong) > h.pongTimeout {
			dead = append(dead, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range dead {
		h.log.Info("removing dead socket", zap.String("conn_id", c.ID), zap.String("user_id", c.UserID))
		h.Unregister(c)
	}
}

// Close disconnects every socket.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.Unregister(c)
	}
}

func (h *Hub) pingRoutine(client *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-client.closeChan:
			return
		case <-ticker.C:
			if err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				h.log.Debug("ping failed", zap.String("conn_id", client.ID), zap.Error(err))
				h.Unregister(client)
				return
			}
		}
	}
}
