package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/noteduco342/OMGroups-backend/internal/models"
	"github.com/noteduco342/OMGroups-backend/internal/repository"
)

// MockUserRepository implements repository.UserRepositoryInterface.
type MockUserRepository struct {
	users   map[string]*models.User
	findErr error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*models.User)}
}

func (m *MockUserRepository) Create(_ context.Context, user *models.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

// MockGroupRepository implements repository.GroupRepositoryInterface. It
// stores copies so tests observe only what was saved.
type MockGroupRepository struct {
	mu      sync.Mutex
	groups  map[string]*models.Group
	saveErr error
	saves   int
}

func NewMockGroupRepository() *MockGroupRepository {
	return &MockGroupRepository{groups: make(map[string]*models.Group)}
}

func (m *MockGroupRepository) Create(_ context.Context, group *models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	group.Normalize()
	m.groups[group.ID] = group.Clone()
	return nil
}

func (m *MockGroupRepository) FindByID(_ context.Context, id string) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[id]; ok {
		return g.Clone(), nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockGroupRepository) Save(_ context.Context, group *models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.groups[group.ID]; !ok {
		return repository.ErrNotFound
	}
	group.Version++
	m.groups[group.ID] = group.Clone()
	m.saves++
	return nil
}

func (m *MockGroupRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.groups, id)
	return nil
}

// stored returns the persisted state of a group, bypassing the service.
func (m *MockGroupRepository) stored(id string) *models.Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[id]; ok {
		return g.Clone()
	}
	return nil
}

// MockMessageRepository implements repository.MessageRepositoryInterface.
type MockMessageRepository struct {
	messages  []models.Message
	createErr error
	finds     int
	// afterFind runs once, after a FindByGroup snapshot is taken.
	afterFind func()
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{}
}

func (m *MockMessageRepository) Create(_ context.Context, message *models.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	m.messages = append(m.messages, *message)
	return nil
}

func (m *MockMessageRepository) FindByGroup(_ context.Context, groupID string) ([]models.Message, error) {
	m.finds++
	out := make([]models.Message, 0)
	for _, msg := range m.messages {
		if msg.GroupID == groupID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if hook := m.afterFind; hook != nil {
		m.afterFind = nil
		hook()
	}
	return out, nil
}

type publishedEvent struct {
	room  string
	event models.RoomEvent
}

type mockNotifier struct {
	events []publishedEvent
	err    error
}

func (n *mockNotifier) Publish(_ context.Context, room string, event models.RoomEvent) error {
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, publishedEvent{room: room, event: event})
	return nil
}

type mockHistoryCache struct {
	rows        map[string][]models.Message
	generations map[string]int64
	invalidated []string
	staleFills  int
}

func newMockHistoryCache() *mockHistoryCache {
	return &mockHistoryCache{
		rows:        make(map[string][]models.Message),
		generations: make(map[string]int64),
	}
}

func (c *mockHistoryCache) GetGroupHistory(_ context.Context, groupID string) ([]models.Message, bool) {
	rows, ok := c.rows[groupID]
	return rows, ok
}

func (c *mockHistoryCache) HistoryGeneration(_ context.Context, groupID string) (int64, error) {
	return c.generations[groupID], nil
}

func (c *mockHistoryCache) SetGroupHistory(_ context.Context, groupID string, generation int64, messages []models.Message) error {
	if c.generations[groupID] != generation {
		c.staleFills++
		return nil
	}
	c.rows[groupID] = messages
	return nil
}

func (c *mockHistoryCache) InvalidateGroupHistory(_ context.Context, groupID string) error {
	c.generations[groupID]++
	delete(c.rows, groupID)
	c.invalidated = append(c.invalidated, groupID)
	return nil
}

// failingCipher fails on whichever operation is flagged.
type failingCipher struct {
	Cipher
	failEncrypt bool
	failDecrypt bool
}

func (c failingCipher) Encrypt(s string) (string, error) {
	if c.failEncrypt {
		return "", errors.New("encrypt boom")
	}
	return c.Cipher.Encrypt(s)
}

func (c failingCipher) Decrypt(s string) (string, error) {
	if c.failDecrypt {
		return "", errors.New("decrypt boom")
	}
	return c.Cipher.Decrypt(s)
}

// fakeClock is a settable clock for cooldown tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type stubTokenIssuer struct {
	err error
}

func (s stubTokenIssuer) Issue(userID, email string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-for-" + userID, nil
}
