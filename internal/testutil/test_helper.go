package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/noteduco342/OMGroups-backend/internal/models"
	"github.com/noteduco342/OMGroups-backend/internal/repository"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id, email string) *models.User {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" {
		email = "test@example.com"
	}

	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: "hashed_password_123",
		CreatedAt:    time.Now().UTC(),
	}
}

// CreateTestGroup builds a group owned by owner whose members are owner
// followed by members.
func (h *TestHelper) CreateTestGroup(owner string, groupType models.GroupType, maxMembers int, members ...string) *models.Group {
	if groupType == "" {
		groupType = models.GroupOpen
	}
	if maxMembers == 0 {
		maxMembers = 10
	}
	g := &models.Group{
		Name:       "Test Group",
		Type:       groupType,
		MaxMembers: maxMembers,
		Owner:      owner,
		Members:    append([]string{owner}, members...),
	}
	g.Normalize()
	return g
}

// SeedGroup stores g in repo and fails the test on error.
func (h *TestHelper) SeedGroup(repo repository.GroupRepositoryInterface, g *models.Group) *models.Group {
	h.t.Helper()
	if err := repo.Create(context.Background(), g); err != nil {
		h.t.Fatalf("seed group: %v", err)
	}
	return g
}

// SetupTestEnv sets the variables config.Load requires and restores them
// when the test ends.
func (h *TestHelper) SetupTestEnv() {
	h.t.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	h.t.Setenv("AES_KEY", "1234567890abcdef")
	h.t.Setenv("AES_IV", "abcdef1234567890")
	h.t.Setenv("PASSWORD_MIN_LENGTH", "6")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	h.t.Helper()
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	h.t.Helper()
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}
