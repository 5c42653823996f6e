package repository

import (
	"context"
	"errors"

	"github.com/noteduco342/OMGroups-backend/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrStaleGroup is returned by Save when optimistic locking is on and the
	// stored version no longer matches the loaded one.
	ErrStaleGroup = errors.New("group was modified concurrently")
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// GroupRepositoryInterface defines the contract for group repository operations.
// Save replaces the whole document and bumps its version.
type GroupRepositoryInterface interface {
	Create(ctx context.Context, group *models.Group) error
	FindByID(ctx context.Context, id string) (*models.Group, error)
	Save(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id string) error
}

// MessageRepositoryInterface defines the contract for message repository operations
type MessageRepositoryInterface interface {
	Create(ctx context.Context, message *models.Message) error
	FindByGroup(ctx context.Context, groupID string) ([]models.Message, error)
}
