package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/noteduco342/OMGroups-backend/internal/models"
	"gorm.io/gorm"
)

type GroupRepository struct {
	db         *gorm.DB
	optimistic bool
}

// NewGroupRepository returns a Postgres-backed group store. With optimistic
// set, Save only succeeds against the version the group was loaded at.
func NewGroupRepository(db *gorm.DB, optimistic bool) *GroupRepository {
	return &GroupRepository{db: db, optimistic: optimistic}
}

func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now
	group.Normalize()
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&group).Error; err != nil {
		return nil, notFound(err)
	}
	group.Normalize()
	return &group, nil
}

func (r *GroupRepository) Save(ctx context.Context, group *models.Group) error {
	loaded := group.Version
	group.Normalize()
	group.Version = loaded + 1
	group.UpdatedAt = time.Now().UTC()

	q := r.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", group.ID)
	if r.optimistic {
		q = q.Where("version = ?", loaded)
	}
	res := q.Select(
		"Name", "Type", "MaxMembers", "Owner",
		"Members", "JoinRequests", "BannedMembers", "PrivateLeaveLog",
		"Version", "UpdatedAt",
	).Updates(group)
	if res.Error != nil {
		group.Version = loaded
		return res.Error
	}
	if res.RowsAffected == 0 {
		group.Version = loaded
		if r.optimistic {
			return ErrStaleGroup
		}
		return ErrNotFound
	}
	return nil
}

func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Group{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
