package mongorepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/noteduco342/OMGroups-backend/internal/models"
	"github.com/noteduco342/OMGroups-backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GroupStore keeps each group as one document with its membership arrays
// embedded.
type GroupStore struct {
	c          *mongo.Collection
	optimistic bool
}

func NewGroupStore(db *mongo.Database, optimistic bool) *GroupStore {
	return &GroupStore{c: db.Collection("groups"), optimistic: optimistic}
}

func (s *GroupStore) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now
	group.Normalize()
	_, err := s.c.InsertOne(ctx, group)
	return err
}

func (s *GroupStore) FindByID(ctx context.Context, id string) (*models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return nil, notFound(err)
	}
	g.Normalize()
	return &g, nil
}

func (s *GroupStore) Save(ctx context.Context, group *models.Group) error {
	loaded := group.Version
	group.Normalize()
	group.Version = loaded + 1
	group.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": group.ID}
	if s.optimistic {
		filter["version"] = loaded
	}
	res, err := s.c.ReplaceOne(ctx, filter, group)
	if err != nil {
		group.Version = loaded
		return err
	}
	if res.MatchedCount == 0 {
		group.Version = loaded
		if s.optimistic {
			return repository.ErrStaleGroup
		}
		return repository.ErrNotFound
	}
	return nil
}

func (s *GroupStore) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
