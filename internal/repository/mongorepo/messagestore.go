package mongorepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/noteduco342/OMGroups-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageStore struct {
	c *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{c: db.Collection("messages")}
}

func (s *MessageStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "groupId", Value: 1}, {Key: "timestamp", Value: 1}},
		Options: options.Index().SetName("idx_messages_group_timestamp"),
	})
	return err
}

func (s *MessageStore) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	_, err := s.c.InsertOne(ctx, message)
	return err
}

func (s *MessageStore) FindByGroup(ctx context.Context, groupID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"groupId": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	messages := make([]models.Message, 0)
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
