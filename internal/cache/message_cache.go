package cache

import (
	"context"
	"errors"
	"time"

	"github.com/noteduco342/OMGroups-backend/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	HistoryTTL    = 5 * time.Minute
	generationTTL = 24 * time.Hour
)

// MessageCache holds the encrypted history of a group. A nil *MessageCache
// (or one without Redis) is a valid, always-missing cache.
//
// Every invalidation bumps a per-group generation. A fill carries the
// generation observed before the store was read and is dropped if it moved.
type MessageCache struct {
	redis *RedisCache
}

func NewMessageCache(redis *RedisCache) *MessageCache {
	return &MessageCache{redis: redis}
}

func historyKey(groupID string) string {
	return "history:" + groupID
}

func generationKey(groupID string) string {
	return "history:gen:" + groupID
}

func (mc *MessageCache) GetGroupHistory(ctx context.Context, groupID string) ([]models.Message, bool) {
	if mc == nil || mc.redis == nil {
		return nil, false
	}
	data, err := mc.redis.Get(ctx, historyKey(groupID))
	if err != nil || data == nil {
		return nil, false
	}

	var messages []models.Message
	if err := msgpack.Unmarshal(data, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

// HistoryGeneration returns the current generation of a group's history; a
// group never invalidated is at generation zero.
func (mc *MessageCache) HistoryGeneration(ctx context.Context, groupID string) (int64, error) {
	if mc == nil || mc.redis == nil {
		return 0, nil
	}
	return readGeneration(ctx, mc.redis.Client(), groupID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, c getter, groupID string) (int64, error) {
	gen, err := c.Get(ctx, generationKey(groupID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetGroupHistory stores messages only while the group is still at
// generation. A stale fill is skipped without error.
func (mc *MessageCache) SetGroupHistory(ctx context.Context, groupID string, generation int64, messages []models.Message) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(messages)
	if err != nil {
		return err
	}

	genKey := generationKey(groupID)
	err = mc.redis.Client().Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, historyKey(groupID), data, HistoryTTL)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleFill) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (mc *MessageCache) InvalidateGroupHistory(ctx context.Context, groupID string) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	genKey := generationKey(groupID)
	_, err := mc.redis.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, historyKey(groupID))
		return nil
	})
	return err
}

var errStaleFill = errors.New("history generation moved")
