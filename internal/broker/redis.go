package broker

import (
	"context"
	"fmt"
	"strings"

	"github.com/noteduco342/OMGroups-backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisRoomPrefix = "room:"

// RedisChannel publishes room events over Redis pub/sub.
type RedisChannel struct {
	client *redis.Client
	sink   Sink
	log    *zap.Logger
}

func NewRedisChannel(client *redis.Client, sink Sink, log *zap.Logger) *RedisChannel {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisChannel{client: client, sink: sink, log: log}
}

func (r *RedisChannel) Publish(ctx context.Context, room string, event models.RoomEvent) error {
	if !validRoom(room) {
		return fmt.Errorf("%w: %q", ErrInvalidRoom, room)
	}
	event.Room = room
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, redisRoomPrefix+room, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run delivers every room event published by any instance, this one
// included, to the local sink until ctx is cancelled.
func (r *RedisChannel) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, redisRoomPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	r.log.Info("room broker subscribed", zap.String("broker", "redis"))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (r *RedisChannel) handle(channel string, data []byte) {
	room := strings.TrimPrefix(channel, redisRoomPrefix)
	event, err := decodeEvent(data)
	if err != nil {
		r.log.Warn("dropping room event", zap.String("channel", channel), zap.Error(err))
		return
	}
	r.sink.Deliver(room, event)
}
