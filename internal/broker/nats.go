package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/noteduco342/OMGroups-backend/internal/models"
	"go.uber.org/zap"
)

const natsRoomPrefix = "rooms."

// NATSChannel publishes room events on NATS subjects rooms.<groupId>.
type NATSChannel struct {
	conn *nats.Conn
	sink Sink
	log  *zap.Logger
}

func NewNATSChannel(url string, sink Sink, log *zap.Logger) (*NATSChannel, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name("omgroups"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSChannel{conn: conn, sink: sink, log: log}, nil
}

func (n *NATSChannel) Publish(_ context.Context, room string, event models.RoomEvent) error {
	if !validRoom(room) {
		return fmt.Errorf("%w: %q", ErrInvalidRoom, room)
	}
	event.Room = room
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(natsRoomPrefix+room, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Run subscribes to every room subject and blocks until ctx is cancelled.
func (n *NATSChannel) Run(ctx context.Context) error {
	sub, err := n.conn.Subscribe(natsRoomPrefix+"*", func(msg *nats.Msg) {
		n.handle(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()
	n.log.Info("room broker subscribed", zap.String("broker", "nats"))

	<-ctx.Done()
	return nil
}

func (n *NATSChannel) handle(subject string, data []byte) {
	room := strings.TrimPrefix(subject, natsRoomPrefix)
	event, err := decodeEvent(data)
	if err != nil {
		n.log.Warn("dropping room event", zap.String("subject", subject), zap.Error(err))
		return
	}
	n.sink.Deliver(room, event)
}

func (n *NATSChannel) Close() {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}
