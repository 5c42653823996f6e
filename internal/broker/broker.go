// Package broker relays room events between server instances so that a
// message accepted by one instance reaches sockets connected to any other.
package broker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noteduco342/OMGroups-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// Sink receives events for local fan-out. *ws.Hub implements it.
type Sink interface {
	Deliver(room string, event models.RoomEvent)
}

var ErrInvalidRoom = errors.New("invalid room name")

func encodeEvent(event models.RoomEvent) ([]byte, error) {
	data, err := msgpack.Marshal(&event)
	if err != nil {
		return nil, fmt.Errorf("encode room event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (models.RoomEvent, error) {
	var event models.RoomEvent
	if err := msgpack.Unmarshal(data, &event); err != nil {
		return models.RoomEvent{}, fmt.Errorf("decode room event: %w", err)
	}
	return event, nil
}

// validRoom rejects names that would be read as wildcards or separators by
// either broker.
func validRoom(room string) bool {
	return room != "" && !strings.ContainsAny(room, ".*> \t\r\n")
}
