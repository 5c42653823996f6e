package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/gofiber/websocket/v2"
)

// MessageContext provides all dependencies needed for message processing
type MessageContext struct {
	Ctx    context.Context
	Client *Client
	Hub    *Hub
}

// Message is implemented by every client frame type.
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper for client frames.
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Frame is a server-to-client frame.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorResponse is sent when a client frame cannot be handled.
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func ToJson(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func FromJson(jsonBytes []byte, msg Message) error {
	return json.Unmarshal(jsonBytes, msg)
}

func CreateMessage(msgType string, typeRegistry map[string]reflect.Type) (Message, error) {
	msgTypeReflect, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}

	instance := reflect.New(msgTypeReflect).Interface()
	return instance.(Message), nil
}

// SendError sends an error frame to the client.
func (h *Hub) SendError(client *Client, code, message, details string) error {
	data, err := json.Marshal(ErrorResponse{
		Type:    "error",
		Error:   message,
		Code:    code,
		Details: details,
	})
	if err != nil {
		return err
	}
	return client.write(websocket.TextMessage, data)
}
