package models

import (
	"time"
)

// Message content is ciphertext at rest; it is never edited after creation.
type Message struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"_id" msgpack:"id"`
	GroupID   string    `gorm:"type:varchar(36);not null;index:idx_group_timestamp,priority:1" bson:"groupId" json:"groupId" msgpack:"groupId"`
	SenderID  string    `gorm:"type:varchar(36);not null" bson:"sender" json:"sender" msgpack:"sender"`
	Content   string    `gorm:"type:text;not null" bson:"content" json:"content" msgpack:"content"`
	Timestamp time.Time `gorm:"not null;index:idx_group_timestamp,priority:2" bson:"timestamp" json:"timestamp" msgpack:"timestamp"`
}

// MessagePayload is the plaintext view of a message sent to clients.
type MessagePayload struct {
	ID        string    `json:"_id" msgpack:"id"`
	Sender    string    `json:"sender" msgpack:"sender"`
	Content   string    `json:"content" msgpack:"content"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

func (m *Message) ToPayload(plaintext string) MessagePayload {
	return MessagePayload{
		ID:        m.ID,
		Sender:    m.SenderID,
		Content:   plaintext,
		Timestamp: m.Timestamp,
	}
}

const EventNewMessage = "newMessage"

// RoomEvent is what the notification channel carries between instances and
// down to subscribed sockets.
type RoomEvent struct {
	Room    string         `json:"room" msgpack:"room"`
	Type    string         `json:"type" msgpack:"type"`
	Payload MessagePayload `json:"payload" msgpack:"payload"`
}
