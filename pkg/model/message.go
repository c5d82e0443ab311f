package model

import "time"

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

type Message struct {
	ID             string      `json:"id" bson:"_id"`
	ConversationID string      `json:"conversation_id" bson:"conversation_id"`
	SenderID       string      `json:"sender_id" bson:"sender_id"`
	Content        string      `json:"content" bson:"content"`
	Kind           MessageKind `json:"kind" bson:"kind"`
	Seq            int64       `json:"seq" bson:"seq"`
	IsRead         bool        `json:"is_read" bson:"is_read"`
	CreatedAt      time.Time   `json:"created_at" bson:"created_at"`
}

type MessageRequest struct {
	Content string `json:"content" validate:"required"`
	Kind    string `json:"kind" validate:"omitempty,oneof=text image file"`
}

// Before orders messages by creation time, then by sequence number.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.Seq < other.Seq
}

// DayBucket groups consecutive messages that share a local calendar date.
type DayBucket struct {
	Day      string     `json:"day"`
	Messages []*Message `json:"messages"`
}
