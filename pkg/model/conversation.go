package model

import (
	"fmt"
	"time"
)

type Conversation struct {
	ID             string    `json:"id" bson:"_id"`
	ParticipantIDs []string  `json:"participant_ids" bson:"participant_ids"`
	PairKey        string    `json:"-" bson:"pair_key"`
	PropertyID     string    `json:"property_id,omitempty" bson:"property_id"`
	MessageSeq     int64     `json:"-" bson:"message_seq"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// ConversationSummary is a conversation as shown in a participant's inbox.
type ConversationSummary struct {
	*Conversation
	LastMessage    *Message  `json:"last_message,omitempty"`
	Unread         bool      `json:"unread"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

type ConversationRequest struct {
	ParticipantID string `json:"participant_id" validate:"required,max=64"`
	PropertyID    string `json:"property_id" validate:"omitempty,max=64"`
}

// SortedPair orders two user ids so that (a, b) and (b, a) yield the same pair.
func SortedPair(a, b string) [2]string {
	if b < a {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}

// PairKey is the order-independent identity of two participants. The length prefix
// keeps it unambiguous whatever characters the ids contain.
func PairKey(a, b string) string {
	pair := SortedPair(a, b)
	return fmt.Sprintf("%d:%s|%s", len(pair[0]), pair[0], pair[1])
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return ""
}
