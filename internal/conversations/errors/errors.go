package errors

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")

	ErrMessageNotFound = errors.New("message not found")

	// ErrDuplicateConversation is returned when an insert loses the race on the
	// (pair_key, property_id) unique index.
	ErrDuplicateConversation = errors.New("conversation already exists for participants and property")
)
