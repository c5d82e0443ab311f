package validator

import (
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"rentals/pkg/logger"
	"rentals/pkg/model"
	"rentals/pkg/validation"
)

type ConversationValidator struct {
	validate         *validator.Validate
	logger           *logger.Logger
	maxMessageLength int
}

func NewConversationValidator(log *logger.Logger, maxMessageLength int) *ConversationValidator {
	log.Info("Conversation validator initialized successfully",
		"max_message_length", maxMessageLength,
	)

	return &ConversationValidator{
		validate:         validation.New(),
		logger:           log,
		maxMessageLength: maxMessageLength,
	}
}

// ValidateConversation checks the request shape and that the actor is not
// opening a conversation with themselves.
func (v *ConversationValidator) ValidateConversation(actorID string, req *model.ConversationRequest) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return err
	}
	if req.ParticipantID == actorID {
		return validation.ValidationErrors{{
			Field:   "participant_id",
			Message: "cannot start a conversation with yourself",
		}}
	}
	return nil
}

// ValidateMessage expects content that has already been normalized.
func (v *ConversationValidator) ValidateMessage(req *model.MessageRequest) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return err
	}
	if v.maxMessageLength > 0 {
		if n := utf8.RuneCountInString(req.Content); n > v.maxMessageLength {
			return validation.ValidationErrors{{
				Field:   "content",
				Message: fmt.Sprintf("content length (%d) exceeds maximum (%d)", n, v.maxMessageLength),
			}}
		}
	}
	return nil
}
