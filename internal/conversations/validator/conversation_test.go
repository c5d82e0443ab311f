package validator

import (
	"errors"
	"strings"
	"testing"

	"rentals/pkg/logger"
	"rentals/pkg/model"
	"rentals/pkg/validation"
)

func firstField(t *testing.T, err error) string {
	t.Helper()
	var verrs validation.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
	}
	return verrs[0].Field
}

func TestValidateConversation(t *testing.T) {
	v := NewConversationValidator(logger.Discard(), 100)

	tests := []struct {
		name      string
		actor     string
		req       model.ConversationRequest
		wantField string
	}{
		{"valid without property", "u-1", model.ConversationRequest{ParticipantID: "u-2"}, ""},
		{"valid with property", "u-1", model.ConversationRequest{ParticipantID: "u-2", PropertyID: "p-1"}, ""},
		{"missing participant", "u-1", model.ConversationRequest{}, "participant_id"},
		{"self conversation", "u-1", model.ConversationRequest{ParticipantID: "u-1"}, "participant_id"},
		{"participant too long", "u-1", model.ConversationRequest{ParticipantID: strings.Repeat("x", 65)}, "participant_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateConversation(tt.actor, &tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error on %s", tt.wantField)
			}
			if got := firstField(t, err); got != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, got)
			}
		})
	}
}

func TestValidateMessage(t *testing.T) {
	v := NewConversationValidator(logger.Discard(), 10)

	tests := []struct {
		name    string
		req     model.MessageRequest
		wantErr bool
	}{
		{"text", model.MessageRequest{Content: "hi"}, false},
		{"explicit kind", model.MessageRequest{Content: "photo.png", Kind: "image"}, false},
		{"empty content", model.MessageRequest{Content: ""}, true},
		{"unknown kind", model.MessageRequest{Content: "hi", Kind: "video"}, true},
		{"at limit", model.MessageRequest{Content: "éééééééééé"}, false},
		{"over limit", model.MessageRequest{Content: "01234567890"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateMessage(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
