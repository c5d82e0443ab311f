package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	conversationserrors "rentals/internal/conversations/errors"
	"rentals/internal/conversations/repository"
	"rentals/internal/conversations/validator"
	"rentals/pkg/config"
	apperrors "rentals/pkg/errors"
	"rentals/pkg/events"
	"rentals/pkg/model"
	"rentals/pkg/sanitizer"
	"rentals/pkg/validation"
)

type ConversationService interface {
	// GetOrCreate returns the conversation between the actor and the requested
	// participant for the property, creating it if needed. The bool reports
	// whether this call created it.
	GetOrCreate(ctx context.Context, actorID string, req *model.ConversationRequest) (*model.Conversation, bool, error)
	ListFor(ctx context.Context, userID string) ([]*model.ConversationSummary, error)
	Get(ctx context.Context, id string, actorID string) (*model.Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, senderID string, req *model.MessageRequest) (*model.Message, error)
	MarkAsRead(ctx context.Context, messageID string, readerID string) (*model.Message, error)
	MarkConversationRead(ctx context.Context, conversationID string, readerID string) (int64, error)
	ListMessages(ctx context.Context, conversationID string, readerID string) ([]*model.Message, error)
}

type conversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	validator     *validator.ConversationValidator
	publisher     events.Publisher
	cfg           *config.Config
	now           func() time.Time
}

func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	validator *validator.ConversationValidator,
	publisher events.Publisher,
	cfg *config.Config,
) ConversationService {
	return &conversationService{
		conversations: conversations,
		messages:      messages,
		validator:     validator,
		publisher:     publisher,
		cfg:           cfg,
		now:           time.Now,
	}
}

func (s *conversationService) GetOrCreate(ctx context.Context, actorID string, req *model.ConversationRequest) (*model.Conversation, bool, error) {
	if actorID == "" {
		return nil, false, apperrors.Unauthorized("Actor identity is required")
	}
	req.ParticipantID = sanitizer.NormalizeID(req.ParticipantID)
	req.PropertyID = sanitizer.NormalizeID(req.PropertyID)
	if err := s.validator.ValidateConversation(actorID, req); err != nil {
		return nil, false, s.validationFailed("Conversation validation failed", err)
	}

	pairKey := model.PairKey(actorID, req.ParticipantID)
	existing, err := s.conversations.FindByPair(ctx, pairKey, req.PropertyID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, conversationserrors.ErrConversationNotFound) {
		s.cfg.Log.Error("Failed to look up conversation", "pair_key", pairKey, "error", err)
		return nil, false, apperrors.Internal("Failed to look up conversation", err)
	}

	pair := model.SortedPair(actorID, req.ParticipantID)
	now := s.now().UTC().Truncate(time.Millisecond)
	conversation := &model.Conversation{
		ID:             uuid.NewString(),
		ParticipantIDs: pair[:],
		PairKey:        pairKey,
		PropertyID:     req.PropertyID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.conversations.Create(ctx, conversation); err != nil {
		if errors.Is(err, conversationserrors.ErrDuplicateConversation) {
			// Another request created it first.
			winner, findErr := s.conversations.FindByPair(ctx, pairKey, req.PropertyID)
			if findErr != nil {
				s.cfg.Log.Error("Failed to reread conversation after duplicate insert", "pair_key", pairKey, "error", findErr)
				return nil, false, apperrors.Internal("Failed to look up conversation", findErr)
			}
			s.cfg.Log.Debug("Conversation created concurrently", "id", winner.ID)
			return winner, false, nil
		}
		s.cfg.Log.Error("Failed to create conversation", "pair_key", pairKey, "error", err)
		return nil, false, apperrors.Internal("Failed to create conversation", err)
	}

	s.cfg.Log.Info("Conversation created successfully",
		"id", conversation.ID,
		"actor_id", actorID,
		"participant_id", req.ParticipantID,
		"property_id", conversation.PropertyID,
	)
	events.Emit(ctx, s.publisher, s.cfg.Log, events.Event{
		Type:        events.ConversationCreated,
		AggregateID: conversation.ID,
		ActorID:     actorID,
		OccurredAt:  conversation.CreatedAt,
		Payload:     conversation,
	})
	return conversation, true, nil
}

// ListFor returns the user's inbox, most recently active first.
func (s *conversationService) ListFor(ctx context.Context, userID string) ([]*model.ConversationSummary, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("Actor identity is required")
	}

	conversations, err := s.conversations.FindByParticipant(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to list conversations", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to list conversations", err)
	}

	ids := make([]string, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.ID)
	}
	latest, err := s.messages.LatestByConversation(ctx, ids)
	if err != nil {
		s.cfg.Log.Error("Failed to load latest messages", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to list conversations", err)
	}

	summaries := make([]*model.ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		summary := &model.ConversationSummary{
			Conversation:   c,
			LastActivityAt: c.CreatedAt,
		}
		if last, ok := latest[c.ID]; ok {
			summary.LastMessage = last
			summary.LastActivityAt = last.CreatedAt
			summary.Unread = last.SenderID != userID && !last.IsRead
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !a.LastActivityAt.Equal(b.LastActivityAt) {
			return a.LastActivityAt.After(b.LastActivityAt)
		}
		return a.ID < b.ID
	})

	s.cfg.Log.Debug("Conversation listing completed", "user_id", userID, "count", len(summaries))
	return summaries, nil
}

func (s *conversationService) Get(ctx context.Context, id string, actorID string) (*model.Conversation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Conversation ID cannot be empty")
	}
	conversation, err := s.findConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(actorID) {
		s.cfg.Log.Warn("Conversation access denied", "id", id, "actor_id", actorID)
		return nil, apperrors.Forbidden("You are not a participant of this conversation")
	}
	return conversation, nil
}

// AppendMessage stores a message with the next sequence number of its
// conversation. The counter bump and the insert commit together.
func (s *conversationService) AppendMessage(ctx context.Context, conversationID string, senderID string, req *model.MessageRequest) (*model.Message, error) {
	if senderID == "" {
		return nil, apperrors.Unauthorized("Actor identity is required")
	}
	if conversationID == "" {
		return nil, apperrors.InvalidInput("Conversation ID cannot be empty")
	}

	req.Content = sanitizer.NormalizeMessageContent(req.Content)
	if err := s.validator.ValidateMessage(req); err != nil {
		return nil, s.validationFailed("Message validation failed", err)
	}
	kind := model.KindText
	if req.Kind != "" {
		kind = model.MessageKind(req.Kind)
	}

	conversation, err := s.findConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(senderID) {
		s.cfg.Log.Warn("Message rejected, sender is not a participant",
			"conversation_id", conversationID,
			"sender_id", senderID,
		)
		return nil, apperrors.Validation("Message validation failed", map[string]any{
			"sender_id": "sender is not a participant of this conversation",
		})
	}

	var message *model.Message
	err = s.conversations.ExecuteTransaction(ctx, func(ctx context.Context) error {
		now := s.now().UTC().Truncate(time.Millisecond)
		seq, err := s.conversations.NextMessageSeq(ctx, conversationID, now)
		if err != nil {
			return err
		}
		message = &model.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			SenderID:       senderID,
			Content:        req.Content,
			Kind:           kind,
			Seq:            seq,
			IsRead:         false,
			CreatedAt:      now,
		}
		return s.messages.Create(ctx, message)
	})
	if err != nil {
		if errors.Is(err, conversationserrors.ErrConversationNotFound) {
			return nil, apperrors.NotFoundWithID("Conversation", conversationID)
		}
		s.cfg.Log.Error("Failed to append message", "conversation_id", conversationID, "error", err)
		return nil, apperrors.Internal("Failed to send message", err)
	}

	s.cfg.Log.Info("Message sent successfully",
		"id", message.ID,
		"conversation_id", conversationID,
		"sender_id", senderID,
		"recipient_id", conversation.OtherParticipant(senderID),
		"seq", message.Seq,
		"kind", message.Kind,
	)
	events.Emit(ctx, s.publisher, s.cfg.Log, events.Event{
		Type:        events.MessageSent,
		AggregateID: conversationID,
		ActorID:     senderID,
		OccurredAt:  message.CreatedAt,
		Payload:     message,
	})
	return message, nil
}

// MarkAsRead marks a message read on behalf of its recipient. Marking an
// already read message succeeds without emitting anything.
func (s *conversationService) MarkAsRead(ctx context.Context, messageID string, readerID string) (*model.Message, error) {
	if messageID == "" {
		return nil, apperrors.InvalidInput("Message ID cannot be empty")
	}

	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, conversationserrors.ErrMessageNotFound) {
			return nil, apperrors.NotFoundWithID("Message", messageID)
		}
		s.cfg.Log.Error("Failed to retrieve message", "id", messageID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve message", err)
	}

	conversation, err := s.findConversation(ctx, message.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(readerID) || message.SenderID == readerID {
		s.cfg.Log.Warn("Mark as read denied", "id", messageID, "reader_id", readerID)
		return nil, apperrors.Forbidden("Only the recipient can mark this message as read")
	}

	changed, err := s.messages.MarkRead(ctx, messageID)
	if err != nil {
		if errors.Is(err, conversationserrors.ErrMessageNotFound) {
			return nil, apperrors.NotFoundWithID("Message", messageID)
		}
		s.cfg.Log.Error("Failed to mark message as read", "id", messageID, "error", err)
		return nil, apperrors.Internal("Failed to mark message as read", err)
	}
	message.IsRead = true

	if changed {
		s.cfg.Log.Info("Message marked as read", "id", messageID, "reader_id", readerID)
		events.Emit(ctx, s.publisher, s.cfg.Log, events.Event{
			Type:        events.MessageRead,
			AggregateID: message.ConversationID,
			ActorID:     readerID,
			OccurredAt:  s.now().UTC(),
			Payload:     message,
		})
	}
	return message, nil
}

// MarkConversationRead marks every message from the other participant as read
// and returns how many changed.
func (s *conversationService) MarkConversationRead(ctx context.Context, conversationID string, readerID string) (int64, error) {
	conversation, err := s.Get(ctx, conversationID, readerID)
	if err != nil {
		return 0, err
	}

	n, err := s.messages.MarkConversationRead(ctx, conversation.ID, readerID)
	if err != nil {
		s.cfg.Log.Error("Failed to mark conversation as read", "id", conversationID, "error", err)
		return 0, apperrors.Internal("Failed to mark conversation as read", err)
	}

	if n > 0 {
		s.cfg.Log.Info("Conversation marked as read", "id", conversationID, "reader_id", readerID, "count", n)
	}
	return n, nil
}

func (s *conversationService) ListMessages(ctx context.Context, conversationID string, readerID string) ([]*model.Message, error) {
	if _, err := s.Get(ctx, conversationID, readerID); err != nil {
		return nil, err
	}

	messages, err := s.messages.FindByConversation(ctx, conversationID)
	if err != nil {
		s.cfg.Log.Error("Failed to list messages", "conversation_id", conversationID, "error", err)
		return nil, apperrors.Internal("Failed to list messages", err)
	}
	return messages, nil
}

// --- Helpers ---

func (s *conversationService) findConversation(ctx context.Context, id string) (*model.Conversation, error) {
	conversation, err := s.conversations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, conversationserrors.ErrConversationNotFound) {
			return nil, apperrors.NotFoundWithID("Conversation", id)
		}
		s.cfg.Log.Error("Failed to retrieve conversation", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve conversation", err)
	}
	return conversation, nil
}

func (s *conversationService) validationFailed(message string, err error) error {
	s.cfg.Log.Warn(message, "error", err)
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
