package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	conversationserrors "rentals/internal/conversations/errors"
	mongotx "rentals/pkg/db/mongo"
	"rentals/pkg/model"
)

// MemoryStore keeps conversations and messages in process memory. Transactions
// are serialized and undone on error, so a failed append leaves no trace.
type MemoryStore struct {
	mu            sync.RWMutex
	txMu          sync.Mutex
	conversations map[string]model.Conversation
	messages      map[string]model.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]model.Conversation),
		messages:      make(map[string]model.Message),
	}
}

func (s *MemoryStore) Conversations() ConversationRepository {
	return &memoryConversations{store: s}
}

func (s *MemoryStore) Messages() MessageRepository {
	return &memoryMessages{store: s}
}

type memTxKey struct{}

type memTx struct {
	undo []func()
}

// record registers fn to run if the surrounding transaction fails. Callers hold s.mu.
func (s *MemoryStore) record(ctx context.Context, fn func()) {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		tx.undo = append(tx.undo, fn)
	}
}

func (s *MemoryStore) executeTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{}
	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

type memoryConversations struct {
	store *MemoryStore
}

func (r *memoryConversations) Create(ctx context.Context, conversation *model.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.conversations {
		if c.PairKey == conversation.PairKey && c.PropertyID == conversation.PropertyID {
			return conversationserrors.ErrDuplicateConversation
		}
	}
	c := *conversation
	c.ParticipantIDs = append([]string(nil), conversation.ParticipantIDs...)
	s.conversations[c.ID] = c
	s.record(ctx, func() { delete(s.conversations, c.ID) })
	return nil
}

func (r *memoryConversations) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, conversationserrors.ErrConversationNotFound
	}
	return &c, nil
}

func (r *memoryConversations) FindByPair(ctx context.Context, pairKey, propertyID string) (*model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.conversations {
		if c.PairKey == pairKey && c.PropertyID == propertyID {
			c := c
			return &c, nil
		}
	}
	return nil, conversationserrors.ErrConversationNotFound
}

func (r *memoryConversations) FindByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Conversation
	for _, c := range s.conversations {
		if c.HasParticipant(userID) {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryConversations) NextMessageSeq(ctx context.Context, id string, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return 0, conversationserrors.ErrConversationNotFound
	}
	prev := c
	c.MessageSeq++
	c.UpdatedAt = at
	s.conversations[id] = c
	s.record(ctx, func() { s.conversations[id] = prev })
	return c.MessageSeq, nil
}

func (r *memoryConversations) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.store.executeTransaction(ctx, fn)
}

type memoryMessages struct {
	store *MemoryStore
}

func (r *memoryMessages) Create(ctx context.Context, message *model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[message.ID] = *message
	id := message.ID
	s.record(ctx, func() { delete(s.messages, id) })
	return nil
}

func (r *memoryMessages) FindByID(ctx context.Context, id string) (*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, conversationserrors.ErrMessageNotFound
	}
	return &m, nil
}

func (r *memoryMessages) FindByConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Message{}
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (r *memoryMessages) LatestByConversation(ctx context.Context, conversationIDs []string) (map[string]*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(conversationIDs))
	for _, id := range conversationIDs {
		wanted[id] = struct{}{}
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]*model.Message, len(conversationIDs))
	for _, m := range s.messages {
		if _, ok := wanted[m.ConversationID]; !ok {
			continue
		}
		if cur, ok := latest[m.ConversationID]; ok && !cur.Before(&m) {
			continue
		}
		m := m
		latest[m.ConversationID] = &m
	}
	return latest, nil
}

func (r *memoryMessages) MarkRead(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return false, conversationserrors.ErrMessageNotFound
	}
	if m.IsRead {
		return false, nil
	}
	m.IsRead = true
	s.messages[id] = m
	return true, nil
}

func (r *memoryMessages) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, m := range s.messages {
		if m.ConversationID != conversationID || m.SenderID == readerID || m.IsRead {
			continue
		}
		m.IsRead = true
		s.messages[id] = m
		n++
	}
	return n, nil
}
