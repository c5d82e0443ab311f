package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rentals/internal/conversations/repository"
	"rentals/internal/conversations/validator"
	"rentals/internal/testutil"
	"rentals/pkg/config"
	apperrors "rentals/pkg/errors"
	"rentals/pkg/events"
	"rentals/pkg/logger"
	"rentals/pkg/model"
)

const (
	alice = "user-a"
	bob   = "user-b"
	carol = "user-c"
)

// clock advances one minute per reading.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

type fixture struct {
	svc       *conversationService
	store     *repository.MemoryStore
	publisher *testutil.EventRecorder
}

func newFixture() *fixture {
	return newFixtureWith(nil)
}

// newFixtureWith builds a service over the memory store, optionally wrapping
// the message repository.
func newFixtureWith(wrap func(repository.MessageRepository) repository.MessageRepository) *fixture {
	log := logger.Discard()
	cfg := &config.Config{Log: log, MaxMessageLength: 500}
	store := repository.NewMemoryStore()
	messages := store.Messages()
	if wrap != nil {
		messages = wrap(messages)
	}
	publisher := &testutil.EventRecorder{}
	svc := NewConversationService(
		store.Conversations(),
		messages,
		validator.NewConversationValidator(log, cfg.MaxMessageLength),
		publisher,
		cfg,
	).(*conversationService)
	c := &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc.now = c.now
	return &fixture{svc: svc, store: store, publisher: publisher}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func (f *fixture) open(t *testing.T, actor, other, propertyID string) *model.Conversation {
	t.Helper()
	c, _, err := f.svc.GetOrCreate(context.Background(), actor, &model.ConversationRequest{
		ParticipantID: other,
		PropertyID:    propertyID,
	})
	if err != nil {
		t.Fatalf("GetOrCreate(%s, %s, %q) failed: %v", actor, other, propertyID, err)
	}
	return c
}

func (f *fixture) send(t *testing.T, conversationID, sender, content string) *model.Message {
	t.Helper()
	m, err := f.svc.AppendMessage(context.Background(), conversationID, sender, &model.MessageRequest{Content: content})
	if err != nil {
		t.Fatalf("AppendMessage(%s) failed: %v", sender, err)
	}
	return m
}

func TestGetOrCreate_IsIdempotentAcrossOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, created, err := f.svc.GetOrCreate(ctx, alice, &model.ConversationRequest{ParticipantID: bob, PropertyID: "prop-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Errorf("first call should create the conversation")
	}
	if got := first.ParticipantIDs; len(got) != 2 || got[0] != alice || got[1] != bob {
		t.Errorf("participants should be sorted, got %v", got)
	}

	again, created, err := f.svc.GetOrCreate(ctx, alice, &model.ConversationRequest{ParticipantID: bob, PropertyID: "prop-1"})
	if err != nil || created || again.ID != first.ID {
		t.Errorf("repeat call should return %s without creating, got %v created=%v err=%v", first.ID, again, created, err)
	}

	reversed, created, err := f.svc.GetOrCreate(ctx, bob, &model.ConversationRequest{ParticipantID: alice, PropertyID: "prop-1"})
	if err != nil || created || reversed.ID != first.ID {
		t.Errorf("reversed pair should return %s, got %v created=%v err=%v", first.ID, reversed, created, err)
	}

	other := f.open(t, alice, bob, "prop-2")
	none := f.open(t, alice, bob, "")
	if other.ID == first.ID || none.ID == first.ID || none.ID == other.ID {
		t.Errorf("each property scope should have its own conversation")
	}

	if got := f.publisher.Types(); len(got) != 3 {
		t.Errorf("expected 3 conversation.created events, got %v", got)
	}
}

func TestGetOrCreate_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, err := f.svc.GetOrCreate(ctx, alice, &model.ConversationRequest{ParticipantID: alice})
	assertCode(t, err, apperrors.CodeValidation)

	_, _, err = f.svc.GetOrCreate(ctx, alice, &model.ConversationRequest{ParticipantID: "  "})
	assertCode(t, err, apperrors.CodeValidation)

	_, _, err = f.svc.GetOrCreate(ctx, "", &model.ConversationRequest{ParticipantID: bob})
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	f := newFixture()

	const workers = 20
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor, other := alice, bob
			if i%2 == 1 {
				actor, other = bob, alice
			}
			c, _, err := f.svc.GetOrCreate(context.Background(), actor, &model.ConversationRequest{ParticipantID: other, PropertyID: "prop-1"})
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for i, id := range ids {
		if id != ids[0] {
			t.Fatalf("worker %d got %s, want %s", i, id, ids[0])
		}
	}
	if n := len(f.publisher.Events()); n != 1 {
		t.Errorf("expected exactly one conversation.created event, got %d", n)
	}
}

func TestAppendMessage(t *testing.T) {
	f := newFixture()
	conv := f.open(t, alice, bob, "prop-1")

	m1 := f.send(t, conv.ID, alice, "  Hello\r\nthere  ")
	m2 := f.send(t, conv.ID, bob, "hi")

	if m1.Content != "Hello\nthere" {
		t.Errorf("content should be normalized, got %q", m1.Content)
	}
	if m1.Kind != model.KindText || m1.IsRead {
		t.Errorf("new message should be unread text, got kind=%s read=%v", m1.Kind, m1.IsRead)
	}
	if m1.Seq != 1 || m2.Seq != 2 {
		t.Errorf("expected seq 1 and 2, got %d and %d", m1.Seq, m2.Seq)
	}

	stored, err := f.store.Conversations().FindByID(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !stored.UpdatedAt.Equal(m2.CreatedAt) {
		t.Errorf("conversation updated_at = %v, want %v", stored.UpdatedAt, m2.CreatedAt)
	}

	types := f.publisher.Types()
	if types[len(types)-1] != events.MessageSent {
		t.Errorf("expected message.sent event last, got %v", types)
	}
}

func TestAppendMessage_Rejections(t *testing.T) {
	f := newFixture()
	conv := f.open(t, alice, bob, "")
	ctx := context.Background()

	tests := []struct {
		name           string
		conversationID string
		sender         string
		req            model.MessageRequest
		wantCode       string
	}{
		{"empty content", conv.ID, alice, model.MessageRequest{Content: ""}, apperrors.CodeValidation},
		{"whitespace content", conv.ID, alice, model.MessageRequest{Content: " \n\t "}, apperrors.CodeValidation},
		{"unknown kind", conv.ID, alice, model.MessageRequest{Content: "x", Kind: "video"}, apperrors.CodeValidation},
		{"non participant", conv.ID, carol, model.MessageRequest{Content: "hi"}, apperrors.CodeValidation},
		{"missing conversation", "nope", alice, model.MessageRequest{Content: "hi"}, apperrors.CodeNotFound},
		{"no actor", conv.ID, "", model.MessageRequest{Content: "hi"}, apperrors.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.svc.AppendMessage(ctx, tt.conversationID, tt.sender, &req)
			assertCode(t, err, tt.wantCode)
		})
	}

	messages, err := f.svc.ListMessages(ctx, conv.ID, alice)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("rejected messages should not be stored, got %d", len(messages))
	}
}

type failingMessages struct {
	repository.MessageRepository
	fail bool
}

func (m *failingMessages) Create(ctx context.Context, message *model.Message) error {
	if m.fail {
		return errors.New("disk full")
	}
	return m.MessageRepository.Create(ctx, message)
}

func TestAppendMessage_FailedInsertLeavesNoTrace(t *testing.T) {
	failing := &failingMessages{fail: true}
	f := newFixtureWith(func(inner repository.MessageRepository) repository.MessageRepository {
		failing.MessageRepository = inner
		return failing
	})
	conv := f.open(t, alice, bob, "")

	_, err := f.svc.AppendMessage(context.Background(), conv.ID, alice, &model.MessageRequest{Content: "lost"})
	assertCode(t, err, apperrors.CodeInternal)

	stored, _ := f.store.Conversations().FindByID(context.Background(), conv.ID)
	if stored.MessageSeq != 0 || !stored.UpdatedAt.Equal(conv.UpdatedAt) {
		t.Errorf("failed append should roll back the counter, got seq=%d updated_at=%v", stored.MessageSeq, stored.UpdatedAt)
	}

	failing.fail = false
	if m := f.send(t, conv.ID, alice, "kept"); m.Seq != 1 {
		t.Errorf("expected seq 1 after rollback, got %d", m.Seq)
	}
}

func TestAppendMessage_ConcurrentSeqIsDense(t *testing.T) {
	f := newFixture()
	conv := f.open(t, alice, bob, "")

	const workers = 30
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := alice
			if i%2 == 1 {
				sender = bob
			}
			if _, err := f.svc.AppendMessage(context.Background(), conv.ID, sender, &model.MessageRequest{Content: "ping"}); err != nil {
				t.Errorf("worker %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	messages, err := f.svc.ListMessages(context.Background(), conv.ID, alice)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != workers {
		t.Fatalf("expected %d messages, got %d", workers, len(messages))
	}
	seen := make(map[int64]bool)
	for _, m := range messages {
		if m.Seq < 1 || m.Seq > workers || seen[m.Seq] {
			t.Fatalf("unexpected or duplicate seq %d", m.Seq)
		}
		seen[m.Seq] = true
	}
}

func TestListFor_UnreadFlag(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv := f.open(t, alice, bob, "prop-1")
	msg := f.send(t, conv.ID, alice, "Is the flat free in May?")

	unreadFor := func(user string) bool {
		t.Helper()
		summaries, err := f.svc.ListFor(ctx, user)
		if err != nil {
			t.Fatalf("ListFor(%s): %v", user, err)
		}
		if len(summaries) != 1 {
			t.Fatalf("expected 1 conversation for %s, got %d", user, len(summaries))
		}
		if summaries[0].LastMessage == nil || summaries[0].LastMessage.ID != msg.ID {
			t.Fatalf("expected last message %s", msg.ID)
		}
		return summaries[0].Unread
	}

	if !unreadFor(bob) {
		t.Errorf("recipient should see the conversation as unread")
	}
	if unreadFor(alice) {
		t.Errorf("sender should not see their own message as unread")
	}

	if _, err := f.svc.MarkAsRead(ctx, msg.ID, bob); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	if unreadFor(bob) {
		t.Errorf("conversation should be read after marking the message")
	}
}

func TestListFor_OrderedByLatestActivity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	quiet := f.open(t, alice, bob, "")
	busy := f.open(t, alice, carol, "")
	newest := f.open(t, alice, bob, "prop-9")
	f.send(t, busy.ID, carol, "hello")
	f.open(t, bob, carol, "")

	summaries, err := f.svc.ListFor(ctx, alice)
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}

	want := []string{busy.ID, newest.ID, quiet.ID}
	if len(summaries) != len(want) {
		t.Fatalf("expected %d conversations, got %d", len(want), len(summaries))
	}
	for i, id := range want {
		if summaries[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, summaries[i].ID, id)
		}
	}
	if summaries[2].LastMessage != nil || !summaries[2].LastActivityAt.Equal(quiet.CreatedAt) {
		t.Errorf("conversation without messages should fall back to created_at")
	}
}

func TestMarkAsRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv := f.open(t, alice, bob, "")
	msg := f.send(t, conv.ID, alice, "hi")

	for i := 0; i < 2; i++ {
		got, err := f.svc.MarkAsRead(ctx, msg.ID, bob)
		if err != nil {
			t.Fatalf("MarkAsRead #%d: %v", i+1, err)
		}
		if !got.IsRead {
			t.Errorf("MarkAsRead #%d should return a read message", i+1)
		}
	}

	var reads int
	for _, typ := range f.publisher.Types() {
		if typ == events.MessageRead {
			reads++
		}
	}
	if reads != 1 {
		t.Errorf("expected one message.read event, got %d", reads)
	}

	tests := []struct {
		name     string
		id       string
		reader   string
		wantCode string
	}{
		{"sender", msg.ID, alice, apperrors.CodeForbidden},
		{"outsider", msg.ID, carol, apperrors.CodeForbidden},
		{"missing", "nope", bob, apperrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.MarkAsRead(ctx, tt.id, tt.reader)
			assertCode(t, err, tt.wantCode)
		})
	}
}

func TestMarkConversationRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv := f.open(t, alice, bob, "")
	f.send(t, conv.ID, alice, "one")
	f.send(t, conv.ID, alice, "two")
	f.send(t, conv.ID, bob, "three")

	n, err := f.svc.MarkConversationRead(ctx, conv.ID, bob)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 marked, got %d err=%v", n, err)
	}
	n, err = f.svc.MarkConversationRead(ctx, conv.ID, bob)
	if err != nil || n != 0 {
		t.Errorf("second call should mark nothing, got %d err=%v", n, err)
	}

	_, err = f.svc.MarkConversationRead(ctx, conv.ID, carol)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestListMessages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv := f.open(t, alice, bob, "")
	first := f.send(t, conv.ID, alice, "first")
	second := f.send(t, conv.ID, bob, "second")

	messages, err := f.svc.ListMessages(ctx, conv.ID, bob)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 2 || messages[0].ID != first.ID || messages[1].ID != second.ID {
		t.Errorf("messages out of order: %v", messages)
	}

	_, err = f.svc.ListMessages(ctx, conv.ID, carol)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.ListMessages(ctx, "nope", alice)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestGet(t *testing.T) {
	f := newFixture()
	conv := f.open(t, alice, bob, "")

	got, err := f.svc.Get(context.Background(), conv.ID, bob)
	if err != nil || got.ID != conv.ID {
		t.Fatalf("participant should read the conversation, got %v err=%v", got, err)
	}

	_, err = f.svc.Get(context.Background(), conv.ID, carol)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture()
	f.publisher.Err = errors.New("broker down")

	conv := f.open(t, alice, bob, "")
	if m := f.send(t, conv.ID, alice, "still delivered"); m.Seq != 1 {
		t.Errorf("expected message to be stored, got seq %d", m.Seq)
	}
}
