package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/ChatForge/internal/adapter/ws"
	"github.com/Strob0t/ChatForge/internal/domain"
	"github.com/Strob0t/ChatForge/internal/domain/chat"
	"github.com/Strob0t/ChatForge/internal/domain/conversation"
	"github.com/Strob0t/ChatForge/internal/port/messagequeue"
	"github.com/Strob0t/ChatForge/internal/tools"
)

// --- In-memory store ---

type memStore struct {
	mu       sync.Mutex
	seq      int
	clock    time.Time
	convs    map[string]*conversation.Conversation
	messages []conversation.Message
	deleted  []string
	failOn   string // method name that returns an error
}

func newMemStore() *memStore {
	return &memStore{
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		convs: make(map[string]*conversation.Conversation),
	}
}

func (m *memStore) next(prefix string) (string, time.Time) {
	m.seq++
	m.clock = m.clock.Add(time.Second)
	return fmt.Sprintf("%s-%d", prefix, m.seq), m.clock
}

func (m *memStore) fail(method string) error {
	if m.failOn == method {
		return errors.New(method + " failed")
	}
	return nil
}

func (m *memStore) ListConversations(_ context.Context) ([]conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]conversation.Conversation, 0, len(m.convs))
	for _, c := range m.convs {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) CreateConversation(_ context.Context, c *conversation.Conversation) (*conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateConversation"); err != nil {
		return nil, err
	}
	cp := *c
	cp.ID, cp.CreatedAt = m.next("conv")
	cp.UpdatedAt = cp.CreatedAt
	m.convs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetConversation(_ context.Context, id string) (*conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, fmt.Errorf("get conversation %s: %w", id, domain.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (m *memStore) TouchConversation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return domain.ErrNotFound
	}
	_, c.UpdatedAt = m.next("touch")
	return nil
}

func (m *memStore) DeleteConversation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.convs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.convs, id)
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.ConversationID != id {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

func (m *memStore) ListMessages(_ context.Context, conversationID string) ([]conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []conversation.Message{}
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) CreateMessage(_ context.Context, msg *conversation.Message) (*conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateMessage:" + msg.Role); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	c, ok := m.convs[msg.ConversationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *msg
	cp.ID, cp.CreatedAt = m.next("msg")
	c.UpdatedAt = cp.CreatedAt
	m.messages = append(m.messages, cp)
	out := cp
	return &out, nil
}

func (m *memStore) DeleteMessage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.messages {
		if msg.ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			m.deleted = append(m.deleted, id)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) stored(conversationID string) []conversation.Message {
	msgs, _ := m.ListMessages(context.Background(), conversationID)
	return msgs
}

// --- Recording hub and queue ---

type hubEvent struct {
	Type    string
	Payload any
}

type recordingHub struct {
	mu     sync.Mutex
	events []hubEvent
}

func (h *recordingHub) BroadcastEvent(_ context.Context, eventType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, hubEvent{Type: eventType, Payload: payload})
}

func (h *recordingHub) ofType(eventType string) []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []any
	for _, e := range h.events {
		if e.Type == eventType {
			out = append(out, e.Payload)
		}
	}
	return out
}

type published struct {
	Subject string
	Data    []byte
}

type recordingQueue struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (q *recordingQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, published{Subject: subject, Data: data})
	return nil
}

func (q *recordingQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}
func (q *recordingQueue) Drain() error      { return nil }
func (q *recordingQueue) Close() error      { return nil }
func (q *recordingQueue) IsConnected() bool { return true }

func (q *recordingQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.msgs))
	for i, m := range q.msgs {
		out[i] = m.Subject
	}
	return out
}

func (q *recordingQueue) find(subject string) []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, m := range q.msgs {
		if m.Subject == subject {
			return m.Data
		}
	}
	return nil
}

type convFixture struct {
	store  *memStore
	hub    *recordingHub
	queue  *recordingQueue
	client *scriptedClient
	svc    *ConversationService
}

func newConvFixture(replies ...scriptedReply) *convFixture {
	f := &convFixture{
		store:  newMemStore(),
		hub:    &recordingHub{},
		queue:  &recordingQueue{},
		client: &scriptedClient{replies: replies},
	}
	completer := NewCompletionService(f.client, tools.NewDefaultRegistry(), testLLMConfig())
	f.svc = NewConversationService(f.store, completer, f.hub, f.queue)
	return f
}

// --- Tests ---

func TestConversationCreateDefaultTitle(t *testing.T) {
	f := newConvFixture()
	c, err := f.svc.Create(context.Background(), conversation.CreateRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if c.Title != conversation.DefaultTitle {
		t.Fatalf("expected default title, got %q", c.Title)
	}

	named, err := f.svc.Create(context.Background(), conversation.CreateRequest{Title: "Trip planning"})
	if err != nil {
		t.Fatal(err)
	}
	if named.Title != "Trip planning" {
		t.Fatalf("expected given title, got %q", named.Title)
	}
}

func TestConversationListMessagesUnknown(t *testing.T) {
	f := newConvFixture()
	_, err := f.svc.ListMessages(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSendMessageCreatesConversation(t *testing.T) {
	f := newConvFixture(textReply("Hello!"))
	content := "Can you explain how photosynthesis works in simple terms for a child?"

	res, err := f.svc.SendMessage(context.Background(), conversation.SendMessageRequest{Content: content})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if res.Conversation.Title != conversation.TitleFromContent(content) {
		t.Fatalf("unexpected title %q", res.Conversation.Title)
	}
	if len([]rune(res.Conversation.Title)) != 50 {
		t.Fatalf("expected 50-char title, got %d", len([]rune(res.Conversation.Title)))
	}
	if res.UserMessage.Content != content || res.UserMessage.Role != conversation.RoleUser {
		t.Fatalf("unexpected user message %+v", res.UserMessage)
	}
	if res.AssistantMessage.Content != "Hello!" {
		t.Fatalf("unexpected assistant content %q", res.AssistantMessage.Content)
	}
}

func TestSendMessageRejectsBlankContent(t *testing.T) {
	f := newConvFixture(textReply("unused"))
	_, err := f.svc.SendMessage(context.Background(), conversation.SendMessageRequest{Content: "  "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if f.client.calls() != 0 {
		t.Fatal("model must not be called for invalid input")
	}
}

func TestSendMessageUnknownConversation(t *testing.T) {
	f := newConvFixture(textReply("unused"))
	_, err := f.svc.SendMessage(context.Background(), conversation.SendMessageRequest{ConversationID: "nope", Content: "hi"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSendMessageWeatherFlow(t *testing.T) {
	f := newConvFixture(
		toolReply(call("call_1", "get_weather", `{"city":"Paris"}`)),
		textReply("It is sunny in Paris."),
	)
	ctx := context.Background()
	conv, err := f.svc.Create(ctx, conversation.CreateRequest{})
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.SendMessage(ctx, conversation.SendMessageRequest{ConversationID: conv.ID, Content: "What's the weather in Paris?"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	// Only the user message and final reply remain.
	msgs := f.store.stored(conv.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 stored messages, got %d: %+v", len(msgs), msgs)
	}
	for _, m := range msgs {
		if m.IsThinking {
			t.Fatal("placeholder must not survive")
		}
	}
	if len(f.store.deleted) != 1 {
		t.Fatalf("expected one deleted placeholder, got %v", f.store.deleted)
	}

	execs, ok := res.AssistantMessage.Metadata[conversation.MetaToolExecutions].([]chat.ToolExecution)
	if !ok || len(execs) != 1 {
		t.Fatalf("expected one tool execution in metadata, got %#v", res.AssistantMessage.Metadata)
	}
	if execs[0].Name != "get_weather" || execs[0].Arguments["city"] != "Paris" {
		t.Fatalf("unexpected execution %+v", execs[0])
	}

	// The placeholder was not part of the model's context.
	first := f.client.request(0)
	for _, turn := range first.Messages {
		if turn.Content == conversation.ThinkingContent {
			t.Fatal("placeholder leaked into the request")
		}
	}

	calls := f.hub.ofType(ws.AGUIToolCall)
	if len(calls) != 1 || calls[0].(ws.AGUIToolCallEvent).Args != `{"city":"Paris"}` {
		t.Fatalf("unexpected tool call events %+v", calls)
	}
	if len(f.hub.ofType(ws.AGUIToolResult)) != 1 {
		t.Fatal("expected one tool result event")
	}
	if len(f.hub.ofType(ws.EventConversationMessageDeleted)) != 1 {
		t.Fatal("expected placeholder deletion event")
	}
	finished := f.hub.ofType(ws.AGUIRunFinished)
	if len(finished) != 1 || finished[0].(ws.AGUIRunFinishedEvent).Status != ws.RunCompleted {
		t.Fatalf("unexpected run finished events %+v", finished)
	}

	var tool messagequeue.ToolExecutedPayload
	if err := json.Unmarshal(f.queue.find(messagequeue.SubjectToolExecuted), &tool); err != nil {
		t.Fatalf("tool event: %v", err)
	}
	if tool.ConversationID != conv.ID || tool.Tool != "get_weather" || tool.CallID != "call_1" {
		t.Fatalf("unexpected tool event %+v", tool)
	}
}

func TestSendMessageCompletionFailurePersistsApology(t *testing.T) {
	f := newConvFixture(scriptedReply{err: &statusError{code: 502}})
	ctx := context.Background()
	conv, _ := f.svc.Create(ctx, conversation.CreateRequest{})

	res, err := f.svc.SendMessage(ctx, conversation.SendMessageRequest{ConversationID: conv.ID, Content: "hi"})
	if err != nil {
		t.Fatalf("completion failures must not surface as errors: %v", err)
	}
	if res.AssistantMessage.Content != ErrorResponse {
		t.Fatalf("expected apology, got %q", res.AssistantMessage.Content)
	}
	if res.AssistantMessage.Metadata[conversation.MetaError] != MetaErrorCompletionFailed {
		t.Fatalf("expected error metadata, got %+v", res.AssistantMessage.Metadata)
	}

	msgs := f.store.stored(conv.ID)
	if len(msgs) != 2 || msgs[1].Content != ErrorResponse {
		t.Fatalf("expected user message and apology, got %+v", msgs)
	}

	var failed messagequeue.CompletionFailedPayload
	if err := json.Unmarshal(f.queue.find(messagequeue.SubjectCompletionFailed), &failed); err != nil {
		t.Fatalf("failure event: %v", err)
	}
	if failed.Round != 1 || failed.StatusCode != 502 || failed.ConversationID != conv.ID {
		t.Fatalf("unexpected failure event %+v", failed)
	}
	finished := f.hub.ofType(ws.AGUIRunFinished)
	if len(finished) != 1 || finished[0].(ws.AGUIRunFinishedEvent).Status != ws.RunFailed {
		t.Fatalf("unexpected run finished events %+v", finished)
	}
}

func TestSendMessageCancelledRemovesPlaceholder(t *testing.T) {
	f := newConvFixture(textReply("too late"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conv, _ := f.svc.Create(ctx, conversation.CreateRequest{})

	f.client.onCall = func(int) { cancel() }
	f.client.replies = []scriptedReply{{err: context.Canceled}}

	_, err := f.svc.SendMessage(ctx, conversation.SendMessageRequest{ConversationID: conv.ID, Content: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	msgs := f.store.stored(conv.ID)
	if len(msgs) != 1 || msgs[0].Role != conversation.RoleUser {
		t.Fatalf("expected only the user message, got %+v", msgs)
	}
	if len(f.store.deleted) != 1 {
		t.Fatal("expected the placeholder to be deleted after cancellation")
	}
	if f.queue.find(messagequeue.SubjectCompletionFailed) != nil {
		t.Fatal("cancellation is not a completion failure")
	}
	finished := f.hub.ofType(ws.AGUIRunFinished)
	if len(finished) != 1 || finished[0].(ws.AGUIRunFinishedEvent).Status != ws.RunCancelled {
		t.Fatalf("unexpected run finished events %+v", finished)
	}
}

func TestSendMessagePublishFailureIsBestEffort(t *testing.T) {
	f := newConvFixture(textReply("fine"))
	f.queue.err = errors.New("nats down")

	res, err := f.svc.SendMessage(context.Background(), conversation.SendMessageRequest{Content: "hi"})
	if err != nil {
		t.Fatalf("publish failures must not fail the send: %v", err)
	}
	if res.AssistantMessage.Content != "fine" {
		t.Fatalf("unexpected reply %q", res.AssistantMessage.Content)
	}
}

func TestSendMessageWithoutQueueOrHub(t *testing.T) {
	store := newMemStore()
	client := &scriptedClient{replies: []scriptedReply{textReply("ok")}}
	svc := NewConversationService(store, NewCompletionService(client, tools.NewDefaultRegistry(), testLLMConfig()), nil, nil)

	if _, err := svc.SendMessage(context.Background(), conversation.SendMessageRequest{Content: "hi"}); err != nil {
		t.Fatal(err)
	}
}

func TestSendMessagePublishesMessageEvents(t *testing.T) {
	f := newConvFixture(textReply("done"))
	if _, err := f.svc.SendMessage(context.Background(), conversation.SendMessageRequest{Content: "hi"}); err != nil {
		t.Fatal(err)
	}

	created := 0
	for _, s := range f.queue.subjects() {
		if s == messagequeue.SubjectMessageCreated {
			created++
		}
	}
	if created != 2 {
		t.Fatalf("expected user and assistant created events, got %d in %v", created, f.queue.subjects())
	}
	for _, m := range f.queue.msgs {
		if err := messagequeue.Validate(m.Subject, m.Data); err != nil {
			t.Fatalf("published invalid payload on %s: %v", m.Subject, err)
		}
	}
}

func TestSendMessageStoreFailure(t *testing.T) {
	f := newConvFixture(textReply("unused"))
	f.store.failOn = "CreateMessage:" + conversation.RoleUser

	_, err := f.svc.SendMessage(context.Background(), conversation.SendMessageRequest{Content: "hi"})
	if err == nil {
		t.Fatal("expected storage error")
	}
	if f.client.calls() != 0 {
		t.Fatal("model must not be called when the user message was not stored")
	}
}

func TestSendMessageHistoryAcrossTurns(t *testing.T) {
	f := newConvFixture(textReply("first answer"))
	ctx := context.Background()
	res, err := f.svc.SendMessage(ctx, conversation.SendMessageRequest{Content: "first"})
	if err != nil {
		t.Fatal(err)
	}

	f.client.replies = []scriptedReply{textReply("second answer")}
	if _, err := f.svc.SendMessage(ctx, conversation.SendMessageRequest{ConversationID: res.Conversation.ID, Content: "second"}); err != nil {
		t.Fatal(err)
	}

	req := f.client.request(1)
	// system + first + first answer + second
	if len(req.Messages) != 4 {
		t.Fatalf("expected 4 turns, got %d: %+v", len(req.Messages), req.Messages)
	}
	if req.Messages[2].Content != "first answer" || req.Messages[3].Content != "second" {
		t.Fatalf("unexpected history %+v", req.Messages)
	}
}
