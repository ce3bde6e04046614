package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/codes"

	cfotel "github.com/Strob0t/ChatForge/internal/adapter/otel"
	"github.com/Strob0t/ChatForge/internal/adapter/ws"
	"github.com/Strob0t/ChatForge/internal/domain/chat"
	"github.com/Strob0t/ChatForge/internal/domain/conversation"
	"github.com/Strob0t/ChatForge/internal/logger"
	"github.com/Strob0t/ChatForge/internal/port/broadcast"
	"github.com/Strob0t/ChatForge/internal/port/database"
	"github.com/Strob0t/ChatForge/internal/port/messagequeue"
)

// ErrorResponse replaces the placeholder when the completion failed.
const ErrorResponse = "I apologize, but I encountered an error while generating a response. Please try again."

// MetaErrorCompletionFailed is stored under conversation.MetaError on the
// apology message.
const MetaErrorCompletionFailed = "completion_failed"

// Completer produces an assistant reply for a history.
type Completer interface {
	Complete(ctx context.Context, history []chat.Turn, observer ExecutionObserver) (*chat.Result, error)
	Model() string
}

// ConversationService manages conversations and runs the chat flow: it
// persists the user message, keeps a thinking placeholder while the model
// works, and replaces it with the final assistant message.
type ConversationService struct {
	db        database.Store
	completer Completer
	hub       broadcast.Broadcaster
	queue     messagequeue.Queue // nil = events are not published
}

// NewConversationService creates a new ConversationService. hub and queue may be nil.
func NewConversationService(db database.Store, completer Completer, hub broadcast.Broadcaster, queue messagequeue.Queue) *ConversationService {
	if hub == nil {
		hub = broadcast.Nop{}
	}
	return &ConversationService{db: db, completer: completer, hub: hub, queue: queue}
}

// List returns all conversations, most recently updated first.
func (s *ConversationService) List(ctx context.Context) ([]conversation.Conversation, error) {
	return s.db.ListConversations(ctx)
}

// Create creates a new conversation.
func (s *ConversationService) Create(ctx context.Context, req conversation.CreateRequest) (*conversation.Conversation, error) {
	c := &conversation.Conversation{
		Title:  req.Title,
		UserID: req.UserID,
	}
	if c.Title == "" {
		c.Title = conversation.DefaultTitle
	}
	return s.db.CreateConversation(ctx, c)
}

// Get returns a conversation by ID.
func (s *ConversationService) Get(ctx context.Context, id string) (*conversation.Conversation, error) {
	return s.db.GetConversation(ctx, id)
}

// Delete removes a conversation and its messages.
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	return s.db.DeleteConversation(ctx, id)
}

// ListMessages returns all messages in a conversation in creation order.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	if _, err := s.db.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.db.ListMessages(ctx, conversationID)
}

// SendMessage appends a user message and produces the assistant reply. When
// req.ConversationID is empty a conversation titled after the message is
// created first.
//
// A failed completion is not returned as an error: the apology message is
// persisted instead and returned as the assistant message. Errors are
// returned for invalid input, storage failures and cancellation.
func (s *ConversationService) SendMessage(ctx context.Context, req conversation.SendMessageRequest) (*conversation.SendResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithConversationID(ctx, conv.ID)
	ctx, span := cfotel.StartSendMessageSpan(ctx, conv.ID)
	defer span.End()

	userMsg, err := s.db.CreateMessage(ctx, &conversation.Message{
		ConversationID: conv.ID,
		Role:           conversation.RoleUser,
		Content:        req.Content,
		Metadata:       map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}
	s.messageCreated(ctx, userMsg, nil)

	history, err := s.db.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	placeholder, err := s.db.CreateMessage(ctx, conversation.NewThinkingMessage(conv.ID))
	if err != nil {
		return nil, fmt.Errorf("store placeholder: %w", err)
	}
	s.hub.BroadcastEvent(ctx, ws.EventConversationMessage, ws.ConversationMessageEvent{
		ConversationID: conv.ID,
		Message:        placeholder,
	})

	runID := placeholder.ID
	s.hub.BroadcastEvent(ctx, ws.AGUIRunStarted, ws.AGUIRunStartedEvent{
		RunID:    runID,
		ThreadID: conv.ID,
		Model:    s.completer.Model(),
	})

	res, runErr := s.completer.Complete(ctx, chat.FormatMessagesForAPI(history), s.observer(conv.ID, runID))

	// The placeholder goes away whatever the outcome, including cancellation.
	s.removePlaceholder(context.WithoutCancel(ctx), placeholder)

	if runErr != nil && ctx.Err() != nil {
		s.hub.BroadcastEvent(context.WithoutCancel(ctx), ws.AGUIRunFinished, ws.AGUIRunFinishedEvent{
			RunID:    runID,
			ThreadID: conv.ID,
			Status:   ws.RunCancelled,
		})
		slog.InfoContext(ctx, "send message cancelled", "error", runErr)
		return nil, runErr
	}

	var assistant *conversation.Message
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "completion failed")
		assistant, err = s.persistApology(ctx, conv.ID, runErr)
	} else {
		assistant, err = s.persistReply(ctx, conv.ID, res)
	}
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastEvent(ctx, ws.AGUITextMessage, ws.AGUITextMessageEvent{
		RunID:   runID,
		Role:    conversation.RoleAssistant,
		Content: assistant.Content,
	})
	finished := ws.AGUIRunFinishedEvent{RunID: runID, ThreadID: conv.ID, Status: ws.RunCompleted}
	if runErr != nil {
		finished.Status = ws.RunFailed
	} else {
		finished.Rounds = res.Rounds
		finished.Fallback = res.Fallback
	}
	s.hub.BroadcastEvent(ctx, ws.AGUIRunFinished, finished)

	if refreshed, err := s.db.GetConversation(ctx, conv.ID); err == nil {
		conv = refreshed
	}

	return &conversation.SendResult{
		Conversation:     conv,
		UserMessage:      userMsg,
		AssistantMessage: assistant,
	}, nil
}

func (s *ConversationService) resolveConversation(ctx context.Context, req conversation.SendMessageRequest) (*conversation.Conversation, error) {
	if req.ConversationID != "" {
		return s.db.GetConversation(ctx, req.ConversationID)
	}
	conv, err := s.db.CreateConversation(ctx, &conversation.Conversation{
		Title: conversation.TitleFromContent(req.Content),
	})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	slog.InfoContext(ctx, "conversation created", "conversation_id", conv.ID, "title", conv.Title)
	return conv, nil
}

// observer forwards tool executions to connected clients and the queue.
func (s *ConversationService) observer(conversationID, runID string) ExecutionObserver {
	return ObserverFunc(func(ctx context.Context, exec chat.ToolExecution) {
		args, _ := json.Marshal(exec.Arguments)
		s.hub.BroadcastEvent(ctx, ws.AGUIToolCall, ws.AGUIToolCallEvent{
			RunID:  runID,
			CallID: exec.CallID,
			Name:   exec.Name,
			Args:   string(args),
		})
		result, _ := json.Marshal(exec.Result)
		s.hub.BroadcastEvent(ctx, ws.AGUIToolResult, ws.AGUIToolResultEvent{
			RunID:  runID,
			CallID: exec.CallID,
			Result: string(result),
			Error:  exec.Error,
		})
		s.publish(ctx, messagequeue.SubjectToolExecuted, messagequeue.ToolExecutedPayload{
			ConversationID: conversationID,
			CallID:         exec.CallID,
			Tool:           exec.Name,
			Arguments:      exec.Arguments,
			Error:          exec.Error,
		})
	})
}

func (s *ConversationService) removePlaceholder(ctx context.Context, placeholder *conversation.Message) {
	if err := s.db.DeleteMessage(ctx, placeholder.ID); err != nil {
		slog.ErrorContext(ctx, "delete placeholder failed", "message_id", placeholder.ID, "error", err)
		return
	}
	s.hub.BroadcastEvent(ctx, ws.EventConversationMessageDeleted, ws.ConversationMessageDeletedEvent{
		ConversationID: placeholder.ConversationID,
		MessageID:      placeholder.ID,
	})
}

func (s *ConversationService) persistReply(ctx context.Context, conversationID string, res *chat.Result) (*conversation.Message, error) {
	msg, err := s.db.CreateMessage(ctx, &conversation.Message{
		ConversationID: conversationID,
		Role:           conversation.RoleAssistant,
		Content:        res.Content,
		Metadata: map[string]any{
			conversation.MetaToolExecutions: res.Executions,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}
	s.messageCreated(ctx, msg, res)
	return msg, nil
}

func (s *ConversationService) persistApology(ctx context.Context, conversationID string, cause error) (*conversation.Message, error) {
	failed := messagequeue.CompletionFailedPayload{ConversationID: conversationID, Error: cause.Error()}
	var ce *chat.CompletionError
	if errors.As(cause, &ce) {
		failed.Round = ce.Round
		failed.StatusCode = ce.StatusCode
	}
	slog.ErrorContext(ctx, "completion failed",
		"round", failed.Round,
		"status_code", failed.StatusCode,
		"error", cause,
	)
	s.publish(ctx, messagequeue.SubjectCompletionFailed, failed)

	msg, err := s.db.CreateMessage(ctx, &conversation.Message{
		ConversationID: conversationID,
		Role:           conversation.RoleAssistant,
		Content:        ErrorResponse,
		Metadata: map[string]any{
			conversation.MetaError: MetaErrorCompletionFailed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store error message: %w", err)
	}
	s.messageCreated(ctx, msg, nil)
	return msg, nil
}

// messageCreated announces a persisted message. res is nil for user messages
// and apologies.
func (s *ConversationService) messageCreated(ctx context.Context, msg *conversation.Message, res *chat.Result) {
	s.hub.BroadcastEvent(ctx, ws.EventConversationMessage, ws.ConversationMessageEvent{
		ConversationID: msg.ConversationID,
		Message:        msg,
	})
	payload := messagequeue.MessageCreatedPayload{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Role:           msg.Role,
		ContentLength:  len(msg.Content),
	}
	if res != nil {
		payload.ToolExecutions = len(res.Executions)
		payload.Fallback = res.Fallback
	}
	s.publish(ctx, messagequeue.SubjectMessageCreated, payload)
}

// publish is best-effort: failures are logged and never surface to the caller.
func (s *ConversationService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event failed", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.WarnContext(ctx, "publish event failed", "subject", subject, "error", err)
	}
}
