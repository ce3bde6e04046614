package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/ChatForge/internal/domain/conversation"
)

// Event type constants for conversation updates.
const (
	EventConversationMessage        = "conversation.message"
	EventConversationMessageDeleted = "conversation.message_deleted"
)

// ConversationMessageEvent is broadcast when a message has been persisted.
type ConversationMessageEvent struct {
	ConversationID string                `json:"conversation_id"`
	Message        *conversation.Message `json:"message"`
}

// ConversationMessageDeletedEvent is broadcast when a message was removed,
// typically the thinking placeholder.
type ConversationMessageDeletedEvent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
