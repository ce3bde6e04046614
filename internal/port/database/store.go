// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/ChatForge/internal/domain/conversation"
)

// Store is the port interface for conversation persistence.
// Missing rows are reported as domain.ErrNotFound.
type Store interface {
	// Conversations
	ListConversations(ctx context.Context) ([]conversation.Conversation, error)
	CreateConversation(ctx context.Context, c *conversation.Conversation) (*conversation.Conversation, error)
	GetConversation(ctx context.Context, id string) (*conversation.Conversation, error)
	TouchConversation(ctx context.Context, id string) error
	DeleteConversation(ctx context.Context, id string) error

	// Messages
	ListMessages(ctx context.Context, conversationID string) ([]conversation.Message, error)
	CreateMessage(ctx context.Context, m *conversation.Message) (*conversation.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}
