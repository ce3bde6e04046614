// Package conversation provides the domain model for persisted chat threads
// and their messages.
package conversation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Strob0t/ChatForge/internal/domain"
)

// Message roles that may be persisted.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// DefaultTitle is used when a conversation is created without a title.
const DefaultTitle = "New Conversation"

// ThinkingContent is the body of the transient placeholder shown while a
// reply is being produced.
const ThinkingContent = "Thinking..."

// maxDerivedTitle caps titles derived from a first message.
const maxDerivedTitle = 50

// MetaToolExecutions is the metadata key holding the tool executions that
// produced an assistant message.
const MetaToolExecutions = "tool_executions"

// MetaError is the metadata key marking an apology written after a failed
// completion.
const MetaError = "error"

// ValidRoles lists the roles a persisted message may carry.
var ValidRoles = map[string]bool{
	RoleUser:      true,
	RoleAssistant: true,
	RoleSystem:    true,
}

// Conversation represents a chat thread.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id,omitempty"` // empty = no owner
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a single message in a conversation.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	IsThinking     bool           `json:"is_thinking"`
	Metadata       map[string]any `json:"metadata"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Validate checks that a message can be persisted.
func (m *Message) Validate() error {
	if m.ConversationID == "" {
		return fmt.Errorf("%w: conversation_id is required", domain.ErrValidation)
	}
	if !ValidRoles[m.Role] {
		return fmt.Errorf("%w: invalid role %q: must be user, assistant, or system", domain.ErrValidation, m.Role)
	}
	return nil
}

// NewThinkingMessage builds the transient placeholder for a conversation.
func NewThinkingMessage(conversationID string) *Message {
	return &Message{
		ConversationID: conversationID,
		Role:           RoleAssistant,
		Content:        ThinkingContent,
		IsThinking:     true,
		Metadata:       map[string]any{},
	}
}

// CreateRequest is the request body for creating a new conversation.
type CreateRequest struct {
	Title  string `json:"title"`
	UserID string `json:"user_id,omitempty"`
}

// SendMessageRequest is the request body for sending a message. When
// ConversationID is empty a conversation is created and titled from Content.
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content"`
}

// Validate checks that the request carries content.
func (r *SendMessageRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	return nil
}

// SendResult bundles everything persisted by one exchange.
type SendResult struct {
	Conversation     *Conversation `json:"conversation"`
	UserMessage      *Message      `json:"user_message"`
	AssistantMessage *Message      `json:"assistant_message"`
}

// TitleFromContent derives a conversation title from the first user message:
// the first 50 characters, falling back to DefaultTitle for blank input.
func TitleFromContent(content string) string {
	t := strings.TrimSpace(content)
	if t == "" {
		return DefaultTitle
	}
	if utf8.RuneCountInString(t) > maxDerivedTitle {
		t = string([]rune(t)[:maxDerivedTitle])
	}
	return t
}
