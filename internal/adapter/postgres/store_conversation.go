package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/ChatForge/internal/domain/conversation"
)

const conversationColumns = `id, title, user_id, created_at, updated_at`

const messageColumns = `id, conversation_id, role, content, is_thinking, metadata, created_at`

func scanConversation(row scannable) (conversation.Conversation, error) {
	var (
		c      conversation.Conversation
		userID *string
	)
	if err := row.Scan(&c.ID, &c.Title, &userID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return c, err
	}
	c.UserID = derefString(userID)
	return c, nil
}

func scanMessage(row scannable) (conversation.Message, error) {
	var (
		m    conversation.Message
		meta []byte
	)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.IsThinking, &meta, &m.CreatedAt); err != nil {
		return m, err
	}
	m.Metadata = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return m, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return m, nil
}

func (s *Store) ListConversations(ctx context.Context) ([]conversation.Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var result []conversation.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		result = append(result, c)
	}
	return orEmpty(result), rows.Err()
}

func (s *Store) CreateConversation(ctx context.Context, c *conversation.Conversation) (*conversation.Conversation, error) {
	title := c.Title
	if title == "" {
		title = conversation.DefaultTitle
	}
	created, err := scanConversation(s.pool.QueryRow(ctx,
		`INSERT INTO conversations (title, user_id)
		 VALUES ($1, $2)
		 RETURNING `+conversationColumns,
		title, nullIfEmpty(c.UserID),
	))
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &created, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	c, err := scanConversation(s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get conversation %s", id)
	}
	return &c, nil
}

func (s *Store) TouchConversation(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, id)
	return execExpectOne(tag, err, "touch conversation %s", id)
}

// DeleteConversation removes a conversation; its messages go with it via ON DELETE CASCADE.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete conversation %s", id)
}

// CreateMessage inserts a message and advances the conversation's updated_at
// in the same transaction.
func (s *Store) CreateMessage(ctx context.Context, m *conversation.Message) (*conversation.Message, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	meta := m.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	var created conversation.Message
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var scanErr error
		created, scanErr = scanMessage(tx.QueryRow(ctx,
			`INSERT INTO messages (conversation_id, role, content, is_thinking, metadata)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+messageColumns,
			m.ConversationID, m.Role, m.Content, m.IsThinking, metaJSON,
		))
		if scanErr != nil {
			return scanErr
		}
		_, execErr := tx.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, m.ConversationID)
		return execErr
	})
	if err != nil {
		return nil, notFoundWrap(err, "create message in conversation %s", m.ConversationID)
	}
	return &created, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+`
		 FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC, seq ASC`,
		conversationID)
	if err != nil {
		return nil, notFoundWrap(err, "list messages")
	}
	defer rows.Close()

	var result []conversation.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, notFoundWrap(err, "list messages")
	}
	return orEmpty(result), nil
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete message %s", id)
}
