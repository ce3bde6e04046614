package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/ChatForge/internal/adapter/postgres"
	"github.com/Strob0t/ChatForge/internal/domain"
	"github.com/Strob0t/ChatForge/internal/domain/conversation"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()

	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

func createConversation(t *testing.T, store *postgres.Store, title string) *conversation.Conversation {
	t.Helper()
	c, err := store.CreateConversation(context.Background(), &conversation.Conversation{Title: title})
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	t.Cleanup(func() { _ = store.DeleteConversation(context.Background(), c.ID) })
	return c
}

func TestStore_ConversationCRUD(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	c := createConversation(t, store, "")
	if c.ID == "" {
		t.Fatal("expected generated id")
	}
	if c.Title != conversation.DefaultTitle {
		t.Fatalf("expected default title, got %q", c.Title)
	}

	got, err := store.GetConversation(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != c.ID || got.Title != c.Title {
		t.Fatalf("got %+v, want %+v", got, c)
	}

	if err := store.DeleteConversation(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetConversation(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteConversation(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_GetConversationNotFound(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		if _, err := store.GetConversation(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetConversation(%q): expected ErrNotFound, got %v", id, err)
		}
	}
	if err := store.TouchConversation(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("TouchConversation: expected ErrNotFound, got %v", err)
	}
}

func TestStore_MessagesOrderAndMetadata(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	c := createConversation(t, store, "ordering")

	contents := []string{"one", "two", "three"}
	for i, content := range contents {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		if _, err := store.CreateMessage(ctx, &conversation.Message{
			ConversationID: c.ID,
			Role:           role,
			Content:        content,
			Metadata:       map[string]any{"index": i},
		}); err != nil {
			t.Fatalf("create message %d: %v", i, err)
		}
	}

	msgs, err := store.ListMessages(ctx, c.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(msgs))
	}
	for i, m := range msgs {
		if m.Content != contents[i] {
			t.Fatalf("message %d: got %q, want %q", i, m.Content, contents[i])
		}
		// JSONB numbers decode as float64.
		if m.Metadata["index"] != float64(i) {
			t.Fatalf("message %d: unexpected metadata %+v", i, m.Metadata)
		}
	}
}

func TestStore_ListMessagesEmpty(t *testing.T) {
	store := setupStore(t)
	c := createConversation(t, store, "empty")

	msgs, err := store.ListMessages(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", msgs)
	}
}

func TestStore_ThinkingPlaceholderLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	c := createConversation(t, store, "thinking")

	p, err := store.CreateMessage(ctx, conversation.NewThinkingMessage(c.ID))
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsThinking || p.Content != conversation.ThinkingContent {
		t.Fatalf("unexpected placeholder %+v", p)
	}

	if err := store.DeleteMessage(ctx, p.ID); err != nil {
		t.Fatalf("delete placeholder: %v", err)
	}
	if err := store.DeleteMessage(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	msgs, _ := store.ListMessages(ctx, c.ID)
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %+v", msgs)
	}
}

func TestStore_CreateMessageUnknownConversation(t *testing.T) {
	store := setupStore(t)

	_, err := store.CreateMessage(context.Background(), &conversation.Message{
		ConversationID: uuid.NewString(),
		Role:           conversation.RoleUser,
		Content:        "orphan",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_CreateMessageRejectsInvalidRole(t *testing.T) {
	store := setupStore(t)
	c := createConversation(t, store, "roles")

	_, err := store.CreateMessage(context.Background(), &conversation.Message{
		ConversationID: c.ID,
		Role:           "tool",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStore_ConversationRecencyOrder(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	older := createConversation(t, store, "older")
	newer := createConversation(t, store, "newer")

	// A new message moves the older conversation to the top.
	time.Sleep(10 * time.Millisecond)
	if _, err := store.CreateMessage(ctx, &conversation.Message{
		ConversationID: older.ID,
		Role:           conversation.RoleUser,
		Content:        "bump",
	}); err != nil {
		t.Fatal(err)
	}

	list, err := store.ListConversations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pos := map[string]int{}
	for i, c := range list {
		pos[c.ID] = i
	}
	if pos[older.ID] > pos[newer.ID] {
		t.Fatalf("expected bumped conversation first, got order %v", list)
	}

	bumped, _ := store.GetConversation(ctx, older.ID)
	if !bumped.UpdatedAt.After(older.UpdatedAt) {
		t.Fatal("expected updated_at to advance")
	}
}

func TestStore_DeleteConversationCascades(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	c := createConversation(t, store, "cascade")

	m, err := store.CreateMessage(ctx, &conversation.Message{ConversationID: c.ID, Role: conversation.RoleUser, Content: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteConversation(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteMessage(ctx, m.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected message to be gone, got %v", err)
	}
}
