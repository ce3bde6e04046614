package chat

import "github.com/Strob0t/ChatForge/internal/domain/conversation"

// FormatMessagesForAPI converts persisted history into turns for the wire.
// Transient placeholders are dropped; the remaining messages keep their
// order and only role and content are carried over.
func FormatMessagesForAPI(messages []conversation.Message) []Turn {
	turns := make([]Turn, 0, len(messages))
	for i := range messages {
		if messages[i].IsThinking {
			continue
		}
		turns = append(turns, Turn{
			Role:    messages[i].Role,
			Content: messages[i].Content,
		})
	}
	return turns
}
