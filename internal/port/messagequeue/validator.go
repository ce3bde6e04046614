package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation
// (future-proof for new message types).
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var conversationID string
	switch subject {
	case SubjectMessageCreated:
		var p MessageCreatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		conversationID = p.ConversationID
	case SubjectToolExecuted:
		var p ToolExecutedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.Tool == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("tool is required"))
		}
		conversationID = p.ConversationID
	case SubjectCompletionFailed:
		var p CompletionFailedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		conversationID = p.ConversationID
	default:
		return nil
	}

	if conversationID == "" {
		return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("conversation_id is required"))
	}
	return nil
}
