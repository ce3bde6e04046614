package messagequeue

// MessageCreatedPayload is the schema for chat.messages.created messages.
type MessageCreatedPayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Role           string `json:"role"`
	ContentLength  int    `json:"content_length"`
	ToolExecutions int    `json:"tool_executions"`
	Fallback       bool   `json:"fallback,omitempty"`
}

// ToolExecutedPayload is the schema for chat.tools.executed messages.
type ToolExecutedPayload struct {
	ConversationID string         `json:"conversation_id"`
	CallID         string         `json:"call_id"`
	Tool           string         `json:"tool"`
	Arguments      map[string]any `json:"arguments"`
	Error          string         `json:"error,omitempty"`
}

// CompletionFailedPayload is the schema for chat.completions.failed messages.
type CompletionFailedPayload struct {
	ConversationID string `json:"conversation_id"`
	Round          int    `json:"round"`
	StatusCode     int    `json:"status_code,omitempty"`
	Error          string `json:"error"`
}
