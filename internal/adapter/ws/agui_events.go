package ws

// AG-UI (Agent-User Interaction) event types. A run is one assistant reply;
// its run_id is the placeholder message id and thread_id the conversation.
const (
	AGUIRunStarted  = "agui.run_started"
	AGUIRunFinished = "agui.run_finished"
	AGUITextMessage = "agui.text_message"
	AGUIToolCall    = "agui.tool_call"
	AGUIToolResult  = "agui.tool_result"
)

// Run outcomes reported in AGUIRunFinishedEvent.Status.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// AGUIRunStartedEvent signals that a reply is being produced.
type AGUIRunStartedEvent struct {
	RunID    string `json:"run_id"`
	ThreadID string `json:"thread_id,omitempty"`
	Model    string `json:"model,omitempty"`
}

// AGUIRunFinishedEvent signals that a reply has completed.
type AGUIRunFinishedEvent struct {
	RunID    string `json:"run_id"`
	ThreadID string `json:"thread_id,omitempty"`
	Status   string `json:"status"`
	Rounds   int    `json:"rounds,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

// AGUITextMessageEvent carries the final text of the reply.
type AGUITextMessageEvent struct {
	RunID   string `json:"run_id"`
	Role    string `json:"role"` // "assistant"
	Content string `json:"content"`
}

// AGUIToolCallEvent signals a tool invocation by the model.
type AGUIToolCallEvent struct {
	RunID  string `json:"run_id"`
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Args   string `json:"args"` // JSON-encoded arguments
}

// AGUIToolResultEvent carries the result of a tool invocation.
type AGUIToolResultEvent struct {
	RunID  string `json:"run_id"`
	CallID string `json:"call_id"`
	Result string `json:"result"` // JSON-encoded result
	Error  string `json:"error,omitempty"`
}
