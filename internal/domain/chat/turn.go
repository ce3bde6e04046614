// Package chat defines the protocol-level types exchanged with a remote
// completion endpoint: turns, tool calls, tool definitions, and the error
// taxonomy of the tool-calling loop.
package chat

// Turn roles on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Finish reasons reported by the completion endpoint.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
	FinishLength    = "length"
)

// ToolTypeFunction is the only tool call type the loop executes.
const ToolTypeFunction = "function"

// Turn is one role-tagged entry in the sequence sent to the model.
// ToolCalls is set on assistant turns that request tools; ToolCallID and
// Name are set on tool turns carrying a result.
type Turn struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// SystemTurn returns a system turn with the given content.
func SystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: content}
}

// ToolResultTurn returns the tool turn answering callID.
func ToolResultTurn(callID, name, content string) Turn {
	return Turn{Role: RoleTool, ToolCallID: callID, Name: name, Content: content}
}
