// Package completion defines the port for a remote, OpenAI-compatible chat
// completion endpoint.
package completion

import (
	"context"

	"github.com/Strob0t/ChatForge/internal/domain/chat"
)

// ToolChoiceAuto lets the model decide whether to call tools.
const ToolChoiceAuto = "auto"

// Request is one chat completion call.
type Request struct {
	Model       string                `json:"model"`
	Messages    []chat.Turn           `json:"messages"`
	Temperature float64               `json:"temperature"`
	Tools       []chat.ToolDefinition `json:"tools,omitempty"`
	ToolChoice  string                `json:"tool_choice,omitempty"`
}

// Response is the first choice of a completion, flattened.
type Response struct {
	Content      string          `json:"content"`
	ToolCalls    []chat.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason"`
	Model        string          `json:"model"`
	TokensIn     int             `json:"tokens_in"`
	TokensOut    int             `json:"tokens_out"`
}

// Client sends a completion request. Implementations must bind the outgoing
// request to ctx and return an error for any non-success outcome, including
// an envelope without choices.
type Client interface {
	ChatCompletion(ctx context.Context, req Request) (*Response, error)
}
