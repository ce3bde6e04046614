package chat

import (
	"encoding/json"
	"fmt"
)

// CompletionError reports a transport-level failure during a round: network
// error, non-success status, or a malformed response envelope. It aborts the
// completion and is the only loop error surfaced to callers.
type CompletionError struct {
	Round      int
	StatusCode int // 0 when no HTTP status was received
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion round %d: status %d: %v", e.Round, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion round %d: %v", e.Round, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// ArgumentParseError reports a tool call whose argument payload is not a
// JSON object. The call is skipped; the round continues.
type ArgumentParseError struct {
	CallID string
	Tool   string
	Raw    string
	Err    error
}

func (e *ArgumentParseError) Error() string {
	return fmt.Sprintf("tool %q: invalid arguments: %v", e.Tool, e.Err)
}

func (e *ArgumentParseError) Unwrap() error { return e.Err }

// UnknownToolError reports a tool call naming no registered handler.
type UnknownToolError struct {
	CallID string
	Tool   string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q is not available", e.Tool)
}

// UnsupportedToolTypeError reports a call of a type other than "function".
type UnsupportedToolTypeError struct {
	CallID string
	Type   string
}

func (e *UnsupportedToolTypeError) Error() string {
	return fmt.Sprintf("tool call type %q is not supported", e.Type)
}

// ToolExecutionError is returned by a handler that could not produce a result.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// ErrorContent renders err as the JSON body of a tool turn so the model can
// see why a call produced no result.
func ErrorContent(err error) string {
	data, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return `{"error":"tool call failed"}`
	}
	return string(data)
}
