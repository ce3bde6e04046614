package chat

// ToolDefinition advertises a callable tool to the model (OpenAI format).
type ToolDefinition struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec describes the function signature of a tool.
type FunctionSpec struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// Parameters is the JSON-schema object describing tool arguments.
// It is advertised only; arguments are not validated against it locally.
type Parameters struct {
	Type       string              `json:"type"`
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// Property describes one argument field.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// NewFunctionTool builds a function ToolDefinition.
func NewFunctionTool(name, description string, required []string, props map[string]Property) ToolDefinition {
	if required == nil {
		required = []string{}
	}
	return ToolDefinition{
		Type: ToolTypeFunction,
		Function: FunctionSpec{
			Name:        name,
			Description: description,
			Parameters: Parameters{
				Type:       "object",
				Required:   required,
				Properties: props,
			},
		},
	}
}

// ToolExecution records one executed tool call. It drives live progress
// display and is attached to the final assistant message as an audit trail.
type ToolExecution struct {
	CallID    string         `json:"call_id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    any            `json:"result"`
	Error     string         `json:"error,omitempty"`
}

// Result is the outcome of one completion: the final text and every tool
// execution performed while producing it.
type Result struct {
	Content    string          `json:"content"`
	Executions []ToolExecution `json:"executions"`
	Rounds     int             `json:"rounds"`
	Fallback   bool            `json:"fallback"`
}
