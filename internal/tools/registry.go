// Package tools provides the tool registry: the ordered catalog advertised
// to the model and the lookup from tool name to a local handler.
package tools

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Strob0t/ChatForge/internal/domain/chat"
)

// Handler executes a tool with parsed arguments. A non-nil error is reported
// to the model as a failed call and never aborts the completion loop.
type Handler func(ctx context.Context, args map[string]any) (any, error)

type entry struct {
	def     chat.ToolDefinition
	handler Handler
}

// Registry holds the available tools in registration order.
// Registration happens at startup; afterwards the registry is read-only and
// safe for concurrent use.
type Registry struct {
	order []string
	tools map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(def chat.ToolDefinition, h Handler) error {
	name := def.Function.Name
	if name == "" {
		return errors.New("tool name is required")
	}
	if h == nil {
		return fmt.Errorf("tool %q: handler is required", name)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = entry{def: def, handler: h}
	r.order = append(r.order, name)
	return nil
}

// Definitions returns the catalog in registration order.
func (r *Registry) Definitions() []chat.ToolDefinition {
	defs := make([]chat.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].def)
	}
	return defs
}

// Lookup returns the handler for name. Unknown names report false.
func (r *Registry) Lookup(name string) (Handler, bool) {
	e, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return e.handler, true
}

// Names returns the registered tool names in order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

// stringArg reads a string argument, returning "" when absent or not a string.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg reads a numeric argument. JSON numbers decode as float64 and are
// rounded up, so 3.7 counts as 4; integral strings and json.Number-like
// values are accepted as well.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(math.Ceil(v))
	case int:
		return v
	case int64:
		return int(v)
	case interface{ Int64() (int64, error) }:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
