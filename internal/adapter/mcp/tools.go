package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/ChatForge/internal/domain/chat"
)

// registerTools registers one MCP tool per registry entry, in catalog order.
func (s *Server) registerTools() {
	if s.deps.Registry == nil {
		return
	}
	defs := s.deps.Registry.Definitions()
	serverTools := make([]mcpserver.ServerTool, 0, len(defs))
	for i := range defs {
		st, err := s.serverTool(defs[i])
		if err != nil {
			slog.Error("mcp: skipping tool", "tool", defs[i].Function.Name, "error", err)
			continue
		}
		serverTools = append(serverTools, st)
	}
	s.mcpServer.AddTools(serverTools...)
}

func (s *Server) serverTool(def chat.ToolDefinition) (mcpserver.ServerTool, error) {
	schema, err := json.Marshal(def.Function.Parameters)
	if err != nil {
		return mcpserver.ServerTool{}, fmt.Errorf("marshal schema: %w", err)
	}
	name := def.Function.Name
	return mcpserver.ServerTool{
		Tool:    mcplib.NewToolWithRawSchema(name, def.Function.Description, schema),
		Handler: s.toolHandler(name),
	}, nil
}

// toolHandler runs the registry handler for name. Handler failures become
// MCP error results; the protocol-level error is reserved for transport.
func (s *Server) toolHandler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
		handler, ok := s.deps.Registry.Lookup(name)
		if !ok {
			return mcplib.NewToolResultError(fmt.Sprintf("unknown tool %q", name)), nil
		}
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		out, err := handler(ctx, args)
		if err != nil {
			return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("tool %s failed", name), err), nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
		}
		return mcplib.NewToolResultText(string(data)), nil
	}
}
