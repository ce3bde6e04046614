package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// conversationsURI lists conversations, most recently updated first.
const conversationsURI = "chatforge://conversations"

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			conversationsURI,
			"Conversations",
			mcplib.WithResourceDescription("Chat conversations ordered by last activity"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleConversationsResource,
	)
}

func (s *Server) handleConversationsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	text := `{"error":"conversations not configured"}`
	if s.deps.Conversations != nil {
		convs, err := s.deps.Conversations.List(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(convs)
		if err != nil {
			return nil, err
		}
		text = string(data)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     text,
		},
	}, nil
}
