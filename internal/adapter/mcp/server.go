// Package mcp exposes the chat tool registry and conversation history over
// the Model Context Protocol (streamable HTTP transport).
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/ChatForge/internal/domain/conversation"
	"github.com/Strob0t/ChatForge/internal/tools"
)

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name    string
	Version string
	APIKey  string // empty = no auth
}

// ConversationLister reads conversations for the conversations resource.
type ConversationLister interface {
	List(ctx context.Context) ([]conversation.Conversation, error)
}

// ServerDeps holds the collaborators exposed over MCP. A nil Conversations
// leaves the resource unavailable.
type ServerDeps struct {
	Registry      *tools.Registry
	Conversations ConversationLister
}

// Server wraps an mcp-go server configured with the ChatForge tools.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
}

// NewServer creates an MCP server and registers every registry tool and the
// conversations resource.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	if cfg.Name == "" {
		cfg.Name = "chatforge"
	}
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP handler, guarded by the API key when
// one is configured. It serves any path; mount it at the configured path.
func (s *Server) Handler() http.Handler {
	h := mcpserver.NewStreamableHTTPServer(s.mcpServer, mcpserver.WithStateLess(true))
	return AuthMiddleware(s.cfg.APIKey, h)
}
