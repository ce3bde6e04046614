package http

import (
	"github.com/Strob0t/ChatForge/internal/adapter/moonshot"
	"github.com/Strob0t/ChatForge/internal/service"
)

// Limits bounds request handling.
type Limits struct {
	MaxRequestBodySize int64
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Conversations *service.ConversationService
	Completion    *service.CompletionService
	LLM           *moonshot.Client
	HealthChecks  []HealthCheck
	Limits        Limits
	Version       string
}
