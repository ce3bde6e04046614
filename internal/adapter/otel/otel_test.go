package otel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Strob0t/ChatForge/internal/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.OTEL{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewMetrics(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	if m.Completions == nil || m.ToolCalls == nil || m.Fallbacks == nil || m.CompletionLatency == nil {
		t.Fatal("expected all instruments to be created")
	}
}

func TestSpansWithNoopProvider(t *testing.T) {
	ctx, span := StartCompletionSpan(context.Background(), "m", 3)
	_, round := StartRoundSpan(ctx, 1)
	_, call := StartToolCallSpan(ctx, "call_1", "get_weather")
	call.End()
	round.End()
	span.End()
}

func TestHTTPMiddlewarePassesThrough(t *testing.T) {
	h := HTTPMiddleware("chatforge")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
}

func TestHTTPClientKeepsTimeout(t *testing.T) {
	base := &http.Client{Timeout: 42}
	c := HTTPClient(base)
	if c.Timeout != 42 {
		t.Fatalf("expected timeout to be preserved, got %v", c.Timeout)
	}
	if c.Transport == nil || c == base {
		t.Fatal("expected a wrapped copy")
	}
}
