package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Strob0t/ChatForge/internal/domain"
	"github.com/Strob0t/ChatForge/internal/logger"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "not found", err: fmt.Errorf("get conversation: %w", domain.ErrNotFound), status: http.StatusNotFound, message: "conversation not found"},
		{name: "conflict", err: domain.ErrConflict, status: http.StatusConflict, message: "resource was modified by another request"},
		{name: "validation", err: fmt.Errorf("send message: %w", fmt.Errorf("%w: content is required", domain.ErrValidation)), status: http.StatusBadRequest, message: "content is required"},
		{name: "deadline", err: fmt.Errorf("complete: %w", context.DeadlineExceeded), status: http.StatusGatewayTimeout, message: "request timed out"},
		{name: "internal", err: errors.New("pool closed"), status: http.StatusInternalServerError, message: "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/x", nil)
			req = req.WithContext(logger.WithRequestID(req.Context(), "req-42"))
			w := httptest.NewRecorder()

			writeDomainError(w, req, tt.err, "conversation not found")

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			var body errorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Error != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, body.Error)
			}
			if body.RequestID != "req-42" {
				t.Fatalf("expected request id in body, got %q", body.RequestID)
			}
		})
	}
}
