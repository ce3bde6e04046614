package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateValidMessageCreated(t *testing.T) {
	data := []byte(`{"conversation_id":"c1","message_id":"m1","role":"assistant","content_length":12,"tool_executions":1}`)
	if err := Validate(SubjectMessageCreated, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidToolExecuted(t *testing.T) {
	data := []byte(`{"conversation_id":"c1","call_id":"call_1","tool":"get_weather","arguments":{"city":"Paris"}}`)
	if err := Validate(SubjectToolExecuted, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidCompletionFailed(t *testing.T) {
	data := []byte(`{"conversation_id":"c1","round":2,"status_code":503,"error":"upstream"}`)
	if err := Validate(SubjectCompletionFailed, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	err := Validate(SubjectMessageCreated, []byte(`{not json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateWrongFieldType(t *testing.T) {
	err := Validate(SubjectCompletionFailed, []byte(`{"conversation_id":"c1","round":"two"}`))
	if err == nil {
		t.Fatal("expected schema validation error")
	}
	if !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateMissingConversation(t *testing.T) {
	tests := []struct {
		subject string
		data    string
	}{
		{SubjectMessageCreated, `{"message_id":"m1"}`},
		{SubjectToolExecuted, `{"tool":"get_weather"}`},
		{SubjectCompletionFailed, `{"round":1,"error":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			err := Validate(tt.subject, []byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), "conversation_id is required") {
				t.Fatalf("expected missing conversation error, got %v", err)
			}
		})
	}
}

func TestValidateToolRequired(t *testing.T) {
	err := Validate(SubjectToolExecuted, []byte(`{"conversation_id":"c1","call_id":"x"}`))
	if err == nil || !strings.Contains(err.Error(), "tool is required") {
		t.Fatalf("expected tool required error, got %v", err)
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	if err := Validate("chat.something.else", []byte(`{"any":"thing"}`)); err != nil {
		t.Fatalf("unknown subjects should pass, got %v", err)
	}
}
