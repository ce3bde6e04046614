package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chatforge"

// StartCompletionSpan starts a span covering a whole completion.
func StartCompletionSpan(ctx context.Context, model string, historyLen int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "completion",
		trace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.Int("completion.history_len", historyLen),
		),
	)
}

// StartRoundSpan starts a span for one request to the completion endpoint.
func StartRoundSpan(ctx context.Context, round int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "completion.round",
		trace.WithAttributes(attribute.Int("completion.round", round)),
	)
}

// StartToolCallSpan starts a span for a tool call within a round.
func StartToolCallSpan(ctx context.Context, callID, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "toolcall",
		trace.WithAttributes(
			attribute.String("toolcall.id", callID),
			attribute.String("toolcall.tool", tool),
		),
	)
}

// StartSendMessageSpan starts a span for a user message exchange.
func StartSendMessageSpan(ctx context.Context, conversationID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "conversation.send_message",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)),
	)
}
