package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "chatforge"

// Metrics holds all ChatForge metric instruments.
type Metrics struct {
	Completions       metric.Int64Counter
	CompletionRounds  metric.Int64Counter
	CompletionsFailed metric.Int64Counter
	Fallbacks         metric.Int64Counter
	ToolCalls         metric.Int64Counter
	ToolErrors        metric.Int64Counter
	CompletionLatency metric.Float64Histogram
	TokensUsed        metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Completions, err = meter.Int64Counter("chatforge.completions",
		metric.WithDescription("Number of completions started"))
	if err != nil {
		return nil, err
	}

	m.CompletionRounds, err = meter.Int64Counter("chatforge.completion.rounds",
		metric.WithDescription("Number of requests sent to the completion endpoint"))
	if err != nil {
		return nil, err
	}

	m.CompletionsFailed, err = meter.Int64Counter("chatforge.completions.failed",
		metric.WithDescription("Number of completions aborted by a transport failure"))
	if err != nil {
		return nil, err
	}

	m.Fallbacks, err = meter.Int64Counter("chatforge.completions.fallback",
		metric.WithDescription("Number of completions answered with the fallback text"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("chatforge.toolcalls",
		metric.WithDescription("Number of tool calls requested by the model"))
	if err != nil {
		return nil, err
	}

	m.ToolErrors, err = meter.Int64Counter("chatforge.toolcalls.errors",
		metric.WithDescription("Number of tool calls that produced an error result"))
	if err != nil {
		return nil, err
	}

	m.CompletionLatency, err = meter.Float64Histogram("chatforge.completion.duration_seconds",
		metric.WithDescription("Completion duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.TokensUsed, err = meter.Int64Counter("chatforge.completion.tokens",
		metric.WithDescription("Tokens reported by the completion endpoint"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
