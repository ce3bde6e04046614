package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	cfotel "github.com/Strob0t/ChatForge/internal/adapter/otel"
	"github.com/Strob0t/ChatForge/internal/config"
	"github.com/Strob0t/ChatForge/internal/domain/chat"
	"github.com/Strob0t/ChatForge/internal/port/completion"
	"github.com/Strob0t/ChatForge/internal/tools"
)

// FallbackResponse is returned when the model produced no usable answer
// within the round cap.
const FallbackResponse = "I apologize, but I was unable to generate a response."

// DefaultMaxRounds bounds the tool-calling loop when no cap is configured.
const DefaultMaxRounds = 8

// ExecutionObserver is notified after each tool call that ran a handler.
// Calls arrive in the order the model requested them and never after the
// completion context is cancelled.
type ExecutionObserver interface {
	OnToolExecution(ctx context.Context, exec chat.ToolExecution)
}

// ObserverFunc adapts a function to ExecutionObserver.
type ObserverFunc func(ctx context.Context, exec chat.ToolExecution)

// OnToolExecution calls f.
func (f ObserverFunc) OnToolExecution(ctx context.Context, exec chat.ToolExecution) {
	f(ctx, exec)
}

// CompletionService runs the tool-calling loop against a remote model.
// It keeps no per-call state and is safe for concurrent use.
type CompletionService struct {
	client   completion.Client
	registry *tools.Registry
	cfg      *config.LLM
	metrics  *cfotel.Metrics
}

// NewCompletionService creates a CompletionService.
func NewCompletionService(client completion.Client, registry *tools.Registry, cfg *config.LLM) *CompletionService {
	return &CompletionService{
		client:   client,
		registry: registry,
		cfg:      cfg,
	}
}

// SetMetrics attaches OpenTelemetry instruments.
func (s *CompletionService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
}

// Tools returns the catalog advertised to the model.
func (s *CompletionService) Tools() []chat.ToolDefinition {
	return s.registry.Definitions()
}

// Model returns the configured model identifier.
func (s *CompletionService) Model() string {
	return s.cfg.Model
}

func (s *CompletionService) maxRounds() int {
	if s.cfg.MaxRounds > 0 {
		return s.cfg.MaxRounds
	}
	return DefaultMaxRounds
}

// Complete sends history, preceded by the system prompt, to the model and
// executes requested tools until the model answers with text or the round
// cap is reached. observer may be nil.
//
// Only transport failures (as *chat.CompletionError) and cancellation
// (ctx.Err()) are returned as errors. Malformed arguments, unknown tools and
// failing handlers are answered with an error tool turn and the loop goes on.
func (s *CompletionService) Complete(ctx context.Context, history []chat.Turn, observer ExecutionObserver) (*chat.Result, error) {
	ctx, span := cfotel.StartCompletionSpan(ctx, s.cfg.Model, len(history))
	defer span.End()

	start := time.Now()
	if s.metrics != nil {
		s.metrics.Completions.Add(ctx, 1)
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.CompletionLatency.Record(ctx, time.Since(start).Seconds())
		}
	}()

	turns := make([]chat.Turn, 0, len(history)+1)
	turns = append(turns, chat.SystemTurn(s.cfg.SystemPrompt))
	turns = append(turns, history...)
	defs := s.registry.Definitions()

	result := &chat.Result{Executions: []chat.ToolExecution{}}
	maxRounds := s.maxRounds()

	for round := 1; round <= maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Rounds = round

		resp, err := s.send(ctx, round, turns, defs)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "completion failed")
			if s.metrics != nil {
				s.metrics.CompletionsFailed.Add(ctx, 1)
			}
			slog.ErrorContext(ctx, "completion round failed",
				"round", round,
				"error", err,
			)
			return nil, err
		}

		if requestsTools(resp) {
			turns = append(turns, chat.Turn{
				Role:      chat.RoleAssistant,
				Content:   resp.Content,
				ToolCalls: resp.ToolCalls,
			})
			toolTurns, execs, err := s.runTools(ctx, round, resp.ToolCalls, observer)
			if err != nil {
				return nil, err
			}
			turns = append(turns, toolTurns...)
			result.Executions = append(result.Executions, execs...)
			continue
		}

		if resp.Content != "" {
			result.Content = resp.Content
			span.SetAttributes(
				attribute.Int("completion.rounds", round),
				attribute.Int("completion.tool_executions", len(result.Executions)),
			)
			return result, nil
		}

		if isTerminal(resp.FinishReason) {
			slog.WarnContext(ctx, "completion ended without content",
				"round", round,
				"finish_reason", resp.FinishReason,
			)
			return s.fallback(ctx, result), nil
		}

		slog.DebugContext(ctx, "degenerate completion round",
			"round", round,
			"finish_reason", resp.FinishReason,
		)
	}

	slog.WarnContext(ctx, "completion round cap reached",
		"max_rounds", maxRounds,
		"tool_executions", len(result.Executions),
	)
	return s.fallback(ctx, result), nil
}

// send performs one round trip and wraps any failure in a CompletionError.
func (s *CompletionService) send(ctx context.Context, round int, turns []chat.Turn, defs []chat.ToolDefinition) (*completion.Response, error) {
	ctx, span := cfotel.StartRoundSpan(ctx, round)
	defer span.End()
	if s.metrics != nil {
		s.metrics.CompletionRounds.Add(ctx, 1)
	}

	resp, err := s.client.ChatCompletion(ctx, completion.Request{
		Model:       s.cfg.Model,
		Messages:    turns,
		Temperature: s.cfg.Temperature,
		Tools:       defs,
		ToolChoice:  completion.ToolChoiceAuto,
	})
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "round failed")
		return nil, &chat.CompletionError{Round: round, StatusCode: httpStatus(err), Err: err}
	}

	span.SetAttributes(
		attribute.String("completion.finish_reason", resp.FinishReason),
		attribute.Int("completion.tool_calls", len(resp.ToolCalls)),
	)
	if s.metrics != nil {
		s.metrics.TokensUsed.Add(ctx, int64(resp.TokensIn), metric.WithAttributes(attribute.String("direction", "in")))
		s.metrics.TokensUsed.Add(ctx, int64(resp.TokensOut), metric.WithAttributes(attribute.String("direction", "out")))
	}
	return resp, nil
}

// callOutcome is the result of resolving and running a single tool call.
// exec is nil when no handler ran.
type callOutcome struct {
	turn chat.Turn
	exec *chat.ToolExecution
}

// runTools answers every call with exactly one tool turn, in call order.
func (s *CompletionService) runTools(ctx context.Context, round int, calls []chat.ToolCall, observer ExecutionObserver) ([]chat.Turn, []chat.ToolExecution, error) {
	turns := make([]chat.Turn, 0, len(calls))
	execs := make([]chat.ToolExecution, 0, len(calls))

	emit := func(o callOutcome) error {
		turns = append(turns, o.turn)
		if o.exec == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		execs = append(execs, *o.exec)
		if observer != nil {
			observer.OnToolExecution(ctx, *o.exec)
		}
		return nil
	}

	if !s.cfg.ParallelTools || len(calls) == 1 {
		for i := range calls {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			if err := emit(s.runCall(ctx, round, calls[i])); err != nil {
				return nil, nil, err
			}
		}
		return turns, execs, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	outcomes := make([]callOutcome, len(calls))
	var g errgroup.Group
	for i := range calls {
		g.Go(func() error {
			outcomes[i] = s.runCall(ctx, round, calls[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if err := emit(o); err != nil {
			return nil, nil, err
		}
	}
	return turns, execs, nil
}

// runCall parses, resolves and executes one call. Failures become an error
// tool turn; they never abort the round.
func (s *CompletionService) runCall(ctx context.Context, round int, call chat.ToolCall) callOutcome {
	name := call.Function.Name
	ctx, span := cfotel.StartToolCallSpan(ctx, call.ID, name)
	defer span.End()
	toolAttr := metric.WithAttributes(attribute.String("tool", name))
	if s.metrics != nil {
		s.metrics.ToolCalls.Add(ctx, 1, toolAttr)
	}

	fail := func(err error) chat.Turn {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tool call failed")
		if s.metrics != nil {
			s.metrics.ToolErrors.Add(ctx, 1, toolAttr)
		}
		slog.WarnContext(ctx, "tool call failed",
			"round", round,
			"call_id", call.ID,
			"tool", name,
			"error", err,
		)
		return chat.ToolResultTurn(call.ID, name, chat.ErrorContent(err))
	}

	if call.Type != chat.ToolTypeFunction {
		return callOutcome{turn: fail(&chat.UnsupportedToolTypeError{CallID: call.ID, Type: call.Type})}
	}

	args, err := parseArguments(call.Function.Arguments)
	if err != nil {
		return callOutcome{turn: fail(&chat.ArgumentParseError{
			CallID: call.ID, Tool: name, Raw: call.Function.Arguments, Err: err,
		})}
	}

	handler, ok := s.registry.Lookup(name)
	if !ok {
		return callOutcome{turn: fail(&chat.UnknownToolError{CallID: call.ID, Tool: name})}
	}

	exec := &chat.ToolExecution{CallID: call.ID, Name: name, Arguments: args}
	out, err := handler(ctx, args)
	if err != nil {
		terr := &chat.ToolExecutionError{Tool: name, Err: err}
		exec.Error = terr.Error()
		return callOutcome{turn: fail(terr), exec: exec}
	}

	content, err := json.Marshal(out)
	if err != nil {
		terr := &chat.ToolExecutionError{Tool: name, Err: fmt.Errorf("encode result: %w", err)}
		exec.Error = terr.Error()
		return callOutcome{turn: fail(terr), exec: exec}
	}

	exec.Result = out
	slog.DebugContext(ctx, "tool executed",
		"round", round,
		"call_id", call.ID,
		"tool", name,
	)
	return callOutcome{turn: chat.ToolResultTurn(call.ID, name, string(content)), exec: exec}
}

func (s *CompletionService) fallback(ctx context.Context, result *chat.Result) *chat.Result {
	if s.metrics != nil {
		s.metrics.Fallbacks.Add(ctx, 1)
	}
	result.Content = FallbackResponse
	result.Fallback = true
	return result
}

// parseArguments decodes a raw argument payload into an object. An empty
// payload or JSON null is an empty object.
func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// requestsTools reports whether the model asked for tool calls. Calls sent
// alongside any other finish reason are ignored; an absent reason counts as
// a request.
func requestsTools(resp *completion.Response) bool {
	if len(resp.ToolCalls) == 0 {
		return false
	}
	return resp.FinishReason == chat.FinishToolCalls || resp.FinishReason == ""
}

// isTerminal reports whether a finish reason ends the exchange.
func isTerminal(reason string) bool {
	return reason != "" && reason != chat.FinishToolCalls
}

// httpStatus extracts a status code from errors that carry one.
func httpStatus(err error) int {
	var se interface{ HTTPStatus() int }
	if errors.As(err, &se) {
		return se.HTTPStatus()
	}
	return 0
}
