// Tracing instrumentation for the agent loop.
package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/vinayprograms/agentmaker/internal/tools"
)

const instrumentationName = "github.com/vinayprograms/agentmaker/internal/agent"

// startRunSpan starts a span for a whole run.
func startRunSpan(ctx context.Context, runID string, maxSteps int) (context.Context, oteltrace.Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "agent.run")
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.Int("run.max_steps", maxSteps),
	)
	return ctx, span
}

// endRunSpan ends the run span with the final state.
func endRunSpan(span oteltrace.Span, state *RunState) {
	span.SetAttributes(
		attribute.String("run.status", state.Status),
		attribute.Int("run.steps", state.Step),
	)
	if state.Status == StatusFailed {
		span.SetStatus(codes.Error, state.Error)
	}
	span.End()
}

// startTurnSpan starts a span for one turn.
func startTurnSpan(ctx context.Context, turn int) (context.Context, oteltrace.Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "agent.turn")
	span.SetAttributes(attribute.Int("turn.index", turn))
	return ctx, span
}

// startToolSpan starts a span for a tool call.
func startToolSpan(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "tool."+name)
	span.SetAttributes(attribute.String("tool.name", name))
	return ctx, span
}

// endToolSpan ends the tool span with the call outcome.
func endToolSpan(span oteltrace.Span, result tools.Result) {
	span.SetAttributes(attribute.Bool("tool.success", result.Success))
	if !result.Success {
		span.SetAttributes(attribute.String("tool.error", result.Error))
	}
	span.End()
}
