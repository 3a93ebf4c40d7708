package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stationflow/internal/graph"
)

const tracerName = "stationflow.engine"

// Telemetry wraps an otel.Tracer with the execution/step span bookkeeping
// the driver loop needs. A nil *Telemetry is a valid no-op: its methods
// return early on a nil receiver, so callers that don't wire one simply
// skip span creation.
type Telemetry struct {
	tracer trace.Tracer

	mu          sync.Mutex
	runSpans    map[string]trace.Span
}

// NewTelemetry constructs a Telemetry backed by the global otel tracer
// provider. Callers that want tracing disabled entirely should pass a
// nil *Telemetry to NewEngine rather than calling this.
func NewTelemetry() *Telemetry {
	return &Telemetry{
		tracer:   otel.Tracer(tracerName),
		runSpans: make(map[string]trace.Span),
	}
}

func (t *Telemetry) startRun(ctx context.Context, executionID string, wf *graph.Workflow) context.Context {
	if t == nil {
		return ctx
	}
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("execution.run.%s", wf.Name),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("execution.id", executionID),
			attribute.Int64("workflow.id", wf.ID),
			attribute.String("workflow.name", wf.Name),
		),
	)
	t.mu.Lock()
	t.runSpans[executionID] = span
	t.mu.Unlock()
	return ctx
}

func (t *Telemetry) endRun(executionID string, status string, err error) {
	if t == nil {
		return
	}
	t.mu.Lock()
	span, ok := t.runSpans[executionID]
	delete(t.runSpans, executionID)
	t.mu.Unlock()
	if !ok || span == nil {
		return
	}
	span.SetAttributes(attribute.String("execution.status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, status)
	}
	span.End()
}

func (t *Telemetry) startStep(ctx context.Context, executionID string, step graph.Step) (context.Context, trace.Span) {
	if t == nil {
		return ctx, nil
	}
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("execution.step.%s", step.StepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("execution.id", executionID),
			attribute.String("step.id", step.StepID),
			attribute.String("step.action_type", string(step.ActionType)),
		),
	)
	return ctx, span
}

func endStep(span trace.Span, status string, dur time.Duration, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.String("step.status", status),
		attribute.Float64("step.duration_seconds", dur.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, status)
	}
	span.End()
}
