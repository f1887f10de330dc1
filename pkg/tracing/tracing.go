// Package tracing wraps go.opentelemetry.io/otel/trace in the two
// shapes pkg/executor and pkg/facade need: one span per operation
// execution, one span per aggregator call, stitched into a single
// end-to-end trace for a facade run. The source has no tracing of its
// own to port from — this is a supplemented ambient concern, carried
// because the rest of the stack (zap, prometheus) is real
// instrumentation rather than print statements.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this module's spans in whatever exporter the
// embedding application wires up; it deliberately does not claim a
// package import path that would leak the module's origin.
const tracerName = "crossdb-query-orchestrator"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSession opens the root span for one facade run, tagging it with
// the session ID threaded through every progress.Event.
func StartSession(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "crossdb.session",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
}

// StartOperation opens a child span for one executor operation.
func StartOperation(ctx context.Context, operationID, kind string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "crossdb.operation",
		trace.WithAttributes(
			attribute.String("operation_id", operationID),
			attribute.String("backend_kind", kind),
		))
}

// StartAggregation opens a child span for one aggregator call (merge,
// join, group_by, or a stream_aggregation chunk round).
func StartAggregation(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "crossdb.aggregate",
		trace.WithAttributes(attribute.String("aggregation_op", op)))
}

// End records err (if any) on span and closes it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
