package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "lensd"

// Tracer returns the tracer for the service.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// LensAttributes returns common attributes for a per-model lens span.
func LensAttributes(model string, tasks int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("lens.model", model),
		attribute.Int("lens.tasks", tasks),
	}
}

// StartLensSpan starts a span covering one model group of a lens request.
func StartLensSpan(ctx context.Context, model string, tasks int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "lens.trace",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(LensAttributes(model, tasks)...),
	)
}

// StartEngineSpan starts a client span for one call to the tracing engine.
func StartEngineSpan(ctx context.Context, op, model string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "engine."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("engine.op", op),
			attribute.String("engine.model", model),
		),
	)
}

// End records err on span (if any) and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
