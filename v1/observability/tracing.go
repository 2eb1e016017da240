package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingObserver emits one OpenTelemetry span per observed operation.
// Because events arrive after the operation has completed, spans are
// created with an explicit start timestamp back-dated by the reported
// duration, so span length in the trace matches the real operation time.
//
// The observer only uses the OpenTelemetry API; configuring an SDK and
// exporter is the embedding application's responsibility. Without an SDK
// installed the spans are no-ops.
//
// TracingObserver implements the Observer interface.
type TracingObserver struct {
	tracer trace.Tracer
}

// NewTracingObserver creates a TracingObserver using the globally
// registered OpenTelemetry tracer provider.
//
// Parameters:
//   - instrumentationName: The instrumentation scope name, typically the
//     importing package's module path
//
// Example:
//
//	observer := observability.NewTracingObserver("github.com/Aleph-Alpha/cluster")
//	client = client.WithObserver(observer)
func NewTracingObserver(instrumentationName string) *TracingObserver {
	return &TracingObserver{
		tracer: otel.Tracer(instrumentationName),
	}
}

// ObserveOperation records the event as a completed span.
func (o *TracingObserver) ObserveOperation(opCtx OperationContext) {
	start := time.Now().Add(-opCtx.Duration)

	_, span := o.tracer.Start(context.Background(), opCtx.Component+"."+opCtx.Operation,
		trace.WithTimestamp(start),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("component", opCtx.Component),
			attribute.String("resource", opCtx.Resource),
			attribute.String("sub_resource", opCtx.SubResource),
			attribute.Int64("size", opCtx.Size),
		),
	)

	if opCtx.Error != nil {
		span.RecordError(opCtx.Error)
		span.SetStatus(codes.Error, opCtx.Error.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End(trace.WithTimestamp(start.Add(opCtx.Duration)))
}
