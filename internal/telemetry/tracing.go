package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/statebox"
)

// TracerName is the instrumentation scope of the spans Tracing emits.
const TracerName = "github.com/roach88/statebox"

// Tracing emits one span per dispatch.
//
// Records arrive after the dispatch has finished, nested ones first, so
// spans are not parented to each other. The dispatch and parent IDs are
// carried as attributes instead.
type Tracing struct {
	tracer trace.Tracer
}

var _ statebox.Observer = (*Tracing)(nil)

// NewTracing creates a Tracing observer on tp. A nil tp uses the global
// provider from otel.GetTracerProvider.
func NewTracing(tp trace.TracerProvider) *Tracing {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracing{tracer: tp.Tracer(TracerName)}
}

// OnDispatch implements statebox.Observer.
func (t *Tracing) OnDispatch(rec statebox.Record) {
	attrs := []attribute.KeyValue{
		attribute.String("statebox.dispatch_id", rec.ID),
		attribute.Int64("statebox.seq", rec.Seq),
		attribute.String("statebox.action", rec.Action),
		attribute.String("statebox.outcome", string(rec.Outcome)),
		attribute.Bool("statebox.committed", rec.Committed),
		attribute.Int("statebox.notified", rec.Notified),
		attribute.Int("statebox.depth", rec.Depth),
	}
	if rec.ParentID != "" {
		attrs = append(attrs, attribute.String("statebox.parent_id", rec.ParentID))
	}

	_, span := t.tracer.Start(context.Background(), "dispatch "+rec.Action,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	if rec.Err != nil {
		span.RecordError(rec.Err)
	}

	// Rolled back dispatches keep an unset status.
	switch rec.Outcome {
	case statebox.OutcomeFailed, statebox.OutcomeAborted:
		span.SetStatus(codes.Error, fmt.Sprintf("dispatch %s", rec.Outcome))
	case statebox.OutcomeCompleted:
		span.SetStatus(codes.Ok, "")
	}
}
