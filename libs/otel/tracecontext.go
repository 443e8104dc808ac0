package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceFields is the W3C trace context stored next to an outbox row so the
// publisher can continue the trace that wrote it.
type TraceFields struct {
	Parent string
	State  string
}

func TraceFieldsFrom(ctx context.Context) TraceFields {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceFields{Parent: carrier.Get("traceparent"), State: carrier.Get("tracestate")}
}

// Context returns ctx carrying f as the remote parent. Empty fields leave ctx unchanged.
func (f TraceFields) Context(ctx context.Context) context.Context {
	if f.Parent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": f.Parent}
	if f.State != "" {
		carrier["tracestate"] = f.State
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
