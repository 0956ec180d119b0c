package guard

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/flowgate/pkg/gate"
)

// Span attribute keys for guarded calls.
const (
	AttrResource  = attribute.Key("flowgate.resource")
	AttrEntryType = attribute.Key("flowgate.entry_type")
	AttrOutcome   = attribute.Key("flowgate.outcome")
	AttrReason    = attribute.Key("flowgate.block_reason")
)

func (g *Guard) startSpan(ctx context.Context, res gate.Resource) (context.Context, trace.Span) {
	kind := trace.SpanKindClient
	if res.EntryType() == gate.Inbound {
		kind = trace.SpanKindServer
	}
	return g.tracer.Start(ctx, "guard/"+res.Name(),
		trace.WithSpanKind(kind),
		trace.WithAttributes(
			AttrResource.String(res.Name()),
			AttrEntryType.String(res.EntryType().String()),
		),
	)
}

func endSpan(span trace.Span, outcome Outcome, err error) {
	span.SetAttributes(AttrOutcome.String(outcome.String()))

	switch outcome {
	case OutcomeFailed:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case OutcomeBlocked:
		// A block is flow control, not a failure.
		if blocked, ok := err.(*gate.BlockError); ok {
			span.AddEvent("blocked", trace.WithAttributes(AttrReason.String(blocked.Reason)))
		}
	}
	span.End()
}
