package fsm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/amp-labs/amp-fsm/fsm"

// startDoItSpan creates the span covering one DoIt call.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startDoItSpan(ctx context.Context, engine, id string, from *State, in *Input) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fsm.doIt")
	span.SetAttributes(
		attribute.String("fsm.engine", engine),
		attribute.String("fsm.id", id),
		attribute.String("fsm.from", from.Name()),
		attribute.String("fsm.input", in.Name()),
	)

	return ctx, span
}

func setTransitionAttributes(span trace.Span, to *State, kind Kind, guard string) {
	span.SetAttributes(
		attribute.String("fsm.to", to.Name()),
		attribute.String("fsm.kind", string(kind)),
	)

	if guard != "" {
		span.SetAttributes(attribute.String("fsm.guard", guard))
	}
}
