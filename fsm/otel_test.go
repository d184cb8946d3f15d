package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer creates a test tracer with an in-memory exporter.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))

	oldProvider := otel.GetTracerProvider()

	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(oldProvider)
	})

	return exporter
}

func spanAttributes(span tracetest.SpanStub) map[attribute.Key]string {
	out := make(map[attribute.Key]string, len(span.Attributes))
	for _, kv := range span.Attributes {
		out[kv.Key] = kv.Value.Emit()
	}

	return out
}

// Note: Cannot use t.Parallel() because setupTestTracer modifies the global OTEL tracer provider.
//
//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestDoItSpans(t *testing.T) {
	exporter := setupTestTracer(t)

	s1 := NewState("s1")
	s2 := NewState("s2")
	in := NewInput("in")
	unknown := NewInput("unknown")

	engine := newTestEngine(t, "spans").
		AddGuarded(s1, NamedGuard("ready", result(Enabled)), in, nil, s2)

	m, err := New(engine, s1, &session{}, WithID("fsm-1"))
	require.NoError(t, err)

	require.NoError(t, m.DoIt(t.Context(), in))
	require.Error(t, m.DoIt(t.Context(), unknown))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "fsm.doIt", ok.Name)
	assert.Equal(t, map[attribute.Key]string{
		"fsm.engine": "spans",
		"fsm.id":     "fsm-1",
		"fsm.from":   "s1",
		"fsm.input":  "in",
		"fsm.to":     "s2",
		"fsm.kind":   "guarded",
		"fsm.guard":  "ready",
	}, spanAttributes(ok))
	assert.Equal(t, codes.Unset, ok.Status.Code)

	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status.Code)
	assert.Equal(t, "s2", spanAttributes(failed)["fsm.from"])
	require.Len(t, failed.Events, 1)
	assert.Equal(t, "exception", failed.Events[0].Name)
}
