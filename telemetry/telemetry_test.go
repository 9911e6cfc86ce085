package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recorder(t *testing.T) (*Instruments, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	in, err := New(tp, noop.NewMeterProvider())
	require.NoError(t, err)
	return in, sr
}

func TestLayoutSpan(t *testing.T) {
	in, sr := recorder(t)

	run := in.StartLayout(context.Background(), "containment-grid", 50, 12)
	run.Step(10, false)
	run.Step(10, true)
	run.End(50, false)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "canvas.layout", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
	assert.Contains(t, span.Attributes(), attribute.String("layout.engine", "containment-grid"))
	assert.Contains(t, span.Attributes(), attribute.Int("layout.nodes", 50))
	assert.Len(t, span.Events(), 2)
}

func TestCancelledLayoutSpan(t *testing.T) {
	in, sr := recorder(t)
	in.StartLayout(context.Background(), "force-directed", 3, 0).End(0, true)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestNoopInstruments(t *testing.T) {
	in := Noop()
	assert.NotPanics(t, func() {
		in.Command(context.Background(), "undo")
		in.StartLayout(context.Background(), "tree", 1, 0).End(1, false)
	})
}
