// Package telemetry holds the OpenTelemetry instruments used by the canvas
// engine: a span per layout run and counters for committed commands.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName is the tracer and meter name.
const InstrumentationName = "hcanvas"

// Instruments records layout spans and command metrics. The zero value is
// not usable; use New, Global or Noop.
type Instruments struct {
	tracer trace.Tracer

	// commands counts committed commands by name
	commands metric.Int64Counter

	// layoutDuration records layout run time in milliseconds
	layoutDuration metric.Float64Histogram

	// sceneNodes records the node count after each layout
	sceneNodes metric.Int64Histogram
}

// New creates the instruments from explicit providers.
func New(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	meter := mp.Meter(InstrumentationName)
	in := &Instruments{tracer: tp.Tracer(InstrumentationName)}

	var err error
	in.commands, err = meter.Int64Counter(
		"canvas.commands",
		metric.WithDescription("Committed canvas commands"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create command counter: %w", err)
	}

	in.layoutDuration, err = meter.Float64Histogram(
		"canvas.layout.duration",
		metric.WithDescription("Layout run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create layout histogram: %w", err)
	}

	in.sceneNodes, err = meter.Int64Histogram(
		"canvas.layout.nodes",
		metric.WithDescription("Nodes produced by a layout run"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create node histogram: %w", err)
	}
	return in, nil
}

// Global creates the instruments from the globally registered providers.
func Global() (*Instruments, error) {
	return New(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// Noop returns instruments that record nothing.
func Noop() *Instruments {
	in, err := New(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	if err != nil {
		// The noop providers never fail.
		panic(err)
	}
	return in
}

// LayoutRun is an in-flight layout span.
type LayoutRun struct {
	in     *Instruments
	ctx    context.Context
	span   trace.Span
	engine string
	start  time.Time
}

// StartLayout opens a span for a layout run.
func (in *Instruments) StartLayout(ctx context.Context, engine string, entities, relationships int) *LayoutRun {
	ctx, span := in.tracer.Start(ctx, "canvas.layout",
		trace.WithAttributes(
			attribute.String("layout.engine", engine),
			attribute.Int("layout.entities", entities),
			attribute.Int("layout.relationships", relationships),
		),
	)
	return &LayoutRun{in: in, ctx: ctx, span: span, engine: engine, start: time.Now()}
}

// Step records one chunk of an incremental run.
func (r *LayoutRun) Step(n int, done bool) {
	r.span.AddEvent("layout.step", trace.WithAttributes(
		attribute.Int("layout.step_size", n),
		attribute.Bool("layout.done", done),
	))
}

// End closes the span. Cancelled runs are marked as errors and record no
// metrics.
func (r *LayoutRun) End(nodes int, cancelled bool) {
	defer r.span.End()
	r.span.SetAttributes(attribute.Int("layout.nodes", nodes))
	if cancelled {
		r.span.SetStatus(codes.Error, "layout cancelled")
		return
	}
	r.span.SetStatus(codes.Ok, "")
	opts := metric.WithAttributes(attribute.String("layout.engine", r.engine))
	r.in.layoutDuration.Record(r.ctx, float64(time.Since(r.start).Microseconds())/1000, opts)
	r.in.sceneNodes.Record(r.ctx, int64(nodes), opts)
}

// Command counts a committed command.
func (in *Instruments) Command(ctx context.Context, name string) {
	in.commands.Add(ctx, 1, metric.WithAttributes(attribute.String("command", name)))
}
