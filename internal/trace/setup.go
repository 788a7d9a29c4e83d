package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Options controls exporter selection.
type Options struct {
	ServiceName string
	Enabled     bool
	// Endpoint is an OTLP gRPC collector address; empty exports to stdout.
	Endpoint string
}

// Runtime stores the initialized tracer and its shutdown hook.
type Runtime struct {
	Tracer   oteltrace.Tracer
	Shutdown func(context.Context) error
}

// Setup installs a global tracer provider when tracing is enabled. When it is
// disabled the global (no-op by default) tracer is returned unchanged.
func Setup(ctx context.Context, opts Options) (Runtime, error) {
	noop := Runtime{
		Tracer:   otel.Tracer(tracerName),
		Shutdown: func(context.Context) error { return nil },
	}
	if !opts.Enabled {
		return noop, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", opts.ServiceName)),
	)
	if err != nil {
		return Runtime{}, fmt.Errorf("otel resource: %w", err)
	}

	var exp sdktrace.SpanExporter
	if opts.Endpoint != "" {
		exp, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(opts.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return Runtime{}, fmt.Errorf("otel otlp exporter: %w", err)
		}
	} else {
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return Runtime{}, fmt.Errorf("otel stdout exporter: %w", err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return Runtime{
		Tracer:   tp.Tracer(tracerName),
		Shutdown: tp.Shutdown,
	}, nil
}
