package telemetry

import (
	"context"
	"io"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Tracer struct {
	provider *sdktrace.TracerProvider
	trace.Tracer
}

// NewTracer creates a tracer for the configured exporter. With no exporter the tracer is a no-op.
func NewTracer(ctx context.Context, opts *Options, res *resource.Resource, writer io.Writer) (*Tracer, error) {
	exp, err := newTraceExporter(ctx, opts, writer)
	if err != nil {
		return nil, err
	}

	if exp == nil {
		return &Tracer{}, nil
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	return &Tracer{provider: provider, Tracer: provider.Tracer(opts.AppName)}, nil
}

// Trace runs fn inside a span named name.
func (tracer *Tracer) Trace(ctx context.Context, name string, attrs map[string]any, fn func(ctx context.Context) error) error {
	if tracer == nil || tracer.Tracer == nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(mapToAttributes(attrs)...))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	return nil
}

func newTraceExporter(ctx context.Context, opts *Options, writer io.Writer) (sdktrace.SpanExporter, error) {
	switch opts.TraceExporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterConsole:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(writer))
		return exp, errors.WithStackTrace(err)
	case ExporterOTLPHTTP:
		var config []otlptracehttp.Option
		if opts.Endpoint != "" {
			config = append(config, otlptracehttp.WithEndpoint(opts.Endpoint))
		}

		if opts.Insecure {
			config = append(config, otlptracehttp.WithInsecure())
		}

		exp, err := otlptracehttp.New(ctx, config...)

		return exp, errors.WithStackTrace(err)
	case ExporterOTLPGRPC:
		var config []otlptracegrpc.Option
		if opts.Endpoint != "" {
			config = append(config, otlptracegrpc.WithEndpoint(opts.Endpoint))
		}

		if opts.Insecure {
			config = append(config, otlptracegrpc.WithInsecure())
		}

		exp, err := otlptracegrpc.New(ctx, config...)

		return exp, errors.WithStackTrace(err)
	}

	return nil, errors.New(UnknownExporterError{Kind: "trace", Name: opts.TraceExporter})
}
