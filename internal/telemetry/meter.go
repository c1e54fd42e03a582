package telemetry

import (
	"context"
	"io"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

type Meter struct {
	provider   *sdkmetric.MeterProvider
	histograms *xsync.MapOf[string, metric.Int64Histogram]
	counters   *xsync.MapOf[string, metric.Int64Counter]
	metric.Meter
}

// NewMeter creates a meter for the configured exporter. With no exporter the meter is a no-op.
func NewMeter(ctx context.Context, opts *Options, res *resource.Resource, writer io.Writer) (*Meter, error) {
	exp, err := newMetricExporter(ctx, opts, writer)
	if err != nil {
		return nil, err
	}

	if exp == nil {
		return &Meter{}, nil
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)

	return &Meter{
		provider:   provider,
		Meter:      provider.Meter(opts.AppName),
		histograms: xsync.NewMapOf[string, metric.Int64Histogram](),
		counters:   xsync.NewMapOf[string, metric.Int64Counter](),
	}, nil
}

// Time runs fn and records its duration in milliseconds in the `<name>_duration` histogram.
func (meter *Meter) Time(ctx context.Context, name string, attrs map[string]any, fn func(ctx context.Context) error) error {
	if meter == nil || meter.Meter == nil {
		return fn(ctx)
	}

	started := time.Now()
	err := fn(ctx)

	histogram, histErr := meter.histogram(name + "_duration")
	if histErr == nil {
		histogram.Record(ctx, time.Since(started).Milliseconds(), metric.WithAttributes(mapToAttributes(attrs)...))
	}

	return err
}

// Count adds value to the `<name>_count` counter.
func (meter *Meter) Count(ctx context.Context, name string, value int64, attrs map[string]any) {
	if meter == nil || meter.Meter == nil {
		return
	}

	counter, err := meter.counter(name + "_count")
	if err != nil {
		return
	}

	counter.Add(ctx, value, metric.WithAttributes(mapToAttributes(attrs)...))
}

func (meter *Meter) histogram(name string) (metric.Int64Histogram, error) {
	var err error

	histogram, _ := meter.histograms.LoadOrCompute(name, func() metric.Int64Histogram {
		var histogram metric.Int64Histogram

		histogram, err = meter.Int64Histogram(name, metric.WithUnit("ms"))

		return histogram
	})

	return histogram, errors.WithStackTrace(err)
}

func (meter *Meter) counter(name string) (metric.Int64Counter, error) {
	var err error

	counter, _ := meter.counters.LoadOrCompute(name, func() metric.Int64Counter {
		var counter metric.Int64Counter

		counter, err = meter.Int64Counter(name)

		return counter
	})

	return counter, errors.WithStackTrace(err)
}

func newMetricExporter(ctx context.Context, opts *Options, writer io.Writer) (sdkmetric.Exporter, error) {
	switch opts.MetricExporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterConsole:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(writer))
		return exp, errors.WithStackTrace(err)
	case ExporterOTLPHTTP:
		var config []otlpmetrichttp.Option
		if opts.Endpoint != "" {
			config = append(config, otlpmetrichttp.WithEndpoint(opts.Endpoint))
		}

		if opts.Insecure {
			config = append(config, otlpmetrichttp.WithInsecure())
		}

		exp, err := otlpmetrichttp.New(ctx, config...)

		return exp, errors.WithStackTrace(err)
	case ExporterOTLPGRPC:
		var config []otlpmetricgrpc.Option
		if opts.Endpoint != "" {
			config = append(config, otlpmetricgrpc.WithEndpoint(opts.Endpoint))
		}

		if opts.Insecure {
			config = append(config, otlpmetricgrpc.WithInsecure())
		}

		exp, err := otlpmetricgrpc.New(ctx, config...)

		return exp, errors.WithStackTrace(err)
	}

	return nil, errors.New(UnknownExporterError{Kind: "metric", Name: opts.MetricExporter})
}
