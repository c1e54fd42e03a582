// Package telemetry collects traces and timing metrics of a run: one span per run phase and per job.
package telemetry

import (
	"context"
	"io"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
)

type Telemeter struct {
	*Tracer
	*Meter
}

// NewTelemeter initializes the telemetry collector. Console exporters write to writer.
func NewTelemeter(ctx context.Context, opts *Options, writer io.Writer) (*Telemeter, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", opts.AppName),
		attribute.String("service.version", opts.AppVersion),
	)

	tracer, err := NewTracer(ctx, opts, res, writer)
	if err != nil {
		return nil, err
	}

	meter, err := NewMeter(ctx, opts, res, writer)
	if err != nil {
		return nil, err
	}

	return &Telemeter{Tracer: tracer, Meter: meter}, nil
}

// Shutdown flushes and stops the providers.
func (tlm *Telemeter) Shutdown(ctx context.Context) error {
	var errs *errors.MultiError

	if tlm.Tracer != nil && tlm.Tracer.provider != nil {
		errs = errs.Append(errors.WithStackTrace(tlm.Tracer.provider.Shutdown(ctx)))
		tlm.Tracer.provider = nil
	}

	if tlm.Meter != nil && tlm.Meter.provider != nil {
		errs = errs.Append(errors.WithStackTrace(tlm.Meter.provider.Shutdown(ctx)))
		tlm.Meter.provider = nil
	}

	return errs.ErrorOrNil()
}

// Collect runs fn inside a span and records its duration.
func (tlm *Telemeter) Collect(ctx context.Context, name string, attrs map[string]any, fn func(childCtx context.Context) error) error {
	return tlm.Trace(ctx, name, attrs, func(ctx context.Context) error {
		return tlm.Time(ctx, name, attrs, fn)
	})
}
