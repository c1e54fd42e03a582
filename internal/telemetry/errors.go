package telemetry

import "fmt"

// UnknownExporterError is returned for an exporter name that is not supported.
type UnknownExporterError struct {
	Kind string
	Name string
}

func (err UnknownExporterError) Error() string {
	return fmt.Sprintf("unknown %s exporter %q, expected one of: none, console, otlp-http, otlp-grpc", err.Kind, err.Name)
}
