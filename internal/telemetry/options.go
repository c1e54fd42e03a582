package telemetry

// Exporter names accepted for traces and metrics.
const (
	ExporterNone     = "none"
	ExporterConsole  = "console"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Options configures telemetry collection.
type Options struct {
	AppName    string
	AppVersion string

	TraceExporter  string
	MetricExporter string

	// Endpoint overrides the OTLP endpoint. When empty the exporters read the standard OTEL_EXPORTER_OTLP_* variables.
	Endpoint string
	Insecure bool
}
