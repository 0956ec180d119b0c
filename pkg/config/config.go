package config

import "time"

// Config is the root configuration for a flowgate process.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Rules configures where flow rules come from and whether the file is
	// watched for changes.
	Rules RulesConfig `yaml:"rules"`

	// Reporter configures the periodic total/pass/block report.
	Reporter ReporterConfig `yaml:"reporter"`

	// Demo configures the built-in workloads and greeting services.
	Demo DemoConfig `yaml:"demo"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the "host:port" the server binds to.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// RulesConfig configures flow rule loading.
type RulesConfig struct {
	// FilePath is the YAML rules file. Empty means no rules: every entry
	// is admitted.
	FilePath string `yaml:"file_path"`

	// Watch reloads the rules file when it changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period before a reload.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// ReporterConfig configures the periodic report.
type ReporterConfig struct {
	// Enabled turns the report on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression or descriptor.
	// Default: "@every 1s"
	Schedule string `yaml:"schedule"`
}

// Workload names accepted in DemoConfig.Workloads.
const (
	WorkloadFunctionWorkers = "function_workers"
	WorkloadCustomResource  = "custom_resource"
	WorkloadUserRequester   = "user_requester"
)

// DemoConfig configures the demo workloads and HTTP services.
type DemoConfig struct {
	// Workloads lists the background workloads to run. A missing key runs
	// all of them; an empty list runs none.
	Workloads []string `yaml:"workloads"`

	// FunctionWorkers is the number of function_i workers.
	// Default: 50
	FunctionWorkers int `yaml:"function_workers"`

	// WarmUp delays the custom resource loop and the user requester.
	// Default: 1s
	WarmUp time.Duration `yaml:"warm_up"`

	// GreetingName is appended by GET /sayHi.
	// Default: "flowgate"
	GreetingName string `yaml:"greeting_name"`

	// ProviderURL is the base URL the consumer calls. Empty means this
	// server's own listen address.
	ProviderURL string `yaml:"provider_url"`

	// ProviderTimeout bounds consumer calls to the provider.
	// Default: 5s
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus configuration.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint and records guard metrics.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "flowgate"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether traces are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is "always", "never" or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces sampled by the ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as service.name.
	// Default: "flowgate"
	ServiceName string `yaml:"service_name"`

	// OTLP contains exporter options.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers"`

	// Timeout bounds a single export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// WorkloadEnabled reports whether the named workload should run.
func (d DemoConfig) WorkloadEnabled(name string) bool {
	if d.Workloads == nil {
		return true
	}
	for _, w := range d.Workloads {
		if w == name {
			return true
		}
	}
	return false
}
