package telemetry

import "fmt"

// Config contains the telemetry configuration for the effectivity engine.
type Config struct {
	// ServiceName is the name of the service for telemetry identification.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version"`

	// Environment specifies the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment"`

	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Events contains event publishing configuration.
	Events EventsConfig `yaml:"events"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error, fatal).
	Level string `yaml:"level"`

	// Format specifies the log format (console, json).
	Format string `yaml:"format"`

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string `yaml:"output"`

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool `yaml:"enable_caller"`
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	// Enabled turns tracing on or off.
	Enabled bool `yaml:"enabled"`

	// Exporter selects the span exporter (otlp, stdout).
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP collector endpoint for the otlp exporter.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64 `yaml:"sample_rate"`
}

// MetricsConfig configures Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns metrics collection on or off.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	Namespace string `yaml:"namespace"`

	// ListenAddress is where the metrics HTTP server listens, e.g. ":9090".
	ListenAddress string `yaml:"listen_address"`

	// Path is the metrics endpoint path.
	Path string `yaml:"path"`
}

// EventsConfig configures the in-process event publisher.
type EventsConfig struct {
	// Enabled turns event publishing on or off.
	Enabled bool `yaml:"enabled"`

	// BufferSize is the async event buffer capacity.
	BufferSize int `yaml:"buffer_size"`

	// EnableAsync delivers events on a background goroutine.
	EnableAsync bool `yaml:"enable_async"`

	// ShutdownTimeoutSeconds bounds how long Shutdown waits for in-flight events.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`
}

// DefaultConfig returns a development-friendly telemetry configuration.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "machshop-eco",
		ServiceVersion: "dev",
		Environment:    "dev",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "stdout",
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			Namespace:     "machshop",
			ListenAddress: ":9090",
			Path:          "/metrics",
		},
		Events: EventsConfig{
			Enabled:                true,
			BufferSize:             256,
			EnableAsync:            true,
			ShutdownTimeoutSeconds: 5,
		},
	}
}

// ProductionConfig returns a production-oriented telemetry configuration.
func ProductionConfig() *Config {
	cfg := DefaultConfig()
	cfg.Environment = "prod"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stdout"
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.SampleRate = 0.1
	cfg.Metrics.Enabled = true
	return cfg
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "otlp":
			if c.Tracing.Endpoint == "" {
				return fmt.Errorf("otlp exporter requires an endpoint")
			}
		case "stdout":
		default:
			return fmt.Errorf("invalid trace exporter: %s", c.Tracing.Exporter)
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("trace sample rate must be in [0, 1]")
		}
	}
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive")
	}
	return nil
}
