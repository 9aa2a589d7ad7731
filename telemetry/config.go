package telemetry

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the configuration for telemetry
type Config struct {
	ServiceName    string `env:"OTEL_SERVICE_NAME, default=redwing"`
	ServiceVersion string `env:"SERVICE_VERSION, default=unknown"`
	Environment    string `env:"ENVIRONMENT, default=development"`

	// OTLPEndpoint is the gRPC endpoint traces and metrics are shipped to
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT, default=localhost:4317"`

	// Common settings
	SamplingRate    float64 `env:"OTEL_SAMPLING_RATE, default=1.0"`
	LogLevel        string  `env:"LOG_LEVEL, default=info"`
	MetricsInterval int     `env:"METRICS_INTERVAL, default=10"` // seconds

	// Feature flags
	EnableTracing bool `env:"ENABLE_TRACING, default=true"`
	EnableMetrics bool `env:"ENABLE_METRICS, default=true"`
}

// NewConfigFromEnv creates a new config from environment variables
func NewConfigFromEnv(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
