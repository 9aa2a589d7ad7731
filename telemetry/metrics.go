package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

var (
	metricsOnce  sync.Once
	registerOnce sync.Once

	// Command metrics
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	pendingCommands prometheus.Gauge

	// Connection metrics
	connectsTotal      prometheus.Counter
	connectErrorsTotal prometheus.Counter
	disconnectsTotal   *prometheus.CounterVec
	connected          prometheus.Gauge

	// Pub/sub metrics
	pushMessagesTotal *prometheus.CounterVec

	// Failure metrics
	drainedCommandsTotal prometheus.Counter
)

// InitMetrics initializes all metrics
func InitMetrics(cfg *Config) error {
	var err error
	metricsOnce.Do(func() {
		registerPrometheusMetrics()

		if cfg.EnableMetrics {
			err = initOTELMetrics(cfg)
		}
	})
	return err
}

func registerPrometheusMetrics() {
	registerOnce.Do(func() {
		commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "redwing_commands_total",
			Help: "Total number of completed commands",
		}, []string{"command", "status"})

		commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redwing_command_duration_seconds",
			Help:    "Time from enqueueing a command to receiving its reply",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"})

		pendingCommands = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "redwing_pending_commands",
			Help: "Commands in flight and still awaiting replies",
		})

		connectsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "redwing_connects_total",
			Help: "Total number of established connections",
		})

		connectErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "redwing_connect_errors_total",
			Help: "Total number of failed connection attempts",
		})

		disconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "redwing_disconnects_total",
			Help: "Total number of closed connections",
		}, []string{"reason"})

		connected = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "redwing_connected",
			Help: "Whether the client is currently connected (1) or not (0)",
		})

		pushMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "redwing_push_messages_total",
			Help: "Total number of pub/sub push frames delivered",
		}, []string{"kind"})

		drainedCommandsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "redwing_drained_commands_total",
			Help: "Commands failed in bulk by connection loss or Close",
		})
	})
}

func initOTELMetrics(cfg *Config) error {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(cfg.MetricsInterval)*time.Second),
			),
		),
	)

	otel.SetMeterProvider(provider)

	return nil
}

// Metric recording functions

// RecordCommand records a completed command
func RecordCommand(command, status string, duration time.Duration) {
	commandsTotal.WithLabelValues(command, status).Inc()
	commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordConnect records an established connection
func RecordConnect() {
	connectsTotal.Inc()
	connected.Set(1)
}

// RecordConnectError records a failed connection attempt
func RecordConnectError() {
	connectErrorsTotal.Inc()
}

// RecordDisconnect records a closed connection. Pending commands are failed
// in bulk on disconnect, so the in-flight gauge drops to zero with it.
func RecordDisconnect(reason string) {
	disconnectsTotal.WithLabelValues(reason).Inc()
	connected.Set(0)
	pendingCommands.Set(0)
}

// RecordPushMessage records a delivered pub/sub push frame
func RecordPushMessage(kind string) {
	pushMessagesTotal.WithLabelValues(kind).Inc()
}

// RecordQueueDrain records commands failed in bulk on teardown
func RecordQueueDrain(count int) {
	drainedCommandsTotal.Add(float64(count))
}

// UpdatePendingCommands updates the in-flight command gauge
func UpdatePendingCommands(count int) {
	pendingCommands.Set(float64(count))
}
