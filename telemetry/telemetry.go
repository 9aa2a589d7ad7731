// Package telemetry wires redwing clients into logrus, Prometheus and
// OpenTelemetry. It is entirely optional: the client library itself only
// emits events through its Observer interface, and this package supplies
// an Observer that turns those events into metrics, plus the usual
// logger/tracer/exporter plumbing around it.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

// Init initializes all telemetry components
func Init(cfg *Config) error {
	InitLogger(cfg)

	if err := InitMetrics(cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if err := InitTracing(cfg); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	L().WithFields(logrus.Fields{
		"service":     cfg.ServiceName,
		"version":     cfg.ServiceVersion,
		"environment": cfg.Environment,
	}).Info("Telemetry initialized")

	return nil
}

// Shutdown gracefully shuts down all telemetry components
func Shutdown(ctx context.Context) error {
	return CloseTracing(ctx)
}

// PrometheusHandler returns an HTTP handler for Prometheus metrics
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TraceCommand opens a span covering one client operation and returns a
// closure that finishes it with the operation's outcome. Metrics are left
// to the Observer so commands are not counted twice.
//
//	ctx, done := telemetry.TraceCommand(ctx, "GET")
//	value, err := client.Get(ctx, "greeting").Wait(ctx)
//	done(err)
func TraceCommand(ctx context.Context, command string) (context.Context, func(err error)) {
	start := time.Now()
	ctx, span := StartSpan(ctx, "redwing."+strings.ToLower(command))

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		WithContext(ctx).WithFields(logrus.Fields{
			"command":  command,
			"duration": time.Since(start).Milliseconds(),
		}).Debug("Command completed")
	}
}
