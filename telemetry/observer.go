package telemetry

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/birbparty/redwing"
)

// Observer publishes client events as Prometheus metrics, with debug-level
// log lines for connection lifecycle changes. Attach it through the client
// configuration:
//
//	cfg := redwing.DefaultConfig().
//	    WithAddr("localhost:6379").
//	    WithObserver(telemetry.NewObserver()).
//	    WithLogger(telemetry.L())
//
// Expose the collected metrics with PrometheusHandler.
type Observer struct{}

var _ redwing.Observer = (*Observer)(nil)

// NewObserver creates an observer backed by the package metrics. It
// registers the Prometheus collectors if Init has not run yet.
func NewObserver() *Observer {
	registerPrometheusMetrics()
	return &Observer{}
}

// OnConnect records the established connection
func (o *Observer) OnConnect(addr string) {
	RecordConnect()
	L().WithField("addr", addr).Debug("connected")
}

// OnConnectError records the failed dial
func (o *Observer) OnConnectError(addr string, err error) {
	RecordConnectError()
	L().WithField("addr", addr).WithError(err).Debug("connect failed")
}

// OnDisconnect records the dropped connection
func (o *Observer) OnDisconnect(addr string, err error) {
	if err != nil {
		RecordDisconnect("error")
		L().WithField("addr", addr).WithError(err).Debug("connection lost")
		return
	}
	RecordDisconnect("clean")
	L().WithField("addr", addr).Debug("disconnected")
}

// OnCommandQueued tracks the pipeline depth
func (o *Observer) OnCommandQueued(cmd string, queued int) {
	UpdatePendingCommands(queued)
}

// OnCommandComplete records the finished command
func (o *Observer) OnCommandComplete(cmd string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RecordCommand(cmd, status, duration)
}

// OnPushMessage counts the delivered push frame
func (o *Observer) OnPushMessage(kind, channel string) {
	RecordPushMessage(kind)
}

// OnQueueDrain counts commands failed in bulk
func (o *Observer) OnQueueDrain(count int, err error) {
	RecordQueueDrain(count)
	if count > 0 {
		L().WithError(err).WithField("count", count).Debug("pending commands drained")
	}
}

// TracingObserver emits one span per completed command. The pipelined hot
// path carries no context, so spans are created retroactively when the
// reply arrives, backdated to cover the queue-to-reply window.
type TracingObserver struct {
	redwing.NoopObserver
}

var _ redwing.Observer = (*TracingObserver)(nil)

// NewTracingObserver creates an observer that traces every command
func NewTracingObserver() *TracingObserver {
	return &TracingObserver{}
}

// OnCommandComplete records the finished command as a client span
func (o *TracingObserver) OnCommandComplete(cmd string, duration time.Duration, err error) {
	end := time.Now()
	_, span := Tracer().Start(context.Background(), "redwing."+strings.ToLower(cmd),
		trace.WithTimestamp(end.Add(-duration)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(end))
}
