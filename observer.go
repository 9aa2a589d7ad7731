package redwing

import (
	"sync"
	"time"
)

// Observer provides hooks for monitoring client operations.
// Implement this interface to track performance metrics, debug issues,
// or integrate with your observability stack.
//
// The client calls observer methods at key points during command execution.
// OnCommandComplete and OnPushMessage fire on the read loop goroutine, so
// observer methods should be fast and non-blocking to avoid stalling reply
// processing.
//
// Example implementation:
//
//	type LogObserver struct {
//	    logger *log.Logger
//	}
//
//	func (o *LogObserver) OnCommandQueued(cmd string, depth int) {
//	    o.logger.Printf("[QUEUED] %s (depth %d)", cmd, depth)
//	}
//
//	func (o *LogObserver) OnCommandComplete(cmd string, duration time.Duration, err error) {
//	    if err != nil {
//	        o.logger.Printf("[ERROR] %s - %v (took %v)", cmd, err, duration)
//	    } else {
//	        o.logger.Printf("[OK] %s (took %v)", cmd, duration)
//	    }
//	}
//
//	config := redwing.DefaultConfig().
//	    WithObserver(&LogObserver{logger: log.Default()})
type Observer interface {
	// OnConnect is called when a connection is established.
	//
	// Parameters:
	//   - addr: The server address that was dialed
	OnConnect(addr string)

	// OnConnectError is called when a dial or handshake fails.
	//
	// Parameters:
	//   - addr: The server address that was dialed
	//   - err: The failure
	OnConnectError(addr string, err error)

	// OnDisconnect is called when the connection terminates, whether by
	// Close or by a fatal error.
	//
	// Parameters:
	//   - addr: The server address
	//   - err: The cause, nil for a clean Close
	OnDisconnect(addr string, err error)

	// OnCommandQueued is called when a command is accepted into the
	// write queue. Use this to track queue pressure.
	//
	// Parameters:
	//   - cmd: Command name (GET, LPUSH, SUBSCRIBE, ...)
	//   - queued: Number of commands waiting in the write queue
	OnCommandQueued(cmd string, queued int)

	// OnCommandComplete is called when a command's reply arrives or the
	// command fails. Use this to track latencies and error rates.
	//
	// Parameters:
	//   - cmd: Command name
	//   - duration: Time from queueing to completion
	//   - err: Error if the command failed, nil on success
	OnCommandComplete(cmd string, duration time.Duration, err error)

	// OnPushMessage is called for every push frame delivered in
	// subscribed mode, including subscription acknowledgements.
	//
	// Parameters:
	//   - kind: Push kind (message, pmessage, subscribe, ...)
	//   - channel: Channel the push arrived on
	OnPushMessage(kind, channel string)

	// OnQueueDrain is called when a fatal error or Close fails every
	// pending command at once.
	//
	// Parameters:
	//   - count: Number of commands that were failed
	//   - err: The cause
	OnQueueDrain(count int, err error)
}

// NoopObserver is a no-op implementation of Observer that does nothing.
// This is the default observer used when none is configured.
// It has zero overhead and is safe for production use.
//
// Example:
//
//	// Explicitly use no-op observer (same as default)
//	config := redwing.DefaultConfig().
//	    WithObserver(&redwing.NoopObserver{})
type NoopObserver struct{}

// OnConnect does nothing
func (n *NoopObserver) OnConnect(addr string) {}

// OnConnectError does nothing
func (n *NoopObserver) OnConnectError(addr string, err error) {}

// OnDisconnect does nothing
func (n *NoopObserver) OnDisconnect(addr string, err error) {}

// OnCommandQueued does nothing
func (n *NoopObserver) OnCommandQueued(cmd string, queued int) {}

// OnCommandComplete does nothing
func (n *NoopObserver) OnCommandComplete(cmd string, duration time.Duration, err error) {}

// OnPushMessage does nothing
func (n *NoopObserver) OnPushMessage(kind, channel string) {}

// OnQueueDrain does nothing
func (n *NoopObserver) OnQueueDrain(count int, err error) {}

// MetricsCollector is a simple in-memory metrics implementation.
// It collects basic metrics about client operations including command
// counts, latencies, error rates, push traffic, and connection churn.
//
// Note: This implementation stores all data in memory and is primarily
// intended for debugging and testing. For production use, consider
// implementing Observer to export metrics to your monitoring system.
//
// Example:
//
//	metrics := redwing.NewMetricsCollector()
//	config := redwing.DefaultConfig().
//	    WithObserver(metrics)
//
//	client, _ := redwing.NewClient(config)
//	// Use client...
//
//	// Get metrics snapshot
//	snapshot := metrics.GetMetrics()
//	fmt.Printf("Commands: %v\n", snapshot["commands"])
//	fmt.Printf("Error rate: %.2f%%\n", snapshot["error_rate"].(float64) * 100)
type MetricsCollector struct {
	mu           sync.RWMutex
	commandCount map[string]int64
	latencies    map[string][]time.Duration
	errorCount   map[string]int64
	pushCount    map[string]int64
	connects     int64
	disconnects  int64
	drained      int64
}

// NewMetricsCollector creates a new metrics collector for tracking client
// operations. The collector is thread-safe and can be used concurrently.
//
// Example:
//
//	metrics := redwing.NewMetricsCollector()
//
//	// Use with client
//	config := redwing.DefaultConfig().WithObserver(metrics)
//	client, _ := redwing.NewClient(config)
//
//	// Later, examine metrics
//	data := metrics.GetMetrics()
//	for cmd, count := range data["commands"].(map[string]int64) {
//	    fmt.Printf("%s: %d calls\n", cmd, count)
//	}
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		commandCount: make(map[string]int64),
		latencies:    make(map[string][]time.Duration),
		errorCount:   make(map[string]int64),
		pushCount:    make(map[string]int64),
	}
}

// OnConnect increments the connect count
func (m *MetricsCollector) OnConnect(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
}

// OnConnectError counts failed dials as errors
func (m *MetricsCollector) OnConnectError(addr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount["connect"]++
}

// OnDisconnect increments the disconnect count
func (m *MetricsCollector) OnDisconnect(addr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects++
}

// OnCommandQueued increments command count
func (m *MetricsCollector) OnCommandQueued(cmd string, queued int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandCount[cmd]++
}

// OnCommandComplete records command duration and errors
func (m *MetricsCollector) OnCommandComplete(cmd string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[cmd] = append(m.latencies[cmd], duration)
	if err != nil {
		m.errorCount[cmd]++
	}
}

// OnPushMessage increments push count per kind
func (m *MetricsCollector) OnPushMessage(kind, channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushCount[kind]++
}

// OnQueueDrain records the number of commands failed in bulk
func (m *MetricsCollector) OnQueueDrain(count int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drained += int64(count)
}

// GetMetrics returns a snapshot of current metrics.
// The returned map is a copy and safe to read without locks.
//
// The metrics include:
//   - "commands": Map of command name to call count
//   - "latencies": Map of command name to latency measurements
//   - "errors": Map of command name to error count
//   - "pushes": Map of push kind to delivery count
//   - "connects": Total successful connections
//   - "disconnects": Total disconnections
//   - "drained": Total commands failed by fatal teardowns
//   - "error_rate": Calculated error rate (0.0 to 1.0)
//
// Example:
//
//	metrics := collector.GetMetrics()
//
//	errRate := metrics["error_rate"].(float64)
//	if errRate > 0.05 {
//	    log.Printf("Warning: high error rate: %.2f%%", errRate * 100)
//	}
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Create copies to avoid data races
	commandsCopy := make(map[string]int64)
	var total int64
	for k, v := range m.commandCount {
		commandsCopy[k] = v
		total += v
	}

	latenciesCopy := make(map[string][]time.Duration)
	for k, v := range m.latencies {
		latenciesCopy[k] = append([]time.Duration(nil), v...)
	}

	errorsCopy := make(map[string]int64)
	var totalErrors int64
	for k, v := range m.errorCount {
		errorsCopy[k] = v
		totalErrors += v
	}

	pushesCopy := make(map[string]int64)
	for k, v := range m.pushCount {
		pushesCopy[k] = v
	}

	errorRate := float64(0)
	if total > 0 {
		errorRate = float64(totalErrors) / float64(total)
	}

	return map[string]interface{}{
		"commands":    commandsCopy,
		"latencies":   latenciesCopy,
		"errors":      errorsCopy,
		"pushes":      pushesCopy,
		"connects":    m.connects,
		"disconnects": m.disconnects,
		"drained":     m.drained,
		"error_rate":  errorRate,
	}
}

// CompositeObserver allows multiple observers to be combined into one.
// All observer methods are called on each child observer in order.
// If an observer panics on the hot path, it's caught to prevent affecting
// other observers.
//
// This is useful for combining different monitoring approaches:
//   - Logging observer for debugging
//   - Metrics observer for monitoring
//   - Tracing observer for distributed tracing
//
// Example:
//
//	logger := &LogObserver{log: log.Default()}
//	metrics := redwing.NewMetricsCollector()
//
//	composite := redwing.NewCompositeObserver(logger, metrics)
//
//	config := redwing.DefaultConfig().
//	    WithObserver(composite)
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an observer that delegates to multiple observers.
// This allows you to use multiple monitoring strategies simultaneously.
//
// Example:
//
//	// Combine logging and metrics
//	observer := redwing.NewCompositeObserver(
//	    &ConsoleLogObserver{},
//	    redwing.NewMetricsCollector(),
//	)
//
//	config := redwing.DefaultConfig().WithObserver(observer)
func NewCompositeObserver(observers ...Observer) Observer {
	return &CompositeObserver{observers: observers}
}

// OnConnect notifies all observers
func (c *CompositeObserver) OnConnect(addr string) {
	for _, obs := range c.observers {
		obs.OnConnect(addr)
	}
}

// OnConnectError notifies all observers
func (c *CompositeObserver) OnConnectError(addr string, err error) {
	for _, obs := range c.observers {
		obs.OnConnectError(addr, err)
	}
}

// OnDisconnect notifies all observers
func (c *CompositeObserver) OnDisconnect(addr string, err error) {
	for _, obs := range c.observers {
		obs.OnDisconnect(addr, err)
	}
}

// OnCommandQueued notifies all observers of a queued command.
// If an observer panics, the panic is caught and ignored to prevent
// one faulty observer from affecting others.
func (c *CompositeObserver) OnCommandQueued(cmd string, queued int) {
	for _, obs := range c.observers {
		// Recover from panics to prevent one observer from breaking others
		func() {
			defer func() {
				if r := recover(); r != nil {
					// In production, you might want to log this
				}
			}()
			obs.OnCommandQueued(cmd, queued)
		}()
	}
}

// OnCommandComplete notifies all observers of a completed command.
// Each observer is called in order with panic protection, because this
// runs on the read loop.
func (c *CompositeObserver) OnCommandComplete(cmd string, duration time.Duration, err error) {
	for _, obs := range c.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					// Observer panicked, ignore
				}
			}()
			obs.OnCommandComplete(cmd, duration, err)
		}()
	}
}

// OnPushMessage notifies all observers with panic protection, because this
// runs on the read loop.
func (c *CompositeObserver) OnPushMessage(kind, channel string) {
	for _, obs := range c.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					// Observer panicked, ignore
				}
			}()
			obs.OnPushMessage(kind, channel)
		}()
	}
}

// OnQueueDrain notifies all observers
func (c *CompositeObserver) OnQueueDrain(count int, err error) {
	for _, obs := range c.observers {
		obs.OnQueueDrain(count, err)
	}
}
