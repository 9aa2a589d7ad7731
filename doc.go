// Package redwing provides an asynchronous, pipelined Go client for
// Redis-style servers speaking the RESP protocol. Every command is
// written to a single connection without waiting for earlier replies,
// and resolves a typed future when its reply arrives.
//
// # Features
//
// The client provides:
//   - Full pipelining over one connection with strict FIFO reply matching
//   - Typed futures for every command (no interface{} replies to assert)
//   - Publish/subscribe with per-channel and per-pattern handlers
//   - Blocking list operations (BLPOP, BRPOP) that share the pipeline
//   - An incremental RESP codec that never blocks mid-frame
//   - Context support for cancellation and timeouts
//   - Structured logging and pluggable observability hooks
//
// # Basic Usage
//
// Create a client, connect, and issue commands:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/birbparty/redwing"
//	)
//
//	func main() {
//	    client, err := redwing.NewClient(redwing.DefaultConfig().
//	        WithAddr("localhost:6379"))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    ctx := context.Background()
//	    if err := client.Connect(ctx); err != nil {
//	        log.Fatal(err)
//	    }
//	    defer client.Close()
//
//	    if _, err := client.Set(ctx, "greeting", "hello").Wait(ctx); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    greeting, err := client.Get(ctx, "greeting").Wait(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Println(greeting)
//	}
//
// # Futures and Pipelining
//
// Commands return immediately with a *Future. Issuing several commands
// before waiting pipelines them over the connection; replies resolve the
// futures in the order the commands were sent:
//
//	a := client.Incr(ctx, "counter")
//	b := client.Incr(ctx, "counter")
//	c := client.Get(ctx, "counter")
//
//	// All three are on the wire; now collect.
//	last, err := c.Wait(ctx)
//
// Callbacks run without blocking the caller:
//
//	client.Get(ctx, "config").OnComplete(func(v string, err error) {
//	    // Runs on the connection's read loop; keep it short.
//	})
//
// # Configuration
//
// Configuration uses a fluent builder pattern:
//
//	config := redwing.DefaultConfig().
//	    WithAddr("cache.internal:6379").
//	    WithDB(2).
//	    WithDialTimeout(3 * time.Second).
//	    WithWriteQueueSize(8192).
//	    WithLogger(logger)
//
//	client, err := redwing.NewClient(config)
//
// # Error Handling
//
// Helpers classify the common cases:
//
//	value, err := client.Get(ctx, "missing").Wait(ctx)
//	if redwing.IsNil(err) {
//	    // Key does not exist.
//	}
//
//	if redwing.IsFatal(err) {
//	    // The connection is gone; every queued command failed with
//	    // the same cause. Reconnect or give up.
//	}
//
//	var serverErr *redwing.ServerError
//	if errors.As(err, &serverErr) && serverErr.IsWrongType() {
//	    // WRONGTYPE: the key holds a different data type.
//	}
//
// Fatal errors (connection loss, protocol corruption, Close) fail every
// outstanding future in FIFO order with the same cause. Non-fatal errors
// (server error replies, encoding failures, a full write queue) fail
// only the command that caused them.
//
// # Publish / Subscribe
//
// Subscribing registers a handler and switches the connection into
// subscribed mode, where only subscription commands are accepted:
//
//	_, err := client.Subscribe(ctx, func(msg redwing.PushMessage) {
//	    log.Printf("%s: %s", msg.Channel, msg.Payload)
//	}, "events").Wait(ctx)
//
//	// ... later ...
//	client.Unsubscribe(ctx, "events")
//
// Handlers run on the connection's read loop. They must not block and
// must not Wait on futures; hand work to a goroutine or channel instead.
// The client does not resubscribe after a connection loss; callers that
// need durable subscriptions reconnect and subscribe again, typically
// with Backoff.
//
// # Blocking Operations
//
// BLPOP and BRPOP block on the server, not in the client. The reply
// occupies its pipeline slot like any other command, so later commands
// queue up behind it. A timeout resolves with nil rather than an error:
//
//	kv, err := client.BLPop(ctx, 5*time.Second, "jobs").Wait(ctx)
//	if err != nil {
//	    return err
//	}
//	if kv == nil {
//	    // Timed out with nothing to pop.
//	}
//
// # Observability
//
// The Observer interface receives connection and command lifecycle
// events. MetricsCollector is a ready-made implementation that
// aggregates counts and latencies; CompositeObserver fans out to
// several observers at once:
//
//	metrics := redwing.NewMetricsCollector()
//	config := redwing.DefaultConfig().WithObserver(metrics)
//
//	// ... after some traffic ...
//	snapshot := metrics.GetMetrics()
//
// # Concurrency Model
//
// The client is safe for concurrent use. Internally one goroutine owns
// all writes and one owns all reads; commands from any goroutine are
// handed to the writer through a bounded queue. When the queue is full
// the command fails immediately with ErrWriteQueueFull instead of
// blocking the caller.
package redwing
