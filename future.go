package redwing

import (
	"context"
	"sync"
	"time"

	"github.com/birbparty/redwing/resp"
)

// Future is the handle for a command in flight. Every command method
// returns one immediately; the value or error materializes later, on the
// read loop, once the server's reply arrives. Replies are matched to
// commands strictly in order, so a Future always resolves with the reply
// to its own command.
//
// Futures are safe for concurrent use: any number of goroutines may Wait
// on the same Future, and OnComplete may be registered at any time.
//
// Example:
//
//	fut := client.Get(ctx, "user:1")
//	// ... issue more commands, they pipeline behind this one ...
//	name, err := fut.Wait(ctx)
//	if redwing.IsNil(err) {
//	    // key does not exist
//	}
//
// Or register a callback instead of blocking:
//
//	client.Incr(ctx, "hits").OnComplete(func(n int64, err error) {
//	    if err == nil {
//	        log.Printf("hits: %d", n)
//	    }
//	})
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	val       T
	err       error
	completed bool
	callbacks []func(T, error)
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// failedFuture builds an already-completed Future carrying err. Used for
// commands rejected before they ever reach the wire.
func failedFuture[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

// complete resolves the future exactly once. Later calls are ignored,
// which makes teardown races harmless: whichever of reply and disconnect
// arrives first wins.
func (f *Future[T]) complete(val T, err error) {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return
	}
	f.val = val
	f.err = err
	f.completed = true
	cbs := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	close(f.done)
	for _, cb := range cbs {
		cb(val, err)
	}
}

// Done returns a channel that is closed when the future completes.
// Useful in select statements alongside other channels.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future completes or ctx is done, whichever comes
// first. A context error abandons the wait, not the command: the command
// still completes in the background and other waiters are unaffected.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the future completes and returns its value and
// error. Prefer Wait when the caller holds a context.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// Err blocks until the future completes and returns only its error.
// Handy for commands whose value is uninteresting:
//
//	if err := client.Set(ctx, "k", "v").Err(); err != nil {
//	    return err
//	}
func (f *Future[T]) Err() error {
	<-f.done
	return f.err
}

// OnComplete registers fn to run when the future completes. If the future
// is already complete, fn runs inline before OnComplete returns. Otherwise
// it runs on the read loop goroutine, in completion order with every other
// callback, so it must not block and must not issue blocking waits on
// other futures.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn(f.val, f.err)
}

// pending is a queued command awaiting its reply. The read loop resolves
// entries in FIFO order; teardown rejects them in the same order.
type pending interface {
	resolve(v resp.Value)
	reject(err error)
	command() string
}

// futureShape adapts a typed Future into a pending entry: it applies the
// command's reply shaper on resolution and reports the outcome to the
// observer either way.
type futureShape[T any] struct {
	fut   *Future[T]
	shape shapeFunc[T]
	cmd   string
	start time.Time
	obs   Observer
}

func newFutureShape[T any](cmd string, shape shapeFunc[T], obs Observer) *futureShape[T] {
	return &futureShape[T]{
		fut:   newFuture[T](),
		shape: shape,
		cmd:   cmd,
		start: time.Now(),
		obs:   obs,
	}
}

func (p *futureShape[T]) resolve(v resp.Value) {
	val, err := p.shape(v)
	p.fut.complete(val, err)
	p.obs.OnCommandComplete(p.cmd, time.Since(p.start), err)
}

func (p *futureShape[T]) reject(err error) {
	var zero T
	p.fut.complete(zero, err)
	p.obs.OnCommandComplete(p.cmd, time.Since(p.start), err)
}

func (p *futureShape[T]) command() string {
	return p.cmd
}
