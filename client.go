package redwing

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/birbparty/redwing/resp"
)

// connState tracks the connection lifecycle. closed is terminal.
type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
	stateClosed
)

// connMode tracks which protocol mode the connection is in. In subscribed
// mode the server pushes frames without matching requests, so the reply
// queue is bypassed entirely.
type connMode int

const (
	modeNormal connMode = iota
	modeSubscribed
)

// writeReq is one encoded command headed for the socket. entry is nil for
// commands that expect no positional reply, such as subscription changes
// issued while already in subscribed mode.
type writeReq struct {
	payload []byte
	entry   pending
}

// Client is an asynchronous pipelined client for Redis-compatible servers.
// Every command returns a Future immediately; commands are written in
// order and their replies are matched back strictly first-in first-out,
// so many commands can be in flight on the single connection at once.
//
// A Client is safe for concurrent use. Commands issued concurrently are
// serialized onto the connection in admission order.
//
// Example:
//
//	client, err := redwing.NewClient(redwing.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Fire off a batch; they pipeline on one round trip.
//	set := client.Set(ctx, "greeting", "hello")
//	get := client.Get(ctx, "greeting")
//	if err := set.Err(); err != nil {
//	    log.Fatal(err)
//	}
//	val, _ := get.Wait(ctx)
//	fmt.Println(val) // "hello"
//
// The client never retries and never reconnects on its own. After a fatal
// error (socket failure, protocol corruption) every pending command fails
// in order and the client can be connected again with Connect. Lost
// subscriptions are not re-established automatically.
type Client struct {
	cfg *Config
	log logrus.FieldLogger
	obs Observer

	mu      sync.Mutex
	state   connState
	mode    connMode
	gen     uint64
	conn    net.Conn
	queue   *pendingQueue
	writeCh chan writeReq
	stopCh  chan struct{}
	cause   *Error
	subs    *subscriptions
}

// Stats is a point-in-time snapshot of client internals.
type Stats struct {
	QueueDepth    int  `json:"queue_depth"`
	QueueCapacity int  `json:"queue_capacity"`
	Pending       int  `json:"pending"`
	Subscribed    bool `json:"subscribed"`
}

// NewClient creates a new client with the given configuration.
// The client starts disconnected; call Connect before issuing commands.
// If config is nil, DefaultConfig() is used.
//
// Example:
//
//	config := redwing.DefaultConfig().
//	    WithAddr("cache.internal:6379").
//	    WithDB(1)
//
//	client, err := redwing.NewClient(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:   config,
		log:   config.Logger,
		obs:   config.Observer,
		state: stateDisconnected,
	}, nil
}

// Connect dials the server and starts the read and write loops. When the
// configured database index is non-zero, Connect issues SELECT and waits
// for its reply, so a successful return means the connection is ready for
// user commands.
//
// Connect returns ErrAlreadyConnected on a live connection and
// ErrConnectInProgress while another Connect is dialing. After a fatal
// error or a lost connection it may be called again; pending state from
// the dead connection is never carried over.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case stateClosed:
		c.mu.Unlock()
		return NewError(ErrorTypeClosed, "client is closed", ErrClosed)
	case stateConnecting:
		c.mu.Unlock()
		return NewError(ErrorTypeValidation, "connect already in progress", ErrConnectInProgress)
	case stateConnected:
		c.mu.Unlock()
		return NewError(ErrorTypeValidation, "already connected", ErrAlreadyConnected)
	}
	c.state = stateConnecting
	c.mu.Unlock()

	addr := c.cfg.Addr
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.mu.Lock()
		if c.state == stateConnecting {
			c.state = stateDisconnected
		}
		c.mu.Unlock()
		c.obs.OnConnectError(addr, err)
		return (&ConnError{Op: "dial", Addr: addr, Err: err}).ToError()
	}

	c.mu.Lock()
	if c.state != stateConnecting {
		// Close raced the dial and won.
		c.mu.Unlock()
		conn.Close()
		c.obs.OnConnectError(addr, ErrClosed)
		return NewError(ErrorTypeClosed, "client closed during connect", ErrClosed)
	}
	c.gen++
	gen := c.gen
	c.state = stateConnected
	c.mode = modeNormal
	c.conn = conn
	c.cause = nil
	c.queue = &pendingQueue{}
	c.writeCh = make(chan writeReq, c.cfg.WriteQueueSize)
	c.stopCh = make(chan struct{})
	c.subs = newSubscriptions()
	queue, writeCh, stopCh := c.queue, c.writeCh, c.stopCh
	c.mu.Unlock()

	go c.readLoop(gen, conn, queue)
	go c.writeLoop(gen, conn, queue, writeCh, stopCh)

	c.log.WithFields(logrus.Fields{"addr": addr, "db": c.cfg.DB}).Info("connected")
	c.obs.OnConnect(addr)

	if c.cfg.DB != 0 {
		if _, err := send(c, ctx, shapeStatus, "SELECT", c.cfg.DB).Wait(ctx); err != nil {
			c.fatal(gen, NewError(ErrorTypeConnection, "SELECT handshake failed", err))
			return err
		}
	}
	return nil
}

// Close shuts the connection down and fails every pending command with
// ErrClosed, in write order. Close is idempotent and terminal: a closed
// client rejects Connect and every command from then on.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return nil
	}
	if c.state != stateConnected {
		c.state = stateClosed
		c.mu.Unlock()
		return nil
	}
	cause := NewError(ErrorTypeClosed, "client closed", ErrClosed)
	entries, calls, addr := c.shutdownLocked(cause, stateClosed)
	c.mu.Unlock()

	c.finishTeardown(addr, cause, entries, calls)
	return nil
}

// Subscribed reports whether the connection is currently in subscribed
// mode, where only subscription commands are accepted.
func (c *Client) Subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateConnected && c.mode == modeSubscribed
}

// Stats returns a snapshot of queue depths for monitoring.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		QueueCapacity: c.cfg.WriteQueueSize,
		Subscribed:    c.state == stateConnected && c.mode == modeSubscribed,
	}
	if c.state == stateConnected {
		s.QueueDepth = len(c.writeCh)
		s.Pending = c.queue.len()
	}
	return s
}

// send encodes a command, admits it under the client lock, and hands it to
// the write loop. It never blocks: a full write queue fails the command
// with ErrWriteQueueFull immediately. The returned future resolves on the
// read loop when the reply arrives, through shape.
func send[T any](c *Client, ctx context.Context, shape shapeFunc[T], cmd string, args ...interface{}) *Future[T] {
	payload, err := resp.AppendCommand(nil, cmd, args...)
	if err != nil {
		return failedFuture[T](NewError(ErrorTypeEncoding, err.Error(), err))
	}
	if err := ctx.Err(); err != nil {
		return failedFuture[T](err)
	}

	entry := newFutureShape[T](cmd, shape, c.obs)

	c.mu.Lock()
	if err := c.admitLocked(cmd); err != nil {
		c.mu.Unlock()
		return failedFuture[T](err)
	}
	select {
	case c.writeCh <- writeReq{payload: payload, entry: entry}:
		queued := len(c.writeCh)
		c.mu.Unlock()
		c.obs.OnCommandQueued(cmd, queued)
		return entry.fut
	default:
		c.mu.Unlock()
		return failedFuture[T](NewError(ErrorTypeBackpressure, "write queue full", ErrWriteQueueFull))
	}
}

// admitLocked decides whether a regular command may be issued right now.
// Caller holds c.mu.
func (c *Client) admitLocked(cmd string) error {
	switch c.state {
	case stateConnected:
	case stateClosed:
		return NewError(ErrorTypeClosed, "client is closed", ErrClosed)
	default:
		return NewError(ErrorTypeConnection, "not connected", ErrNotConnected)
	}
	if isSubscriptionCommand(cmd) {
		return NewError(ErrorTypeValidation, "use Subscribe/Unsubscribe for subscription commands", nil)
	}
	if c.mode == modeSubscribed || c.subs.subAckInFlight {
		return NewError(ErrorTypeValidation, cmd+" not allowed in subscribed mode", ErrSubscribedMode)
	}
	return nil
}

func isSubscriptionCommand(cmd string) bool {
	switch cmd {
	case "SUBSCRIBE", "UNSUBSCRIBE", "PSUBSCRIBE", "PUNSUBSCRIBE":
		return true
	}
	return false
}

// writeLoop serializes commands onto the socket. Each entry is appended to
// the pending queue before its bytes go out, so a reply can never arrive
// for a command the queue does not know about. Writes are buffered and
// flushed once per burst.
func (c *Client) writeLoop(gen uint64, conn net.Conn, queue *pendingQueue, writeCh <-chan writeReq, stopCh <-chan struct{}) {
	w := bufio.NewWriter(conn)
	for {
		select {
		case <-stopCh:
			return
		case req := <-writeCh:
			if !c.writeOne(gen, w, queue, req) {
				return
			}
			// Keep writing while more commands are queued, then flush
			// the whole burst with one syscall.
		drain:
			for {
				select {
				case req := <-writeCh:
					if !c.writeOne(gen, w, queue, req) {
						return
					}
				default:
					break drain
				}
			}
			if err := w.Flush(); err != nil {
				c.fatal(gen, (&ConnError{Op: "write", Addr: c.cfg.Addr, Err: err}).ToError())
				return
			}
		}
	}
}

// writeOne queues one entry and buffers its payload. It reports false when
// the connection is being torn down or the write failed.
func (c *Client) writeOne(gen uint64, w *bufio.Writer, queue *pendingQueue, req writeReq) bool {
	if req.entry != nil && !queue.push(req.entry) {
		// Teardown sealed the queue between admission and here; hand the
		// entry the teardown cause instead of leaving it pending forever.
		req.entry.reject(c.teardownCause())
		return false
	}
	if _, err := w.Write(req.payload); err != nil {
		c.fatal(gen, (&ConnError{Op: "write", Addr: c.cfg.Addr, Err: err}).ToError())
		return false
	}
	return true
}

// readLoop accumulates socket bytes and decodes complete frames off the
// front. Each frame either resolves the oldest pending entry or, in
// subscribed mode, routes through the subscription registry. All futures
// complete on this goroutine, in server reply order.
func (c *Client) readLoop(gen uint64, conn net.Conn, queue *pendingQueue) {
	buf := make([]byte, c.cfg.ReadBufferSize)
	var acc []byte
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			for len(acc) > 0 {
				v, used, derr := resp.Decode(acc)
				if errors.Is(derr, resp.ErrIncomplete) {
					break
				}
				if derr != nil {
					c.fatal(gen, NewError(ErrorTypeProtocol, "unparseable reply from server", derr))
					return
				}
				if !c.dispatch(gen, v, queue) {
					return
				}
				acc = acc[used:]
			}
			if len(acc) == 0 {
				acc = nil
			}
		}
		if err != nil {
			c.fatal(gen, (&ConnError{Op: "read", Addr: c.cfg.Addr, Err: err}).ToError())
			return
		}
	}
}

// dispatch routes one decoded frame. It reports false when the frame
// killed the connection.
func (c *Client) dispatch(gen uint64, v resp.Value, queue *pendingQueue) bool {
	c.mu.Lock()
	if c.gen != gen || c.state != stateConnected {
		c.mu.Unlock()
		return false
	}
	subscribed := c.mode == modeSubscribed
	c.mu.Unlock()

	if subscribed {
		return c.dispatchPush(gen, v)
	}

	entry, ok := queue.pop()
	if !ok {
		c.fatal(gen, NewError(ErrorTypeProtocol, "reply arrived with no pending command", nil))
		return false
	}
	if v.Type == resp.TypeError {
		entry.reject(parseServerError(v.Text()).ToError())
		return true
	}
	entry.resolve(v)
	return true
}

// fatal tears down generation gen. Calls against an older generation or an
// already-dead connection are no-ops, so the read loop, write loop, and
// Close can all report failures without coordinating.
func (c *Client) fatal(gen uint64, cause *Error) {
	c.mu.Lock()
	if c.gen != gen || c.state != stateConnected {
		c.mu.Unlock()
		return
	}
	entries, calls, addr := c.shutdownLocked(cause, stateDisconnected)
	c.mu.Unlock()

	c.log.WithError(cause).WithField("addr", addr).Error("connection lost")
	c.finishTeardown(addr, cause, entries, calls)
}

// shutdownLocked closes the socket, seals the queue, and collects every
// command that will never get a reply: sealed queue entries first, then
// write requests that never reached the writer, then subscription calls
// waiting on acknowledgements. Caller holds c.mu and is responsible for
// rejecting the returned work after unlocking.
func (c *Client) shutdownLocked(cause *Error, next connState) ([]pending, []*subCall, string) {
	c.state = next
	c.cause = cause
	close(c.stopCh)
	c.conn.Close()

	entries := c.queue.drainAndSeal()
collect:
	for {
		select {
		case req := <-c.writeCh:
			if req.entry != nil {
				entries = append(entries, req.entry)
			}
		default:
			break collect
		}
	}
	calls := c.subs.seal()
	return entries, calls, c.cfg.Addr
}

// finishTeardown fails the collected work in order, outside the lock.
func (c *Client) finishTeardown(addr string, cause *Error, entries []pending, calls []*subCall) {
	for _, e := range entries {
		e.reject(cause)
	}
	for _, call := range calls {
		call.fail(cause)
	}
	if n := len(entries) + len(calls); n > 0 {
		c.obs.OnQueueDrain(n, cause)
	}
	var obsErr error
	if cause.Type != ErrorTypeClosed {
		obsErr = cause
	}
	c.obs.OnDisconnect(addr, obsErr)
}

// teardownCause returns the error that killed the current connection, for
// rejecting stragglers that raced the teardown.
func (c *Client) teardownCause() *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cause != nil {
		return c.cause
	}
	return NewError(ErrorTypeConnection, "connection torn down", ErrNotConnected)
}
