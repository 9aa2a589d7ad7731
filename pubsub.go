package redwing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/birbparty/redwing/resp"
)

// PushKind identifies a frame the server pushes in subscribed mode.
type PushKind string

const (
	PushKindSubscribe    PushKind = "subscribe"
	PushKindUnsubscribe  PushKind = "unsubscribe"
	PushKindMessage      PushKind = "message"
	PushKindPSubscribe   PushKind = "psubscribe"
	PushKindPUnsubscribe PushKind = "punsubscribe"
	PushKindPMessage     PushKind = "pmessage"
)

// PushMessage is one push frame delivered to a subscription handler.
// Published messages carry a Payload; subscription acknowledgements carry
// the server's subscription Count instead. Pattern is set only for frames
// routed by a pattern subscription.
type PushMessage struct {
	Kind    PushKind
	Channel string
	Pattern string
	Payload []byte
	Count   int64
}

// PushHandler receives push frames for channels or patterns it was
// subscribed with, acknowledgements included. Handlers run on the read
// loop in arrival order, so they must not block and must not wait on
// futures; hand work off to another goroutine instead.
type PushHandler func(PushMessage)

// subCall tracks one subscription command from send to its final
// acknowledgement. The server acknowledges each named channel separately,
// so a call completes after `expected` acks and resolves with the
// subscription count reported by the last of them.
type subCall struct {
	cmd      string
	fut      *Future[int64]
	obs      Observer
	start    time.Time
	expected int

	mu        sync.Mutex
	remaining int

	// registration bookkeeping, guarded by Client.mu
	ackKind   PushKind
	pattern   bool
	names     []string
	wildcard  bool
	displaced map[string]*subEntry
}

func newSubCall(cmd string, expected int, obs Observer) *subCall {
	return &subCall{
		cmd:       cmd,
		fut:       newFuture[int64](),
		obs:       obs,
		start:     time.Now(),
		expected:  expected,
		remaining: expected,
	}
}

// ackArrived counts one acknowledgement down; the last one resolves the
// call with the server's subscription count.
func (s *subCall) ackArrived(count int64) {
	s.mu.Lock()
	s.remaining--
	done := s.remaining <= 0
	s.mu.Unlock()
	if done {
		s.finish(count, nil)
	}
}

func (s *subCall) finish(count int64, err error) {
	s.fut.complete(count, err)
	s.obs.OnCommandComplete(s.cmd, time.Since(s.start), err)
}

func (s *subCall) fail(err error) {
	s.finish(0, err)
}

// subEntry binds a handler to the call that registered it, so an aborted
// call can unregister only its own handlers.
type subEntry struct {
	handler PushHandler
	owner   *subCall
}

// subscriptions is the registry that routes push frames while the
// connection is in subscribed mode. All fields are guarded by Client.mu.
type subscriptions struct {
	channels map[string]*subEntry
	patterns map[string]*subEntry

	// waiters holds calls awaiting acknowledgements, keyed by ack kind and
	// name, one occurrence per expected ack. allWaiters holds calls for
	// unsubscribe-all commands, whose acks carry names chosen by the
	// server.
	waiters    map[string][]*subCall
	allWaiters map[PushKind][]*subCall

	// subAckInFlight is set while a subscribe command sent in normal mode
	// has not seen its first acknowledgement. During that window only
	// subscription commands are admitted.
	subAckInFlight bool
	sealed         bool
}

func newSubscriptions() *subscriptions {
	return &subscriptions{
		channels:   make(map[string]*subEntry),
		patterns:   make(map[string]*subEntry),
		waiters:    make(map[string][]*subCall),
		allWaiters: make(map[PushKind][]*subCall),
	}
}

func ackKey(kind PushKind, name string) string {
	return string(kind) + ":" + name
}

// register installs a call's handlers and ack waiters. Handlers the call
// displaces are remembered on it so a failed call can put them back.
// Caller holds Client.mu.
func (s *subscriptions) register(call *subCall, handler PushHandler) {
	m := s.channels
	if call.pattern {
		m = s.patterns
	}
	for _, name := range call.names {
		if handler != nil {
			if prev, ok := m[name]; ok && prev.owner != call {
				if call.displaced == nil {
					call.displaced = make(map[string]*subEntry)
				}
				if _, dup := call.displaced[name]; !dup {
					call.displaced[name] = prev
				}
			}
			m[name] = &subEntry{handler: handler, owner: call}
		}
		key := ackKey(call.ackKind, name)
		s.waiters[key] = append(s.waiters[key], call)
	}
	for i := 0; call.wildcard && i < call.expected; i++ {
		s.allWaiters[call.ackKind] = append(s.allWaiters[call.ackKind], call)
	}
}

// unregister removes a failed call's handlers and waiters, restoring any
// handler the call had displaced. Handlers that an even newer call owns
// stay put. Caller holds Client.mu.
func (s *subscriptions) unregister(call *subCall) {
	m := s.channels
	if call.pattern {
		m = s.patterns
	}
	for _, name := range call.names {
		if e := m[name]; e != nil && e.owner == call {
			if prev := call.displaced[name]; prev != nil {
				m[name] = prev
			} else {
				delete(m, name)
			}
		}
		key := ackKey(call.ackKind, name)
		s.waiters[key] = removeCall(s.waiters[key], call)
		if len(s.waiters[key]) == 0 {
			delete(s.waiters, key)
		}
	}
	if call.wildcard {
		s.allWaiters[call.ackKind] = removeCall(s.allWaiters[call.ackKind], call)
	}
}

func removeCall(list []*subCall, call *subCall) []*subCall {
	out := list[:0]
	for _, c := range list {
		if c != call {
			out = append(out, c)
		}
	}
	return out
}

// takeWaiter pops the oldest call waiting for this acknowledgement,
// trying the exact name first and unsubscribe-all waiters second. Caller
// holds Client.mu.
func (s *subscriptions) takeWaiter(kind PushKind, name string) *subCall {
	key := ackKey(kind, name)
	if list := s.waiters[key]; len(list) > 0 {
		call := list[0]
		if len(list) == 1 {
			delete(s.waiters, key)
		} else {
			s.waiters[key] = list[1:]
		}
		return call
	}
	if list := s.allWaiters[kind]; len(list) > 0 {
		call := list[0]
		s.allWaiters[kind] = list[1:]
		return call
	}
	return nil
}

// hasSubscribeWaiter reports whether a subscribe for name is still
// awaiting its ack, meaning the name's registry entry belongs to that
// newer call and must survive an unsubscribe ack. Caller holds Client.mu.
func (s *subscriptions) hasSubscribeWaiter(kind PushKind, name string) bool {
	return len(s.waiters[ackKey(kind, name)]) > 0
}

// awaitingSubscribeAcks reports whether any subscribe acknowledgements
// are still due, which keeps the connection in subscribed mode even when
// the registry momentarily empties. Caller holds Client.mu.
func (s *subscriptions) awaitingSubscribeAcks() bool {
	if s.subAckInFlight {
		return true
	}
	for key, list := range s.waiters {
		if len(list) == 0 {
			continue
		}
		if kindOfKey(key) == PushKindSubscribe || kindOfKey(key) == PushKindPSubscribe {
			return true
		}
	}
	return false
}

func kindOfKey(key string) PushKind {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return PushKind(key[:i])
		}
	}
	return PushKind(key)
}

// seal marks the registry dead and returns every call still waiting on an
// acknowledgement, deduplicated, for rejection. Caller holds Client.mu.
func (s *subscriptions) seal() []*subCall {
	s.sealed = true
	seen := make(map[*subCall]bool)
	var calls []*subCall
	collect := func(list []*subCall) {
		for _, call := range list {
			if !seen[call] {
				seen[call] = true
				calls = append(calls, call)
			}
		}
	}
	for _, list := range s.waiters {
		collect(list)
	}
	for _, list := range s.allWaiters {
		collect(list)
	}
	s.channels = make(map[string]*subEntry)
	s.patterns = make(map[string]*subEntry)
	s.waiters = make(map[string][]*subCall)
	s.allWaiters = make(map[PushKind][]*subCall)
	s.subAckInFlight = false
	return calls
}

// subAck is the pending entry for a subscribe command issued in normal
// mode. Its reply, the first acknowledgement, is the moment the
// connection enters subscribed mode; everything after arrives as pushes.
type subAck struct {
	c    *Client
	gen  uint64
	call *subCall
}

func (s *subAck) resolve(v resp.Value) {
	s.c.enterSubscribed(s.gen, v)
}

func (s *subAck) reject(err error) {
	s.c.abortSubscribe(s.gen, s.call, err)
}

func (s *subAck) command() string {
	return s.call.cmd
}

// unsubAck is the pending entry for one acknowledgement of an unsubscribe
// command issued in normal mode, where acks arrive as ordinary replies.
type unsubAck struct {
	call *subCall
}

func (u *unsubAck) resolve(v resp.Value) {
	msg, err := parsePush(v)
	if err != nil || (msg.Kind != PushKindUnsubscribe && msg.Kind != PushKindPUnsubscribe) {
		u.call.fail(NewError(ErrorTypeReply, "malformed unsubscribe acknowledgement", err))
		return
	}
	u.call.ackArrived(msg.Count)
}

func (u *unsubAck) reject(err error) {
	u.call.fail(err)
}

func (u *unsubAck) command() string {
	return u.call.cmd
}

// Subscribe subscribes to one or more channels. The handler receives
// every message published to them, plus the subscription acknowledgements
// themselves, on the read loop goroutine. The returned future resolves
// with the server's subscription count once every channel is
// acknowledged.
//
// The first Subscribe puts the connection into subscribed mode: from then
// on only Subscribe, PSubscribe, Unsubscribe, and PUnsubscribe are
// accepted until every subscription is released. Other commands fail with
// ErrSubscribedMode.
//
// Subscriptions do not survive reconnects; after Connect the client is
// back in normal mode with no handlers.
//
// Example:
//
//	count, err := client.Subscribe(ctx, func(m redwing.PushMessage) {
//	    if m.Kind == redwing.PushKindMessage {
//	        fmt.Printf("%s: %s\n", m.Channel, m.Payload)
//	    }
//	}, "news", "alerts").Wait(ctx)
func (c *Client) Subscribe(ctx context.Context, handler PushHandler, channels ...string) *Future[int64] {
	return c.subscribeCmd(ctx, "SUBSCRIBE", PushKindSubscribe, false, handler, channels)
}

// PSubscribe subscribes to one or more glob-style patterns. Matching
// messages arrive with Kind PushKindPMessage and both Pattern and Channel
// set.
//
// Example:
//
//	client.PSubscribe(ctx, func(m redwing.PushMessage) {
//	    if m.Kind == redwing.PushKindPMessage {
//	        fmt.Printf("%s via %s: %s\n", m.Channel, m.Pattern, m.Payload)
//	    }
//	}, "user.*")
func (c *Client) PSubscribe(ctx context.Context, handler PushHandler, patterns ...string) *Future[int64] {
	return c.subscribeCmd(ctx, "PSUBSCRIBE", PushKindPSubscribe, true, handler, patterns)
}

// Unsubscribe releases channel subscriptions. With no arguments it
// releases all of them. The future resolves with the subscription count
// from the final acknowledgement; when that count reaches zero and no
// subscriptions remain, the connection returns to normal mode.
func (c *Client) Unsubscribe(ctx context.Context, channels ...string) *Future[int64] {
	return c.unsubscribeCmd(ctx, "UNSUBSCRIBE", PushKindUnsubscribe, false, channels)
}

// PUnsubscribe releases pattern subscriptions. With no arguments it
// releases all of them.
func (c *Client) PUnsubscribe(ctx context.Context, patterns ...string) *Future[int64] {
	return c.unsubscribeCmd(ctx, "PUNSUBSCRIBE", PushKindPUnsubscribe, true, patterns)
}

// Publish posts a message to a channel and resolves with the number of
// subscribers that received it. Publishing uses the normal request/reply
// path, so it is rejected on a connection that is itself subscribed.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) *Future[int64] {
	return send(c, ctx, shapeInt, "PUBLISH", channel, message)
}

func (c *Client) subscribeCmd(ctx context.Context, cmd string, ackKind PushKind, pattern bool, handler PushHandler, names []string) *Future[int64] {
	if handler == nil {
		return failedFuture[int64](NewError(ErrorTypeValidation, cmd+" requires a handler", nil))
	}
	if len(names) == 0 {
		return failedFuture[int64](NewError(ErrorTypeValidation, cmd+" requires at least one channel", nil))
	}
	payload, err := encodeNames(cmd, names)
	if err != nil {
		return failedFuture[int64](NewError(ErrorTypeEncoding, err.Error(), err))
	}
	if err := ctx.Err(); err != nil {
		return failedFuture[int64](err)
	}

	c.mu.Lock()
	if err := c.admitSubLocked(); err != nil {
		c.mu.Unlock()
		return failedFuture[int64](err)
	}

	call := newSubCall(cmd, len(names), c.obs)
	call.ackKind = ackKind
	call.pattern = pattern
	call.names = names

	// In normal mode the first acknowledgement arrives as this command's
	// reply and flips the connection into subscribed mode. Any later
	// subscription traffic arrives as pushes and is matched through the
	// registry instead.
	var entry pending
	if c.mode == modeNormal && !c.subs.subAckInFlight {
		entry = &subAck{c: c, gen: c.gen, call: call}
		c.subs.subAckInFlight = true
	}
	c.subs.register(call, handler)

	select {
	case c.writeCh <- writeReq{payload: payload, entry: entry}:
		queued := len(c.writeCh)
		c.mu.Unlock()
		c.obs.OnCommandQueued(cmd, queued)
		return call.fut
	default:
		c.subs.unregister(call)
		if entry != nil {
			c.subs.subAckInFlight = false
		}
		c.mu.Unlock()
		return failedFuture[int64](NewError(ErrorTypeBackpressure, "write queue full", ErrWriteQueueFull))
	}
}

func (c *Client) unsubscribeCmd(ctx context.Context, cmd string, ackKind PushKind, pattern bool, names []string) *Future[int64] {
	payload, err := encodeNames(cmd, names)
	if err != nil {
		return failedFuture[int64](NewError(ErrorTypeEncoding, err.Error(), err))
	}
	if err := ctx.Err(); err != nil {
		return failedFuture[int64](err)
	}

	c.mu.Lock()
	if err := c.admitSubLocked(); err != nil {
		c.mu.Unlock()
		return failedFuture[int64](err)
	}

	// The server acknowledges each name separately. For unsubscribe-all it
	// acknowledges whatever is subscribed at that point, or sends a single
	// nil-name ack when nothing is.
	expected := len(names)
	if expected == 0 {
		m := c.subs.channels
		if pattern {
			m = c.subs.patterns
		}
		if expected = len(m); expected == 0 {
			expected = 1
		}
	}

	call := newSubCall(cmd, expected, c.obs)
	call.ackKind = ackKind
	call.pattern = pattern
	call.names = names
	call.wildcard = len(names) == 0

	if c.mode == modeNormal && !c.subs.subAckInFlight {
		// Plain request/reply: each ack arrives as an ordinary reply, so
		// enqueue one pending entry per expected ack.
		entries := make([]writeReq, expected)
		entries[0] = writeReq{payload: payload, entry: &unsubAck{call: call}}
		for i := 1; i < expected; i++ {
			entries[i] = writeReq{entry: &unsubAck{call: call}}
		}
		if len(c.writeCh)+expected > cap(c.writeCh) {
			c.mu.Unlock()
			return failedFuture[int64](NewError(ErrorTypeBackpressure, "write queue full", ErrWriteQueueFull))
		}
		for _, req := range entries {
			c.writeCh <- req
		}
		queued := len(c.writeCh)
		c.mu.Unlock()
		c.obs.OnCommandQueued(cmd, queued)
		return call.fut
	}

	c.subs.register(call, nil)

	select {
	case c.writeCh <- writeReq{payload: payload}:
		queued := len(c.writeCh)
		c.mu.Unlock()
		c.obs.OnCommandQueued(cmd, queued)
		return call.fut
	default:
		c.subs.unregister(call)
		c.mu.Unlock()
		return failedFuture[int64](NewError(ErrorTypeBackpressure, "write queue full", ErrWriteQueueFull))
	}
}

// admitSubLocked is the admission check for subscription commands, which
// are legal in both modes. Caller holds c.mu.
func (c *Client) admitSubLocked() error {
	switch c.state {
	case stateConnected:
		return nil
	case stateClosed:
		return NewError(ErrorTypeClosed, "client is closed", ErrClosed)
	default:
		return NewError(ErrorTypeConnection, "not connected", ErrNotConnected)
	}
}

func encodeNames(cmd string, names []string) ([]byte, error) {
	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}
	return resp.AppendCommand(nil, cmd, args...)
}

// enterSubscribed handles the first subscribe acknowledgement, which
// arrives as a normal reply. It flips the connection into subscribed mode
// and then routes the ack like any other push.
func (c *Client) enterSubscribed(gen uint64, v resp.Value) {
	msg, err := parsePush(v)
	if err != nil || (msg.Kind != PushKindSubscribe && msg.Kind != PushKindPSubscribe) {
		c.fatal(gen, NewError(ErrorTypeProtocol, "malformed subscribe acknowledgement", err))
		return
	}

	c.mu.Lock()
	if c.gen != gen || c.state != stateConnected {
		c.mu.Unlock()
		return
	}
	c.subs.subAckInFlight = false
	c.mode = modeSubscribed
	c.mu.Unlock()

	c.log.Debug("entered subscribed mode")
	c.routeAndDeliver(msg)
}

// abortSubscribe handles a rejected subscribe: either the server answered
// with an error reply or the connection died before the first ack.
func (c *Client) abortSubscribe(gen uint64, call *subCall, err error) {
	c.mu.Lock()
	if c.gen == gen && c.subs != nil && !c.subs.sealed {
		c.subs.subAckInFlight = false
		c.subs.unregister(call)
	}
	c.mu.Unlock()
	call.fail(err)
}

// dispatchPush routes one frame received in subscribed mode. Error
// replies cannot be matched to a command here, so they are logged and
// dropped; any other frame that does not parse as a push is fatal.
func (c *Client) dispatchPush(gen uint64, v resp.Value) bool {
	if v.Type == resp.TypeError {
		c.log.WithField("reply", v.Text()).Warn("error reply in subscribed mode dropped")
		return true
	}
	msg, err := parsePush(v)
	if err != nil {
		c.fatal(gen, NewError(ErrorTypeProtocol, "unexpected frame in subscribed mode", err))
		return false
	}
	c.routeAndDeliver(msg)
	return true
}

// routeAndDeliver looks up the handler and ack waiter for a push under the
// lock, applies registry changes, and then delivers outside the lock so
// handlers and future callbacks may call back into the client.
func (c *Client) routeAndDeliver(msg PushMessage) {
	var handler PushHandler
	var acked *subCall

	c.mu.Lock()
	subs := c.subs
	switch msg.Kind {
	case PushKindMessage:
		if e := subs.channels[msg.Channel]; e != nil {
			handler = e.handler
		}

	case PushKindPMessage:
		if e := subs.patterns[msg.Pattern]; e != nil {
			handler = e.handler
		}

	case PushKindSubscribe, PushKindPSubscribe:
		name, m := msg.Channel, subs.channels
		if msg.Kind == PushKindPSubscribe {
			name, m = msg.Pattern, subs.patterns
		}
		if e := m[name]; e != nil {
			handler = e.handler
		}
		acked = subs.takeWaiter(msg.Kind, name)

	case PushKindUnsubscribe, PushKindPUnsubscribe:
		name, m := msg.Channel, subs.channels
		subKind := PushKindSubscribe
		if msg.Kind == PushKindPUnsubscribe {
			name, m = msg.Pattern, subs.patterns
			subKind = PushKindPSubscribe
		}
		if name != "" {
			if e := m[name]; e != nil {
				handler = e.handler
				// Keep the entry when a newer subscribe for the same name
				// is still awaiting its ack; it owns the slot now.
				if !subs.hasSubscribeWaiter(subKind, name) {
					delete(m, name)
				}
			}
		}
		acked = subs.takeWaiter(msg.Kind, name)
		if len(subs.channels) == 0 && len(subs.patterns) == 0 && !subs.awaitingSubscribeAcks() {
			c.mode = modeNormal
		}
	}
	exited := c.mode == modeNormal
	c.mu.Unlock()

	if handler != nil {
		handler(msg)
	}
	if acked != nil {
		acked.ackArrived(msg.Count)
	}
	c.obs.OnPushMessage(string(msg.Kind), msg.Channel)
	if exited && (msg.Kind == PushKindUnsubscribe || msg.Kind == PushKindPUnsubscribe) {
		c.log.Debug("left subscribed mode")
	}
}

// parsePush decodes a push frame: [kind, channel, payload] for messages,
// [kind, pattern, channel, payload] for pattern messages, and
// [kind, name, count] for acknowledgements. The payload is copied out of
// the read buffer so handlers may retain it.
func parsePush(v resp.Value) (PushMessage, error) {
	if v.Type != resp.TypeArray || v.Null || len(v.Elems) < 3 {
		return PushMessage{}, fmt.Errorf("push frame must be an array of at least 3 elements, got %s", v.Type)
	}
	kind := PushKind(v.Elems[0].Text())
	switch kind {
	case PushKindMessage:
		if len(v.Elems) != 3 {
			return PushMessage{}, fmt.Errorf("message push has %d elements, want 3", len(v.Elems))
		}
		return PushMessage{
			Kind:    kind,
			Channel: v.Elems[1].Text(),
			Payload: append([]byte(nil), v.Elems[2].Str...),
		}, nil

	case PushKindPMessage:
		if len(v.Elems) != 4 {
			return PushMessage{}, fmt.Errorf("pmessage push has %d elements, want 4", len(v.Elems))
		}
		return PushMessage{
			Kind:    kind,
			Pattern: v.Elems[1].Text(),
			Channel: v.Elems[2].Text(),
			Payload: append([]byte(nil), v.Elems[3].Str...),
		}, nil

	case PushKindSubscribe, PushKindUnsubscribe:
		if v.Elems[2].Type != resp.TypeInteger {
			return PushMessage{}, fmt.Errorf("%s ack count is %s, want integer", kind, v.Elems[2].Type)
		}
		return PushMessage{Kind: kind, Channel: v.Elems[1].Text(), Count: v.Elems[2].Int}, nil

	case PushKindPSubscribe, PushKindPUnsubscribe:
		if v.Elems[2].Type != resp.TypeInteger {
			return PushMessage{}, fmt.Errorf("%s ack count is %s, want integer", kind, v.Elems[2].Type)
		}
		return PushMessage{Kind: kind, Pattern: v.Elems[1].Text(), Count: v.Elems[2].Int}, nil

	default:
		return PushMessage{}, fmt.Errorf("unknown push kind %q", v.Elems[0].Text())
	}
}
