package redwing

import "sync"

// pendingQueue holds the commands whose replies have not arrived yet, in
// write order. Reply matching is purely positional: the oldest entry gets
// the next reply. One queue lives and dies with one connection.
type pendingQueue struct {
	mu     sync.Mutex
	items  []pending
	sealed bool
}

// push appends an entry. It reports false once the queue is sealed, which
// tells the writer the connection is gone and the entry can never be
// matched to a reply.
func (q *pendingQueue) push(p pending) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sealed {
		return false
	}
	q.items = append(q.items, p)
	return true
}

// pop removes and returns the oldest entry.
func (q *pendingQueue) pop() (pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	p := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return p, true
}

// drainAndSeal removes every entry in FIFO order and permanently refuses
// new pushes. Teardown calls it exactly once per connection, then rejects
// the returned entries in order.
func (q *pendingQueue) drainAndSeal() []pending {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sealed = true
	items := q.items
	q.items = nil
	return items
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
