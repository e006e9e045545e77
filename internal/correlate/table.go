// ABOUTME: Pending-request table correlating broadcast commands with panel replies.
// ABOUTME: Guarantees every request id is resolved or expired exactly once.

package correlate

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/framegate/framegate/internal/protocol"
)

// ErrTimeout is delivered to a waiter whose reply window elapsed before any
// panel answered.
var ErrTimeout = errors.New("timed out waiting for panel reply")

// Outcome is the single terminal value delivered to a waiter.
type Outcome struct {
	Result *protocol.Result
	Err    error
}

// Waiter is the gateway-side handle for one in-flight request.
type Waiter struct {
	ID        int64
	CreatedAt time.Time

	ch chan Outcome
}

// Done returns a channel that receives exactly one Outcome, either the
// correlated panel reply or ErrTimeout.
func (w *Waiter) Done() <-chan Outcome {
	return w.ch
}

// Table maps in-flight request ids to waiters. Resolve and Expire race for
// each id; the claim is a single check-and-remove under the mutex, so exactly
// one of them fulfills the waiter and the loser is a no-op.
type Table struct {
	mu      sync.Mutex
	pending map[int64]*Waiter
	nextID  atomic.Int64
}

// NewTable creates an empty correlation table.
func NewTable() *Table {
	return &Table{pending: make(map[int64]*Waiter)}
}

// NextID mints the next request identifier. Ids start at 1, increase
// monotonically, and are never reused within a process lifetime.
func (t *Table) NextID() int64 {
	return t.nextID.Add(1)
}

// Create registers a waiter for a fresh id. The caller guarantees id
// uniqueness, normally by minting it with NextID.
func (t *Table) Create(id int64) *Waiter {
	w := &Waiter{
		ID:        id,
		CreatedAt: time.Now(),
		ch:        make(chan Outcome, 1),
	}

	t.mu.Lock()
	t.pending[id] = w
	t.mu.Unlock()
	return w
}

// claim removes and returns the waiter for id, or nil if the id is unknown or
// already claimed by the other path.
func (t *Table) claim(id int64) *Waiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.pending[id]
	delete(t.pending, id)
	return w
}

// Resolve fulfills the waiter for id with a panel reply and reports whether a
// match was found. Unmatched replies (unknown, already resolved, or already
// expired ids) are dropped silently.
func (t *Table) Resolve(id int64, res *protocol.Result) bool {
	w := t.claim(id)
	if w == nil {
		return false
	}
	w.ch <- Outcome{Result: res}
	return true
}

// Expire fails the waiter for id with ErrTimeout. No-op if the id was already
// resolved; reports whether the expiry won.
func (t *Table) Expire(id int64) bool {
	w := t.claim(id)
	if w == nil {
		return false
	}
	w.ch <- Outcome{Err: ErrTimeout}
	return true
}

// Len reports the number of requests still awaiting a reply.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
