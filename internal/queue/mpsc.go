// Package queue implements the lock-free multi-producer single-consumer
// event queue between emit sites and the aggregator.
//
// The queue is an intrusive linked list in the exchange-tail scheme by
// Dmitry Vyukov: producers swap the tail pointer and link the previous
// node; the single consumer walks from a stub node. Enqueue is wait-free
// once a node is in hand; nodes come from a sync.Pool so the steady state
// does not allocate.
package queue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/handystats/handystats-go/internal/event"
)

const cacheLinePad = 64

type node struct {
	next atomic.Pointer[node]
	ev   event.Event
}

// Queue is the MPSC event queue. Push may be called from any goroutine;
// Pop and Wait only from the consumer.
type Queue struct {
	tail atomic.Pointer[node]
	_    [cacheLinePad]byte
	head *node
	_    [cacheLinePad]byte

	size  atomic.Int64
	pops  atomic.Uint64
	drops atomic.Uint64

	// limit bounds the queue when positive; excess events are shed.
	limit int64

	pool   sync.Pool
	notify chan struct{}
}

// New builds a queue. A positive limit enables the drop policy; zero means
// unbounded.
func New(limit int64) *Queue {
	q := &Queue{
		limit:  limit,
		notify: make(chan struct{}, 1),
	}
	q.pool.New = func() interface{} { return new(node) }
	stub := new(node)
	q.head = stub
	q.tail.Store(stub)
	return q
}

// Push enqueues an event. It returns false only when the drop policy shed
// the event; producers treat that as success.
func (q *Queue) Push(ev event.Event) bool {
	if q.limit > 0 && q.size.Load() >= q.limit {
		q.drops.Add(1)
		return false
	}

	n := q.pool.Get().(*node)
	n.ev = ev
	n.next.Store(nil)

	prev := q.tail.Swap(n)
	prev.next.Store(n)
	q.size.Add(1)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop dequeues the next event. A false return means the queue looked empty;
// with a producer mid-link a node may be momentarily invisible, so an
// emptiness check during shutdown should consult Size as well.
func (q *Queue) Pop() (event.Event, bool) {
	next := q.head.next.Load()
	if next == nil {
		return event.Event{}, false
	}

	ev := next.ev
	next.ev = event.Event{}

	old := q.head
	q.head = next
	old.next.Store(nil)
	q.pool.Put(old)

	q.size.Add(-1)
	q.pops.Add(1)
	return ev, true
}

// Wait blocks until a push notification arrives or the timeout elapses.
// Returns true if woken by a push.
func (q *Queue) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-q.notify:
		return true
	case <-timer.C:
		return false
	}
}

// Size is the current queue length estimate (enqueued minus consumed).
func (q *Queue) Size() int64 { return q.size.Load() }

// PopCount is the total number of consumed events.
func (q *Queue) PopCount() uint64 { return q.pops.Load() }

// Dropped is the number of events shed by the drop policy.
func (q *Queue) Dropped() uint64 { return q.drops.Load() }
