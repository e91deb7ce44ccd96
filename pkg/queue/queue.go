package queue

import (
	"container/heap"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/irqsim/irqsim/pkg/device"
)

// Queue errors.
var (
	ErrClosed = errors.New("queue closed")
)

// Queue is a priority queue of pending events.
// It is safe for concurrent use by any number of producers and one taker.
type Queue struct {
	mu sync.Mutex

	items   eventHeap
	nextSeq uint64
	closed  bool

	// ready is closed and replaced whenever an item is inserted.
	ready chan struct{}

	// arrived is closed and replaced on Submit only (not Requeue).
	arrived chan struct{}

	// now is replaceable for tests.
	now func() time.Time
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		ready:   make(chan struct{}),
		arrived: make(chan struct{}),
		now:     time.Now,
	}
}

// Submit inserts a new event for d and returns it with its assigned
// sequence number. It never blocks.
func (q *Queue) Submit(d device.Device, payload any) Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextSeq++
	ev := Event{
		Device:      d,
		Payload:     payload,
		Sequence:    q.nextSeq,
		SubmittedAt: q.now(),
	}
	heap.Push(&q.items, ev)

	q.signalReadyLocked()
	close(q.arrived)
	q.arrived = make(chan struct{})

	return ev
}

// Requeue reinserts a previously taken event, keeping its sequence number.
func (q *Queue) Requeue(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	heap.Push(&q.items, ev)
	q.signalReadyLocked()
}

// TakeBest removes and returns the highest-priority event, blocking while
// the queue is empty. Queued events are returned even after Close or ctx
// cancellation; only an empty queue reports ErrClosed or ctx.Err().
func (q *Queue) TakeBest(ctx context.Context) (Event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := heap.Pop(&q.items).(Event)
			q.mu.Unlock()
			return ev, nil
		}
		if q.closed {
			q.mu.Unlock()
			return Event{}, ErrClosed
		}
		ready := q.ready
		q.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// TryTakeBest removes and returns the highest-priority event without
// blocking. The boolean is false if the queue is empty.
func (q *Queue) TryTakeBest() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Event{}, false
	}
	return heap.Pop(&q.items).(Event), true
}

// Arrivals returns a channel that is closed by the next Submit.
// Grab it before inspecting state to avoid missing a submission.
func (q *Queue) Arrivals() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.arrived
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the queued events in dispatch order.
func (q *Queue) Snapshot() []Event {
	q.mu.Lock()
	result := make([]Event, len(q.items))
	copy(result, q.items)
	q.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		return before(result[i], result[j])
	})
	return result
}

// Close wakes blocked takers. Submissions are still accepted; it is up to
// callers to stop submitting.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.signalReadyLocked()
}

func (q *Queue) signalReadyLocked() {
	close(q.ready)
	q.ready = make(chan struct{})
}
