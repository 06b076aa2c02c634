// Package eventq implements the event channel between a native UI thread and
// the consumption loop: an unbounded FIFO whose Send never blocks.
package eventq

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/username/systray/internal/platform"
)

// Queue is safe for any number of producers and one consumer.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *linkedlistqueue.Queue
	closed bool
}

// New returns an empty, open queue.
func New() *Queue {
	q := &Queue{items: linkedlistqueue.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send appends ev. Events sent after Close are discarded.
func (q *Queue) Send(ev platform.Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items.Enqueue(ev)
	q.mu.Unlock()
	q.cond.Signal()
}

// Recv blocks until an event is available. It reports false once the queue
// is closed and drained.
func (q *Queue) Recv() (platform.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Empty() && !q.closed {
		q.cond.Wait()
	}
	v, ok := q.items.Dequeue()
	if !ok {
		return platform.Event{}, false
	}
	return v.(platform.Event), true
}

// Close marks the producer side as gone and wakes the consumer.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Size()
}
