package runtime

import "sync"

// opQueue is a thread-safe FIFO queue for submitted requests.
//
// The queue is unbounded so external submitters never block the
// single-writer loop. Thread-safety covers external enqueuing (e.g. CLI
// handlers) while the Run loop dequeues; in practice most usage is
// single-threaded.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type opQueue struct {
	mu     sync.Mutex
	items  []Request
	closed bool
	signal chan struct{} // Signals availability (buffered, size 1)
}

func newOpQueue() *opQueue {
	return &opQueue{
		items:  make([]Request, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *opQueue) Enqueue(r Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, r)

	// Non-blocking send - buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Request{}, false) if the queue is empty.
func (q *opQueue) TryDequeue() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Request{}, false
	}

	r := q.items[0]

	// Nil out the slot so the backing array doesn't retain payloads
	q.items[0] = Request{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return r, true
}

// Wait returns a channel that signals when requests may be available.
// Use with select for context-aware waiting.
func (q *opQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *opQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close signals that no more requests will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *opQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
