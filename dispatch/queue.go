// Package dispatch moves work onto the UI goroutine.
package dispatch

import "sync"

// Queue collects functions posted from any goroutine and runs them, in
// order, when the UI goroutine calls Drain.
type Queue struct {
	mu     sync.Mutex
	fns    []func()
	wake   func()
	closed bool
}

// New returns a queue that calls wake after every Post, typically to
// invalidate the window so a frame drains the queue.
func New(wake func()) *Queue {
	return &Queue{wake: wake}
}

// Post enqueues fn. It is dropped if the queue has been closed.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.fns = append(q.fns, fn)
	wake := q.wake
	q.mu.Unlock()

	if wake != nil {
		wake()
	}
}

// Drain runs everything posted so far. Work posted while draining waits
// for the next call.
func (q *Queue) Drain() int {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()

	for _, fn := range fns {
		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return 0
		}
		fn()
	}
	return len(fns)
}

// Close discards pending work and makes later posts no-ops.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.fns = nil
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}
