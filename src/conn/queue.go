package conn

import "sync"

// taskQueue is an unbounded FIFO of functions to run on the manager's loop.
// Any goroutine may push; only the loop pops. The buffered signal channel
// coalesces wake-ups.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]func(), 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// push appends fn and reports false if the queue is closed.
func (q *taskQueue) push(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, fn)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// drain removes and returns every queued task.
func (q *taskQueue) drain() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks := q.tasks
	q.tasks = make([]func(), 0, 16)
	return tasks
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
