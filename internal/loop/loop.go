// Package loop provides the single logical thread editing operations run on.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("loop: closed")

// Loop runs tasks one at a time on its own goroutine. Tasks deferred while a
// task runs are executed after it returns, before the next posted task.
//
// Concurrency model: one goroutine owns all editing state. Do posts work to it
// through a channel; Defer only appends to a queue that the same goroutine
// drains between turns.
type Loop struct {
	tasks chan func()

	mu       sync.Mutex
	deferred []func()

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New starts a loop.
func New() *Loop {
	l := &Loop{
		tasks:   make(chan func()),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.stopCh:
			return
		case task := <-l.tasks:
			task()
			l.drain()
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.deferred
		l.deferred = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, task := range batch {
			task()
		}
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.closed.Load() {
		return ErrClosed
	}
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}
	select {
	case l.tasks <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Defer queues task for the next turn.
func (l *Loop) Defer(task func()) {
	l.mu.Lock()
	l.deferred = append(l.deferred, task)
	l.mu.Unlock()
}

// Close stops the loop. Pending deferred tasks are dropped.
func (l *Loop) Close() {
	if l.closed.CompareAndSwap(false, true) {
		close(l.stopCh)
	}
	<-l.stopped
}

// Queue is a Scheduler for callers that drive turns themselves.
type Queue struct {
	tasks []func()
}

// Defer queues task until the next Flush.
func (q *Queue) Defer(task func()) {
	q.tasks = append(q.tasks, task)
}

// Pending reports how many tasks wait for Flush.
func (q *Queue) Pending() int {
	return len(q.tasks)
}

// Flush runs queued tasks, including tasks they queue, until none remain.
func (q *Queue) Flush() {
	for len(q.tasks) > 0 {
		batch := q.tasks
		q.tasks = nil
		for _, task := range batch {
			task()
		}
	}
}
