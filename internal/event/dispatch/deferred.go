package dispatch

import (
	"sync"
	"sync/atomic"
)

// Deferred is a cooperative Scheduler for hosts that run their own loop.
// Scheduled tasks wait until Flush is called and then run in the flushing
// goroutine, in submission order.
type Deferred struct {
	executor *Executor

	mu       sync.Mutex
	pending  []Task
	flushing atomic.Bool

	// Stats
	scheduled atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
}

// DeferredOption configures a Deferred scheduler.
type DeferredOption func(*Deferred)

// WithDeferredFaultHandler sets the handler for task errors and panics.
func WithDeferredFaultHandler(h FaultHandler) DeferredOption {
	return func(d *Deferred) {
		d.executor = NewExecutor(WithExecutorFaultHandler(h))
	}
}

// NewDeferred creates an empty Deferred scheduler.
func NewDeferred(opts ...DeferredOption) *Deferred {
	d := &Deferred{
		executor: NewExecutor(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Schedule queues a task for the next Flush.
func (d *Deferred) Schedule(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	d.mu.Lock()
	d.pending = append(d.pending, task)
	d.mu.Unlock()

	d.scheduled.Add(1)
	return nil
}

// Flush runs queued tasks until the queue is empty, including tasks
// scheduled by the tasks themselves. It returns the number of tasks run.
// A nested Flush from inside a task returns 0.
func (d *Deferred) Flush() int {
	if !d.flushing.CompareAndSwap(false, true) {
		return 0
	}
	defer d.flushing.Store(false)

	ran := 0
	for {
		d.mu.Lock()
		if len(d.pending) == 0 {
			d.mu.Unlock()
			return ran
		}
		task := d.pending[0]
		d.pending[0] = nil
		d.pending = d.pending[1:]
		d.mu.Unlock()

		result := d.executor.Execute(task)
		ran++

		switch {
		case result.IsPanic():
			d.panicked.Add(1)
		case result.IsError():
			d.failed.Add(1)
		case result.IsSuccess():
			d.succeeded.Add(1)
		}
	}
}

// Pending returns the number of tasks waiting for Flush.
func (d *Deferred) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stats returns scheduler statistics.
func (d *Deferred) Stats() DeferredStats {
	return DeferredStats{
		Scheduled: d.scheduled.Load(),
		Succeeded: d.succeeded.Load(),
		Failed:    d.failed.Load(),
		Panicked:  d.panicked.Load(),
		Pending:   d.Pending(),
	}
}

// DeferredStats contains statistics for a Deferred scheduler.
type DeferredStats struct {
	Scheduled uint64
	Succeeded uint64
	Failed    uint64
	Panicked  uint64
	Pending   int
}

var _ Scheduler = (*Deferred)(nil)
