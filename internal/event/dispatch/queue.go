package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Queue is the default Scheduler. Tasks are kept in an unbounded FIFO and
// run one at a time by a single worker goroutine, so execution order is
// submission order.
type Queue struct {
	executor *Executor

	// State
	mu      sync.Mutex // protects pending, running and the channels
	pending []Task
	running bool
	wake    chan struct{}
	done    chan struct{}

	// Stats
	enqueued    atomic.Uint64
	processed   atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	rejected    atomic.Uint64
	totalTimeNs atomic.Int64
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithFaultHandler sets the handler for task errors and panics.
func WithFaultHandler(h FaultHandler) QueueOption {
	return func(q *Queue) {
		q.executor = NewExecutor(WithExecutorFaultHandler(h))
	}
}

// NewQueue creates a stopped queue. Call Start before scheduling.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		executor: NewExecutor(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

var (
	defaultOnce  sync.Once
	defaultQueue *Queue
)

// Default returns the process-wide queue, starting it on first use.
// It is shared by every registry that is not given its own scheduler and
// should not be stopped.
func Default() *Queue {
	defaultOnce.Do(func() {
		defaultQueue = NewQueue()
		_ = defaultQueue.Start()
	})
	return defaultQueue
}

// Start starts the worker goroutine. After a Stop that timed out it
// returns ErrDraining until the previous worker has finished.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return ErrAlreadyRunning
	}
	if q.done != nil {
		select {
		case <-q.done:
		default:
			return ErrDraining
		}
	}

	q.wake = make(chan struct{}, 1)
	q.done = make(chan struct{})
	q.running = true

	go q.worker(q.wake, q.done)

	return nil
}

// Stop stops accepting tasks and waits until everything already queued
// has run, or until ctx is done.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return ErrNotRunning
	}
	q.running = false
	wake, done := q.wake, q.done
	q.mu.Unlock()

	signal(wake)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule appends a task to the queue. It never blocks on task execution.
func (q *Queue) Schedule(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		q.rejected.Add(1)
		return ErrNotRunning
	}
	q.pending = append(q.pending, task)
	wake := q.wake
	q.mu.Unlock()

	q.enqueued.Add(1)
	signal(wake)
	return nil
}

// worker drains the queue in batches until the queue is stopped and empty.
func (q *Queue) worker(wake <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			if !q.running {
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			<-wake
			continue
		}
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, task := range batch {
			q.run(task)
		}
	}
}

func (q *Queue) run(task Task) {
	result := q.executor.Execute(task)

	q.processed.Add(1)
	q.totalTimeNs.Add(result.Duration.Nanoseconds())

	switch {
	case result.IsPanic():
		q.panicked.Add(1)
	case result.IsError():
		q.failed.Add(1)
	case result.IsSuccess():
		q.succeeded.Add(1)
	}
}

// signal performs a non-blocking send on a wake channel.
func signal(wake chan struct{}) {
	select {
	case wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of tasks waiting to run.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// IsRunning returns true if the queue accepts tasks.
func (q *Queue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Stats returns queue statistics.
func (q *Queue) Stats() QueueStats {
	processed := q.processed.Load()
	totalNs := q.totalTimeNs.Load()

	var avgNs int64
	if processed > 0 {
		avgNs = totalNs / int64(processed)
	}

	return QueueStats{
		Enqueued:      q.enqueued.Load(),
		Processed:     processed,
		Succeeded:     q.succeeded.Load(),
		Failed:        q.failed.Load(),
		Panicked:      q.panicked.Load(),
		Rejected:      q.rejected.Load(),
		Pending:       q.Pending(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// QueueStats contains statistics for a Queue.
type QueueStats struct {
	// Enqueued is the total number of tasks accepted.
	Enqueued uint64

	// Processed is the number of tasks that have run.
	Processed uint64

	// Succeeded is the number of tasks that returned nil.
	Succeeded uint64

	// Failed is the number of tasks that returned an error.
	Failed uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// Rejected is the number of tasks refused because the queue was stopped.
	Rejected uint64

	// Pending is the current number of tasks waiting to run.
	Pending int

	// TotalDuration is the cumulative time spent running tasks.
	TotalDuration time.Duration

	// AvgDuration is the average task run time.
	AvgDuration time.Duration
}

var _ Scheduler = (*Queue)(nil)
