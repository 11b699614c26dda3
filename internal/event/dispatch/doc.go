// Package dispatch provides the schedulers that run emitted handlers.
//
// A Scheduler accepts Tasks and runs them later, never inside the Schedule
// call. Tasks submitted from one goroutine run in submission order.
//
// # Schedulers
//
// Two implementations are provided:
//
//   - Queue: an unbounded FIFO drained by a single worker goroutine. Default
//     returns a process-wide Queue that is started on first use.
//
//   - Deferred: a cooperative queue for hosts with their own loop. Tasks run
//     in the goroutine that calls Flush, which makes it the natural choice
//     for deterministic tests.
//
// Any func(Task) error can be used through SchedulerFunc.
//
// # Fault Isolation
//
// Both schedulers run tasks through an Executor. A task that returns an
// error or panics does not affect the tasks after it. The fault is handed
// to a FaultHandler; the default, LogFault, writes it to the zerolog global
// logger together with the panic stack.
//
// # Usage
//
//	q := dispatch.NewQueue(
//	    dispatch.WithFaultHandler(func(err error) {
//	        logger.Error().Err(err).Msg("handler failed")
//	    }),
//	)
//	if err := q.Start(); err != nil {
//	    return err
//	}
//	defer q.Stop(context.Background())
//
//	_ = q.Schedule(func() error {
//	    return doWork()
//	})
package dispatch
