// Package runner dispatches benchmark trials against an inference server.
//
// A run takes a fixed list of [metrics.Trial] values and a [TrialFunc] that
// executes one trial. Two dispatch policies are supported:
//
//   - [PolicyPool]: a fixed-size worker pool. Submission is staggered with a
//     small pause every Concurrency trials, and can additionally be paced
//     with a requests-per-second limit.
//   - [PolicyBurst]: every trial starts at once; the shared HTTP connection
//     pool is the only limit on parallelism.
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Policy:      runner.PolicyPool,
//		Concurrency: 5,
//		Stagger:     100 * time.Millisecond,
//		Trials:      trials,
//		Do:          driver.ChatTrial,
//		OnResult:    collector.Record,
//	})
//	result := r.Run(ctx)
//
// # Guarantees
//
// Every dispatched trial produces exactly one result, delivered through
// OnResult in completion order. A failed trial never aborts its siblings and
// is never retried. Cancelling the context stops further submission; trials
// already handed to a worker still produce their result.
//
// # Middleware
//
// [WithLogging] wraps a TrialFunc to report failures as they happen.
package runner
