package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/promptfire/promptfire/internal/metrics"
)

// Result captures execution summary.
type Result struct {
	Dispatched int64
	Errors     int64
	Duration   time.Duration
}

// Runner dispatches a fixed list of trials under one of two policies and
// guarantees one metrics.Result per dispatched trial.
type Runner struct {
	opt     Options
	limiter limiter
}

func New(opt Options) *Runner {
	opt.normalize()
	var lim limiter
	if opt.RatePerSecond > 0 {
		lim = opt.LimiterFactory(opt.RatePerSecond)
	}
	return &Runner{opt: opt, limiter: lim}
}

func (r *Runner) Run(ctx context.Context) Result {
	if r.opt.Policy == PolicyBurst {
		return r.runBurst(ctx)
	}
	return r.runPool(ctx)
}

// runPool executes trials on a fixed-size worker pool. Submission is
// staggered with a fixed pause every Concurrency trials so a bounded run
// does not open its connections in a single burst.
func (r *Runner) runPool(ctx context.Context) Result {
	start := time.Now()
	var dispatched int64
	var errs int64

	jobs := make(chan metrics.Trial)

	// Scheduler: serializes pacing and the submission stagger across workers.
	go func() {
		defer close(jobs)
		for i, trial := range r.opt.Trials {
			if ctx.Err() != nil {
				return
			}
			if r.opt.Stagger > 0 && i > 0 && i%r.opt.Concurrency == 0 {
				select {
				case <-time.After(r.opt.Stagger):
				case <-ctx.Done():
					return
				}
			}
			if r.limiter != nil {
				if err := r.limiter.Wait(ctx); err != nil {
					return
				}
			}
			select {
			case jobs <- trial:
				atomic.AddInt64(&dispatched, 1)
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		go func() {
			defer wg.Done()
			for trial := range jobs {
				r.execute(ctx, trial, &errs)
				if ctx.Err() != nil {
					return
				}
			}
		}()
	}
	wg.Wait()

	return Result{
		Dispatched: atomic.LoadInt64(&dispatched),
		Errors:     atomic.LoadInt64(&errs),
		Duration:   time.Since(start),
	}
}

// runBurst fires every trial at once. The shared HTTP connection pool is the
// only limit on parallelism.
func (r *Runner) runBurst(ctx context.Context) Result {
	start := time.Now()
	var errs int64

	var wg sync.WaitGroup
	wg.Add(len(r.opt.Trials))
	for _, trial := range r.opt.Trials {
		go func(trial metrics.Trial) {
			defer wg.Done()
			r.execute(ctx, trial, &errs)
		}(trial)
	}
	wg.Wait()

	return Result{
		Dispatched: int64(len(r.opt.Trials)),
		Errors:     atomic.LoadInt64(&errs),
		Duration:   time.Since(start),
	}
}

func (r *Runner) execute(ctx context.Context, trial metrics.Trial, errs *int64) {
	res := r.opt.Do(ctx, trial)
	if !res.Success {
		atomic.AddInt64(errs, 1)
	}
	if r.opt.OnResult != nil {
		r.opt.OnResult(res)
	}
}
