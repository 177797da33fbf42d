package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/promptfire/promptfire/internal/metrics"
)

// TrialFunc executes a single trial and always returns a Result, success or
// failure. Implementations must not panic on network errors.
type TrialFunc func(ctx context.Context, trial metrics.Trial) metrics.Result

// Policy selects how pending trials are dispatched.
type Policy string

const (
	// PolicyPool runs trials on a fixed-size worker pool with staggered
	// submission.
	PolicyPool Policy = "pool"
	// PolicyBurst starts every trial concurrently at once.
	PolicyBurst Policy = "burst"
)

// limiter abstracts rate.Limiter for test injection.
type limiter interface {
	Wait(ctx context.Context) error
}

// Options configure the Runner.
type Options struct {
	Policy        Policy
	Concurrency   int           // worker goroutines (pool policy)
	Stagger       time.Duration // pause inserted every Concurrency submissions (pool policy)
	RatePerSecond int           // requests per second pacing (0 means unlimited)

	Trials         []metrics.Trial
	Do             TrialFunc             // required
	OnResult       func(metrics.Result)  // once per result, as trials complete; must be safe for concurrent use
	LimiterFactory func(rps int) limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Policy == "" {
		o.Policy = PolicyPool
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Stagger < 0 {
		o.Stagger = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) limiter {
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
