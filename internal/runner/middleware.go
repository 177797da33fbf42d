package runner

import (
	"context"

	"github.com/promptfire/promptfire/internal/metrics"
)

// FailureLogger logs failed trials as they complete.
type FailureLogger interface {
	LogFailure(res metrics.Result)
}

// WithLogging wraps a TrialFunc to log failures.
func WithLogging(fn TrialFunc, logger FailureLogger) TrialFunc {
	if logger == nil {
		return fn
	}
	return func(ctx context.Context, trial metrics.Trial) metrics.Result {
		res := fn(ctx, trial)
		if !res.Success {
			logger.LogFailure(res)
		}
		return res
	}
}
