package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/promptfire/promptfire/internal/config"
	"github.com/promptfire/promptfire/internal/driver"
	"github.com/promptfire/promptfire/internal/llmclient"
	"github.com/promptfire/promptfire/internal/metrics"
	"github.com/promptfire/promptfire/internal/output"
	"github.com/promptfire/promptfire/internal/runner"
	"github.com/promptfire/promptfire/internal/threshold"
	"github.com/promptfire/promptfire/internal/tracing"
)

// healthTimeout caps the readiness probe separately from the per-request
// timeout.
const healthTimeout = 5 * time.Second

// bench bundles the state every mode shares: effective config, client,
// driver, collector, parsed thresholds, run identity, optional tracing.
type bench struct {
	cfg        config.Config
	client     *llmclient.Client
	driver     *driver.Driver
	collector  *metrics.Collector
	tracer     *tracing.Provider
	thresholds []threshold.Threshold
	runID      string
	mode       string
	out        io.Writer
}

func newBench(ctx context.Context, cmd *cobra.Command, mode string) (*bench, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	// Threshold syntax errors surface before any request is sent.
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}

	client := llmclient.New(cfg.Server, cfg.Model, cfg.Timeout)
	if provider.Enabled() {
		client.WrapTransport(tracing.Transport)
	}

	return &bench{
		cfg:        cfg,
		client:     client,
		driver:     driver.New(client),
		collector:  metrics.NewCollector(),
		tracer:     provider,
		thresholds: thresholds,
		runID:      ulid.Make().String(),
		mode:       mode,
		out:        cmd.OutOrStdout(),
	}, nil
}

// shutdown flushes pending spans. It uses a fresh context so a cancelled run
// can still export what it captured.
func (b *bench) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.tracer.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: trace export shutdown: %v\n", err)
	}
}

// healthGate verifies the server is ready. A failed health check is the only
// fatal request failure; individual trial errors are recorded, never fatal.
func (b *bench) healthGate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := b.client.Health(ctx); err != nil {
		return fmt.Errorf("server health check failed: %w", err)
	}
	b.printf("Server %s is healthy\n", b.cfg.Server)
	return nil
}

// printf writes progress text unless quiet or JSON output is requested. In
// JSON mode the report must be the only thing on stdout.
func (b *bench) printf(format string, args ...interface{}) {
	if b.cfg.Quiet || b.cfg.JSONOutput {
		return
	}
	fmt.Fprintf(b.out, format, args...)
}

// sampling derives per-trial generation parameters from the configured
// defaults. maxTokens overrides the default budget when positive.
func (b *bench) sampling(maxTokens int, stream bool) metrics.Sampling {
	s := b.cfg.Sampling
	if maxTokens <= 0 {
		maxTokens = s.MaxTokens
	}
	return metrics.Sampling{
		MaxTokens:       maxTokens,
		Temperature:     s.Temperature,
		TopP:            s.TopP,
		TopK:            s.TopK,
		MinP:            s.MinP,
		PresencePenalty: s.PresencePenalty,
		Stream:          stream,
	}
}

// promptSeed returns the corpus seed: the configured value, or a time-based
// one when unset.
func (b *bench) promptSeed() int64 {
	if b.cfg.Seed != 0 {
		return b.cfg.Seed
	}
	return time.Now().UnixNano()
}

// instrument wraps a trial function with the cross-cutting layers: a span
// per trial when tracing is on, failure logging when requested.
func (b *bench) instrument(fn runner.TrialFunc) runner.TrialFunc {
	wrapped := fn
	if b.tracer.Enabled() {
		tracer := b.tracer.Tracer()
		mode := b.mode
		inner := wrapped
		wrapped = func(ctx context.Context, trial metrics.Trial) metrics.Result {
			ctx, span := tracing.StartTrialSpan(ctx, tracer, mode, trial)
			res := inner(ctx, trial)
			tracing.EndTrialSpan(span, res)
			return res
		}
	}
	if b.cfg.LogErrors {
		wrapped = runner.WithLogging(wrapped, &stderrFailureLogger{})
	}
	return wrapped
}

// emit renders the final report, writes the report file, and applies
// thresholds. A threshold failure surfaces as an error so the process
// exits non-zero.
func (b *bench) emit(report metrics.Report) error {
	report.RunID = b.runID
	report.Target = b.cfg.Server
	report.Mode = b.mode

	if b.cfg.JSONOutput {
		if err := output.PrintJSONReport(b.out, report); err != nil {
			return err
		}
	} else {
		output.PrintReport(b.out, report)
	}

	if b.cfg.OutputFile != "" {
		if err := output.WriteReportFile(b.cfg.OutputFile, report); err != nil {
			return err
		}
		b.printf("\nReport written to %s\n", b.cfg.OutputFile)
	}

	return b.applyThresholds(report)
}

func (b *bench) applyThresholds(report metrics.Report) error {
	if len(b.thresholds) == 0 {
		return nil
	}

	results := threshold.NewEvaluator(b.thresholds).Evaluate(report)

	if !b.cfg.JSONOutput {
		fmt.Fprintf(b.out, "\n--- Thresholds ---\n")
		for _, res := range results {
			fmt.Fprintln(b.out, res.Message)
		}
	}

	failed := 0
	for _, res := range results {
		if !res.Pass {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	return nil
}

// summarize builds the aggregate report over everything recorded so far.
func (b *bench) summarize(wall time.Duration) metrics.Report {
	return metrics.Summarize(b.collector.Results(), wall)
}

// resultsInGroup filters recorded results by trial group.
func (b *bench) resultsInGroup(group string) []metrics.Result {
	all := b.collector.Results()
	out := make([]metrics.Result, 0, len(all))
	for _, res := range all {
		if res.Group == group {
			out = append(out, res)
		}
	}
	return out
}

type stderrFailureLogger struct {
	mu sync.Mutex
}

func (l *stderrFailureLogger) LogFailure(res metrics.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[promptfire] trial %s failed: %s\n", res.ID, res.Err)
}

// sleepCtx pauses for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
