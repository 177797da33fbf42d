package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptfire/promptfire/internal/config"
	"github.com/promptfire/promptfire/internal/dashboard"
	"github.com/promptfire/promptfire/internal/metrics"
	"github.com/promptfire/promptfire/internal/output"
	"github.com/promptfire/promptfire/internal/runner"
)

func newLoadCommand() *cobra.Command {
	defaults := config.Default()
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Run a sustained chat load through a worker pool",
		Long: `Load sends a fixed number of non-streaming chat requests through a
bounded worker pool, optionally paced to a target rate, and reports
latency percentiles, throughput, and an overall assessment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd)
		},
	}
	cmd.Flags().IntP("requests", "n", defaults.Load.Requests, "total requests to send")
	cmd.Flags().IntP("concurrency", "c", defaults.Load.Concurrency, "worker pool size")
	cmd.Flags().Int("tokens", defaults.Load.MaxTokens, "completion budget per request")
	cmd.Flags().String("prompt", defaults.Load.Prompt, "base prompt; each request appends its number")
	cmd.Flags().IntP("rate", "r", defaults.Load.Rate, "target requests per second (0 = unlimited)")
	cmd.Flags().Duration("stagger", defaults.Load.Stagger, "pause inserted between worker batches")
	cmd.Flags().Int("progress-every", defaults.Load.ProgressEvery, "log every Nth completion (0 disables)")
	return cmd
}

func runLoad(cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b, err := newBench(ctx, cmd, "load")
	if err != nil {
		return err
	}
	defer b.shutdown()

	if err := b.healthGate(ctx); err != nil {
		return err
	}

	lc := b.cfg.Load
	trials := make([]metrics.Trial, lc.Requests)
	for i := range trials {
		trials[i] = metrics.Trial{
			ID:       fmt.Sprintf("load-%d", i+1),
			Prompt:   fmt.Sprintf("%s (Request #%d)", lc.Prompt, i+1),
			Sampling: b.sampling(lc.MaxTokens, false),
		}
	}

	var dash *dashboard.Dashboard
	if b.cfg.Dashboard {
		dash, err = dashboard.New(b.collector, dashboard.RunConfig{
			Target:      b.cfg.Server,
			Model:       b.cfg.Model,
			Mode:        "load",
			Concurrency: lc.Concurrency,
			Total:       lc.Requests,
			Rate:        lc.Rate,
			Timeout:     b.cfg.Timeout,
			ConfigFile:  b.cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	echo := !b.cfg.JSONOutput && !b.cfg.Quiet && dash == nil

	onResult := b.collector.Record
	if echo && lc.ProgressEvery > 0 {
		logger := output.NewCompletionLogger(b.out, lc.Requests, lc.ProgressEvery)
		record := b.collector.Record
		onResult = func(res metrics.Result) {
			record(res)
			logger(res)
		}
	}

	if echo {
		fmt.Fprintf(b.out, "Sending %d requests with %d workers", lc.Requests, lc.Concurrency)
		if lc.Rate > 0 {
			fmt.Fprintf(b.out, " at %d req/s", lc.Rate)
		}
		fmt.Fprintln(b.out, " ...")
	}

	result := runner.New(runner.Options{
		Policy:        runner.PolicyPool,
		Concurrency:   lc.Concurrency,
		Stagger:       lc.Stagger,
		RatePerSecond: lc.Rate,
		Trials:        trials,
		Do:            b.instrument(b.driver.Chat),
		OnResult:      onResult,
	}).Run(ctx)

	if dash != nil {
		dash.Stop()
	}

	report := b.summarize(result.Duration)
	err = b.emit(report)
	if echo {
		output.PrintAssessment(b.out, report)
	}
	return err
}
