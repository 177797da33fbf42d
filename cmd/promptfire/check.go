package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptfire/promptfire/internal/config"
	"github.com/promptfire/promptfire/internal/metrics"
	"github.com/promptfire/promptfire/internal/output"
)

const perfPrompt = "Count from 1 to 5."

func newCheckCommand() *cobra.Command {
	defaults := config.Default()
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the server with a set of chat scenarios",
		Long: `Check runs a small set of non-streaming chat scenarios one at a time,
echoing each answer, then measures sequential latency with a short fixed
prompt. Use it to confirm a server is up and answering sensibly before a
longer run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd)
		},
	}
	cmd.Flags().String("scenarios", "", "YAML file with custom scenarios")
	cmd.Flags().Int("perf-requests", defaults.Check.PerfRequests, "sequential requests in the performance phase")
	return cmd
}

func runCheck(cmd *cobra.Command) error {
	ctx := cmd.Context()
	b, err := newBench(ctx, cmd, "check")
	if err != nil {
		return err
	}
	defer b.shutdown()

	if b.cfg.Dashboard {
		return errors.New("dashboard requires load or burst mode")
	}

	if err := b.healthGate(ctx); err != nil {
		return err
	}

	scenarios := config.CheckScenarios()
	if b.cfg.Check.ScenarioFile != "" {
		scenarios, err = config.LoadScenarios(b.cfg.Check.ScenarioFile)
		if err != nil {
			return err
		}
	}

	do := b.instrument(b.driver.Chat)
	start := time.Now()

	b.printf("\n--- Scenarios ---\n")
	for i, sc := range scenarios {
		if ctx.Err() != nil {
			break
		}
		trial := metrics.Trial{
			ID:       fmt.Sprintf("check-%d", i+1),
			Group:    sc.Name,
			Prompt:   sc.Prompt,
			Sampling: b.sampling(sc.MaxTokens, false),
		}
		b.printf("[%d/%d] %s ... ", i+1, len(scenarios), sc.Name)
		res := do(ctx, trial)
		b.collector.Record(res)
		if res.Success {
			b.printf("ok in %s (%d tokens, %.1f tok/s)\n", res.Total.Round(time.Millisecond), res.CompletionTokens, res.TokensPerSec)
			if res.Preview != "" {
				b.printf("      %q\n", res.Preview)
			}
		} else {
			b.printf("failed: %s\n", res.Err)
		}
	}

	if ctx.Err() == nil && b.cfg.Check.PerfRequests > 0 {
		b.printf("\n--- Performance (%d sequential requests) ---\n", b.cfg.Check.PerfRequests)
		for i := 0; i < b.cfg.Check.PerfRequests; i++ {
			if ctx.Err() != nil {
				break
			}
			trial := metrics.Trial{
				ID:       fmt.Sprintf("perf-%d", i+1),
				Group:    "perf",
				Prompt:   perfPrompt,
				Sampling: b.sampling(20, false),
			}
			b.collector.Record(do(ctx, trial))
		}
		if !b.cfg.JSONOutput && !b.cfg.Quiet {
			output.PrintTrialLines(b.out, b.resultsInGroup("perf"))
		}
	}

	return b.emit(b.summarize(time.Since(start)))
}
