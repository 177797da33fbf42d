package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptfire/promptfire/internal/config"
	"github.com/promptfire/promptfire/internal/metrics"
	"github.com/promptfire/promptfire/internal/output"
	"github.com/promptfire/promptfire/internal/runner"
)

func newStreamCommand() *cobra.Command {
	defaults := config.Default()
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Exercise streaming chat and echo tokens as they arrive",
		Long: `Stream runs each scenario over the streaming chat endpoint, echoing
tokens live and reporting time to first token, then fires a round of
concurrent non-streaming requests to verify the server holds up under
simultaneous load.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(cmd)
		},
	}
	cmd.Flags().String("scenarios", "", "YAML file with custom scenarios")
	cmd.Flags().Int("concurrent", defaults.Stream.Concurrent, "requests in the concurrent round (0 disables)")
	return cmd
}

func runStream(cmd *cobra.Command) error {
	ctx := cmd.Context()
	b, err := newBench(ctx, cmd, "stream")
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

	scenarios := config.StreamScenarios()
	if b.cfg.Stream.ScenarioFile != "" {
		scenarios, err = config.LoadScenarios(b.cfg.Stream.ScenarioFile)
		if err != nil {
			return err
		}
	}

	echo := !b.cfg.JSONOutput && !b.cfg.Quiet
	if echo {
		b.driver.Echo = b.out
	}

	do := b.instrument(b.driver.StreamChat)
	start := time.Now()

	divider := strings.Repeat("-", 40)
	for i, sc := range scenarios {
		if ctx.Err() != nil {
			break
		}
		trial := metrics.Trial{
			ID:       fmt.Sprintf("stream-%d", i+1),
			Group:    sc.Name,
			Prompt:   sc.Prompt,
			Sampling: b.sampling(sc.MaxTokens, true),
		}
		b.printf("\n[%d/%d] %s\n%s\n", i+1, len(scenarios), sc.Name, divider)
		res := do(ctx, trial)
		b.collector.Record(res)
		if res.Success {
			b.printf("\n%s\nTokens: %d | TTFT: %s | Total: %s | %.1f tok/s\n",
				divider, res.CompletionTokens, res.TTFT.Round(time.Millisecond),
				res.Total.Round(time.Millisecond), res.TokensPerSec)
		} else {
			b.printf("\nfailed: %s\n", res.Err)
		}
	}

	// The concurrent round is non-streaming; echo would interleave.
	b.driver.Echo = nil

	if ctx.Err() == nil && b.cfg.Stream.Concurrent > 0 {
		n := b.cfg.Stream.Concurrent
		b.printf("\n--- Concurrent round (%d requests) ---\n", n)

		trials := make([]metrics.Trial, n)
		for i := range trials {
			trials[i] = metrics.Trial{
				ID:       fmt.Sprintf("concurrent-%d", i+1),
				Group:    "concurrent",
				Prompt:   fmt.Sprintf("Tell me an interesting fact about space. Request #%d", i+1),
				Sampling: b.sampling(100, false),
			}
		}

		runner.New(runner.Options{
			Policy:   runner.PolicyBurst,
			Trials:   trials,
			Do:       b.instrument(b.driver.Chat),
			OnResult: b.collector.Record,
		}).Run(ctx)

		if echo {
			output.PrintTrialLines(b.out, b.resultsInGroup("concurrent"))
		}
	}

	return b.emit(b.summarize(time.Since(start)))
}
