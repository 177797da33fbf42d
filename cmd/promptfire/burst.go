package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptfire/promptfire/internal/config"
	"github.com/promptfire/promptfire/internal/dashboard"
	"github.com/promptfire/promptfire/internal/metrics"
	"github.com/promptfire/promptfire/internal/output"
	"github.com/promptfire/promptfire/internal/prompt"
	"github.com/promptfire/promptfire/internal/runner"
)

func newBurstCommand() *cobra.Command {
	defaults := config.Default()
	cmd := &cobra.Command{
		Use:   "burst",
		Short: "Fire mixed short and long prompts at once",
		Long: `Burst launches a round of short and long streaming completions
simultaneously and reports how the server schedules them against each
other. With --mix it runs an escalating sequence of rounds, pausing
between each.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBurst(cmd)
		},
	}
	cmd.Flags().Int("short", defaults.Burst.Short, "short prompts per round")
	cmd.Flags().Int("long", defaults.Burst.Long, "long prompts per round")
	cmd.Flags().String("mix", "", `round sequence like "2x1,3x2,4x2" (shortxlong per round)`)
	cmd.Flags().Duration("pause", defaults.Burst.Pause, "pause between rounds")
	cmd.Flags().Duration("round-timeout", defaults.Burst.Timeout, "timeout per round")
	return cmd
}

func runBurst(cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b, err := newBench(ctx, cmd, "burst")
	if err != nil {
		return err
	}
	defer b.shutdown()

	if err := b.healthGate(ctx); err != nil {
		return err
	}

	entries := []config.MixEntry{{Short: b.cfg.Burst.Short, Long: b.cfg.Burst.Long}}
	if b.cfg.Burst.Mix != "" {
		entries, err = config.ParseMix(b.cfg.Burst.Mix)
		if err != nil {
			return err
		}
	}

	total := 0
	for _, e := range entries {
		total += e.Short + e.Long
	}

	var dash *dashboard.Dashboard
	if b.cfg.Dashboard {
		dash, err = dashboard.New(b.collector, dashboard.RunConfig{
			Target:     b.cfg.Server,
			Model:      b.cfg.Model,
			Mode:       "burst",
			Total:      total,
			Timeout:    b.cfg.Timeout,
			ConfigFile: b.cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	echo := !b.cfg.JSONOutput && !b.cfg.Quiet && dash == nil
	gen := prompt.NewGenerator(b.promptSeed())
	do := b.instrument(b.driver.StreamCompletion)
	start := time.Now()

	for round, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		trials := make([]metrics.Trial, 0, entry.Short+entry.Long)
		for i, p := range gen.Short(entry.Short) {
			trials = append(trials, metrics.Trial{
				ID:       fmt.Sprintf("burst-%d-short-%d", round+1, i+1),
				Group:    "short",
				Prompt:   p,
				Sampling: b.sampling(0, true),
			})
		}
		for i, p := range gen.Long(entry.Long) {
			trials = append(trials, metrics.Trial{
				ID:       fmt.Sprintf("burst-%d-long-%d", round+1, i+1),
				Group:    "long",
				Prompt:   p,
				Sampling: b.sampling(0, true),
			})
		}

		if echo {
			fmt.Fprintf(b.out, "\n--- Round %d/%d: %d short + %d long ---\n",
				round+1, len(entries), entry.Short, entry.Long)
		}

		var progress *output.ProgressReporter
		if echo {
			progress = output.NewProgressReporter(b.collector, time.Second, total, b.out)
			progress.Start()
		}

		before := len(b.collector.Results())
		roundCtx, cancelRound := context.WithTimeout(ctx, b.cfg.Burst.Timeout)
		runner.New(runner.Options{
			Policy:   runner.PolicyBurst,
			Trials:   trials,
			Do:       do,
			OnResult: b.collector.Record,
		}).Run(roundCtx)
		cancelRound()

		if progress != nil {
			progress.Stop()
			fmt.Fprintln(b.out)
		}

		if echo {
			roundResults := b.collector.Results()[before:]
			output.PrintTrialLines(b.out, roundResults)
			output.PrintGroupBreakdown(b.out, roundResults)
		}

		if round < len(entries)-1 {
			sleepCtx(ctx, b.cfg.Burst.Pause)
		}
	}

	if dash != nil {
		dash.Stop()
	}

	return b.emit(b.summarize(time.Since(start)))
}
