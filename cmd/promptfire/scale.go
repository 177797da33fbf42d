package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/promptfire/promptfire/internal/config"
	"github.com/promptfire/promptfire/internal/metrics"
	"github.com/promptfire/promptfire/internal/output"
	"github.com/promptfire/promptfire/internal/prompt"
)

func newScaleCommand() *cobra.Command {
	defaults := config.Default()
	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Measure how latency grows with prompt size",
		Long: `Scale streams one completion per configured prompt size, smallest
first, and reports how time to first token and generation speed respond
as the context grows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScale(cmd)
		},
	}
	cmd.Flags().IntSlice("sizes", defaults.Scale.Sizes, "prompt sizes in approximate tokens, run in order")
	cmd.Flags().Duration("pause", defaults.Scale.Pause, "pause between phases")
	cmd.Flags().Duration("phase-timeout", defaults.Scale.Timeout, "timeout per phase")
	return cmd
}

func runScale(cmd *cobra.Command) error {
	ctx := cmd.Context()
	b, err := newBench(ctx, cmd, "scale")
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

	gen := prompt.NewGenerator(b.promptSeed())
	sizes := b.cfg.Scale.Sizes

	var bar *progressbar.ProgressBar
	if !b.cfg.JSONOutput && !b.cfg.Quiet {
		bar = progressbar.NewOptions(len(sizes),
			progressbar.OptionSetDescription("Scaling context"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}

	do := b.instrument(b.driver.StreamCompletion)
	start := time.Now()

	for i, size := range sizes {
		if ctx.Err() != nil {
			break
		}
		if bar != nil {
			bar.Describe(fmt.Sprintf("Context %d tokens", size))
		}

		trial := metrics.Trial{
			ID:       fmt.Sprintf("scale-%d", size),
			Group:    phaseLabel(size),
			Prompt:   gen.Sized(size),
			Sampling: b.sampling(0, true),
		}

		phaseCtx, cancel := context.WithTimeout(ctx, b.cfg.Scale.Timeout)
		res := do(phaseCtx, trial)
		cancel()
		b.collector.Record(res)

		if bar != nil {
			_ = bar.Add(1)
		}
		if i < len(sizes)-1 {
			sleepCtx(ctx, b.cfg.Scale.Pause)
		}
	}

	if bar != nil {
		_ = bar.Finish()
		b.printf("\n")
	}

	if !b.cfg.JSONOutput && !b.cfg.Quiet {
		output.PrintScaleTable(b.out, b.collector.Results())
	}

	return b.emit(b.summarize(time.Since(start)))
}

// phaseLabel names a phase after its prompt size: 4000 reads "4k".
func phaseLabel(tokens int) string {
	if tokens >= 1000 && tokens%1000 == 0 {
		return fmt.Sprintf("%dk", tokens/1000)
	}
	return strconv.Itoa(tokens)
}
