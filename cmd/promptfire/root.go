package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/promptfire/promptfire/internal/config"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "promptfire",
		Short: "Benchmark harness for llama.cpp-style inference servers",
		Long: `promptfire drives an OpenAI-compatible inference server with measured
load and reports latency, time-to-first-token, and token throughput.

Modes:
  check    sequential scenario probes plus a quick performance phase
  stream   streaming scenarios with live token echo
  scale    context-length scaling, one phase per prompt size
  burst    concurrent short/long prompt rounds, all fired at once
  load     sustained worker-pool load with optional rate limiting`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(os.Stdout)

	def := config.Default()
	flags := root.PersistentFlags()
	flags.StringP("server", "s", def.Server, "Inference server base URL")
	flags.StringP("model", "m", def.Model, "Model name sent with chat requests")
	flags.Duration("timeout", def.Timeout, "Per-request timeout including the streamed body")
	flags.String("config", "", "Path to YAML configuration file")
	flags.Int64("seed", 0, "Seed for the synthetic prompt corpus (0 = time-based)")
	flags.Bool("json", false, "Emit the final report as JSON")
	flags.StringP("output", "o", "", "Write the final report to a file")
	flags.Bool("dashboard", false, "Show a live terminal dashboard")
	flags.Bool("log-errors", false, "Log each failed trial to stderr")
	flags.BoolP("quiet", "q", false, "Suppress per-trial output")
	flags.StringSlice("threshold", nil, "Pass/fail assertion, repeatable (e.g. 'llm_req_duration:p95<5000')")

	flags.Int("max-tokens", def.Sampling.MaxTokens, "Default completion token budget per trial")
	flags.Float64("temperature", def.Sampling.Temperature, "Sampling temperature")
	flags.Float64("top-p", def.Sampling.TopP, "Nucleus sampling probability mass")
	flags.Int("top-k", def.Sampling.TopK, "Top-k sampling cutoff")
	flags.Float64("min-p", def.Sampling.MinP, "Minimum token probability")
	flags.Float64("presence-penalty", def.Sampling.PresencePenalty, "Presence penalty")

	flags.String("trace-endpoint", "", "OTLP endpoint for span export (empty disables tracing)")
	flags.String("trace-protocol", def.Tracing.Protocol, "OTLP protocol: grpc or http")
	flags.Bool("trace-insecure", false, "Disable TLS for OTLP export")
	flags.String("trace-service", def.Tracing.Service, "Service name on exported spans")

	root.AddCommand(
		newCheckCommand(),
		newStreamCommand(),
		newScaleCommand(),
		newBurstCommand(),
		newLoadCommand(),
	)

	return root
}

// loadConfig builds the effective configuration for a subcommand: defaults,
// then the config file, then explicit flag overrides, then validation.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	fs := cmd.Flags()

	if path, err := fs.GetString("config"); err == nil && path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyFlagOverrides(&cfg, fs); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func flagChanged(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}

// applyFlagOverrides copies explicitly set flags into cfg, overriding file
// values. Flags a subcommand does not define are skipped.
func applyFlagOverrides(cfg *config.Config, fs *pflag.FlagSet) error {
	if flagChanged(fs, "server") {
		val, err := fs.GetString("server")
		if err != nil {
			return err
		}
		cfg.Server = strings.TrimSpace(val)
	}
	if flagChanged(fs, "model") {
		val, err := fs.GetString("model")
		if err != nil {
			return err
		}
		cfg.Model = strings.TrimSpace(val)
	}
	if flagChanged(fs, "timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if flagChanged(fs, "seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if flagChanged(fs, "json") {
		val, err := fs.GetBool("json")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if flagChanged(fs, "output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.OutputFile = strings.TrimSpace(val)
	}
	if flagChanged(fs, "dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if flagChanged(fs, "log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if flagChanged(fs, "quiet") {
		val, err := fs.GetBool("quiet")
		if err != nil {
			return err
		}
		cfg.Quiet = val
	}
	if flagChanged(fs, "threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	if flagChanged(fs, "max-tokens") {
		val, err := fs.GetInt("max-tokens")
		if err != nil {
			return err
		}
		cfg.Sampling.MaxTokens = val
	}
	if flagChanged(fs, "temperature") {
		val, err := fs.GetFloat64("temperature")
		if err != nil {
			return err
		}
		cfg.Sampling.Temperature = val
	}
	if flagChanged(fs, "top-p") {
		val, err := fs.GetFloat64("top-p")
		if err != nil {
			return err
		}
		cfg.Sampling.TopP = val
	}
	if flagChanged(fs, "top-k") {
		val, err := fs.GetInt("top-k")
		if err != nil {
			return err
		}
		cfg.Sampling.TopK = val
	}
	if flagChanged(fs, "min-p") {
		val, err := fs.GetFloat64("min-p")
		if err != nil {
			return err
		}
		cfg.Sampling.MinP = val
	}
	if flagChanged(fs, "presence-penalty") {
		val, err := fs.GetFloat64("presence-penalty")
		if err != nil {
			return err
		}
		cfg.Sampling.PresencePenalty = val
	}

	if flagChanged(fs, "trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if flagChanged(fs, "trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if flagChanged(fs, "trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if flagChanged(fs, "trace-service") {
		val, err := fs.GetString("trace-service")
		if err != nil {
			return err
		}
		cfg.Tracing.Service = strings.TrimSpace(val)
	}

	return applyModeFlagOverrides(cfg, fs)
}

// applyModeFlagOverrides handles flags local to one subcommand.
func applyModeFlagOverrides(cfg *config.Config, fs *pflag.FlagSet) error {
	if flagChanged(fs, "scenarios") {
		val, err := fs.GetString("scenarios")
		if err != nil {
			return err
		}
		cfg.Check.ScenarioFile = strings.TrimSpace(val)
		cfg.Stream.ScenarioFile = strings.TrimSpace(val)
	}
	if flagChanged(fs, "perf-requests") {
		val, err := fs.GetInt("perf-requests")
		if err != nil {
			return err
		}
		cfg.Check.PerfRequests = val
	}
	if flagChanged(fs, "concurrent") {
		val, err := fs.GetInt("concurrent")
		if err != nil {
			return err
		}
		cfg.Stream.Concurrent = val
	}

	if flagChanged(fs, "sizes") {
		val, err := fs.GetIntSlice("sizes")
		if err != nil {
			return err
		}
		cfg.Scale.Sizes = val
	}
	if flagChanged(fs, "pause") {
		val, err := fs.GetDuration("pause")
		if err != nil {
			return err
		}
		cfg.Scale.Pause = val
		cfg.Burst.Pause = val
	}
	if flagChanged(fs, "phase-timeout") {
		val, err := fs.GetDuration("phase-timeout")
		if err != nil {
			return err
		}
		cfg.Scale.Timeout = val
	}

	if flagChanged(fs, "short") {
		val, err := fs.GetInt("short")
		if err != nil {
			return err
		}
		cfg.Burst.Short = val
	}
	if flagChanged(fs, "long") {
		val, err := fs.GetInt("long")
		if err != nil {
			return err
		}
		cfg.Burst.Long = val
	}
	if flagChanged(fs, "mix") {
		val, err := fs.GetString("mix")
		if err != nil {
			return err
		}
		cfg.Burst.Mix = strings.TrimSpace(val)
	}
	if flagChanged(fs, "round-timeout") {
		val, err := fs.GetDuration("round-timeout")
		if err != nil {
			return err
		}
		cfg.Burst.Timeout = val
	}

	if flagChanged(fs, "requests") {
		val, err := fs.GetInt("requests")
		if err != nil {
			return err
		}
		cfg.Load.Requests = val
	}
	if flagChanged(fs, "concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Load.Concurrency = val
	}
	if flagChanged(fs, "tokens") {
		val, err := fs.GetInt("tokens")
		if err != nil {
			return err
		}
		cfg.Load.MaxTokens = val
	}
	if flagChanged(fs, "prompt") {
		val, err := fs.GetString("prompt")
		if err != nil {
			return err
		}
		cfg.Load.Prompt = val
	}
	if flagChanged(fs, "rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Load.Rate = val
	}
	if flagChanged(fs, "stagger") {
		val, err := fs.GetDuration("stagger")
		if err != nil {
			return err
		}
		cfg.Load.Stagger = val
	}
	if flagChanged(fs, "progress-every") {
		val, err := fs.GetInt("progress-every")
		if err != nil {
			return err
		}
		cfg.Load.ProgressEvery = val
	}

	return nil
}
