package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds every knob for a benchmark run. Defaults come from
// Default(), a config file overrides defaults, and command-line flags
// override the file.
type Config struct {
	Server     string        `mapstructure:"server"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Seed       int64         `mapstructure:"seed"`
	JSONOutput bool          `mapstructure:"json_output"`
	OutputFile string        `mapstructure:"output"`
	Dashboard  bool          `mapstructure:"dashboard"`
	LogErrors  bool          `mapstructure:"log_errors"`
	Quiet      bool          `mapstructure:"quiet"`
	Thresholds []string      `mapstructure:"thresholds"`
	ConfigFile string        `mapstructure:"-"`

	Sampling SamplingConfig `mapstructure:"sampling"`
	Check    CheckConfig    `mapstructure:"check"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Scale    ScaleConfig    `mapstructure:"scale"`
	Burst    BurstConfig    `mapstructure:"burst"`
	Load     LoadConfig     `mapstructure:"load"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// SamplingConfig carries the generation parameters sent with completion
// requests. The defaults are the llama.cpp-recommended values for
// Qwen3-class models.
type SamplingConfig struct {
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	TopP            float64 `mapstructure:"top_p"`
	TopK            int     `mapstructure:"top_k"`
	MinP            float64 `mapstructure:"min_p"`
	PresencePenalty float64 `mapstructure:"presence_penalty"`
}

// CheckConfig configures the basic functionality mode.
type CheckConfig struct {
	ScenarioFile string `mapstructure:"scenario_file"`
	PerfRequests int    `mapstructure:"perf_requests"`
}

// StreamConfig configures the streaming mode.
type StreamConfig struct {
	ScenarioFile string `mapstructure:"scenario_file"`
	Concurrent   int    `mapstructure:"concurrent"`
}

// ScaleConfig configures the context-scaling mode.
type ScaleConfig struct {
	Sizes   []int         `mapstructure:"sizes"`
	Pause   time.Duration `mapstructure:"pause"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BurstConfig configures the concurrent burst mode. Mix, when set, runs a
// sequence of short+long configurations ("2x1,3x2,4x2") instead of the
// single Short/Long pair.
type BurstConfig struct {
	Short   int           `mapstructure:"short"`
	Long    int           `mapstructure:"long"`
	Mix     string        `mapstructure:"mix"`
	Pause   time.Duration `mapstructure:"pause"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig configures the worker-pool load mode.
type LoadConfig struct {
	Requests      int           `mapstructure:"requests"`
	Concurrency   int           `mapstructure:"concurrency"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Prompt        string        `mapstructure:"prompt"`
	Rate          int           `mapstructure:"rate"`
	Stagger       time.Duration `mapstructure:"stagger"`
	ProgressEvery int           `mapstructure:"progress_every"`
}

// TracingConfig configures optional OTLP span export.
type TracingConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Protocol string `mapstructure:"protocol"` // "grpc" or "http"
	Insecure bool   `mapstructure:"insecure"`
	Service  string `mapstructure:"service"`
}

// MixEntry is one short+long configuration in a burst mix sequence.
type MixEntry struct {
	Short int
	Long  int
}

// Default returns the configuration used when no file or flags override it.
func Default() Config {
	return Config{
		Server:  "http://localhost:8080",
		Model:   "qwen3",
		Timeout: 120 * time.Second,
		Sampling: SamplingConfig{
			MaxTokens:       200,
			Temperature:     0.7,
			TopP:            0.80,
			TopK:            20,
			MinP:            0.0,
			PresencePenalty: 0.5,
		},
		Check: CheckConfig{
			PerfRequests: 10,
		},
		Stream: StreamConfig{
			Concurrent: 3,
		},
		Scale: ScaleConfig{
			Sizes:   []int{1000, 5000, 10000, 20000, 40000},
			Pause:   2 * time.Second,
			Timeout: 600 * time.Second,
		},
		Burst: BurstConfig{
			Short:   2,
			Long:    1,
			Pause:   10 * time.Second,
			Timeout: 300 * time.Second,
		},
		Load: LoadConfig{
			Requests:      50,
			Concurrency:   5,
			MaxTokens:     100,
			Prompt:        "Explain quantum computing",
			Stagger:       100 * time.Millisecond,
			ProgressEvery: 10,
		},
		Tracing: TracingConfig{
			Protocol: "grpc",
			Service:  "promptfire",
		},
	}
}

// ParseMix parses a burst mix sequence like "2x1,3x2,4x2" into entries.
// An empty string yields nil.
func ParseMix(s string) ([]MixEntry, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	entries := make([]MixEntry, 0, len(parts))
	for i, part := range parts {
		fields := strings.SplitN(strings.ToLower(strings.TrimSpace(part)), "x", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("mix[%d]: expected SHORTxLONG, got %q", i, part)
		}
		short, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("mix[%d]: short count: %v", i, err)
		}
		long, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("mix[%d]: long count: %v", i, err)
		}
		if short < 0 || long < 0 {
			return nil, fmt.Errorf("mix[%d]: counts must be >= 0", i)
		}
		if short+long == 0 {
			return nil, fmt.Errorf("mix[%d]: at least one trial is required", i)
		}
		entries = append(entries, MixEntry{Short: short, Long: long})
	}
	return entries, nil
}

// ValidationError aggregates every problem found in a Config.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Server) == "" {
		issues = append(issues, "server is required")
	} else if u, err := url.Parse(c.Server); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		issues = append(issues, fmt.Sprintf("server must be an http(s) URL, got %q", c.Server))
	}
	if strings.TrimSpace(c.Model) == "" {
		issues = append(issues, "model is required")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json output are mutually exclusive")
	}

	issues = append(issues, validateSampling(c.Sampling)...)
	issues = append(issues, validateCheck(c.Check)...)
	issues = append(issues, validateStream(c.Stream)...)
	issues = append(issues, validateScale(c.Scale)...)
	issues = append(issues, validateBurst(c.Burst)...)
	issues = append(issues, validateLoad(c.Load)...)
	issues = append(issues, validateTracing(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateSampling(s SamplingConfig) []string {
	var issues []string
	if s.MaxTokens < 1 {
		issues = append(issues, "sampling: max_tokens must be >= 1")
	}
	if s.Temperature < 0 {
		issues = append(issues, "sampling: temperature must be >= 0")
	}
	if s.TopP <= 0 || s.TopP > 1 {
		issues = append(issues, "sampling: top_p must be in (0, 1]")
	}
	if s.TopK < 0 {
		issues = append(issues, "sampling: top_k must be >= 0")
	}
	if s.MinP < 0 || s.MinP > 1 {
		issues = append(issues, "sampling: min_p must be in [0, 1]")
	}
	if s.PresencePenalty < -2 || s.PresencePenalty > 2 {
		issues = append(issues, "sampling: presence_penalty must be in [-2, 2]")
	}
	return issues
}

func validateCheck(c CheckConfig) []string {
	var issues []string
	if c.PerfRequests < 0 {
		issues = append(issues, "check: perf_requests must be >= 0")
	}
	return issues
}

func validateStream(s StreamConfig) []string {
	var issues []string
	if s.Concurrent < 0 {
		issues = append(issues, "stream: concurrent must be >= 0")
	}
	return issues
}

func validateScale(s ScaleConfig) []string {
	var issues []string
	if len(s.Sizes) == 0 {
		issues = append(issues, "scale: at least one prompt size is required")
	}
	for i, size := range s.Sizes {
		if size < 1 {
			issues = append(issues, fmt.Sprintf("scale: sizes[%d] must be >= 1", i))
		}
	}
	if s.Pause < 0 {
		issues = append(issues, "scale: pause must be >= 0")
	}
	if s.Timeout <= 0 {
		issues = append(issues, "scale: timeout must be > 0")
	}
	return issues
}

func validateBurst(b BurstConfig) []string {
	var issues []string
	if b.Short < 0 || b.Long < 0 {
		issues = append(issues, "burst: short and long counts must be >= 0")
	}
	if b.Short+b.Long < 1 {
		issues = append(issues, "burst: at least one trial is required")
	}
	if b.Pause < 0 {
		issues = append(issues, "burst: pause must be >= 0")
	}
	if b.Timeout <= 0 {
		issues = append(issues, "burst: timeout must be > 0")
	}
	if _, err := ParseMix(b.Mix); err != nil {
		issues = append(issues, fmt.Sprintf("burst: %v", err))
	}
	return issues
}

func validateLoad(l LoadConfig) []string {
	var issues []string
	if l.Requests < 1 {
		issues = append(issues, "load: requests must be >= 1")
	}
	if l.Concurrency < 1 {
		issues = append(issues, "load: concurrency must be >= 1")
	}
	if l.MaxTokens < 1 {
		issues = append(issues, "load: max_tokens must be >= 1")
	}
	if strings.TrimSpace(l.Prompt) == "" {
		issues = append(issues, "load: prompt is required")
	}
	if l.Rate < 0 {
		issues = append(issues, "load: rate must be >= 0")
	}
	if l.Stagger < 0 {
		issues = append(issues, "load: stagger must be >= 0")
	}
	if l.ProgressEvery < 0 {
		issues = append(issues, "load: progress_every must be >= 0")
	}
	return issues
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	if strings.TrimSpace(t.Endpoint) == "" {
		return nil
	}
	switch t.Protocol {
	case "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if strings.TrimSpace(t.Service) == "" {
		issues = append(issues, "tracing: service is required when endpoint is set")
	}
	return issues
}
