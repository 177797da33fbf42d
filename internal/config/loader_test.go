package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "promptfire.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfigFile(t, `
server: http://inference:9000
model: llama3
timeout: 90s
seed: 42
json_output: true
output: results.json
log_errors: true
thresholds:
  - "llm_req_duration:p95<5000"
  - "llm_req_failed:rate<0.05"
sampling:
  max_tokens: 256
  temperature: 0.9
  top_p: 0.95
  top_k: 40
  min_p: 0.05
  presence_penalty: 1.0
check:
  perf_requests: 20
stream:
  concurrent: 5
scale:
  sizes: [500, 1500]
  pause: 1s
  timeout: 300s
burst:
  mix: 2x1,3x2
  pause: 5s
  timeout: 120s
load:
  requests: 200
  concurrency: 10
  max_tokens: 64
  prompt: Describe the water cycle
  rate: 25
  stagger: 50ms
  progress_every: 25
tracing:
  endpoint: localhost:4317
  protocol: grpc
  insecure: true
  service: bench
`)

	cfg := Default()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	if cfg.Server != "http://inference:9000" {
		t.Errorf("server = %q", cfg.Server)
	}
	if cfg.Model != "llama3" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
	if cfg.Seed != 42 {
		t.Errorf("seed = %d", cfg.Seed)
	}
	if !cfg.JSONOutput || !cfg.LogErrors {
		t.Errorf("bool flags: json=%v logErrors=%v", cfg.JSONOutput, cfg.LogErrors)
	}
	if cfg.OutputFile != "results.json" {
		t.Errorf("output = %q", cfg.OutputFile)
	}
	if len(cfg.Thresholds) != 2 || cfg.Thresholds[0] != "llm_req_duration:p95<5000" {
		t.Errorf("thresholds = %v", cfg.Thresholds)
	}

	s := cfg.Sampling
	if s.MaxTokens != 256 || s.Temperature != 0.9 || s.TopP != 0.95 || s.TopK != 40 || s.MinP != 0.05 || s.PresencePenalty != 1.0 {
		t.Errorf("sampling = %+v", s)
	}
	if cfg.Check.PerfRequests != 20 {
		t.Errorf("check = %+v", cfg.Check)
	}
	if cfg.Stream.Concurrent != 5 {
		t.Errorf("stream = %+v", cfg.Stream)
	}
	if len(cfg.Scale.Sizes) != 2 || cfg.Scale.Sizes[0] != 500 || cfg.Scale.Sizes[1] != 1500 {
		t.Errorf("scale sizes = %v", cfg.Scale.Sizes)
	}
	if cfg.Scale.Pause != time.Second || cfg.Scale.Timeout != 300*time.Second {
		t.Errorf("scale timing = %+v", cfg.Scale)
	}
	if cfg.Burst.Mix != "2x1,3x2" || cfg.Burst.Pause != 5*time.Second || cfg.Burst.Timeout != 120*time.Second {
		t.Errorf("burst = %+v", cfg.Burst)
	}

	l := cfg.Load
	if l.Requests != 200 || l.Concurrency != 10 || l.MaxTokens != 64 || l.Rate != 25 {
		t.Errorf("load = %+v", l)
	}
	if l.Prompt != "Describe the water cycle" {
		t.Errorf("load prompt = %q", l.Prompt)
	}
	if l.Stagger != 50*time.Millisecond || l.ProgressEvery != 25 {
		t.Errorf("load pacing = %+v", l)
	}

	tr := cfg.Tracing
	if tr.Endpoint != "localhost:4317" || tr.Protocol != "grpc" || !tr.Insecure || tr.Service != "bench" {
		t.Errorf("tracing = %+v", tr)
	}
}

func TestLoadFilePartialKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, "model: mistral\n")

	cfg := Default()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Model != "mistral" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.Server != "http://localhost:8080" {
		t.Errorf("server default lost: %q", cfg.Server)
	}
	if cfg.Load.Requests != 50 || cfg.Sampling.MaxTokens != 200 {
		t.Errorf("nested defaults lost: load=%+v sampling=%+v", cfg.Load, cfg.Sampling)
	}
}

func TestLoadFileAliasKeys(t *testing.T) {
	path := writeConfigFile(t, `
target: https://api.example.com
json-output: true
sampling:
  max-tokens: 128
load:
  concurrent: 8
  tokens: 32
`)

	cfg := Default()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server != "https://api.example.com" {
		t.Errorf("target alias not applied: %q", cfg.Server)
	}
	if !cfg.JSONOutput {
		t.Error("json-output alias not applied")
	}
	if cfg.Sampling.MaxTokens != 128 {
		t.Errorf("max-tokens alias = %d", cfg.Sampling.MaxTokens)
	}
	if cfg.Load.Concurrency != 8 {
		t.Errorf("concurrent alias = %d", cfg.Load.Concurrency)
	}
	if cfg.Load.MaxTokens != 32 {
		t.Errorf("tokens alias = %d", cfg.Load.MaxTokens)
	}
}

func TestLoadFileNumericDurations(t *testing.T) {
	path := writeConfigFile(t, `
timeout: 90
scale:
  pause: 2.5
`)

	cfg := Default()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Timeout != 90*time.Second {
		t.Errorf("numeric timeout = %v", cfg.Timeout)
	}
	if cfg.Scale.Pause != 2500*time.Millisecond {
		t.Errorf("fractional pause = %v", cfg.Scale.Pause)
	}
}

func TestLoadFileSizesFromString(t *testing.T) {
	path := writeConfigFile(t, `
scale:
  sizes: "1000, 2000, 4000"
`)

	cfg := Default()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	want := []int{1000, 2000, 4000}
	if len(cfg.Scale.Sizes) != len(want) {
		t.Fatalf("sizes = %v", cfg.Scale.Sizes)
	}
	for i, n := range want {
		if cfg.Scale.Sizes[i] != n {
			t.Errorf("sizes[%d] = %d, want %d", i, cfg.Scale.Sizes[i], n)
		}
	}
}

func TestLoadFileBadTopLevelValue(t *testing.T) {
	path := writeConfigFile(t, "timeout: [1, 2]\n")

	cfg := Default()
	err := LoadFile(path, &cfg)
	if err == nil {
		t.Fatal("expected error for list-valued timeout")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestLoadFileBadNestedValue(t *testing.T) {
	path := writeConfigFile(t, `
sampling:
  temperature: warm
`)

	cfg := Default()
	err := LoadFile(path, &cfg)
	if err == nil {
		t.Fatal("expected error for non-numeric temperature")
	}
	if !strings.Contains(err.Error(), "sampling: temperature") {
		t.Errorf("error should name the nested field: %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), &cfg)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "read config file") {
		t.Errorf("error = %v", err)
	}
}
