package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/gizak/termui/v3/widgets"

	"github.com/promptfire/promptfire/internal/metrics"
)

func TestFormatFailureRows(t *testing.T) {
	rows := formatFailureRows(map[string]int{
		"request timed out":  3,
		"HTTP 500: overload": 1,
		"connection refused": 3,
	})
	if len(rows) != 3 {
		t.Fatalf("got %d rows", len(rows))
	}
	// Ties break alphabetically, higher counts first.
	if !strings.Contains(rows[0], "connection refused") {
		t.Errorf("rows[0] = %q", rows[0])
	}
	if !strings.Contains(rows[1], "request timed out") {
		t.Errorf("rows[1] = %q", rows[1])
	}
	if !strings.Contains(rows[2], "HTTP 500: overload") {
		t.Errorf("rows[2] = %q", rows[2])
	}
	if !strings.Contains(rows[0], "3x") {
		t.Errorf("rows[0] missing count: %q", rows[0])
	}
}

func TestFormatFailureRowsEmpty(t *testing.T) {
	rows := formatFailureRows(nil)
	if len(rows) != 1 || !strings.Contains(rows[0], "No failures") {
		t.Errorf("rows = %v", rows)
	}
}

func TestFormatFailureRowsCapped(t *testing.T) {
	errors := map[string]int{}
	for _, label := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		errors["error "+label] = 1
	}
	rows := formatFailureRows(errors)
	if len(rows) != 10 {
		t.Errorf("expected 10 rows, got %d", len(rows))
	}
}

func TestFormatRecentRowsNewestFirst(t *testing.T) {
	results := []metrics.Result{
		{ID: "load-1", Success: true, Total: time.Second, TTFT: 100 * time.Millisecond, CompletionTokens: 50, TokensPerSec: 55.6},
		{ID: "load-2", Success: false, Total: 2 * time.Second, Err: "request timed out"},
		{ID: "load-3", Success: true, Total: 3 * time.Second, TTFT: 300 * time.Millisecond, CompletionTokens: 90, TokensPerSec: 33.3},
	}

	rows := formatRecentRows(results, 2)
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if !strings.Contains(rows[0], "load-3") {
		t.Errorf("rows[0] = %q, want newest trial first", rows[0])
	}
	if !strings.Contains(rows[1], "load-2") || !strings.Contains(rows[1], "FAILED") {
		t.Errorf("rows[1] = %q", rows[1])
	}
}

func TestFormatRecentRowsEmpty(t *testing.T) {
	rows := formatRecentRows(nil, 8)
	if len(rows) != 1 || rows[0] != "Awaiting data" {
		t.Errorf("rows = %v", rows)
	}
}

func TestFormatRunParams(t *testing.T) {
	tests := []struct {
		name     string
		config   RunConfig
		contains []string
		excludes []string
	}{
		{
			name: "pool run",
			config: RunConfig{
				Concurrency: 5,
				Total:       50,
				Rate:        10,
				Timeout:     120 * time.Second,
			},
			contains: []string{"Workers: 5", "Trials: 50", "Rate: 10/s", "Timeout: 2m0s"},
		},
		{
			name: "unlimited rate",
			config: RunConfig{
				Concurrency: 3,
			},
			contains: []string{"Workers: 3", "Rate: unlimited"},
		},
		{
			name: "burst has no workers",
			config: RunConfig{
				Total: 9,
			},
			contains: []string{"Trials: 9"},
			excludes: []string{"Workers:"},
		},
		{
			name: "with config file",
			config: RunConfig{
				Concurrency: 5,
				ConfigFile:  "bench.yaml",
			},
			contains: []string{"Config: bench.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Dashboard{runConfig: tt.config}
			result := d.formatRunParams()

			for _, s := range tt.contains {
				if !strings.Contains(result, s) {
					t.Errorf("expected result to contain %q, got %q", s, result)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(result, s) {
					t.Errorf("expected result NOT to contain %q, got %q", s, result)
				}
			}
		})
	}
}

func TestApplySnapshot(t *testing.T) {
	d := &Dashboard{
		latencyHistory: make([]float64, 0, 100),
		ttftHistory:    make([]float64, 0, 100),
		runConfig:      RunConfig{Target: "http://localhost:8080", Model: "qwen3", Mode: "load", Concurrency: 5},
	}
	d.latencyLine = widgets.NewSparkline()
	d.ttftLine = widgets.NewSparkline()
	d.sparkGroup = widgets.NewSparklineGroup(d.latencyLine, d.ttftLine)
	d.latencyPara = widgets.NewParagraph()
	d.tokenGauge = widgets.NewGauge()
	d.failureList = widgets.NewList()
	d.recentList = widgets.NewList()
	d.summaryPara = widgets.NewParagraph()
	d.metricsPara = widgets.NewParagraph()

	snap := metrics.Snapshot{
		Total:          10,
		Successes:      9,
		Failures:       1,
		MinLatency:     800 * time.Millisecond,
		MaxLatency:     4 * time.Second,
		MeanLatency:    2 * time.Second,
		MeanTTFT:       250 * time.Millisecond,
		P50Latency:     1800 * time.Millisecond,
		P90Latency:     3500 * time.Millisecond,
		P99Latency:     3900 * time.Millisecond,
		Elapsed:        5 * time.Second,
		RequestsPerSec: 2.0,
		TokensPerSec:   180.5,
		Errors:         map[string]int{"request timed out": 1},
	}
	results := []metrics.Result{
		{ID: "load-1", Success: true, Total: 2 * time.Second, TTFT: 250 * time.Millisecond, CompletionTokens: 90, TokensPerSec: 51.4},
	}

	d.apply(snap, results)

	if !strings.Contains(d.summaryPara.Text, "Model: qwen3") {
		t.Errorf("summary = %q", d.summaryPara.Text)
	}
	if !strings.Contains(d.summaryPara.Text, "Success Rate: 90.0%") {
		t.Errorf("summary = %q", d.summaryPara.Text)
	}
	if !strings.Contains(d.metricsPara.Text, "Tokens/sec:       180.5") {
		t.Errorf("metrics = %q", d.metricsPara.Text)
	}
	if !strings.Contains(d.latencyPara.Text, "TTFT: 250ms") {
		t.Errorf("latency = %q", d.latencyPara.Text)
	}
	if d.tokenGauge.Label != "180.5 tok/s" {
		t.Errorf("gauge label = %q", d.tokenGauge.Label)
	}
	if len(d.latencyHistory) != 1 || len(d.ttftHistory) != 1 {
		t.Errorf("history lengths = %d, %d", len(d.latencyHistory), len(d.ttftHistory))
	}
	if !strings.Contains(d.failureList.Rows[0], "request timed out") {
		t.Errorf("failures = %v", d.failureList.Rows)
	}
	if !strings.Contains(d.recentList.Rows[0], "load-1") {
		t.Errorf("recent = %v", d.recentList.Rows)
	}
}

func TestApplySnapshotScalesGauge(t *testing.T) {
	d := &Dashboard{
		latencyHistory: make([]float64, 0, 100),
		ttftHistory:    make([]float64, 0, 100),
	}
	d.latencyLine = widgets.NewSparkline()
	d.ttftLine = widgets.NewSparkline()
	d.sparkGroup = widgets.NewSparklineGroup(d.latencyLine, d.ttftLine)
	d.latencyPara = widgets.NewParagraph()
	d.tokenGauge = widgets.NewGauge()
	d.failureList = widgets.NewList()
	d.recentList = widgets.NewList()
	d.summaryPara = widgets.NewParagraph()
	d.metricsPara = widgets.NewParagraph()

	d.apply(metrics.Snapshot{TokensPerSec: 400}, nil)
	if d.tokenGauge.Percent != 100 {
		t.Errorf("gauge percent = %d, want 100 at peak", d.tokenGauge.Percent)
	}

	d.apply(metrics.Snapshot{TokensPerSec: 200}, nil)
	if d.tokenGauge.Percent != 50 {
		t.Errorf("gauge percent = %d, want 50 at half of peak", d.tokenGauge.Percent)
	}
}
