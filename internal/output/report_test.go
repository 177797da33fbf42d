package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/promptfire/promptfire/internal/metrics"
)

func streamingResults() []metrics.Result {
	return []metrics.Result{
		{
			ID: "short-1", Group: "short", Success: true,
			TTFT: 200 * time.Millisecond, Generation: 1800 * time.Millisecond,
			Total: 2 * time.Second, PromptTokens: 10, CompletionTokens: 90,
			TotalTokens: 100, TokensPerSec: 50,
		},
		{
			ID: "short-2", Group: "short", Success: true,
			TTFT: 400 * time.Millisecond, Generation: 3600 * time.Millisecond,
			Total: 4 * time.Second, PromptTokens: 10, CompletionTokens: 180,
			TotalTokens: 190, TokensPerSec: 50,
		},
		{
			ID: "long-1", Group: "long", Success: false, Status: 500,
			Total: 1 * time.Second, Err: "HTTP 500: out of memory",
		},
	}
}

func TestPrintReportContainsCoreFields(t *testing.T) {
	report := metrics.Summarize(streamingResults(), 10*time.Second)
	report.RunID = "01JTESTRUN"
	report.Target = "http://localhost:8080"
	report.Mode = "burst"

	var buf bytes.Buffer
	PrintReport(&buf, report)
	out := buf.String()

	for _, want := range []string{
		"Run ID:            01JTESTRUN",
		"Target:            http://localhost:8080",
		"Mode:              burst",
		"Total Requests:    3",
		"Successful:        2",
		"Failed:            1",
		"Success Rate:      66.7%",
		"Latency:",
		"Time To First Token:",
		"Generation:",
		"Tokens:",
		"Completion:      270",
		"Throughput:      27.0 tok/s",
		"Failures:",
		"1x HTTP 500: out of memory",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReportSkipsStatsWithoutSuccesses(t *testing.T) {
	results := []metrics.Result{
		{ID: "a", Total: time.Second, Err: "request timed out"},
		{ID: "b", Total: time.Second, Err: "request timed out"},
	}
	report := metrics.Summarize(results, 5*time.Second)

	var buf bytes.Buffer
	PrintReport(&buf, report)
	out := buf.String()

	if strings.Contains(out, "Latency:") {
		t.Error("all-failure report should not print latency stats")
	}
	if strings.Contains(out, "Tokens:") {
		t.Error("all-failure report should not print token stats")
	}
	if !strings.Contains(out, "2x request timed out") {
		t.Errorf("failure breakdown missing:\n%s", out)
	}
}

func TestPrintReportErrorOrdering(t *testing.T) {
	report := metrics.Report{
		Total:    4,
		Failures: 4,
		Errors: map[string]int{
			"connection refused": 1,
			"request timed out":  3,
		},
	}

	var buf bytes.Buffer
	PrintReport(&buf, report)
	out := buf.String()

	timeout := strings.Index(out, "3x request timed out")
	refused := strings.Index(out, "1x connection refused")
	if timeout == -1 || refused == -1 {
		t.Fatalf("missing error rows:\n%s", out)
	}
	if timeout > refused {
		t.Error("errors should be sorted by count, most frequent first")
	}
}

func TestPrintAssessmentBands(t *testing.T) {
	tests := []struct {
		name   string
		report metrics.Report
		grade  string
	}{
		{
			name: "excellent",
			report: metrics.Report{
				SuccessRate:    96,
				RequestsPerSec: 6,
				TotalTime:      metrics.Stat{Mean: 1 * time.Second},
			},
			grade: "excellent",
		},
		{
			name: "acceptable",
			report: metrics.Report{
				SuccessRate:    92,
				RequestsPerSec: 3,
				TotalTime:      metrics.Stat{Mean: 3 * time.Second},
			},
			grade: "acceptable",
		},
		{
			name: "poor",
			report: metrics.Report{
				SuccessRate:    50,
				RequestsPerSec: 1,
				TotalTime:      metrics.Stat{Mean: 6 * time.Second},
			},
			grade: "poor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			PrintAssessment(&buf, tt.report)
			out := buf.String()
			if got := strings.Count(out, tt.grade); got != 3 {
				t.Errorf("expected all three lines graded %q, got %d:\n%s", tt.grade, got, out)
			}
		})
	}
}

func TestPrintAssessmentBoundaryValues(t *testing.T) {
	report := metrics.Report{
		SuccessRate:    95,
		RequestsPerSec: 5,
		TotalTime:      metrics.Stat{Mean: 2 * time.Second},
	}

	var buf bytes.Buffer
	PrintAssessment(&buf, report)
	if got := strings.Count(buf.String(), "excellent"); got != 3 {
		t.Errorf("boundary values should grade excellent, got %d lines:\n%s", got, buf.String())
	}
}

func TestPrintTrialLinesSortedByID(t *testing.T) {
	var buf bytes.Buffer
	PrintTrialLines(&buf, streamingResults())
	out := buf.String()

	long := strings.Index(out, "- long-1:")
	short1 := strings.Index(out, "- short-1:")
	short2 := strings.Index(out, "- short-2:")
	if long == -1 || short1 == -1 || short2 == -1 {
		t.Fatalf("missing trial lines:\n%s", out)
	}
	if !(long < short1 && short1 < short2) {
		t.Errorf("trial lines not sorted by ID:\n%s", out)
	}
	if !strings.Contains(out, "FAILED after 1s (HTTP 500: out of memory)") {
		t.Errorf("failed trial line malformed:\n%s", out)
	}
	if !strings.Contains(out, "ttft=200ms") {
		t.Errorf("streaming trial should show TTFT:\n%s", out)
	}
}

func TestPrintGroupBreakdown(t *testing.T) {
	var buf bytes.Buffer
	PrintGroupBreakdown(&buf, streamingResults())
	out := buf.String()

	if !strings.Contains(out, "- long: 0/1 ok") {
		t.Errorf("long group summary missing:\n%s", out)
	}
	if !strings.Contains(out, "- short: 2/2 ok") {
		t.Errorf("short group summary missing:\n%s", out)
	}
	if !strings.Contains(out, "mean ttft=300ms") {
		t.Errorf("short group mean TTFT missing:\n%s", out)
	}
}

func TestPrintGroupBreakdownEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintGroupBreakdown(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty results, got %q", buf.String())
	}
}

func TestPrintScaleTable(t *testing.T) {
	results := []metrics.Result{
		{
			ID: "ctx-1000", Group: "ctx-1000", Success: true,
			TTFT: 800 * time.Millisecond, Generation: 12 * time.Second,
			Total: 12800 * time.Millisecond, PromptTokens: 1023,
			CompletionTokens: 200, TokensPerSec: 16.7,
		},
		{
			ID: "ctx-5000", Group: "ctx-5000", Success: false,
			Total: 600 * time.Second, Err: "request timed out",
		},
	}

	var buf bytes.Buffer
	PrintScaleTable(&buf, results)
	out := buf.String()

	if !strings.Contains(out, "Context Scaling:") {
		t.Errorf("missing table header:\n%s", out)
	}
	for _, want := range []string{"Phase", "Prompt", "TTFT", "Generation", "Rate", "Status"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing column %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "ctx-1000") || !strings.Contains(out, "1023") {
		t.Errorf("missing first row fields:\n%s", out)
	}
	if !strings.Contains(out, "FAILED: request timed out") {
		t.Errorf("missing failed row status:\n%s", out)
	}
}
