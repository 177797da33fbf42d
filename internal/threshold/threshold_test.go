package threshold

import (
	"strings"
	"testing"

	"github.com/promptfire/promptfire/internal/metrics"
)

func sampleReport() metrics.Report {
	return metrics.Report{
		Total:     100,
		Successes: 95,
		Failures:  5,
		TotalTime: metrics.Stat{
			Count:    95,
			MinMs:    120,
			MaxMs:    4200,
			MeanMs:   1500,
			MedianMs: 1350,
		},
		TTFT: metrics.Stat{
			Count:    95,
			MinMs:    80,
			MaxMs:    900,
			MeanMs:   300,
			MedianMs: 250,
		},
		P95Ms:            3800,
		P99Ms:            4100,
		RequestsPerSec:   8.5,
		CompletionTokens: 4750,
		Throughput:       410.2,
	}
}

func TestParseValidThresholds(t *testing.T) {
	tests := []struct {
		input     string
		metric    string
		aggregate string
		operator  string
		value     float64
	}{
		{"llm_req_duration:p95 < 5000", "llm_req_duration", "p95", "<", 5000},
		{"llm_req_duration:p99<6000", "llm_req_duration", "p99", "<", 6000},
		{"llm_req_duration:avg <= 2000", "llm_req_duration", "avg", "<=", 2000},
		{"llm_ttft:med < 500", "llm_ttft", "med", "<", 500},
		{"llm_ttft:max < 1000", "llm_ttft", "max", "<", 1000},
		{"llm_req_failed:rate < 0.05", "llm_req_failed", "rate", "<", 0.05},
		{"llm_req_failed:count == 0", "llm_req_failed", "count", "==", 0},
		{"llm_requests:rate > 5", "llm_requests", "rate", ">", 5},
		{"llm_requests:count >= 100", "llm_requests", "count", ">=", 100},
		{"llm_tokens:rate > 100", "llm_tokens", "rate", ">", 100},
	}

	for _, tt := range tests {
		th, err := Parse(tt.input)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tt.input, err)
			continue
		}
		if th.Metric != tt.metric {
			t.Errorf("Parse(%q) metric = %q, want %q", tt.input, th.Metric, tt.metric)
		}
		if th.Aggregate != tt.aggregate {
			t.Errorf("Parse(%q) aggregate = %q, want %q", tt.input, th.Aggregate, tt.aggregate)
		}
		if th.Operator != tt.operator {
			t.Errorf("Parse(%q) operator = %q, want %q", tt.input, th.Operator, tt.operator)
		}
		if th.Value != tt.value {
			t.Errorf("Parse(%q) value = %v, want %v", tt.input, th.Value, tt.value)
		}
		if th.Raw != strings.TrimSpace(tt.input) {
			t.Errorf("Parse(%q) raw = %q", tt.input, th.Raw)
		}
	}
}

func TestParseInvalidThresholds(t *testing.T) {
	tests := []struct {
		input  string
		reason string
	}{
		{"", "empty string"},
		{"llm_req_duration", "missing aggregate and comparison"},
		{"llm_req_duration:p95", "missing comparison"},
		{"llm_req_duration:p95 <", "missing value"},
		{"http_req_duration:p95 < 5000", "unknown metric"},
		{"llm_req_duration:p42 < 5000", "unknown aggregate"},
		{"llm_req_duration:p95 <> 5000", "unknown operator"},
		{"llm_req_duration:p95 < abc", "non-numeric value"},
	}

	for _, tt := range tests {
		if _, err := Parse(tt.input); err == nil {
			t.Errorf("Parse(%q) succeeded, want error (%s)", tt.input, tt.reason)
		}
	}
}

func TestParseMultiple(t *testing.T) {
	thresholds, err := ParseMultiple([]string{
		"llm_req_duration:p95 < 5000",
		"llm_req_failed:rate < 0.1",
	})
	if err != nil {
		t.Fatalf("ParseMultiple returned error: %v", err)
	}
	if len(thresholds) != 2 {
		t.Fatalf("expected 2 thresholds, got %d", len(thresholds))
	}
}

func TestParseMultipleCollectsAllErrors(t *testing.T) {
	_, err := ParseMultiple([]string{
		"llm_req_duration:p95 < 5000",
		"bogus",
		"llm_req_duration:p95 < xyz",
	})
	if err == nil {
		t.Fatal("expected error for invalid thresholds")
	}
	msg := err.Error()
	if !strings.Contains(msg, "threshold[1]") || !strings.Contains(msg, "threshold[2]") {
		t.Errorf("error should name both failing entries, got: %v", msg)
	}
}

func TestParseMultipleEmpty(t *testing.T) {
	thresholds, err := ParseMultiple(nil)
	if err != nil {
		t.Fatalf("ParseMultiple(nil) returned error: %v", err)
	}
	if thresholds != nil {
		t.Errorf("expected nil thresholds, got %v", thresholds)
	}
}

func TestEvaluatePassing(t *testing.T) {
	thresholds, err := ParseMultiple([]string{
		"llm_req_duration:p95 < 5000",
		"llm_req_duration:avg <= 1500",
		"llm_ttft:med < 500",
		"llm_req_failed:rate < 0.1",
		"llm_requests:rate > 5",
		"llm_tokens:rate > 100",
	})
	if err != nil {
		t.Fatalf("ParseMultiple returned error: %v", err)
	}

	results := NewEvaluator(thresholds).Evaluate(sampleReport())
	if len(results) != len(thresholds) {
		t.Fatalf("expected %d results, got %d", len(thresholds), len(results))
	}
	for _, r := range results {
		if !r.Pass {
			t.Errorf("threshold %q should pass: %s", r.Threshold.Raw, r.Message)
		}
		if !strings.HasPrefix(r.Message, "✓") {
			t.Errorf("passing message should start with ✓: %s", r.Message)
		}
	}
}

func TestEvaluateFailing(t *testing.T) {
	thresholds, err := ParseMultiple([]string{
		"llm_req_duration:p99 < 1000",
		"llm_req_failed:count == 0",
	})
	if err != nil {
		t.Fatalf("ParseMultiple returned error: %v", err)
	}

	results := NewEvaluator(thresholds).Evaluate(sampleReport())
	for _, r := range results {
		if r.Pass {
			t.Errorf("threshold %q should fail: %s", r.Threshold.Raw, r.Message)
		}
		if !strings.HasPrefix(r.Message, "✗") {
			t.Errorf("failing message should start with ✗: %s", r.Message)
		}
	}
}

func TestEvaluateExtractedValues(t *testing.T) {
	report := sampleReport()
	tests := []struct {
		expr string
		want float64
	}{
		{"llm_req_duration:p95 < 9999", 3800},
		{"llm_req_duration:p99 < 9999", 4100},
		{"llm_req_duration:p50 < 9999", 1350},
		{"llm_req_duration:med < 9999", 1350},
		{"llm_req_duration:avg < 9999", 1500},
		{"llm_req_duration:min < 9999", 120},
		{"llm_req_duration:max < 9999", 4200},
		{"llm_ttft:avg < 9999", 300},
		{"llm_ttft:med < 9999", 250},
		{"llm_req_failed:rate < 1", 0.05},
		{"llm_req_failed:count < 9999", 5},
		{"llm_requests:rate > 0", 8.5},
		{"llm_requests:count > 0", 100},
		{"llm_tokens:count > 0", 4750},
		{"llm_tokens:rate > 0", 410.2},
	}

	for _, tt := range tests {
		th, err := Parse(tt.expr)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tt.expr, err)
		}
		results := NewEvaluator([]Threshold{th}).Evaluate(report)
		if len(results) != 1 {
			t.Fatalf("expected 1 result for %q", tt.expr)
		}
		if results[0].Actual != tt.want {
			t.Errorf("%q extracted %v, want %v", tt.expr, results[0].Actual, tt.want)
		}
	}
}

func TestEvaluateUnsupportedAggregateForMetric(t *testing.T) {
	// p95 parses as a valid aggregate but TTFT only records min/max/mean/median.
	th, err := Parse("llm_ttft:p95 < 100")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	results := NewEvaluator([]Threshold{th}).Evaluate(sampleReport())
	if results[0].Pass {
		t.Error("unsupported aggregate should fail evaluation")
	}
	if !strings.Contains(results[0].Message, "error") {
		t.Errorf("message should carry the extraction error: %s", results[0].Message)
	}
}

func TestEvaluateFailureRateZeroTotal(t *testing.T) {
	th, err := Parse("llm_req_failed:rate < 0.1")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	results := NewEvaluator([]Threshold{th}).Evaluate(metrics.Report{})
	if !results[0].Pass {
		t.Errorf("zero-total failure rate should evaluate to 0 and pass: %s", results[0].Message)
	}
}

func TestEvaluateNoThresholds(t *testing.T) {
	if results := NewEvaluator(nil).Evaluate(sampleReport()); results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}

func TestCompareValuesEpsilon(t *testing.T) {
	tests := []struct {
		actual   float64
		operator string
		expected float64
		want     bool
	}{
		{5.0, "<", 10.0, true},
		{10.0, "<", 5.0, false},
		{5.0, "<=", 5.0, true},
		{5.0, ">=", 5.0, true},
		{0.1 + 0.2, "==", 0.3, true},
		{5.0, "==", 5.1, false},
		{10.0, ">", 5.0, true},
	}

	for _, tt := range tests {
		got := compareValues(tt.actual, tt.operator, tt.expected)
		if got != tt.want {
			t.Errorf("compareValues(%v, %q, %v) = %v, want %v", tt.actual, tt.operator, tt.expected, got, tt.want)
		}
	}
}
