// Package threshold evaluates pass/fail assertions against a benchmark
// report, in the spirit of k6 threshold expressions.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/promptfire/promptfire/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "llm_req_duration", "llm_req_failed"
	Aggregate string  // e.g., "p95", "p99", "avg", "max", "rate"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a finished report.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided report.
func (e *Evaluator) Evaluate(report metrics.Report) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, e.evaluateOne(t, report))
	}
	return results
}

func (e *Evaluator) evaluateOne(t Threshold, report metrics.Report) Result {
	actual, err := extractMetricValue(t, report)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "llm_req_duration:p95 < 5000"   (total latency percentile in ms)
//   - "llm_req_duration:avg < 2000"   (average total latency in ms)
//   - "llm_ttft:med < 500"            (median time-to-first-token in ms)
//   - "llm_req_failed:rate < 0.05"    (failure rate as decimal)
//   - "llm_requests:rate > 5"         (requests per second)
//   - "llm_tokens:rate > 100"         (aggregate throughput, tokens/second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	// Pattern: metric:aggregate operator value
	// e.g., "llm_req_duration:p95 < 5000"
	pattern := regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'llm_req_duration:p95 < 5000')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: llm_req_duration, llm_ttft, llm_req_failed, llm_requests, llm_tokens)", metric)
	}

	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: p50, p95, p99, avg, med, min, max, rate, count)", aggregate)
	}

	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

func isValidMetric(metric string) bool {
	switch metric {
	case "llm_req_duration", "llm_ttft", "llm_req_failed", "llm_requests", "llm_tokens":
		return true
	}
	return false
}

func isValidAggregate(aggregate string) bool {
	switch aggregate {
	case "p50", "p95", "p99", "avg", "med", "min", "max", "rate", "count":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, report metrics.Report) (float64, error) {
	switch t.Metric {
	case "llm_req_duration":
		return extractDurationMetric(t.Aggregate, report)
	case "llm_ttft":
		return extractTTFTMetric(t.Aggregate, report)
	case "llm_req_failed":
		return extractFailureMetric(t.Aggregate, report)
	case "llm_requests":
		return extractRequestMetric(t.Aggregate, report)
	case "llm_tokens":
		return extractTokenMetric(t.Aggregate, report)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractDurationMetric(aggregate string, report metrics.Report) (float64, error) {
	switch aggregate {
	case "p50", "med":
		return report.TotalTime.MedianMs, nil
	case "p95":
		return report.P95Ms, nil
	case "p99":
		return report.P99Ms, nil
	case "avg":
		return report.TotalTime.MeanMs, nil
	case "min":
		return report.TotalTime.MinMs, nil
	case "max":
		return report.TotalTime.MaxMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for llm_req_duration", aggregate)
	}
}

func extractTTFTMetric(aggregate string, report metrics.Report) (float64, error) {
	switch aggregate {
	case "p50", "med":
		return report.TTFT.MedianMs, nil
	case "avg":
		return report.TTFT.MeanMs, nil
	case "min":
		return report.TTFT.MinMs, nil
	case "max":
		return report.TTFT.MaxMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for llm_ttft (use avg, med, min or max)", aggregate)
	}
}

func extractFailureMetric(aggregate string, report metrics.Report) (float64, error) {
	switch aggregate {
	case "count":
		return float64(report.Failures), nil
	case "rate":
		if report.Total == 0 {
			return 0, nil
		}
		return float64(report.Failures) / float64(report.Total), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for llm_req_failed (use 'count' or 'rate')", aggregate)
	}
}

func extractRequestMetric(aggregate string, report metrics.Report) (float64, error) {
	switch aggregate {
	case "count":
		return float64(report.Total), nil
	case "rate":
		return report.RequestsPerSec, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for llm_requests (use 'count' or 'rate')", aggregate)
	}
}

func extractTokenMetric(aggregate string, report metrics.Report) (float64, error) {
	switch aggregate {
	case "count":
		return float64(report.CompletionTokens), nil
	case "rate":
		return report.Throughput, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for llm_tokens (use 'count' or 'rate')", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
