package output

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/promptfire/promptfire/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, report metrics.Report) {
	fmt.Fprintln(w, "\n--- Benchmark Results ---")
	if report.RunID != "" {
		fmt.Fprintf(w, "Run ID:            %s\n", report.RunID)
	}
	if report.Target != "" {
		fmt.Fprintf(w, "Target:            %s\n", report.Target)
	}
	if report.Mode != "" {
		fmt.Fprintf(w, "Mode:              %s\n", report.Mode)
	}
	fmt.Fprintf(w, "Total Requests:    %d\n", report.Total)
	fmt.Fprintf(w, "Successful:        %d\n", report.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", report.Failures)
	fmt.Fprintf(w, "Success Rate:      %.1f%%\n", report.SuccessRate)
	fmt.Fprintf(w, "Duration:          %s\n", report.Wall.Round(time.Millisecond))
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", report.RequestsPerSec)

	if report.TotalTime.Count > 0 {
		fmt.Fprintln(w, "\nLatency:")
		fmt.Fprintf(w, "  Min:             %s\n", report.TotalTime.Min.Round(time.Millisecond))
		fmt.Fprintf(w, "  Max:             %s\n", report.TotalTime.Max.Round(time.Millisecond))
		fmt.Fprintf(w, "  Mean:            %s\n", report.TotalTime.Mean.Round(time.Millisecond))
		fmt.Fprintf(w, "  Median:          %s\n", report.TotalTime.Median.Round(time.Millisecond))
		fmt.Fprintf(w, "  P95:             %s\n", report.P95.Round(time.Millisecond))
		fmt.Fprintf(w, "  P99:             %s\n", report.P99.Round(time.Millisecond))
	}

	if report.TTFT.Count > 0 {
		fmt.Fprintln(w, "\nTime To First Token:")
		fmt.Fprintf(w, "  Min:             %s\n", report.TTFT.Min.Round(time.Millisecond))
		fmt.Fprintf(w, "  Max:             %s\n", report.TTFT.Max.Round(time.Millisecond))
		fmt.Fprintf(w, "  Mean:            %s\n", report.TTFT.Mean.Round(time.Millisecond))
		fmt.Fprintf(w, "  Median:          %s\n", report.TTFT.Median.Round(time.Millisecond))
	}

	if report.Generation.Count > 0 {
		fmt.Fprintln(w, "\nGeneration:")
		fmt.Fprintf(w, "  Min:             %s\n", report.Generation.Min.Round(time.Millisecond))
		fmt.Fprintf(w, "  Max:             %s\n", report.Generation.Max.Round(time.Millisecond))
		fmt.Fprintf(w, "  Mean:            %s\n", report.Generation.Mean.Round(time.Millisecond))
		fmt.Fprintf(w, "  Median:          %s\n", report.Generation.Median.Round(time.Millisecond))
	}

	if report.Successes > 0 {
		fmt.Fprintln(w, "\nTokens:")
		fmt.Fprintf(w, "  Prompt:          %d\n", report.PromptTokens)
		fmt.Fprintf(w, "  Completion:      %d\n", report.CompletionTokens)
		fmt.Fprintf(w, "  Total:           %d\n", report.TotalTokens)
		fmt.Fprintf(w, "  Throughput:      %.1f tok/s\n", report.Throughput)
		if report.TokensPerSec.Count > 0 {
			fmt.Fprintf(w, "  Per-request:     mean %.1f tok/s, median %.1f tok/s\n",
				report.TokensPerSec.Mean, report.TokensPerSec.Median)
		}
	}

	if len(report.Errors) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, row := range sortedErrors(report.Errors) {
			fmt.Fprintf(w, "  %dx %s\n", row.count, row.message)
		}
	}
}

// PrintAssessment grades the run against interactive-serving targets:
// success rate, mean total latency, and sustained request rate.
func PrintAssessment(w io.Writer, report metrics.Report) {
	fmt.Fprintln(w, "\nAssessment:")
	fmt.Fprintf(w, "  Success rate:    %s (%.1f%%)\n",
		grade(report.SuccessRate, 95, 90), report.SuccessRate)
	avg := report.TotalTime.Mean.Seconds()
	fmt.Fprintf(w, "  Avg latency:     %s (%.2fs)\n",
		gradeInverse(avg, 2, 5), avg)
	fmt.Fprintf(w, "  Requests/sec:    %s (%.2f)\n",
		grade(report.RequestsPerSec, 5, 2), report.RequestsPerSec)
}

// PrintTrialLines writes one line per trial, sorted by trial ID.
func PrintTrialLines(w io.Writer, results []metrics.Result) {
	sorted := make([]metrics.Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, res := range sorted {
		if !res.Success {
			fmt.Fprintf(w, "  - %s: FAILED after %s (%s)\n",
				res.ID, res.Total.Round(time.Millisecond), res.Err)
			continue
		}
		line := fmt.Sprintf("  - %s: total=%s", res.ID, res.Total.Round(time.Millisecond))
		if res.ObservedTTFT() {
			line += fmt.Sprintf(", ttft=%s", res.TTFT.Round(time.Millisecond))
		}
		line += fmt.Sprintf(", tokens=%d", res.CompletionTokens)
		if res.TokensPerSec > 0 {
			line += fmt.Sprintf(", %.1f tok/s", res.TokensPerSec)
		}
		fmt.Fprintln(w, line)
	}
}

// PrintGroupBreakdown summarizes results per trial group.
func PrintGroupBreakdown(w io.Writer, results []metrics.Result) {
	byGroup := make(map[string][]metrics.Result)
	for _, res := range results {
		byGroup[res.Group] = append(byGroup[res.Group], res)
	}
	if len(byGroup) == 0 {
		return
	}

	names := make([]string, 0, len(byGroup))
	for name := range byGroup {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "\nGroups:")
	for _, name := range names {
		sub := metrics.Summarize(byGroup[name], 0)
		line := fmt.Sprintf("  - %s: %d/%d ok", name, sub.Successes, sub.Total)
		if sub.TTFT.Count > 0 {
			line += fmt.Sprintf(", mean ttft=%s", sub.TTFT.Mean.Round(time.Millisecond))
		}
		if sub.TotalTime.Count > 0 {
			line += fmt.Sprintf(", mean total=%s", sub.TotalTime.Mean.Round(time.Millisecond))
		}
		if sub.TokensPerSec.Count > 0 {
			line += fmt.Sprintf(", mean rate=%.1f tok/s", sub.TokensPerSec.Mean)
		}
		fmt.Fprintln(w, line)
	}
}

// PrintScaleTable writes the context-scaling phase table, one row per trial
// in the order the phases ran.
func PrintScaleTable(w io.Writer, results []metrics.Result) {
	fmt.Fprintln(w, "\nContext Scaling:")
	fmt.Fprintf(w, "  %-12s %-10s %-10s %-12s %-10s %-12s %s\n",
		"Phase", "Prompt", "TTFT", "Generation", "Total", "Rate", "Status")
	for _, res := range results {
		status := "ok"
		if !res.Success {
			status = "FAILED: " + res.Err
		}
		ttft, generation := "-", "-"
		if res.ObservedTTFT() {
			ttft = res.TTFT.Round(time.Millisecond).String()
			generation = res.Generation.Round(time.Millisecond).String()
		}
		rate := "-"
		if res.TokensPerSec > 0 {
			rate = fmt.Sprintf("%.1f tok/s", res.TokensPerSec)
		}
		fmt.Fprintf(w, "  %-12s %-10d %-10s %-12s %-10s %-12s %s\n",
			res.Group, res.PromptTokens, ttft, generation,
			res.Total.Round(time.Millisecond), rate, status)
	}
}

type errorRow struct {
	message string
	count   int
}

func sortedErrors(errors map[string]int) []errorRow {
	rows := make([]errorRow, 0, len(errors))
	for message, count := range errors {
		rows = append(rows, errorRow{message: message, count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].message < rows[j].message
	})
	return rows
}

func grade(value, excellent, acceptable float64) string {
	switch {
	case value >= excellent:
		return "excellent"
	case value >= acceptable:
		return "acceptable"
	default:
		return "poor"
	}
}

// gradeInverse grades metrics where lower is better.
func gradeInverse(value, excellent, acceptable float64) string {
	switch {
	case value <= excellent:
		return "excellent"
	case value <= acceptable:
		return "acceptable"
	default:
		return "poor"
	}
}
