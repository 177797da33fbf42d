package metrics

import (
	"math"
	"sort"
	"time"
)

// Stat summarizes a set of durations.
type Stat struct {
	Count  int           `json:"count"`
	Min    time.Duration `json:"-"`
	Max    time.Duration `json:"-"`
	Mean   time.Duration `json:"-"`
	Median time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	MeanMs   float64 `json:"mean_ms"`
	MedianMs float64 `json:"median_ms"`
}

// RateStat summarizes a set of per-trial rates (tokens/second).
type RateStat struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// Report is the aggregate view over one batch of results. It is derived,
// read-only, and recomputed fresh per batch.
type Report struct {
	RunID  string `json:"run_id,omitempty"`
	Target string `json:"target,omitempty"`
	Mode   string `json:"mode,omitempty"`

	Total       int     `json:"total"`
	Successes   int     `json:"successes"`
	Failures    int     `json:"failures"`
	SuccessRate float64 `json:"success_rate"`

	Wall           time.Duration `json:"-"`
	WallMs         float64       `json:"duration_ms"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	TotalTime    Stat     `json:"total_time"`
	TTFT         Stat     `json:"ttft"`
	Generation   Stat     `json:"generation"`
	TokensPerSec RateStat `json:"tokens_per_sec"`

	P95   time.Duration `json:"-"`
	P99   time.Duration `json:"-"`
	P95Ms float64       `json:"p95_ms"`
	P99Ms float64       `json:"p99_ms"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Throughput is aggregate completion tokens divided by wall time.
	Throughput float64 `json:"throughput_tokens_per_sec"`

	Errors map[string]int `json:"errors,omitempty"`

	Results []Result `json:"-"`
}

// Summarize aggregates a batch of results over the given wall-clock window.
// Failed trials contribute to counts and the error breakdown only; an empty
// successful subset leaves every statistic zeroed.
func Summarize(results []Result, wall time.Duration) Report {
	report := Report{
		Total:   len(results),
		Wall:    wall,
		WallMs:  durationMs(wall),
		Results: results,
	}

	var (
		totals  []time.Duration
		ttfts   []time.Duration
		gens    []time.Duration
		rates   []float64
		errored = make(map[string]int)
	)

	for _, res := range results {
		if !res.Success {
			report.Failures++
			errored[res.Err]++
			continue
		}
		report.Successes++
		report.PromptTokens += res.PromptTokens
		report.CompletionTokens += res.CompletionTokens
		report.TotalTokens += res.TotalTokens

		totals = append(totals, res.Total)
		if res.ObservedTTFT() {
			ttfts = append(ttfts, res.TTFT)
			gens = append(gens, res.Generation)
		}
		if res.TokensPerSec > 0 {
			rates = append(rates, res.TokensPerSec)
		}
	}

	if report.Total > 0 {
		report.SuccessRate = float64(report.Successes) / float64(report.Total) * 100
	}
	if wall > 0 && report.Total > 0 {
		report.RequestsPerSec = float64(report.Total) / wall.Seconds()
	}
	if len(errored) > 0 {
		report.Errors = errored
	}

	if report.Successes == 0 {
		return report
	}

	report.TotalTime = summarizeDurations(totals)
	report.TTFT = summarizeDurations(ttfts)
	report.Generation = summarizeDurations(gens)
	report.TokensPerSec = summarizeRates(rates)

	sort.Slice(totals, func(i, j int) bool { return totals[i] < totals[j] })
	report.P95 = NearestRank(totals, 95)
	report.P99 = NearestRank(totals, 99)
	report.P95Ms = durationMs(report.P95)
	report.P99Ms = durationMs(report.P99)

	if wall > 0 {
		report.Throughput = float64(report.CompletionTokens) / wall.Seconds()
	}

	return report
}

// NearestRank returns the p-th percentile of a sorted sample using the
// nearest-rank method: the value at rank ceil(p/100 * n), no interpolation.
func NearestRank(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func summarizeDurations(values []time.Duration) Stat {
	if len(values) == 0 {
		return Stat{}
	}

	sorted := make([]time.Duration, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, v := range sorted {
		sum += v
	}

	stat := Stat{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   time.Duration(int64(sum) / int64(len(sorted))),
		Median: median(sorted),
	}
	stat.MinMs = durationMs(stat.Min)
	stat.MaxMs = durationMs(stat.Max)
	stat.MeanMs = durationMs(stat.Mean)
	stat.MedianMs = durationMs(stat.Median)
	return stat
}

func summarizeRates(values []float64) RateStat {
	if len(values) == 0 {
		return RateStat{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	mid := len(sorted) / 2
	med := sorted[mid]
	if len(sorted)%2 == 0 {
		med = (sorted[mid-1] + sorted[mid]) / 2
	}

	return RateStat{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   sum / float64(len(sorted)),
		Median: med,
	}
}

func median(sorted []time.Duration) time.Duration {
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
