package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector accumulates trial results in a thread-safe manner. It keeps the
// full result set for the final report and a running histogram for cheap
// live snapshots while the run is in flight.
type Collector struct {
	mu               sync.Mutex
	hist             *hdrhistogram.Histogram
	results          []Result
	successes        int64
	failures         int64
	minLatency       time.Duration
	maxLatency       time.Duration
	sumLatency       time.Duration
	sumTTFT          time.Duration
	ttftCount        int64
	completionTokens int64
	errorsByMessage  map[string]int64
	start            time.Time
}

// Snapshot represents the live view of an in-flight run.
type Snapshot struct {
	Total          int64
	Successes      int64
	Failures       int64
	MinLatency     time.Duration
	MaxLatency     time.Duration
	MeanLatency    time.Duration
	MeanTTFT       time.Duration
	P50Latency     time.Duration
	P90Latency     time.Duration
	P99Latency     time.Duration
	Elapsed        time.Duration
	RequestsPerSec float64
	TokensPerSec   float64
	Errors         map[string]int
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:            h,
		errorsByMessage: make(map[string]int64),
		start:           time.Now(),
	}
}

// Record appends one trial result.
func (c *Collector) Record(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = append(c.results, res)

	if res.Total > 0 {
		us := res.Total.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += res.Total

	if c.minLatency == 0 || (res.Total > 0 && res.Total < c.minLatency) {
		c.minLatency = res.Total
	}
	if res.Total > c.maxLatency {
		c.maxLatency = res.Total
	}

	if res.ObservedTTFT() {
		c.sumTTFT += res.TTFT
		c.ttftCount++
	}

	if res.Success {
		c.successes++
		c.completionTokens += int64(res.CompletionTokens)
	} else {
		c.failures++
		c.errorsByMessage[res.Err]++
	}
}

// Snapshot computes the current live statistics.
func (c *Collector) Snapshot(elapsed time.Duration) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	snap := Snapshot{
		Total:      total,
		Successes:  c.successes,
		Failures:   c.failures,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
		Elapsed:    elapsed,
	}

	if total > 0 {
		snap.MeanLatency = time.Duration(int64(c.sumLatency) / total)
	}
	if c.ttftCount > 0 {
		snap.MeanTTFT = time.Duration(int64(c.sumTTFT) / c.ttftCount)
	}

	if c.hist.TotalCount() > 0 {
		snap.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		snap.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		snap.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	if elapsed > 0 && total > 0 {
		snap.RequestsPerSec = float64(total) / elapsed.Seconds()
	}
	if elapsed > 0 && c.completionTokens > 0 {
		snap.TokensPerSec = float64(c.completionTokens) / elapsed.Seconds()
	}

	if len(c.errorsByMessage) > 0 {
		snap.Errors = make(map[string]int, len(c.errorsByMessage))
		for k, v := range c.errorsByMessage {
			snap.Errors[k] = int(v)
		}
	}

	return snap
}

// Results returns a copy of all recorded results, in completion order.
func (c *Collector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}

// Start returns the collector's creation time.
func (c *Collector) Start() time.Time {
	return c.start
}
