package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/promptfire/promptfire/internal/metrics"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	total     int
	start     time.Time
}

// NewProgressReporter creates a progress reporter that redraws a status line
// at the given interval. A total of zero hides the completion denominator.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, total int, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		total:     total,
		start:     time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			snap := p.collector.Snapshot(time.Since(p.start))
			line := fmt.Sprintf("\rCompleted: %d", snap.Total)
			if p.total > 0 {
				line = fmt.Sprintf("\rCompleted: %d/%d", snap.Total, p.total)
			}
			line += fmt.Sprintf(" | Failures: %d | %.1f req/s", snap.Failures, snap.RequestsPerSec)
			if snap.TokensPerSec > 0 {
				line += fmt.Sprintf(" | %.1f tok/s", snap.TokensPerSec)
			}
			if snap.MeanTTFT > 0 {
				line += fmt.Sprintf(" | ttft %s", snap.MeanTTFT.Round(time.Millisecond))
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}

// NewCompletionLogger returns a result hook that announces progress every
// `every` completions, and again at the final completion. Safe for
// concurrent use.
func NewCompletionLogger(w io.Writer, total, every int) func(metrics.Result) {
	if every <= 0 {
		return func(metrics.Result) {}
	}
	var completed int64
	return func(metrics.Result) {
		n := atomic.AddInt64(&completed, 1)
		if n%int64(every) == 0 || int(n) == total {
			fmt.Fprintf(w, "Progress: %d/%d complete\n", n, total)
		}
	}
}
