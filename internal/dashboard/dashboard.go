// Package dashboard renders a live terminal view of an in-flight run.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/promptfire/promptfire/internal/metrics"
)

// RunConfig holds run parameters for the header line.
type RunConfig struct {
	Target      string
	Model       string
	Mode        string
	Concurrency int           // worker count (0 = unbounded)
	Total       int           // trials to execute
	Rate        int           // requests per second (0 = unlimited)
	Timeout     time.Duration // per-request timeout
	ConfigFile  string        // path to config file if used
}

// Dashboard renders a live terminal UI fed by a metrics.Collector.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid        *ui.Grid
	sparkGroup  *widgets.SparklineGroup
	latencyLine *widgets.Sparkline
	ttftLine    *widgets.Sparkline
	latencyPara *widgets.Paragraph
	tokenGauge  *widgets.Gauge
	failureList *widgets.List
	recentList  *widgets.List
	summaryPara *widgets.Paragraph
	metricsPara *widgets.Paragraph

	latencyHistory []float64
	ttftHistory    []float64
	maxTokenRate   float64
	startTime      time.Time
	runConfig      RunConfig
}

// New creates a Dashboard and initializes the terminal UI.
func New(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		ttftHistory:    make([]float64, 0, 100),
		startTime:      time.Now(),
		runConfig:      cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	d.latencyLine = widgets.NewSparkline()
	d.latencyLine.Title = "Total (ms)"
	d.latencyLine.LineColor = ui.ColorGreen
	d.latencyLine.Data = []float64{0}

	d.ttftLine = widgets.NewSparkline()
	d.ttftLine.Title = "TTFT (ms)"
	d.ttftLine.LineColor = ui.ColorMagenta
	d.ttftLine.Data = []float64{0}

	d.sparkGroup = widgets.NewSparklineGroup(d.latencyLine, d.ttftLine)
	d.sparkGroup.Title = "Latency"
	d.sparkGroup.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms\nTTFT: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.tokenGauge = widgets.NewGauge()
	d.tokenGauge.Title = "Token Throughput"
	d.tokenGauge.Percent = 0
	d.tokenGauge.BarColor = ui.ColorBlue
	d.tokenGauge.BorderStyle.Fg = ui.ColorCyan
	d.tokenGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.failureList = widgets.NewList()
	d.failureList.Title = "Failures"
	d.failureList.Rows = []string{"[No failures](fg:green)"}
	d.failureList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failureList.BorderStyle.Fg = ui.ColorCyan

	d.recentList = widgets.NewList()
	d.recentList.Title = "Recent Trials"
	d.recentList.Rows = []string{"Awaiting data"}
	d.recentList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.recentList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.15,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.20,
			ui.NewCol(0.5, d.tokenGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.65, d.sparkGroup),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.35,
			ui.NewCol(0.5, d.recentList),
			ui.NewCol(0.5, d.failureList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Stop() cancels the context; keep looping until then
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

func (d *Dashboard) update() {
	elapsed := time.Since(d.startTime)
	snap := d.collector.Snapshot(elapsed)
	recent := d.collector.Results()
	d.apply(snap, recent)
}

// apply refreshes all widget data from one snapshot.
func (d *Dashboard) apply(snap metrics.Snapshot, results []metrics.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if snap.MeanLatency > 0 {
		latencyMs := float64(snap.MeanLatency) / float64(time.Millisecond)
		d.latencyHistory = append(d.latencyHistory, latencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencyLine.Data = d.latencyHistory
		d.sparkGroup.Title = fmt.Sprintf(
			"Latency | Mean: %.0fms | Min: %.0fms | Max: %.0fms",
			latencyMs,
			float64(snap.MinLatency)/float64(time.Millisecond),
			float64(snap.MaxLatency)/float64(time.Millisecond),
		)
	}
	if snap.MeanTTFT > 0 {
		ttftMs := float64(snap.MeanTTFT) / float64(time.Millisecond)
		d.ttftHistory = append(d.ttftHistory, ttftMs)
		if len(d.ttftHistory) > 100 {
			d.ttftHistory = d.ttftHistory[1:]
		}
		d.ttftLine.Data = d.ttftHistory
	}

	tokenRate := snap.TokensPerSec
	if tokenRate > d.maxTokenRate {
		d.maxTokenRate = tokenRate
	}
	scale := d.maxTokenRate
	if scale < 100 {
		scale = 100
	}
	percent := int((tokenRate / scale) * 100)
	if percent > 100 {
		percent = 100
	}
	d.tokenGauge.Percent = percent
	d.tokenGauge.Label = fmt.Sprintf("%.1f tok/s", tokenRate)

	successRate := 0.0
	if snap.Total > 0 {
		successRate = (float64(snap.Successes) / float64(snap.Total)) * 100
	}

	header := fmt.Sprintf("Target: %s | Model: %s | Mode: %s", d.runConfig.Target, d.runConfig.Model, d.runConfig.Mode)
	d.summaryPara.Text = fmt.Sprintf(
		"%s\n%s\nElapsed: %s | Completed: %d | Success Rate: %.1f%%",
		header,
		d.formatRunParams(),
		snap.Elapsed.Round(time.Second),
		snap.Total,
		successRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Completed:        %d\nSuccessful:       %d\nFailed:           %d\nRequests/sec:     %.2f\nTokens/sec:       %.1f\nSuccess Rate:     %.1f%%",
		snap.Total,
		snap.Successes,
		snap.Failures,
		snap.RequestsPerSec,
		snap.TokensPerSec,
		successRate,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %s\nMean: %s\nP50:  %s\nP90:  %s\nP99:  %s\nTTFT: %s",
		snap.MinLatency.Round(time.Millisecond),
		snap.MeanLatency.Round(time.Millisecond),
		snap.P50Latency.Round(time.Millisecond),
		snap.P90Latency.Round(time.Millisecond),
		snap.P99Latency.Round(time.Millisecond),
		snap.MeanTTFT.Round(time.Millisecond),
	)

	d.failureList.Rows = formatFailureRows(snap.Errors)
	d.recentList.Rows = formatRecentRows(results, 8)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

// formatFailureRows renders error labels sorted by count, highest first.
func formatFailureRows(errors map[string]int) []string {
	if len(errors) == 0 {
		return []string{"[No failures](fg:green)"}
	}

	type failureRow struct {
		message string
		count   int
	}
	rows := make([]failureRow, 0, len(errors))
	for message, count := range errors {
		rows = append(rows, failureRow{message: message, count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count == rows[j].count {
			return rows[i].message < rows[j].message
		}
		return rows[i].count > rows[j].count
	})

	if len(rows) > 10 {
		rows = rows[:10]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		formatted = append(formatted, fmt.Sprintf("[%dx](fg:red) %s", row.count, row.message))
	}
	return formatted
}

// formatRecentRows renders the tail of the result log, newest first.
func formatRecentRows(results []metrics.Result, limit int) []string {
	if len(results) == 0 {
		return []string{"Awaiting data"}
	}
	if limit < 1 {
		limit = 1
	}

	formatted := make([]string, 0, limit)
	for i := len(results) - 1; i >= 0 && len(formatted) < limit; i-- {
		res := results[i]
		if res.Success {
			formatted = append(formatted, fmt.Sprintf("[%s](fg:cyan) %s | ttft %s | %d tok | %.1f tok/s",
				res.ID,
				res.Total.Round(time.Millisecond),
				res.TTFT.Round(time.Millisecond),
				res.CompletionTokens,
				res.TokensPerSec,
			))
		} else {
			formatted = append(formatted, fmt.Sprintf("[%s](fg:red) FAILED %s | %s",
				res.ID,
				res.Total.Round(time.Millisecond),
				res.Err,
			))
		}
	}
	return formatted
}

// formatRunParams formats the run parameters for the header.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.runConfig.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Workers: %d", d.runConfig.Concurrency))
	}

	if d.runConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.runConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	if d.runConfig.Total > 0 {
		parts = append(parts, fmt.Sprintf("Trials: %d", d.runConfig.Total))
	}

	if d.runConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.runConfig.Timeout))
	}

	if d.runConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.runConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
