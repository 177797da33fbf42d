// Package metrics provides the trial data model and result aggregation for
// inference benchmarks.
//
// A [Trial] describes one request (prompt plus sampling parameters); a
// [Result] records its outcome: success, time-to-first-token, total and
// generation time, token counts, and a grouping label for failures. Every
// dispatched trial produces exactly one Result.
//
// # Collector
//
// The [Collector] accumulates results across concurrent workers and serves
// cheap live snapshots for progress display:
//
//	collector := metrics.NewCollector()
//	collector.Record(result)
//	snap := collector.Snapshot(elapsed)
//
// # Reports
//
// [Summarize] produces the final per-batch [Report]: success rate, wall
// time, mean/median/min/max of total time, TTFT, generation time and
// tokens/second, nearest-rank p95/p99 of total time, aggregate throughput,
// and failures grouped by message:
//
//	report := metrics.Summarize(collector.Results(), wall)
//
// Reports are derived views; nothing persists across batches.
package metrics
