package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/promptfire/promptfire/internal/metrics"
)

func TestPrintJSONReport(t *testing.T) {
	report := metrics.Summarize(streamingResults(), 10*time.Second)
	report.RunID = "01JTESTRUN"
	report.Mode = "burst"

	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, report); err != nil {
		t.Fatalf("PrintJSONReport failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if decoded["run_id"] != "01JTESTRUN" {
		t.Errorf("run_id = %v, want 01JTESTRUN", decoded["run_id"])
	}
	if decoded["total"] != float64(3) {
		t.Errorf("total = %v, want 3", decoded["total"])
	}

	results, ok := decoded["results"].([]interface{})
	if !ok {
		t.Fatal("results array missing from JSON report")
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 result rows, got %d", len(results))
	}

	first := results[0].(map[string]interface{})
	if first["id"] != "short-1" {
		t.Errorf("first result id = %v, want short-1", first["id"])
	}
	if first["ttft_ms"] != float64(200) {
		t.Errorf("first result ttft_ms = %v, want 200", first["ttft_ms"])
	}
	if first["total_ms"] != float64(2000) {
		t.Errorf("first result total_ms = %v, want 2000", first["total_ms"])
	}
}

func TestPrintJSONReportOmitsEmptyResults(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, metrics.Report{Total: 0}); err != nil {
		t.Fatalf("PrintJSONReport failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, ok := decoded["results"]; ok {
		t.Error("empty report should omit the results key")
	}
}

func TestPrintJSONReportFailureRow(t *testing.T) {
	report := metrics.Summarize(streamingResults(), 10*time.Second)

	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, report); err != nil {
		t.Fatalf("PrintJSONReport failed: %v", err)
	}

	var decoded struct {
		Results []struct {
			ID      string `json:"id"`
			Success bool   `json:"success"`
			Status  int    `json:"status"`
			Error   string `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	var found bool
	for _, row := range decoded.Results {
		if row.ID != "long-1" {
			continue
		}
		found = true
		if row.Success {
			t.Error("long-1 should be marked failed")
		}
		if row.Status != 500 {
			t.Errorf("long-1 status = %d, want 500", row.Status)
		}
		if row.Error != "HTTP 500: out of memory" {
			t.Errorf("long-1 error = %q", row.Error)
		}
	}
	if !found {
		t.Error("failed trial missing from JSON results")
	}
}

func TestWriteReportFile(t *testing.T) {
	report := metrics.Summarize(streamingResults(), 10*time.Second)
	report.RunID = "01JTESTRUN"

	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteReportFile(path, report); err != nil {
		t.Fatalf("WriteReportFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report file failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report file is not valid JSON: %v", err)
	}
	if decoded["run_id"] != "01JTESTRUN" {
		t.Errorf("run_id = %v, want 01JTESTRUN", decoded["run_id"])
	}

	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Errorf("expected sidecar lock file: %v", err)
	}
}

func TestWriteReportFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	first := metrics.Report{RunID: "first", Total: 1}
	if err := WriteReportFile(path, first); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	second := metrics.Report{RunID: "second", Total: 2}
	if err := WriteReportFile(path, second); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report file failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report file is not valid JSON: %v", err)
	}
	if decoded["run_id"] != "second" {
		t.Errorf("run_id = %v, want second", decoded["run_id"])
	}
}
