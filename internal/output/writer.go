package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofrs/flock"

	"github.com/promptfire/promptfire/internal/metrics"
)

// WriteReportFile writes the JSON report to path. An advisory lock on a
// sidecar .lock file keeps concurrent runs sharing an output path from
// interleaving writes.
func WriteReportFile(path string, report metrics.Report) error {
	data, err := json.MarshalIndent(newReportView(report), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock report file: %w", err)
	}
	defer lock.Unlock()

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}
