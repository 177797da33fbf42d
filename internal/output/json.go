package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/promptfire/promptfire/internal/metrics"
)

// trialView is the JSON shape of a single trial result.
type trialView struct {
	ID               string  `json:"id"`
	Group            string  `json:"group,omitempty"`
	Success          bool    `json:"success"`
	Status           int     `json:"status,omitempty"`
	Error            string  `json:"error,omitempty"`
	TTFTMs           float64 `json:"ttft_ms,omitempty"`
	GenerationMs     float64 `json:"generation_ms,omitempty"`
	TotalMs          float64 `json:"total_ms"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`
	TokensPerSec     float64 `json:"tokens_per_sec,omitempty"`
	Preview          string  `json:"preview,omitempty"`
}

// reportView pairs the aggregate report with per-trial detail rows.
type reportView struct {
	metrics.Report
	Trials []trialView `json:"results,omitempty"`
}

func newReportView(report metrics.Report) reportView {
	view := reportView{Report: report}
	for _, res := range report.Results {
		view.Trials = append(view.Trials, trialView{
			ID:               res.ID,
			Group:            res.Group,
			Success:          res.Success,
			Status:           res.Status,
			Error:            res.Err,
			TTFTMs:           float64(res.TTFT) / float64(time.Millisecond),
			GenerationMs:     float64(res.Generation) / float64(time.Millisecond),
			TotalMs:          float64(res.Total) / float64(time.Millisecond),
			PromptTokens:     res.PromptTokens,
			CompletionTokens: res.CompletionTokens,
			TotalTokens:      res.TotalTokens,
			TokensPerSec:     res.TokensPerSec,
			Preview:          res.Preview,
		})
	}
	return view
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report metrics.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newReportView(report))
}
