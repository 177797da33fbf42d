package metrics

import "time"

// Sampling holds the generation parameters sent with a trial.
type Sampling struct {
	MaxTokens       int
	Temperature     float64
	TopP            float64
	TopK            int
	MinP            float64
	PresencePenalty float64
	Stream          bool
}

// Trial describes one request to dispatch. Immutable once constructed.
type Trial struct {
	ID       string
	Group    string
	Prompt   string
	Sampling Sampling
}

// Result records the outcome of one trial. Exactly one Result is produced
// per dispatched Trial, success or failure.
type Result struct {
	ID    string
	Group string

	Success bool
	Status  int    // HTTP status when known, 0 otherwise
	Err     string // grouping label, empty on success

	// TTFT is zero when no first token was observed. Non-streaming trials
	// report TTFT equal to Total: there is no separately observable
	// first-token instant.
	TTFT       time.Duration
	Generation time.Duration
	Total      time.Duration

	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	TokensPerSec float64
	Preview      string
}

// ObservedTTFT reports whether the trial saw a first token.
func (r Result) ObservedTTFT() bool {
	return r.TTFT > 0
}

const previewLen = 100

// PreviewText truncates a response body for report display.
func PreviewText(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLen {
		return s
	}
	return string(runes[:previewLen]) + "..."
}
