// Package driver executes single benchmark trials against an inference
// server and turns each into exactly one metrics.Result.
package driver

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/promptfire/promptfire/internal/llmclient"
	"github.com/promptfire/promptfire/internal/metrics"
	"github.com/promptfire/promptfire/internal/prompt"
)

// Driver measures trials against one server. Timestamps are taken at send
// (T0), first non-empty content (T1), and completion (T2): TTFT is T1-T0,
// generation time T2-T1, total T2-T0. Non-streaming trials report TTFT
// equal to total time.
type Driver struct {
	client *llmclient.Client

	// Echo receives streamed chunks as they arrive, for interactive modes.
	// Nil disables echoing.
	Echo io.Writer
}

func New(client *llmclient.Client) *Driver {
	return &Driver{client: client}
}

// StreamCompletion runs one streaming trial against the native completion
// endpoint.
func (d *Driver) StreamCompletion(ctx context.Context, trial metrics.Trial) metrics.Result {
	req := llmclient.CompletionRequest{
		Prompt:          trial.Prompt,
		NPredict:        trial.Sampling.MaxTokens,
		Temperature:     trial.Sampling.Temperature,
		TopP:            trial.Sampling.TopP,
		TopK:            trial.Sampling.TopK,
		MinP:            trial.Sampling.MinP,
		PresencePenalty: trial.Sampling.PresencePenalty,
	}

	return d.streamTrial(ctx, trial, func(ctx context.Context, onContent func(string)) error {
		return d.client.CompleteStream(ctx, req, onContent)
	})
}

// StreamChat runs one streaming trial against the chat endpoint.
func (d *Driver) StreamChat(ctx context.Context, trial metrics.Trial) metrics.Result {
	req := llmclient.ChatRequest{
		Messages:    []llmclient.ChatMessage{{Role: "user", Content: trial.Prompt}},
		MaxTokens:   trial.Sampling.MaxTokens,
		Temperature: trial.Sampling.Temperature,
	}

	return d.streamTrial(ctx, trial, func(ctx context.Context, onContent func(string)) error {
		return d.client.ChatStream(ctx, req, onContent)
	})
}

// Chat runs one non-streaming trial against the chat endpoint. Token counts
// come from the server's usage accounting.
func (d *Driver) Chat(ctx context.Context, trial metrics.Trial) metrics.Result {
	start := time.Now()
	resp, err := d.client.Chat(ctx, llmclient.ChatRequest{
		Messages:    []llmclient.ChatMessage{{Role: "user", Content: trial.Prompt}},
		MaxTokens:   trial.Sampling.MaxTokens,
		Temperature: trial.Sampling.Temperature,
	})
	total := time.Since(start)

	if err != nil {
		return d.failure(trial, total, err)
	}

	res := metrics.Result{
		ID:               trial.ID,
		Group:            trial.Group,
		Success:          true,
		TTFT:             total,
		Total:            total,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Preview:          metrics.PreviewText(resp.Text()),
	}
	if total > 0 && res.CompletionTokens > 0 {
		res.TokensPerSec = float64(res.CompletionTokens) / total.Seconds()
	}
	return res
}

// Completion runs one non-streaming trial against the native completion
// endpoint.
func (d *Driver) Completion(ctx context.Context, trial metrics.Trial) metrics.Result {
	start := time.Now()
	resp, err := d.client.Complete(ctx, llmclient.CompletionRequest{
		Prompt:          trial.Prompt,
		NPredict:        trial.Sampling.MaxTokens,
		Temperature:     trial.Sampling.Temperature,
		TopP:            trial.Sampling.TopP,
		TopK:            trial.Sampling.TopK,
		MinP:            trial.Sampling.MinP,
		PresencePenalty: trial.Sampling.PresencePenalty,
	})
	total := time.Since(start)

	if err != nil {
		return d.failure(trial, total, err)
	}

	res := metrics.Result{
		ID:               trial.ID,
		Group:            trial.Group,
		Success:          true,
		TTFT:             total,
		Total:            total,
		PromptTokens:     resp.TokensEvaluated,
		CompletionTokens: resp.TokensPredicted,
		TotalTokens:      resp.TokensEvaluated + resp.TokensPredicted,
		Preview:          metrics.PreviewText(resp.Content),
	}
	if total > 0 && res.CompletionTokens > 0 {
		res.TokensPerSec = float64(res.CompletionTokens) / total.Seconds()
	}
	return res
}

func (d *Driver) streamTrial(ctx context.Context, trial metrics.Trial, run func(ctx context.Context, onContent func(string)) error) metrics.Result {
	var (
		sb         strings.Builder
		tokens     int
		firstToken time.Time
	)

	start := time.Now()
	err := run(ctx, func(chunk string) {
		if tokens == 0 {
			firstToken = time.Now()
		}
		tokens++
		sb.WriteString(chunk)
		if d.Echo != nil {
			io.WriteString(d.Echo, chunk)
		}
	})
	total := time.Since(start)

	if err != nil {
		res := d.failure(trial, total, err)
		res.CompletionTokens = tokens
		return res
	}

	res := metrics.Result{
		ID:               trial.ID,
		Group:            trial.Group,
		Success:          true,
		Total:            total,
		PromptTokens:     prompt.ApproxTokens(trial.Prompt),
		CompletionTokens: tokens,
		Preview:          metrics.PreviewText(sb.String()),
	}
	res.TotalTokens = res.PromptTokens + res.CompletionTokens

	if tokens > 0 {
		res.TTFT = firstToken.Sub(start)
		res.Generation = total - res.TTFT
	}
	if total > 0 && tokens > 0 {
		res.TokensPerSec = float64(tokens) / total.Seconds()
	}
	return res
}

func (d *Driver) failure(trial metrics.Trial, total time.Duration, err error) metrics.Result {
	res := metrics.Result{
		ID:    trial.ID,
		Group: trial.Group,
		Total: total,
		Err:   metrics.Label(err),
	}

	var statusErr *llmclient.StatusError
	if errors.As(err, &statusErr) {
		res.Status = statusErr.Code
	}
	return res
}
