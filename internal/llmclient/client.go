// Package llmclient is the HTTP client for a llama.cpp-style inference
// server: the native /completion endpoint, the OpenAI-compatible
// /v1/chat/completions endpoint, and the /health readiness probe, in both
// streaming and non-streaming modes.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/promptfire/promptfire/internal/sse"
)

const (
	completionPath = "/completion"
	chatPath       = "/v1/chat/completions"
	healthPath     = "/health"

	// doneSentinel terminates a streamed response.
	doneSentinel = "[DONE]"

	// maxErrorBody bounds how much of an error response ends up in the
	// failure message.
	maxErrorBody = 200
)

// StatusError is returned when the server responds with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Client talks to one inference server. It is safe for concurrent use; all
// trials in a run share its connection pool.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates a Client for the server at baseURL. The timeout caps each
// request including the full streamed body read; zero means no cap.
func New(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: newHTTPClient(timeout),
	}
}

// Model returns the model name sent with chat requests.
func (c *Client) Model() string {
	return c.model
}

// BaseURL returns the configured server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WrapTransport replaces the underlying transport with wrap(current), for
// callers that need to decorate outgoing requests. Call before the first
// request.
func (c *Client) WrapTransport(wrap func(http.RoundTripper) http.RoundTripper) {
	c.httpClient.Transport = wrap(c.httpClient.Transport)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Health probes the server's readiness endpoint. Any response other than
// HTTP 200 is an error; a health failure is fatal to the whole run.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Complete sends a non-streaming completion request.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	req.Stream = false

	var out CompletionResponse
	body, err := c.postJSON(ctx, completionPath, req)
	if err != nil {
		return out, err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// Chat sends a non-streaming chat completion request. The client's model
// name is filled in when the request does not carry one.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	req.Stream = false
	if req.Model == "" {
		req.Model = c.model
	}

	var out ChatResponse
	body, err := c.postJSON(ctx, chatPath, req)
	if err != nil {
		return out, err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// CompleteStream sends a streaming completion request and invokes onContent
// for every non-empty content chunk until the [DONE] sentinel or stream
// end. Malformed event payloads are skipped.
func (c *Client) CompleteStream(ctx context.Context, req CompletionRequest, onContent func(chunk string)) error {
	req.Stream = true
	return c.stream(ctx, completionPath, req, "content", onContent)
}

// ChatStream sends a streaming chat request and invokes onContent for every
// non-empty delta chunk.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, onContent func(chunk string)) error {
	req.Stream = true
	if req.Model == "" {
		req.Model = c.model
	}
	return c.stream(ctx, chatPath, req, "choices.0.delta.content", onContent)
}

func (c *Client) stream(ctx context.Context, path string, payload any, contentPath string, onContent func(string)) error {
	body, err := c.post(ctx, path, payload, true)
	if err != nil {
		return err
	}
	defer body.Close()

	dec := sse.NewDecoder(body)
	for {
		event, err := dec.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}

		data := strings.TrimSpace(event.Data)
		if data == "" {
			continue
		}
		if data == doneSentinel {
			return nil
		}
		// Partial or garbled frames are expected under load; skip them.
		if !gjson.Valid(data) {
			continue
		}
		chunk := gjson.Get(data, contentPath)
		if !chunk.Exists() || chunk.String() == "" {
			continue
		}
		if onContent != nil {
			onContent(chunk.String())
		}
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	return c.post(ctx, path, payload, false)
}

func (c *Client) post(ctx context.Context, path string, payload any, streaming bool) (io.ReadCloser, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	return resp.Body, nil
}

func readErrorBody(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
