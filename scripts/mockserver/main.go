// mockserver is a stand-in for a llama.cpp-style inference server. It
// serves /health, /completion, and /v1/chat/completions in streaming and
// non-streaming flavors with configurable token count, time to first
// token, inter-token delay, and failure injection, so every promptfire
// mode can be exercised without a real model.
//
// Usage:
//
//	go run ./scripts/mockserver -port 8080 -tokens 32 -ttft 120ms -delay 25ms
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/promptfire/promptfire/internal/llmclient"
)

var filler = []string{
	"the", "model", "streams", "a", "steady", "sequence", "of", "plausible",
	"tokens", "while", "the", "harness", "measures", "first", "token",
	"latency", "and", "sustained", "generation", "speed", "under", "load",
}

type server struct {
	model     string
	maxTokens int
	ttft      time.Duration
	delay     time.Duration
	failEvery int64
	unhealthy bool

	requests atomic.Int64
}

func main() {
	port := flag.Int("port", 8080, "Listening port")
	model := flag.String("model", "mock", "Model name echoed in responses")
	tokens := flag.Int("tokens", 32, "Completion tokens per response (cap for n_predict/max_tokens)")
	ttft := flag.Duration("ttft", 120*time.Millisecond, "Delay before the first token")
	delay := flag.Duration("delay", 25*time.Millisecond, "Delay between tokens")
	failEvery := flag.Int64("fail-every", 0, "Return HTTP 500 on every Nth generation request (0 disables)")
	unhealthy := flag.Bool("unhealthy", false, "Report 503 on /health")
	flag.Parse()

	s := &server{
		model:     *model,
		maxTokens: *tokens,
		ttft:      *ttft,
		delay:     *delay,
		failEvery: *failEvery,
		unhealthy: *unhealthy,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/completion", s.handleCompletion)
	mux.HandleFunc("/v1/chat/completions", s.handleChat)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("mock inference server listening on %s (model=%s, tokens=%d, ttft=%s, delay=%s)",
		addr, s.model, s.maxTokens, s.ttft, s.delay)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.unhealthy {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "loading model"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	var req llmclient.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	if s.injectFailure(w) {
		return
	}

	n := s.clampTokens(req.NPredict)
	promptTokens := approxTokens(req.Prompt)

	if req.Stream {
		s.streamTokens(w, n, func(word string) string {
			return fmt.Sprintf(`{"content":%q}`, word)
		})
		return
	}

	time.Sleep(s.ttft + time.Duration(n)*s.delay)
	respondJSON(w, http.StatusOK, llmclient.CompletionResponse{
		Content:         generate(n),
		TokensPredicted: n,
		TokensEvaluated: promptTokens,
	})
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	var req llmclient.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	if s.injectFailure(w) {
		return
	}

	n := s.clampTokens(req.MaxTokens)
	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}
	promptTokens := approxTokens(prompt)

	if req.Stream {
		s.streamTokens(w, n, func(word string) string {
			return fmt.Sprintf(`{"choices":[{"delta":{"content":%q}}]}`, word)
		})
		return
	}

	time.Sleep(s.ttft + time.Duration(n)*s.delay)
	respondJSON(w, http.StatusOK, llmclient.ChatResponse{
		Choices: []llmclient.ChatChoice{
			{Message: llmclient.ChatMessage{Role: "assistant", Content: generate(n)}},
		},
		Usage: llmclient.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: n,
			TotalTokens:      promptTokens + n,
		},
	})
}

// streamTokens writes n SSE events, one word each, with the configured
// first-token and inter-token delays, then the [DONE] sentinel.
func (s *server) streamTokens(w http.ResponseWriter, n int, payload func(word string) string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	time.Sleep(s.ttft)
	for i := 0; i < n; i++ {
		word := filler[i%len(filler)]
		if i > 0 {
			word = " " + word
			time.Sleep(s.delay)
		}
		fmt.Fprintf(w, "data: %s\n\n", payload(word))
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (s *server) injectFailure(w http.ResponseWriter) bool {
	nth := s.requests.Add(1)
	if s.failEvery > 0 && nth%s.failEvery == 0 {
		respondJSON(w, http.StatusInternalServerError, map[string]any{"error": "injected failure"})
		return true
	}
	return false
}

func (s *server) clampTokens(requested int) int {
	if requested <= 0 || requested > s.maxTokens {
		return s.maxTokens
	}
	return requested
}

func generate(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = filler[i%len(filler)]
	}
	return strings.Join(parts, " ")
}

// approxTokens estimates prompt tokens at four characters per token, the
// rule of thumb llama.cpp logs use.
func approxTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
