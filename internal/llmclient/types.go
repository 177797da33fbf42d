package llmclient

// CompletionRequest is the body for the native completion endpoint.
type CompletionRequest struct {
	Prompt          string  `json:"prompt"`
	NPredict        int     `json:"n_predict"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"top_p"`
	TopK            int     `json:"top_k"`
	MinP            float64 `json:"min_p"`
	PresencePenalty float64 `json:"presence_penalty"`
	Stream          bool    `json:"stream"`
}

// CompletionResponse is the non-streaming completion reply.
type CompletionResponse struct {
	Content         string `json:"content"`
	TokensPredicted int    `json:"tokens_predicted"`
	TokensEvaluated int    `json:"tokens_evaluated"`
}

// ChatMessage is one turn in an OpenAI-style conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body for the OpenAI-compatible chat endpoint.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

// Usage reports server-side token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatChoice is one generated alternative.
type ChatChoice struct {
	Message ChatMessage `json:"message"`
}

// ChatResponse is the non-streaming chat reply.
type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

// Text returns the first choice's content, or empty when the server
// returned no choices.
func (r ChatResponse) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}
