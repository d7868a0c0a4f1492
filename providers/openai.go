package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/parleylabs/gauntlet/logger"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider is a chat provider for the OpenAI chat completions API and
// API-compatible gateways (vLLM, Ollama, proxies).
type OpenAIProvider struct {
	id      string
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithBaseURL points the provider at an OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) { p.baseURL = url }
}

// WithHTTPClient overrides the HTTP client (primarily for tests).
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.client = c }
}

// NewOpenAIProvider creates a provider for the given model.
func NewOpenAIProvider(id, model, apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		id:      id,
		model:   model,
		apiKey:  apiKey,
		baseURL: defaultOpenAIBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the provider ID.
func (p *OpenAIProvider) ID() string { return p.id }

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAIToolCall struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAITool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	} `json:"function"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float32         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Tools       []openAITool    `json:"tools,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// Chat performs a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	body := openAIRequest{
		Model:       p.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, openAIMessage{Role: msg.Role, Content: msg.Content})
	}
	for _, tool := range req.Tools {
		t := openAITool{Type: "function"}
		t.Function.Name = tool.Name
		t.Function.Description = tool.Description
		t.Function.Parameters = tool.Parameters
		body.Tools = append(body.Tools, t)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	logger.LLMCall(p.id, "chat", len(req.Messages), "model", p.model)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ChatResponse{}, &ProviderError{Type: ErrorTimeout, Message: ctx.Err().Error(), Err: err}
		}
		return ChatResponse{}, &ProviderError{Type: ErrorServer, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, &ProviderError{Type: ErrorServer, Message: "reading response body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		perr := ClassifyHTTP(resp.StatusCode, raw)
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, convErr := strconv.Atoi(ra); convErr == nil {
				perr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		logger.LLMError(p.id, "chat", perr)
		return ChatResponse{}, perr
	}

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		return ChatResponse{}, &ProviderError{
			Type:    ErrorMalformedResponse,
			Message: "response is not a valid chat completion",
			Err:     err,
		}
	}

	choice := parsed.Choices[0].Message
	out := ChatResponse{
		Content: choice.Content,
		Latency: time.Since(start),
	}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

// Close releases idle HTTP connections.
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
