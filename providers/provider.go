// Package providers implements LLM provider support behind a unified interface.
//
// A Provider is resolved once at run start from a ModelHandle and is the only
// LLM channel the engine components depend on; no string routing happens at
// call time. The package ships an OpenAI-compatible HTTP provider for real
// runs and a scriptable mock provider for offline testing.
package providers

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Message is a single message in a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolDescriptor describes a tool offered to the model for the current call.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ChatRequest represents a request to a chat provider.
type ChatRequest struct {
	System      string           `json:"system"`
	Messages    []Message        `json:"messages"`
	Temperature float32          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
	Tools       []ToolDescriptor `json:"tools,omitempty"`

	// Metadata carries caller context (conversation id, turn index) used by
	// the mock provider to select scripted responses. Real providers ignore it.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ChatResponse represents a response from a chat provider.
type ChatResponse struct {
	Content   string        `json:"content"`
	ToolCalls []ToolCall    `json:"tool_calls,omitempty"`
	Latency   time.Duration `json:"latency"`
}

// Provider is the contract for chat providers.
type Provider interface {
	ID() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// Close cleans up provider resources (e.g. HTTP connections).
	Close() error
}

// ModelHandle names a provider/model pair. It is resolved into a Provider
// exactly once, when a run starts.
type ModelHandle struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
}

// String returns the handle in provider/model form.
func (h ModelHandle) String() string {
	if h.Provider == "" {
		return h.Model
	}
	return h.Provider + "/" + h.Model
}

// IsZero reports whether the handle names neither provider nor model.
func (h ModelHandle) IsZero() bool {
	return h.Provider == "" && h.Model == ""
}

// ParseHandle parses "provider/model" into a ModelHandle. A bare name with
// no slash is treated as a provider ID with an unspecified model.
func ParseHandle(s string) ModelHandle {
	provider, model, ok := strings.Cut(s, "/")
	if !ok {
		return ModelHandle{Provider: s}
	}
	return ModelHandle{Provider: provider, Model: model}
}
