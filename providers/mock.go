package providers

import (
	"context"
	"fmt"
	"sync"
)

// MockResponse is a canned reply served by the mock provider.
type MockResponse struct {
	Content   string     `yaml:"response,omitempty"`
	ToolCalls []ToolCall `yaml:"tool_calls,omitempty"`
}

// MockResponseParams carry the lookup key for a scripted response.
type MockResponseParams struct {
	ConversationID string
	Role           string
	TurnIndex      int
}

// MockResponseRepository sources mock responses. Implementations may be
// in-memory, file-backed, or generated from previous run transcripts.
type MockResponseRepository interface {
	GetResponse(ctx context.Context, params MockResponseParams) (MockResponse, error)
}

// MockProvider returns canned responses without making any API calls.
// It is used for offline suite runs (--mock) and throughout the test suite.
type MockProvider struct {
	id         string
	model      string
	repository MockResponseRepository

	mu    sync.Mutex
	turns map[string]int // assistant turn counter per conversation
}

// NewMockProvider creates a mock provider with a single default response.
func NewMockProvider(id, model, defaultResponse string) *MockProvider {
	return NewMockProviderWithRepository(id, model, NewInMemoryMockRepository(defaultResponse))
}

// NewMockProviderWithRepository creates a mock provider backed by a custom
// response repository.
func NewMockProviderWithRepository(id, model string, repo MockResponseRepository) *MockProvider {
	return &MockProvider{
		id:         id,
		model:      model,
		repository: repo,
		turns:      make(map[string]int),
	}
}

// ID returns the provider ID.
func (m *MockProvider) ID() string { return m.id }

// Chat returns the scripted response for the request's conversation and turn.
func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	params := MockResponseParams{}
	if req.Metadata != nil {
		if id, ok := req.Metadata["conversation_id"].(string); ok {
			params.ConversationID = id
		}
		if role, ok := req.Metadata["role"].(string); ok {
			params.Role = role
		}
	}

	m.mu.Lock()
	key := params.ConversationID + "/" + params.Role
	m.turns[key]++
	params.TurnIndex = m.turns[key]
	m.mu.Unlock()

	resp, err := m.repository.GetResponse(ctx, params)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("mock response lookup: %w", err)
	}

	return ChatResponse{
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	}, nil
}

// Close is a no-op for the mock provider.
func (m *MockProvider) Close() error { return nil }

// InMemoryMockRepository serves one default response plus optional scripted
// responses keyed by conversation, role, and turn index.
type InMemoryMockRepository struct {
	mu              sync.RWMutex
	defaultResponse string
	scripted        map[string][]MockResponse // key: conversationID/role, ordered by turn
	errs            []error                   // queued errors, consumed before responses
}

// NewInMemoryMockRepository creates a repository with a generic default response.
func NewInMemoryMockRepository(defaultResponse string) *InMemoryMockRepository {
	return &InMemoryMockRepository{
		defaultResponse: defaultResponse,
		scripted:        make(map[string][]MockResponse),
	}
}

// Script appends ordered responses for a conversation/role pair.
func (r *InMemoryMockRepository) Script(conversationID, role string, responses ...MockResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := conversationID + "/" + role
	r.scripted[key] = append(r.scripted[key], responses...)
}

// QueueError makes the next GetResponse calls fail with the given errors,
// in order. Used to exercise retry behavior in tests.
func (r *InMemoryMockRepository) QueueError(errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, errs...)
}

// GetResponse implements MockResponseRepository.
func (r *InMemoryMockRepository) GetResponse(_ context.Context, params MockResponseParams) (MockResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return MockResponse{}, err
	}

	key := params.ConversationID + "/" + params.Role
	if responses, ok := r.scripted[key]; ok {
		idx := params.TurnIndex - 1
		if idx >= 0 && idx < len(responses) {
			return responses[idx], nil
		}
		if len(responses) > 0 {
			// Past the script: repeat the final scripted response.
			return responses[len(responses)-1], nil
		}
	}
	return MockResponse{Content: r.defaultResponse}, nil
}
