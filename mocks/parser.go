// Package mocks loads scripted provider responses from YAML files, letting
// whole suites run offline with fully deterministic model output.
package mocks

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/parleylabs/gauntlet/providers"
)

// mockFile is the on-disk schema. Each script binds an ordered response
// list to one conversation and role; past the end of the list the final
// response repeats.
type mockFile struct {
	DefaultResponse string   `yaml:"default_response"`
	Scripts         []script `yaml:"scripts"`
}

type script struct {
	ConversationID string             `yaml:"conversation_id"`
	Role           string             `yaml:"role"`
	Responses      []scriptedResponse `yaml:"responses"`
}

type scriptedResponse struct {
	Response  string             `yaml:"response"`
	ToolCalls []scriptedToolCall `yaml:"tool_calls,omitempty"`
}

type scriptedToolCall struct {
	Name      string         `yaml:"name"`
	Arguments map[string]any `yaml:"arguments,omitempty"`
}

// Load reads a mock response file into a repository.
func Load(path string) (*providers.InMemoryMockRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mock file: %w", err)
	}
	return Parse(data)
}

// Parse parses mock response YAML into a repository.
func Parse(data []byte) (*providers.InMemoryMockRepository, error) {
	var file mockFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing mock file: %w", err)
	}
	if file.DefaultResponse == "" {
		file.DefaultResponse = "OK."
	}

	repo := providers.NewInMemoryMockRepository(file.DefaultResponse)
	for i, sc := range file.Scripts {
		if sc.ConversationID == "" || sc.Role == "" {
			return nil, fmt.Errorf("script %d: conversation_id and role are required", i)
		}
		if len(sc.Responses) == 0 {
			return nil, fmt.Errorf("script %d (%s/%s): declares no responses", i, sc.ConversationID, sc.Role)
		}

		responses := make([]providers.MockResponse, 0, len(sc.Responses))
		for j, r := range sc.Responses {
			mr, err := toMockResponse(r)
			if err != nil {
				return nil, fmt.Errorf("script %d response %d: %w", i, j, err)
			}
			responses = append(responses, mr)
		}
		repo.Script(sc.ConversationID, sc.Role, responses...)
	}
	return repo, nil
}

func toMockResponse(r scriptedResponse) (providers.MockResponse, error) {
	mr := providers.MockResponse{Content: r.Response}
	for _, tc := range r.ToolCalls {
		if tc.Name == "" {
			return providers.MockResponse{}, fmt.Errorf("tool call without a name")
		}
		call := providers.ToolCall{Name: tc.Name}
		if len(tc.Arguments) > 0 {
			raw, err := json.Marshal(tc.Arguments)
			if err != nil {
				return providers.MockResponse{}, fmt.Errorf("encoding arguments for %s: %w", tc.Name, err)
			}
			call.Arguments = raw
		}
		mr.ToolCalls = append(mr.ToolCalls, call)
	}
	return mr, nil
}
