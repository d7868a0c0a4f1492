package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/parleylabs/gauntlet/graph"
)

// LoadSuite reads a suite YAML file, validates the embedded agent graph and
// every test case, and fills in option defaults. Validation failures reject
// the whole suite before any test runs.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}
	return ParseSuite(data)
}

// ParseSuite parses and validates suite YAML.
func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parsing suite: %w", err)
	}

	if suite.Agent == nil {
		return nil, fmt.Errorf("suite declares no agent graph")
	}
	if err := suite.Agent.Validate(); err != nil {
		return nil, err
	}

	if len(suite.Tests) == 0 {
		return nil, fmt.Errorf("suite declares no tests")
	}
	seen := make(map[string]struct{}, len(suite.Tests))
	for i := range suite.Tests {
		tc := &suite.Tests[i]
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("test-%d", i+1)
		}
		if _, dup := seen[tc.ID]; dup {
			return nil, fmt.Errorf("duplicate test id %q", tc.ID)
		}
		seen[tc.ID] = struct{}{}
		if err := tc.Validate(); err != nil {
			return nil, err
		}
	}

	suite.Options = suite.Options.WithDefaults()
	return &suite, nil
}

// LoadGraph reads and validates a standalone agent graph YAML file.
func LoadGraph(path string) (*graph.AgentGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph file: %w", err)
	}

	var g graph.AgentGraph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing graph: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}
