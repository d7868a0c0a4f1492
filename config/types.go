// Package config defines test suites, test cases, and run options, and loads
// them from YAML files.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/parleylabs/gauntlet/graph"
	"github.com/parleylabs/gauntlet/providers"
)

// TestType discriminates how a finished transcript is evaluated.
type TestType string

const (
	// TestTypeLLM scores the transcript with LLM judgments per metric.
	TestTypeLLM TestType = "llm"
	// TestTypeRule applies deterministic string and regex checks.
	TestTypeRule TestType = "rule"
)

// ToolMock is a deterministic stand-in for a real tool call. During
// simulation a matching tool call is answered with the canned result instead
// of executing anything.
type ToolMock struct {
	ToolName string `yaml:"tool_name" json:"tool_name"`
	Result   string `yaml:"result" json:"result"`
}

// TestCase describes one simulated conversation against the agent graph.
type TestCase struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	UserPrompt string `yaml:"user_prompt" json:"user_prompt"`

	DynamicVariables map[string]any `yaml:"dynamic_variables,omitempty" json:"dynamic_variables,omitempty"`
	ToolMocks        []ToolMock     `yaml:"tool_mocks,omitempty" json:"tool_mocks,omitempty"`

	Type TestType `yaml:"type" json:"type"`

	// Metrics are free-text criteria for llm-type tests.
	Metrics []graph.Metric `yaml:"metrics,omitempty" json:"metrics,omitempty"`

	// Includes/Excludes/Patterns drive rule-type evaluation.
	Includes []string `yaml:"includes,omitempty" json:"includes,omitempty"`
	Excludes []string `yaml:"excludes,omitempty" json:"excludes,omitempty"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// MockFor returns the mock for the named tool, or nil when the tool has no
// mock and its calls should be recorded unanswered.
func (tc *TestCase) MockFor(toolName string) *ToolMock {
	for i := range tc.ToolMocks {
		if tc.ToolMocks[i].ToolName == toolName {
			return &tc.ToolMocks[i]
		}
	}
	return nil
}

// Validate checks that the test case is well-formed.
func (tc *TestCase) Validate() error {
	if tc.Name == "" {
		return fmt.Errorf("test case requires a name")
	}
	if tc.UserPrompt == "" {
		return fmt.Errorf("test case %q requires a user_prompt", tc.Name)
	}
	switch tc.Type {
	case TestTypeLLM:
		// Global metrics may cover the test; local metrics are optional.
	case TestTypeRule:
		if len(tc.Includes)+len(tc.Excludes)+len(tc.Patterns) == 0 {
			return fmt.Errorf("rule test %q declares no includes, excludes, or patterns", tc.Name)
		}
		for _, p := range tc.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("rule test %q: invalid pattern %q: %w", tc.Name, p, err)
			}
		}
	default:
		return fmt.Errorf("test case %q has unknown type %q", tc.Name, tc.Type)
	}
	return nil
}

// RunOptions configure one run. Options are a value passed at run start;
// nothing here is process-wide state.
type RunOptions struct {
	MaxTurns       int `yaml:"max_turns" json:"max_turns"`
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	AgentModel     providers.ModelHandle `yaml:"agent_model" json:"agent_model"`
	SimulatorModel providers.ModelHandle `yaml:"simulator_model" json:"simulator_model"`
	JudgeModel     providers.ModelHandle `yaml:"judge_model" json:"judge_model"`

	Concurrency int `yaml:"concurrency" json:"concurrency"`
	MaxRetries  int `yaml:"max_retries" json:"max_retries"`
}

// Default option values applied by WithDefaults.
const (
	DefaultMaxTurns       = 10
	DefaultTimeoutSeconds = 300
	DefaultConcurrency    = 4
	DefaultMaxRetries     = 3
)

// WithDefaults returns a copy with zero fields replaced by defaults.
func (o RunOptions) WithDefaults() RunOptions {
	if o.MaxTurns <= 0 {
		o.MaxTurns = DefaultMaxTurns
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	return o
}

// Timeout returns the per-test wall-clock ceiling.
func (o RunOptions) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Suite bundles an agent graph with the test cases to run against it.
type Suite struct {
	Agent   *graph.AgentGraph `yaml:"agent" json:"agent"`
	Tests   []TestCase        `yaml:"tests" json:"tests"`
	Options RunOptions        `yaml:"options" json:"options"`
}
