package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/gauntlet/graph"
)

const validSuiteYAML = `
agent:
  name: support-bot
  entry_node_id: greet
  default_model: mock/mock-small
  nodes:
    greet:
      instructions: Greet the customer and ask what they need.
      transitions:
        - target_node_id: resolve
          condition:
            type: tool_call
            value: lookup_order
      tools:
        - name: lookup_order
          description: Look up an order by id.
    resolve:
      instructions: Resolve the customer issue.
tests:
  - name: happy path
    user_prompt: You are a customer asking about order 42.
    type: llm
    metrics:
      - name: politeness
        criteria: The agent stays polite throughout.
  - name: refund words
    user_prompt: Demand a refund.
    type: rule
    includes: [refund]
options:
  max_turns: 6
`

func TestParseSuite_Valid(t *testing.T) {
	suite, err := ParseSuite([]byte(validSuiteYAML))
	require.NoError(t, err)

	assert.Equal(t, "support-bot", suite.Agent.Name)
	assert.Equal(t, graph.NodeID("greet"), suite.Agent.EntryNodeID)
	require.Len(t, suite.Tests, 2)

	// Missing ids are assigned by position.
	assert.Equal(t, "test-1", suite.Tests[0].ID)
	assert.Equal(t, "test-2", suite.Tests[1].ID)

	// Declared options survive, zero options get defaults.
	assert.Equal(t, 6, suite.Options.MaxTurns)
	assert.Equal(t, DefaultTimeoutSeconds, suite.Options.TimeoutSeconds)
	assert.Equal(t, DefaultConcurrency, suite.Options.Concurrency)
	assert.Equal(t, DefaultMaxRetries, suite.Options.MaxRetries)
}

func TestParseSuite_MissingAgent(t *testing.T) {
	_, err := ParseSuite([]byte("tests:\n  - name: x\n    user_prompt: y\n    type: llm\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no agent graph")
}

func TestParseSuite_DanglingTransition(t *testing.T) {
	yamlDoc := `
agent:
  name: broken
  entry_node_id: a
  nodes:
    a:
      instructions: start
      transitions:
        - target_node_id: nowhere
          condition:
            type: always
tests:
  - name: t
    user_prompt: p
    type: llm
`
	_, err := ParseSuite([]byte(yamlDoc))
	require.Error(t, err)

	var verr *graph.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, graph.NodeID("a"), verr.NodeID)
}

func TestParseSuite_DuplicateTestIDs(t *testing.T) {
	yamlDoc := `
agent:
  name: g
  entry_node_id: a
  nodes:
    a:
      instructions: start
tests:
  - id: same
    name: one
    user_prompt: p
    type: llm
  - id: same
    name: two
    user_prompt: p
    type: llm
`
	_, err := ParseSuite([]byte(yamlDoc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate test id "same"`)
}

func TestParseSuite_RuleTestWithoutRules(t *testing.T) {
	yamlDoc := `
agent:
  name: g
  entry_node_id: a
  nodes:
    a:
      instructions: start
tests:
  - name: empty rule
    user_prompt: p
    type: rule
`
	_, err := ParseSuite([]byte(yamlDoc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares no includes")
}

func TestTestCase_MockFor(t *testing.T) {
	tc := TestCase{
		ToolMocks: []ToolMock{
			{ToolName: "lookup_order", Result: `{"status":"shipped"}`},
		},
	}
	require.NotNil(t, tc.MockFor("lookup_order"))
	assert.Equal(t, `{"status":"shipped"}`, tc.MockFor("lookup_order").Result)
	assert.Nil(t, tc.MockFor("unmocked_tool"))
}
