package conditions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/gauntlet/driver"
	"github.com/parleylabs/gauntlet/graph"
	"github.com/parleylabs/gauntlet/providers"
)

func stateWithVars(vars map[string]any) *driver.State {
	node := &graph.Node{ID: "verify", Instructions: "Verify the caller."}
	return driver.NewState("conv-1", node, vars)
}

func transition(ct graph.ConditionType, value string) graph.Transition {
	return graph.Transition{
		TargetNodeID: "next",
		Condition:    graph.Condition{Type: ct, Value: value},
	}
}

func TestEvaluate_Always(t *testing.T) {
	e := New()
	ok, err := e.Evaluate(context.Background(), transition(graph.ConditionAlways, ""), stateWithVars(nil))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_ToolCallScopedToNode(t *testing.T) {
	e := New()
	s := stateWithVars(nil)

	ok, err := e.Evaluate(context.Background(), transition(graph.ConditionToolCall, "verify_pin"), s)
	require.NoError(t, err)
	assert.False(t, ok)

	s.RecordToolCall("verify_pin")
	ok, err = e.Evaluate(context.Background(), transition(graph.ConditionToolCall, "verify_pin"), s)
	require.NoError(t, err)
	assert.True(t, ok)

	// Leaving and re-entering a node clears the scope.
	s.EnterNode(&graph.Node{ID: "other"})
	ok, err = e.Evaluate(context.Background(), transition(graph.ConditionToolCall, "verify_pin"), s)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_EquationOverDynamicVariables(t *testing.T) {
	e := New()
	s := stateWithVars(map[string]any{"balance": 150})

	ok, err := e.Evaluate(context.Background(), transition(graph.ConditionEquation, "balance > 100"), s)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Evaluate(context.Background(), transition(graph.ConditionEquation, "balance > 200"), s)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_EquationOverTurnCounters(t *testing.T) {
	e := New()
	s := stateWithVars(nil)
	for i := 0; i < 3; i++ {
		s.AppendTurn(driver.Turn{Role: driver.RoleUser, Content: "hello"})
	}

	ok, err := e.Evaluate(context.Background(), transition(graph.ConditionEquation, "attempts > 2"), s)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_EquationUnknownVariableIsUnsatisfied(t *testing.T) {
	e := New()
	ok, err := e.Evaluate(context.Background(), transition(graph.ConditionEquation, "no_such_var == 1"), stateWithVars(nil))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_EquationMustBeBoolean(t *testing.T) {
	e := New()
	_, err := e.Evaluate(context.Background(), transition(graph.ConditionEquation, "1 + 1"), stateWithVars(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not boolean")
}

func TestEvaluate_EquationParseError(t *testing.T) {
	e := New()
	_, err := e.Evaluate(context.Background(), transition(graph.ConditionEquation, "balance >"), stateWithVars(nil))
	require.Error(t, err)
}

func TestEvaluate_LLMPrompt(t *testing.T) {
	repo := providers.NewInMemoryMockRepository("no")
	repo.Script("conv-1", "condition",
		providers.MockResponse{Content: "yes"},
		providers.MockResponse{Content: "No, the user has not confirmed."},
	)
	e := New(WithModel(providers.NewMockProviderWithRepository("mock", "mock-small", repo)))

	s := stateWithVars(nil)
	s.AppendTurn(driver.Turn{Role: driver.RoleUser, Content: "I confirm the booking."})

	ok, err := e.Evaluate(context.Background(), transition(graph.ConditionLLMPrompt, "the user confirmed the booking"), s)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Evaluate(context.Background(), transition(graph.ConditionLLMPrompt, "the user cancelled"), s)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_LLMPromptWithoutModelFails(t *testing.T) {
	e := New()
	_, err := e.Evaluate(context.Background(), transition(graph.ConditionLLMPrompt, "anything"), stateWithVars(nil))
	require.Error(t, err)
}

func TestEvaluate_FirstSatisfiedTransitionWins(t *testing.T) {
	e := New()
	s := stateWithVars(map[string]any{"tier": 2})

	node := &graph.Node{
		ID: "route",
		Transitions: []graph.Transition{
			{TargetNodeID: "fallback", Condition: graph.Condition{Type: graph.ConditionAlways}},
			{TargetNodeID: "premium", Condition: graph.Condition{Type: graph.ConditionEquation, Value: "tier >= 2"}},
			{TargetNodeID: "paid", Condition: graph.Condition{Type: graph.ConditionEquation, Value: "tier >= 1"}},
		},
	}

	var target graph.NodeID
	for _, tr := range node.OrderedTransitions() {
		ok, err := e.Evaluate(context.Background(), tr, s)
		require.NoError(t, err)
		if ok {
			target = tr.TargetNodeID
			break
		}
	}

	// Both equations hold; the first declared wins, and the catch-all is
	// only reachable after every other condition fails.
	assert.Equal(t, graph.NodeID("premium"), target)
}
