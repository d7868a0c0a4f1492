package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGraph() *AgentGraph {
	return &AgentGraph{
		EntryNodeID: "intake",
		Nodes: map[NodeID]*Node{
			"intake": {
				ID:           "intake",
				Instructions: "Greet the caller and collect their issue.",
				Transitions: []Transition{
					{TargetNodeID: "booking", Condition: Condition{Type: ConditionToolCall, Value: "book_appointment"}},
					{TargetNodeID: "farewell", Condition: Condition{Type: ConditionAlways}},
				},
			},
			"booking":  {ID: "booking", Instructions: "Confirm the appointment details."},
			"farewell": {ID: "farewell", Instructions: "Say goodbye."},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validGraph().Validate())
}

func TestValidate_EmptyGraph(t *testing.T) {
	g := &AgentGraph{}
	assert.ErrorIs(t, g.Validate(), ErrEmptyGraph)
}

func TestValidate_MissingEntryNode(t *testing.T) {
	g := validGraph()
	g.EntryNodeID = "nope"

	err := g.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "entry node")
}

func TestValidate_DanglingTransition(t *testing.T) {
	g := validGraph()
	g.Nodes["intake"].Transitions = append(g.Nodes["intake"].Transitions, Transition{
		TargetNodeID: "ghost",
		Condition:    Condition{Type: ConditionAlways},
	})

	err := g.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, NodeID("intake"), verr.NodeID)
	assert.Contains(t, verr.Error(), "ghost")
}

func TestValidate_ConditionValueRequired(t *testing.T) {
	g := validGraph()
	g.Nodes["intake"].Transitions[0].Condition.Value = ""

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a value")
}

func TestValidate_UnknownConditionType(t *testing.T) {
	g := validGraph()
	g.Nodes["intake"].Transitions[0].Condition = Condition{Type: "telepathy", Value: "x"}

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown condition type")
}

func TestOrderedTransitions_AlwaysForcedLast(t *testing.T) {
	node := &Node{
		ID: "n",
		Transitions: []Transition{
			{TargetNodeID: "a", Condition: Condition{Type: ConditionAlways}},
			{TargetNodeID: "b", Condition: Condition{Type: ConditionEquation, Value: "attempts > 2"}},
			{TargetNodeID: "c", Condition: Condition{Type: ConditionToolCall, Value: "lookup"}},
		},
	}

	ordered := node.OrderedTransitions()
	require.Len(t, ordered, 3)
	assert.Equal(t, NodeID("b"), ordered[0].TargetNodeID)
	assert.Equal(t, NodeID("c"), ordered[1].TargetNodeID)
	assert.Equal(t, NodeID("a"), ordered[2].TargetNodeID)
}

func TestIsTerminal(t *testing.T) {
	g := validGraph()
	assert.False(t, g.Nodes["intake"].IsTerminal())
	assert.True(t, g.Nodes["booking"].IsTerminal())
}
