package graph

import (
	"errors"
	"fmt"
)

// ErrEmptyGraph is returned when a graph declares no nodes.
var ErrEmptyGraph = errors.New("graph has no nodes")

// ValidationError describes a structural problem found at load time.
// Graphs failing validation are rejected before any test runs.
type ValidationError struct {
	NodeID NodeID
	Msg    string
}

func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("graph validation: node %q: %s", e.NodeID, e.Msg)
	}
	return "graph validation: " + e.Msg
}

// Validate checks the graph's structural invariants:
//
//   - the entry node exists
//   - every transition's target node exists (no dangling references)
//   - every condition has a recognized type, and non-always conditions
//     carry a value
//
// Dangling references are a load-time error, never a run-time one.
func (g *AgentGraph) Validate() error {
	if len(g.Nodes) == 0 {
		return ErrEmptyGraph
	}
	if g.EntryNodeID == "" {
		return &ValidationError{Msg: "entry_node_id is required"}
	}
	if _, ok := g.Nodes[g.EntryNodeID]; !ok {
		return &ValidationError{Msg: fmt.Sprintf("entry node %q does not exist", g.EntryNodeID)}
	}

	for id, node := range g.Nodes {
		if node == nil {
			return &ValidationError{NodeID: id, Msg: "node is nil"}
		}
		if node.ID == "" {
			node.ID = id
		} else if node.ID != id {
			return &ValidationError{NodeID: id, Msg: fmt.Sprintf("node id %q does not match map key", node.ID)}
		}
		for i, tr := range node.Transitions {
			if _, ok := g.Nodes[tr.TargetNodeID]; !ok {
				return &ValidationError{
					NodeID: id,
					Msg:    fmt.Sprintf("transition %d references missing node %q", i, tr.TargetNodeID),
				}
			}
			if err := validateCondition(tr.Condition); err != nil {
				return &ValidationError{NodeID: id, Msg: fmt.Sprintf("transition %d: %v", i, err)}
			}
		}
	}
	return nil
}

func validateCondition(c Condition) error {
	switch c.Type {
	case ConditionAlways:
		return nil
	case ConditionEquation, ConditionToolCall, ConditionLLMPrompt:
		if c.Value == "" {
			return fmt.Errorf("%s condition requires a value", c.Type)
		}
		return nil
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
}
