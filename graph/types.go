// Package graph defines the normalized agent graph consumed by the test engine.
//
// An agent is represented as a directed graph of conversation states
// ("nodes") with ordered transition rules. The graph is an immutable input:
// it is validated once at load time and never mutated during execution.
package graph

// NodeID identifies a single node within an agent graph.
type NodeID string

// ConditionType discriminates how a transition condition is evaluated.
type ConditionType string

const (
	// ConditionAlways is an unconditional catch-all; always evaluated last.
	ConditionAlways ConditionType = "always"
	// ConditionEquation evaluates a boolean expression over dynamic variables
	// and structured turn metadata (e.g. "attempts > 2").
	ConditionEquation ConditionType = "equation"
	// ConditionToolCall fires when the named tool was called since entering
	// the current node.
	ConditionToolCall ConditionType = "tool_call"
	// ConditionLLMPrompt delegates to an LLM classification of whether the
	// transcript so far satisfies a natural-language condition.
	ConditionLLMPrompt ConditionType = "llm_prompt"
)

// Condition gates a transition out of a node.
type Condition struct {
	Type  ConditionType `json:"type" yaml:"type"`
	Value string        `json:"value,omitempty" yaml:"value,omitempty"`
}

// Transition is a rule for leaving a node. Ordering within a node is
// significant: the first satisfied condition wins, except that "always"
// conditions are evaluated after every other condition regardless of
// declaration position.
type Transition struct {
	TargetNodeID NodeID    `json:"target_node_id" yaml:"target_node_id"`
	Condition    Condition `json:"condition" yaml:"condition"`
}

// ToolDecl declares a callable tool available while the conversation is in
// a node. Tools are never executed live during simulation; calls are either
// answered from test-case mocks or recorded unanswered.
type ToolDecl struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Node is one conversation state with prompt instructions and outgoing
// transitions. A node with no transitions is terminal.
type Node struct {
	ID           NodeID       `json:"id" yaml:"id"`
	Instructions string       `json:"instructions" yaml:"instructions"`
	Tools        []ToolDecl   `json:"tools,omitempty" yaml:"tools,omitempty"`
	Transitions  []Transition `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

// Metric is an evaluation criterion scored against a finished transcript.
// Metrics attached to the graph are global: they apply to every LLM-type
// test run against the agent unless disabled.
type Metric struct {
	Name      string  `json:"name" yaml:"name"`
	Criteria  string  `json:"criteria" yaml:"criteria"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Enabled   bool    `json:"enabled" yaml:"enabled"`
}

// AgentGraph is the normalized representation of a conversational agent.
type AgentGraph struct {
	Name          string           `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes         map[NodeID]*Node `json:"nodes" yaml:"nodes"`
	EntryNodeID   NodeID           `json:"entry_node_id" yaml:"entry_node_id"`
	DefaultModel  string           `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	GlobalMetrics []Metric         `json:"global_metrics,omitempty" yaml:"global_metrics,omitempty"`

	// DefaultThreshold is the pass threshold applied to metrics that do not
	// override it. Zero means the judge's built-in default applies.
	DefaultThreshold float64 `json:"default_threshold,omitempty" yaml:"default_threshold,omitempty"`
}

// Entry returns the entry node. Callers must have validated the graph first.
func (g *AgentGraph) Entry() *Node {
	return g.Nodes[g.EntryNodeID]
}

// OrderedTransitions returns the node's transitions in evaluation order:
// declared order, with "always" conditions moved to the end while keeping
// their relative order.
func (n *Node) OrderedTransitions() []Transition {
	if len(n.Transitions) == 0 {
		return nil
	}
	ordered := make([]Transition, 0, len(n.Transitions))
	var catchAll []Transition
	for _, tr := range n.Transitions {
		if tr.Condition.Type == ConditionAlways {
			catchAll = append(catchAll, tr)
			continue
		}
		ordered = append(ordered, tr)
	}
	return append(ordered, catchAll...)
}

// IsTerminal reports whether the node has no outgoing transitions.
func (n *Node) IsTerminal() bool {
	return len(n.Transitions) == 0
}

// ToolDecl returns the declaration for the named tool, or nil.
func (n *Node) ToolDecl(name string) *ToolDecl {
	for i := range n.Tools {
		if n.Tools[i].Name == name {
			return &n.Tools[i]
		}
	}
	return nil
}
