package driver

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/parleylabs/gauntlet/graph"
)

// Turn is one entry in a conversation transcript.
type Turn struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	NodeID    graph.NodeID     `json:"node_id"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// ToolCallRecord captures a tool invocation requested by the agent. Mocked
// calls carry the canned result; unmocked calls are recorded unanswered.
type ToolCallRecord struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    string         `json:"result,omitempty"`
	Mocked    bool           `json:"mocked"`
}

// State is the mutable conversation state threaded through one test
// execution. Turn generators and condition evaluators read it; only the
// driver mutates it. The cancel flag may be flipped from any goroutine.
type State struct {
	mu sync.RWMutex

	conversationID string
	currentNode    *graph.Node
	transcript     []Turn
	nodesVisited   []graph.NodeID
	userTurns      int

	// nodeTools tracks tools called since entering the current node; it is
	// reset on every node transition so tool_call conditions scope to the
	// node that declared them.
	nodeTools map[string]struct{}
	allTools  []string

	dynamicVars map[string]any

	cancelled atomic.Bool
}

// NewState creates conversation state positioned at the graph entry node.
func NewState(conversationID string, entry *graph.Node, dynamicVars map[string]any) *State {
	s := &State{
		conversationID: conversationID,
		dynamicVars:    dynamicVars,
		nodeTools:      make(map[string]struct{}),
	}
	s.enterNode(entry)
	return s
}

// ConversationID returns the stable identifier for this conversation.
func (s *State) ConversationID() string { return s.conversationID }

// CurrentNode returns the node the conversation is currently in.
func (s *State) CurrentNode() *graph.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentNode
}

func (s *State) enterNode(n *graph.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentNode = n
	s.nodesVisited = append(s.nodesVisited, n.ID)
	s.nodeTools = make(map[string]struct{})
}

// EnterNode moves the conversation to the given node, recording the visit
// and resetting per-node tool tracking. Revisits append again; the visit
// history is an ordered trace, not a set.
func (s *State) EnterNode(n *graph.Node) {
	s.enterNode(n)
}

// AppendTurn adds a turn to the transcript and returns its index.
func (s *State) AppendTurn(t Turn) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	s.transcript = append(s.transcript, t)
	if t.Role == RoleUser {
		s.userTurns++
	}
	return len(s.transcript) - 1
}

// RecordToolCall marks a tool as called in the current node.
func (s *State) RecordToolCall(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodeTools[name] = struct{}{}
	s.allTools = append(s.allTools, name)
}

// ToolCalledInNode reports whether the named tool has been called since the
// conversation entered the current node.
func (s *State) ToolCalledInNode(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodeTools[name]
	return ok
}

// Transcript returns a copy of the transcript so far.
func (s *State) Transcript() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// NodesVisited returns the ordered node visit trace, including revisits.
func (s *State) NodesVisited() []graph.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]graph.NodeID, len(s.nodesVisited))
	copy(out, s.nodesVisited)
	return out
}

// ToolsCalled returns every tool call recorded during the conversation.
func (s *State) ToolsCalled() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.allTools))
	copy(out, s.allTools)
	return out
}

// UserTurnCount returns how many user turns have been taken.
func (s *State) UserTurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userTurns
}

// DynamicVariables returns the test case's variable bindings. The map is
// shared, not copied; condition evaluators treat it as read-only.
func (s *State) DynamicVariables() map[string]any {
	return s.dynamicVars
}

// Cancel flags the conversation for cancellation. Safe from any goroutine;
// the driver observes the flag before each model call.
func (s *State) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (s *State) Cancelled() bool {
	return s.cancelled.Load()
}
