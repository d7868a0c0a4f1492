// Package driver runs a single simulated conversation against an agent
// graph as a deterministic state machine.
//
// Each iteration takes one user turn and one agent turn, intercepts tool
// calls with test-case mocks, then evaluates the current node's transition
// conditions in order. The conversation ends when a terminal node is
// reached, the agent signals completion, the turn budget is spent, the
// deadline passes, or cancellation is requested.
package driver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/parleylabs/gauntlet/config"
	"github.com/parleylabs/gauntlet/events"
	"github.com/parleylabs/gauntlet/graph"
	"github.com/parleylabs/gauntlet/logger"
	"github.com/parleylabs/gauntlet/metrics"
	"github.com/parleylabs/gauntlet/providers"
	"github.com/parleylabs/gauntlet/retry"
)

// Transcript roles.
const (
	RoleUser  = "user"
	RoleAgent = "assistant"
	RoleTool  = "tool"
)

// EndConversationTool is the implicit tool offered on every node. The agent
// calls it to signal that the conversation goal has been reached.
const EndConversationTool = "end_conversation"

// Status is the lifecycle state of one conversation execution.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusTimedOut     Status = "timed_out"
	StatusCancelled    Status = "cancelled"
	StatusErrored      Status = "errored"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusTimedOut, StatusCancelled, StatusErrored:
		return true
	}
	return false
}

// EndReason records why a conversation stopped.
type EndReason string

const (
	EndMaxTurns     EndReason = "max_turns"
	EndNodeTerminal EndReason = "node_terminal"
	EndGoalReached  EndReason = "goal_reached"
	EndTimeout      EndReason = "timeout"
	EndCancelled    EndReason = "cancelled"
	EndError        EndReason = "error"
)

// UserTurnGenerator produces the next simulated user message.
type UserTurnGenerator interface {
	NextTurn(ctx context.Context, state *State) (string, error)
}

// ConditionEvaluator decides whether a transition's condition is satisfied.
// An error means the condition could not be evaluated; the driver logs it
// and treats the condition as not satisfied.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, tr graph.Transition, state *State) (bool, error)
}

// Outcome is the final result of one driven conversation.
type Outcome struct {
	Status       Status         `json:"status"`
	EndReason    EndReason      `json:"end_reason"`
	Transcript   []Turn         `json:"transcript"`
	NodesVisited []graph.NodeID `json:"nodes_visited"`
	ToolsCalled  []string       `json:"tools_called,omitempty"`
	Duration     time.Duration  `json:"duration"`
	Err          error          `json:"-"`
}

// TranscriptUpdateData is the payload of a transcript_update event, emitted
// once for every turn appended to the transcript.
type TranscriptUpdateData struct {
	Turn      Turn         `json:"turn"`
	TurnIndex int          `json:"turn_index"`
	NodeID    graph.NodeID `json:"node_id"`
}

// Config wires a Driver. All fields except Emitter are required.
type Config struct {
	Graph          *graph.AgentGraph
	Test           *config.TestCase
	Agent          providers.Provider
	Model          string
	UserGen        UserTurnGenerator
	Evaluator      ConditionEvaluator
	Retrier        *retry.Controller
	Emitter        *events.Emitter
	MaxTurns       int
	ConversationID string
}

// Driver executes one conversation.
type Driver struct {
	cfg   Config
	state *State
}

// New creates a Driver positioned at the graph's entry node.
func New(cfg Config) *Driver {
	return &Driver{
		cfg:   cfg,
		state: NewState(cfg.ConversationID, cfg.Graph.Entry(), cfg.Test.DynamicVariables),
	}
}

// State exposes the live conversation state. The orchestrator holds it to
// deliver cancellation requests while the conversation runs.
func (d *Driver) State() *State { return d.state }

// Run drives the conversation to completion and returns its outcome. The
// context deadline is the test's wall-clock ceiling.
func (d *Driver) Run(ctx context.Context) Outcome {
	start := time.Now()
	out := d.run(ctx)
	out.Transcript = d.state.Transcript()
	out.NodesVisited = d.state.NodesVisited()
	out.ToolsCalled = d.state.ToolsCalled()
	out.Duration = time.Since(start)
	return out
}

func (d *Driver) run(ctx context.Context) Outcome {
	for turn := 1; turn <= d.cfg.MaxTurns; turn++ {
		if out, halted := d.halted(ctx); halted {
			return out
		}

		node := d.state.CurrentNode()

		userText, err := d.cfg.UserGen.NextTurn(ctx, d.state)
		if err != nil {
			return d.failure(ctx, err)
		}
		d.append(Turn{Role: RoleUser, Content: userText, NodeID: node.ID})
		metrics.TurnsExecuted.Inc()

		if out, halted := d.halted(ctx); halted {
			return out
		}

		resp, err := retry.Do(ctx, d.cfg.Retrier, func(callCtx context.Context) (providers.ChatResponse, error) {
			return d.cfg.Agent.Chat(callCtx, d.agentRequest(node))
		})
		if err != nil {
			return d.failure(ctx, err)
		}
		metrics.TurnsExecuted.Inc()

		goalReached := d.appendAgentTurn(node, resp)
		if goalReached {
			return Outcome{Status: StatusCompleted, EndReason: EndGoalReached}
		}
		if node.IsTerminal() {
			return Outcome{Status: StatusCompleted, EndReason: EndNodeTerminal}
		}

		d.transition(ctx, node)
	}
	// Spending the turn budget is a timeout, not a completion: the
	// conversation never reached an end state on its own. The truncated
	// transcript is still scored.
	return Outcome{Status: StatusTimedOut, EndReason: EndMaxTurns}
}

// appendAgentTurn records the agent response, answers mocked tool calls,
// and reports whether the agent signalled the end of the conversation.
func (d *Driver) appendAgentTurn(node *graph.Node, resp providers.ChatResponse) bool {
	goal := false
	records := make([]ToolCallRecord, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		if tc.Name == EndConversationTool {
			goal = true
		}
		rec := ToolCallRecord{Name: tc.Name, Arguments: decodeArguments(tc.Arguments)}
		if mock := d.cfg.Test.MockFor(tc.Name); mock != nil {
			rec.Mocked = true
			rec.Result = mock.Result
		}
		records = append(records, rec)
	}

	d.append(Turn{Role: RoleAgent, Content: resp.Content, NodeID: node.ID, ToolCalls: records})

	for _, rec := range records {
		d.state.RecordToolCall(rec.Name)
		if rec.Mocked {
			d.append(Turn{Role: RoleTool, Content: rec.Result, NodeID: node.ID})
		} else if rec.Name != EndConversationTool {
			logger.Debug("tool call recorded without mock",
				"conversation_id", d.state.ConversationID(),
				"tool", rec.Name)
		}
	}
	return goal
}

// transition evaluates the node's conditions in order and moves to the
// first satisfied target. Evaluation errors leave the conversation on the
// current node.
func (d *Driver) transition(ctx context.Context, node *graph.Node) {
	for _, tr := range node.OrderedTransitions() {
		ok, err := d.cfg.Evaluator.Evaluate(ctx, tr, d.state)
		if err != nil {
			logger.Warn("condition evaluation failed, staying on node",
				"conversation_id", d.state.ConversationID(),
				"node", node.ID,
				"target", tr.TargetNodeID,
				"condition", tr.Condition.Type,
				"error", err)
			continue
		}
		if ok {
			d.state.EnterNode(d.cfg.Graph.Nodes[tr.TargetNodeID])
			return
		}
	}
}

func (d *Driver) agentRequest(node *graph.Node) providers.ChatRequest {
	transcript := d.state.Transcript()
	msgs := make([]providers.Message, 0, len(transcript))
	for _, t := range transcript {
		msgs = append(msgs, providers.Message{Role: t.Role, Content: t.Content})
	}

	tools := make([]providers.ToolDescriptor, 0, len(node.Tools)+1)
	for _, td := range node.Tools {
		tools = append(tools, providers.ToolDescriptor{
			Name:        td.Name,
			Description: td.Description,
			Parameters:  td.Parameters,
		})
	}
	tools = append(tools, providers.ToolDescriptor{
		Name:        EndConversationTool,
		Description: "Call when the conversation goal has been fully achieved and nothing remains to discuss.",
	})

	return providers.ChatRequest{
		System:   SubstituteVariables(node.Instructions, d.state.DynamicVariables()),
		Messages: msgs,
		Tools:    tools,
		Metadata: map[string]any{
			"conversation_id": d.state.ConversationID(),
			"role":            "agent",
		},
	}
}

// append adds a turn and announces it with a transcript_update event.
func (d *Driver) append(t Turn) {
	idx := d.state.AppendTurn(t)
	d.cfg.Emitter.Emit(events.EventTranscriptUpdate, TranscriptUpdateData{
		Turn:      t,
		TurnIndex: idx,
		NodeID:    t.NodeID,
	})
}

// halted checks cancellation and deadline between model calls.
func (d *Driver) halted(ctx context.Context) (Outcome, bool) {
	if d.state.Cancelled() {
		return Outcome{Status: StatusCancelled, EndReason: EndCancelled}, true
	}
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return Outcome{Status: StatusTimedOut, EndReason: EndTimeout}, true
	case context.Canceled:
		return Outcome{Status: StatusCancelled, EndReason: EndCancelled}, true
	}
	return Outcome{}, false
}

// failure maps a model-call error onto a terminal outcome. Deadline expiry
// is a timeout, cancellation is a cancel, anything else is an error.
func (d *Driver) failure(ctx context.Context, err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return Outcome{Status: StatusTimedOut, EndReason: EndTimeout}
	}
	if d.state.Cancelled() || errors.Is(err, context.Canceled) {
		return Outcome{Status: StatusCancelled, EndReason: EndCancelled}
	}
	return Outcome{Status: StatusErrored, EndReason: EndError, Err: err}
}

func decodeArguments(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{"_raw": string(raw)}
	}
	return args
}
