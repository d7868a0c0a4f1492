// Package conditions evaluates transition conditions against live
// conversation state.
//
// Four condition types are supported: always (unconditional), equation
// (boolean expression over dynamic variables and turn counters), tool_call
// (tool invoked since entering the node), and llm_prompt (LLM yes/no
// classification of the transcript).
package conditions

import (
	"context"
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/parleylabs/gauntlet/driver"
	"github.com/parleylabs/gauntlet/graph"
	"github.com/parleylabs/gauntlet/providers"
	"github.com/parleylabs/gauntlet/retry"
)

const classifierSystemPrompt = `You decide whether a condition holds for a conversation.
Reply with exactly one word: "yes" if the condition is satisfied, "no" if it is not.`

// Evaluator implements transition condition evaluation. The model is only
// consulted for llm_prompt conditions; every other type is deterministic.
type Evaluator struct {
	model   providers.Provider
	retrier *retry.Controller
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithModel attaches the LLM used for llm_prompt conditions.
func WithModel(p providers.Provider) Option {
	return func(e *Evaluator) { e.model = p }
}

// WithRetrier sets the retry policy for model calls.
func WithRetrier(r *retry.Controller) Option {
	return func(e *Evaluator) { e.retrier = r }
}

// New creates an Evaluator. Without WithModel, llm_prompt conditions fail
// with an error, which the driver treats as not satisfied.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{retrier: retry.New(1)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate reports whether the transition's condition is satisfied.
func (e *Evaluator) Evaluate(ctx context.Context, tr graph.Transition, state *driver.State) (bool, error) {
	switch tr.Condition.Type {
	case graph.ConditionAlways:
		return true, nil
	case graph.ConditionToolCall:
		return state.ToolCalledInNode(tr.Condition.Value), nil
	case graph.ConditionEquation:
		return e.evaluateEquation(tr.Condition.Value, state)
	case graph.ConditionLLMPrompt:
		return e.evaluatePrompt(ctx, tr.Condition.Value, state)
	default:
		return false, fmt.Errorf("unknown condition type %q", tr.Condition.Type)
	}
}

// evaluateEquation runs a boolean expression over the test's dynamic
// variables plus turn counters. An unknown variable makes the condition
// unsatisfied rather than failing the run; a typo in a suite should read
// as "transition never taken", not as a crash.
func (e *Evaluator) evaluateEquation(expression string, state *driver.State) (bool, error) {
	expr, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return false, fmt.Errorf("parsing equation %q: %w", expression, err)
	}

	params := make(map[string]any, len(state.DynamicVariables())+2)
	for k, v := range state.DynamicVariables() {
		params[k] = numericParam(v)
	}
	params["attempts"] = float64(state.UserTurnCount())
	params["tools_called"] = float64(len(state.ToolsCalled()))

	result, err := expr.Evaluate(params)
	if err != nil {
		// govaluate reports missing parameters as evaluation errors.
		return false, nil
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("equation %q is not boolean (got %T)", expression, result)
	}
	return b, nil
}

// numericParam widens integer values to float64, the only numeric type the
// expression engine compares. YAML decodes whole numbers as int.
func numericParam(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

func (e *Evaluator) evaluatePrompt(ctx context.Context, condition string, state *driver.State) (bool, error) {
	if e.model == nil {
		return false, fmt.Errorf("no model configured for llm_prompt conditions")
	}

	prompt := fmt.Sprintf("Condition: %s\n\nConversation so far:\n%s\nIs the condition satisfied?",
		condition, driver.FormatTranscript(state.Transcript()))

	resp, err := retry.Do(ctx, e.retrier, func(callCtx context.Context) (providers.ChatResponse, error) {
		return e.model.Chat(callCtx, providers.ChatRequest{
			System:   classifierSystemPrompt,
			Messages: []providers.Message{{Role: "user", Content: prompt}},
			Metadata: map[string]any{
				"conversation_id": state.ConversationID(),
				"role":            "condition",
			},
		})
	})
	if err != nil {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Content))
	return strings.HasPrefix(answer, "yes"), nil
}
