// Package selfplay generates simulated user turns from a test-case persona.
//
// The simulator plays the human side of the conversation: the transcript is
// mirrored before each call so the agent's messages arrive as the
// counterpart's turns and the simulator's own past messages as its own.
package selfplay

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleylabs/gauntlet/driver"
	"github.com/parleylabs/gauntlet/logger"
	"github.com/parleylabs/gauntlet/providers"
	"github.com/parleylabs/gauntlet/retry"
)

const simulatorSystemPrompt = `You are role-playing a human user talking to a customer-facing agent.
Stay in character for the persona below. Write only the user's next message,
with no narration, quotes, or role labels. Keep it short and natural.

Persona:
%s`

// Generator produces user turns by prompting a model with the persona and
// the mirrored conversation history.
type Generator struct {
	model   providers.Provider
	persona string
	retrier *retry.Controller
}

// New creates a Generator for one test case's persona.
func New(model providers.Provider, persona string, retrier *retry.Controller) *Generator {
	return &Generator{model: model, persona: persona, retrier: retrier}
}

// NextTurn returns the next simulated user message.
func (g *Generator) NextTurn(ctx context.Context, state *driver.State) (string, error) {
	msgs := mirror(state.Transcript())
	if len(msgs) == 0 {
		msgs = []providers.Message{{Role: "user", Content: "Begin the conversation."}}
	}

	logger.LLMCall(g.model.ID(), "self-play user", len(msgs), "conversation_id", state.ConversationID())

	resp, err := retry.Do(ctx, g.retrier, func(callCtx context.Context) (providers.ChatResponse, error) {
		return g.model.Chat(callCtx, providers.ChatRequest{
			System:   fmt.Sprintf(simulatorSystemPrompt, g.persona),
			Messages: msgs,
			Metadata: map[string]any{
				"conversation_id": state.ConversationID(),
				"role":            "user",
			},
		})
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// mirror swaps conversation sides: agent turns become incoming user
// messages and past user turns become the simulator's own assistant
// messages. Tool turns are internal to the agent and are dropped.
func mirror(transcript []driver.Turn) []providers.Message {
	msgs := make([]providers.Message, 0, len(transcript))
	for _, t := range transcript {
		switch t.Role {
		case driver.RoleUser:
			msgs = append(msgs, providers.Message{Role: "assistant", Content: t.Content})
		case driver.RoleAgent:
			msgs = append(msgs, providers.Message{Role: "user", Content: t.Content})
		}
	}
	return msgs
}
