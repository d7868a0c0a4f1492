package selfplay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/gauntlet/driver"
	"github.com/parleylabs/gauntlet/graph"
	"github.com/parleylabs/gauntlet/providers"
	"github.com/parleylabs/gauntlet/retry"
)

func newState() *driver.State {
	node := &graph.Node{ID: "greet", Instructions: "Greet the customer."}
	return driver.NewState("conv-1", node, nil)
}

func TestNextTurn_OpeningMessage(t *testing.T) {
	repo := providers.NewInMemoryMockRepository("fallback")
	repo.Script("conv-1", "user", providers.MockResponse{Content: "Hi, where is my order?"})

	g := New(providers.NewMockProviderWithRepository("mock", "mock-small", repo),
		"You are a customer asking about order 42.",
		retry.New(2, retry.WithInitialInterval(time.Millisecond)))

	msg, err := g.NextTurn(context.Background(), newState())
	require.NoError(t, err)
	assert.Equal(t, "Hi, where is my order?", msg)
}

func TestNextTurn_RetriesTransientFailures(t *testing.T) {
	repo := providers.NewInMemoryMockRepository("Still here, any update?")
	repo.QueueError(&providers.ProviderError{Type: providers.ErrorRateLimit, StatusCode: 429})

	g := New(providers.NewMockProviderWithRepository("mock", "mock-small", repo),
		"Impatient customer.",
		retry.New(3, retry.WithInitialInterval(time.Millisecond)))

	msg, err := g.NextTurn(context.Background(), newState())
	require.NoError(t, err)
	assert.Equal(t, "Still here, any update?", msg)
}

func TestMirror_SwapsSidesAndDropsToolTurns(t *testing.T) {
	transcript := []driver.Turn{
		{Role: driver.RoleUser, Content: "Where is order 42?"},
		{Role: driver.RoleAgent, Content: "Let me check."},
		{Role: driver.RoleTool, Content: `{"status":"shipped"}`},
		{Role: driver.RoleAgent, Content: "It shipped yesterday."},
	}

	msgs := mirror(transcript)
	require.Len(t, msgs, 3)
	assert.Equal(t, providers.Message{Role: "assistant", Content: "Where is order 42?"}, msgs[0])
	assert.Equal(t, providers.Message{Role: "user", Content: "Let me check."}, msgs[1])
	assert.Equal(t, providers.Message{Role: "user", Content: "It shipped yesterday."}, msgs[2])
}
