package retry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/gauntlet/events"
	"github.com/parleylabs/gauntlet/providers"
)

func transientErr() error {
	return &providers.ProviderError{Type: providers.ErrorRateLimit, StatusCode: 429, Message: "slow down"}
}

func permanentErr() error {
	return &providers.ProviderError{Type: providers.ErrorAuth, StatusCode: 401, Message: "bad key"}
}

type eventCollector struct {
	mu     sync.Mutex
	events []*events.Event
}

func (c *eventCollector) listen(e *events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *eventCollector) byType(t events.EventType) []*events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*events.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	c := New(3, WithInitialInterval(time.Millisecond))

	calls := 0
	v, err := Do(context.Background(), c, func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
}

func TestDo_TransientThenSuccess(t *testing.T) {
	bus := events.NewBus()
	collector := &eventCollector{}
	bus.SubscribeAll(collector.listen)
	emitter := events.NewEmitter(bus, "run-1", "result-1")

	c := New(3, WithInitialInterval(time.Millisecond), WithEmitter(emitter))

	calls := 0
	v, err := Do(context.Background(), c, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", transientErr()
		}
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, 3, calls)

	retries := collector.byType(events.EventRetryError)
	require.Len(t, retries, 2)

	first := retries[0].Data.(RetryErrorData)
	second := retries[1].Data.(RetryErrorData)
	assert.Equal(t, 1, first.Attempt)
	assert.Equal(t, 2, second.Attempt)
	assert.Equal(t, providers.ErrorRateLimit, first.ErrorType)
	assert.Equal(t, 3, first.MaxAttempts)
	assert.Greater(t, first.RetryAfter, time.Duration(0))
	assert.Equal(t, "result-1", retries[0].ResultID)
}

func TestDo_PermanentFailsImmediately(t *testing.T) {
	bus := events.NewBus()
	collector := &eventCollector{}
	bus.SubscribeAll(collector.listen)

	c := New(5, WithInitialInterval(time.Millisecond), WithEmitter(events.NewEmitter(bus, "r", "t")))

	calls := 0
	_, err := Do(context.Background(), c, func(context.Context) (string, error) {
		calls++
		return "", permanentErr()
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, collector.byType(events.EventRetryError))

	var perr *providers.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, providers.ErrorAuth, perr.Type)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	c := New(3, WithInitialInterval(time.Millisecond))

	calls := 0
	_, err := Do(context.Background(), c, func(context.Context) (string, error) {
		calls++
		return "", transientErr()
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrExhaustedRetries)

	var perr *providers.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, providers.ErrorRateLimit, perr.Type)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(3, WithInitialInterval(50*time.Millisecond))
	_, err := Do(ctx, c, func(context.Context) (string, error) {
		return "", transientErr()
	})
	require.Error(t, err)
}
