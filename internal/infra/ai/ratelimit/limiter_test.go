package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
)

func echo() ai.Client {
	return ai.ClientFunc(func(_ context.Context, req ai.Request) (string, error) {
		return req.Messages[0].Content, nil
	})
}

func TestWrapDisabled(t *testing.T) {
	next := echo()
	assert.NotNil(t, Wrap(next, 0, 0))
	_, ok := Wrap(next, 0, 5).(*Client)
	assert.False(t, ok)
}

func TestWrapSpacesCalls(t *testing.T) {
	c := Wrap(echo(), 20, 1)
	req := ai.Request{Messages: []ai.Message{{Role: ai.RoleUser, Content: "x"}}}
	start := time.Now()
	for i := 0; i < 3; i++ {
		out, err := c.Complete(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "x", out)
	}
	// burst 1 at 20/s: two waits of ~50ms
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWrapHonoursCancellation(t *testing.T) {
	c := Wrap(echo(), 0.001, 1)
	req := ai.Request{Messages: []ai.Message{{Role: ai.RoleUser, Content: "x"}}}
	_, err := c.Complete(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Complete(ctx, req)
	assert.Error(t, err)
}
