package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/config"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
)

func TestNewRejectsMissingKeyAndUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: config.ProviderOpenAI}, "")
	assert.Error(t, err)

	_, err = New(context.Background(), config.LLMConfig{Provider: "cohere"}, "k")
	assert.ErrorContains(t, err, "unknown provider")
}

func TestNewBuildsOpenAIAndAnthropic(t *testing.T) {
	for _, p := range []string{config.ProviderOpenAI, config.ProviderAnthropic} {
		c, err := New(context.Background(), config.LLMConfig{Provider: p, RequestsPerSecond: 5, Timeout: time.Second}, "k")
		require.NoError(t, err, p)
		assert.NotNil(t, c, p)
	}
}

func TestWithTimeout(t *testing.T) {
	slow := ai.ClientFunc(func(ctx context.Context, _ ai.Request) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "late", nil
		}
	})
	_, err := WithTimeout(slow, 10*time.Millisecond).Complete(context.Background(), ai.Request{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	assert.Equal(t, echo{}, WithTimeout(echo{}, 0))
}

type echo struct{}

func (echo) Complete(_ context.Context, req ai.Request) (string, error) { return req.Model, nil }
