package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/config"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/anthropic"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/gemini"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/openai"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/ratelimit"
)

// New builds the configured provider, bounded by the per-call timeout and
// the shared rate limit.
func New(ctx context.Context, cfg config.LLMConfig, apiKey string) (ai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: no API key for provider %q", cfg.Provider)
	}
	var client ai.Client
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		client = openai.NewClient(apiKey, cfg.BaseURL, cfg.Model)
	case config.ProviderAnthropic:
		client = anthropic.NewClient(apiKey, cfg.BaseURL, cfg.Model)
	case config.ProviderGemini:
		g, err := gemini.NewClient(ctx, apiKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		client = g
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	return ratelimit.Wrap(WithTimeout(client, cfg.Timeout), cfg.RequestsPerSecond, cfg.Burst), nil
}

// WithTimeout bounds every call to next by d. Waiting on the rate limiter
// does not count against it.
func WithTimeout(next ai.Client, d time.Duration) ai.Client {
	if d <= 0 {
		return next
	}
	return ai.ClientFunc(func(ctx context.Context, req ai.Request) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next.Complete(ctx, req)
	})
}
