package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
)

// Client spaces calls to the wrapped provider with a token bucket shared by
// every worker.
type Client struct {
	next    ai.Client
	limiter *rate.Limiter
}

// Wrap limits next to rps requests per second with the given burst. A
// non-positive rps returns next unchanged.
func Wrap(next ai.Client, rps float64, burst int) ai.Client {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &Client{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.next.Complete(ctx, req)
}
