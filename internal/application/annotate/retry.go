package annotate

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
)

// RetryPolicy bounds the attempts made around a single LLM call.
type RetryPolicy struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxDelay    time.Duration `yaml:"maxDelay"`

	// Retryable classifies call errors; nil uses ai.IsRetryable.
	Retryable func(error) bool `yaml:"-"`
	// Sleep waits between attempts; nil waits on a timer or ctx.
	Sleep func(ctx context.Context, d time.Duration) error `yaml:"-"`
}

// DefaultRetryPolicy is five attempts starting at one second, doubling, capped at thirty.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 2, MaxDelay: 30 * time.Second}
}

// Delay returns the wait before attempt n+1, after n failed attempts.
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 || p.BaseDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempts run out. It returns the number of attempts made.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error, onRetry func(attempt int, delay time.Duration, err error)) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = ai.IsRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil {
			return i, nil
		}
		if i == attempts || !retryable(err) {
			return i, err
		}
		d := p.Delay(i)
		if onRetry != nil {
			onRetry(i, d, err)
		}
		if serr := sleep(ctx, d); serr != nil {
			return i, errors.Join(err, serr)
		}
	}
	return attempts, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
