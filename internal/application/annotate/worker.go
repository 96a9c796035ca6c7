package annotate

import (
	"context"
	"fmt"
	"time"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/logger"
)

// CallParams are the completion parameters of one analysis call.
type CallParams struct {
	Model       string
	Temperature float64
	MaxTokens   int
	JSON        bool
}

// Observer receives per-call and per-result events, typically metrics.
type Observer interface {
	ObserveCall(d time.Duration, err error)
	ObserveRetry()
	ObserveResult(s annotation.Status)
}

type nopObserver struct{}

func (nopObserver) ObserveCall(time.Duration, error) {}
func (nopObserver) ObserveRetry() {}
func (nopObserver) ObserveResult(annotation.Status) {}

// Worker annotates one entity: it short-circuits empty input, calls the
// client under the retry policy and parses the response. Every outcome is
// returned as a terminal Result; nothing escapes as an error.
type Worker[T any] struct {
	Client ai.Client
	Params CallParams
	Retry  RetryPolicy
	// Parse decodes a raw response. On failure it still returns the
	// shape's fallback payload.
	Parse func(raw string, e annotation.Entity) (T, error)
	// Fallback is the payload for entities that never reached Parse.
	Fallback func(e annotation.Entity) T
	Log      logger.Logger
	Observer Observer
}

func (w *Worker[T]) Annotate(ctx context.Context, e annotation.Entity, p annotation.Prompt) annotation.Result[T] {
	res := annotation.Result[T]{Seq: e.Seq, Key: e.Key, Brand: e.Brand}
	if e.Empty() {
		return w.finish(e, res, "", annotation.ErrNoContent)
	}

	req := ai.Request{
		Model:       w.Params.Model,
		Temperature: w.Params.Temperature,
		MaxTokens:   w.Params.MaxTokens,
		JSON:        w.Params.JSON,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: p.System},
			{Role: ai.RoleUser, Content: p.User},
		},
	}

	var raw string
	attempts, err := w.Retry.Do(ctx, func(ctx context.Context) error {
		start := time.Now()
		out, err := w.Client.Complete(ctx, req)
		w.observer().ObserveCall(time.Since(start), err)
		if err != nil {
			return err
		}
		raw = out
		return nil
	}, func(attempt int, delay time.Duration, err error) {
		w.observer().ObserveRetry()
		w.log().Warn("llm call failed, retrying",
			logger.String("entity", e.Key),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
	})
	res.Attempts = attempts
	if err != nil {
		return w.finish(e, res, "", fmt.Errorf("%w: %v", annotation.ErrCall, err))
	}

	payload, perr := w.Parse(raw, e)
	res.Payload = payload
	res.Raw = raw
	if perr != nil {
		res.Status = annotation.StatusOf(perr)
		res.Reason = perr.Error()
		w.observer().ObserveResult(res.Status)
		return res
	}
	res.Status = annotation.StatusSuccess
	w.observer().ObserveResult(res.Status)
	return res
}

func (w *Worker[T]) finish(e annotation.Entity, res annotation.Result[T], raw string, err error) annotation.Result[T] {
	if w.Fallback != nil {
		res.Payload = w.Fallback(e)
	}
	res.Raw = raw
	res.Status = annotation.StatusOf(err)
	res.Reason = err.Error()
	w.observer().ObserveResult(res.Status)
	return res
}

// Func binds the worker to a prompt builder, producing the per-entity
// function the dispatcher runs. A prompt that cannot be built ends the
// entity as a validation error.
func (w *Worker[T]) Func(build func(annotation.Entity) (annotation.Prompt, error)) Func[T] {
	return func(ctx context.Context, e annotation.Entity) annotation.Result[T] {
		if e.Empty() {
			return w.Annotate(ctx, e, annotation.Prompt{})
		}
		p, err := build(e)
		if err != nil {
			res := annotation.Result[T]{Seq: e.Seq, Key: e.Key, Brand: e.Brand}
			return w.finish(e, res, "", fmt.Errorf("%w: build prompt: %v", annotation.ErrValidation, err))
		}
		return w.Annotate(ctx, e, p)
	}
}

func (w *Worker[T]) log() logger.Logger {
	if w.Log == nil {
		return logger.NewNop()
	}
	return w.Log
}

func (w *Worker[T]) observer() Observer {
	if w.Observer == nil {
		return nopObserver{}
	}
	return w.Observer
}
