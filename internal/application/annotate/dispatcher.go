package annotate

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/logger"
)

// Func annotates one entity and always returns its terminal result.
type Func[T any] func(ctx context.Context, e annotation.Entity) annotation.Result[T]

// Dispatcher runs entities through a fixed-size pool of workers.
type Dispatcher struct {
	Workers int
	// MinVolume skips grouped entities with fewer items; 0 disables the gate.
	MinVolume int
	Log       logger.Logger
}

type completion[T any] struct {
	pos int
	res annotation.Result[T]
}

// RunBatch dispatches every entity and returns exactly one result per
// entity, ordered by Seq regardless of completion order. Groups below the
// minimum volume get a skip result without reaching fn.
func RunBatch[T any](ctx context.Context, d Dispatcher, entities []annotation.Entity, fn Func[T]) []annotation.Result[T] {
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	workers := d.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]annotation.Result[T], len(entities))
	tasks := make(chan int, len(entities))
	for i, e := range entities {
		if BelowVolume(e, d.MinVolume) {
			results[i] = Skipped[T](e, d.MinVolume)
			continue
		}
		tasks <- i
	}
	close(tasks)

	done := make(chan completion[T], workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for pos := range tasks {
				done <- completion[T]{pos: pos, res: invoke(ctx, fn, entities[pos])}
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(done)
	}()

	for c := range done {
		e := entities[c.pos]
		c.res.Seq, c.res.Key, c.res.Brand = e.Seq, e.Key, e.Brand
		results[c.pos] = c.res
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Seq < results[j].Seq })

	m := annotation.Summarize(results)
	for _, r := range results {
		if r.Status != annotation.StatusSuccess {
			log.Info("entity finished without success",
				logger.String("entity", r.Key),
				logger.String("status", string(r.Status)),
				logger.String("reason", r.Reason),
			)
		}
	}
	log.Info("batch complete",
		logger.Int("total", m.Total),
		logger.Int("succeeded", m.Succeeded),
		logger.Int("no_content", m.NoContent),
		logger.Int("skipped_volume", m.SkippedVolume),
		logger.Int("errored", m.Errored),
	)
	return results
}

// invoke isolates a panicking worker into a call error for its entity.
func invoke[T any](ctx context.Context, fn Func[T], e annotation.Entity) (res annotation.Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = annotation.Result[T]{
				Status: annotation.StatusCallError,
				Reason: fmt.Sprintf("worker panic: %v\n%s", p, debug.Stack()),
			}
		}
	}()
	return fn(ctx, e)
}

// BelowVolume reports whether a grouped entity fails the minimum-volume gate.
func BelowVolume(e annotation.Entity, min int) bool {
	return e.IsGroup() && min > 0 && e.Volume() < min
}

// Skipped is the terminal result of a group rejected by the volume gate.
func Skipped[T any](e annotation.Entity, min int) annotation.Result[T] {
	return annotation.Result[T]{
		Seq:    e.Seq,
		Key:    e.Key,
		Brand:  e.Brand,
		Status: annotation.StatusSkippedVolume,
		Reason: fmt.Sprintf("too few items (%d < %d)", e.Volume(), min),
	}
}

// Gate splits groups into those that pass the volume gate and those skipped.
func Gate(groups []annotation.Entity, min int) (pass, skipped []annotation.Entity) {
	for _, g := range groups {
		if BelowVolume(g, min) {
			skipped = append(skipped, g)
			continue
		}
		pass = append(pass, g)
	}
	return pass, skipped
}

// ByKey indexes results by entity key.
func ByKey[T any](results []annotation.Result[T]) map[string]annotation.Result[T] {
	out := make(map[string]annotation.Result[T], len(results))
	for _, r := range results {
		out[r.Key] = r
	}
	return out
}
