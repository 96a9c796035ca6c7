package analyses

import (
	"context"
	"fmt"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/aggregate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/annotate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/dataset"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/prompt"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/logger"
)

// Settings are the tunables every analysis reads. They are supplied by
// configuration; nothing here has a built-in default.
type Settings struct {
	Params           annotate.CallParams
	Retry            annotate.RetryPolicy
	Workers          int
	MinVolume        map[annotation.Kind]int
	TopK             int
	MaxItemsPerGroup int
	MaxChars         int
	CrossBrandChars  int
	PreviewChars     int
	HighScore        int
	NeutralScore     int
	AffinitySummary  bool
}

// Request selects an analysis and the dataset it runs on.
type Request struct {
	Kind    annotation.Kind
	Media   annotation.Media
	Columns dataset.Columns
	Table   dataset.Table
}

// Output is the aggregated workbook plus every entity that did not succeed.
type Output struct {
	Workbook aggregate.Workbook
	Failures []annotation.Failure
}

// Runner executes one analysis over a dataset.
type Runner struct {
	Client   ai.Client
	Settings Settings
	Log      logger.Logger
	Observer annotate.Observer
}

// Run partitions the dataset, annotates every entity and aggregates the
// results. Per-entity failures are reported in the output; only an
// unusable request returns an error.
func (r *Runner) Run(ctx context.Context, req Request) (Output, error) {
	grouped := req.Kind != annotation.KindArchetype || req.Media != annotation.MediaAds
	if err := req.Table.Validate(req.Columns, grouped); err != nil {
		return Output{}, err
	}
	if r.Client == nil {
		return Output{}, fmt.Errorf("analysis %s: no llm client", req.Kind)
	}

	run := &run{Runner: r, req: req, records: req.Table.Records(req.Columns), volume: map[string]int{}}
	run.wb = aggregate.Workbook{Kind: req.Kind, Media: req.Media}
	run.log = r.log().With(logger.String("analysis", string(req.Kind)), logger.String("media", string(req.Media)))
	run.log.Info("analysis started", logger.Int("rows", req.Table.Len()))

	var err error
	switch req.Kind {
	case annotation.KindArchetype:
		err = run.archetype(ctx)
	case annotation.KindCreativity:
		err = run.creativity(ctx)
	case annotation.KindKeyAdvantages:
		err = run.advantages(ctx)
	case annotation.KindPillars:
		err = run.pillars(ctx)
	case annotation.KindAffinity:
		err = run.affinity(ctx)
	default:
		err = fmt.Errorf("unknown analysis %q", req.Kind)
	}
	if err != nil {
		return Output{}, err
	}

	if grouped {
		run.wb.Add(aggregate.Skipped("Skipped Brands", run.skipped, run.volume))
	}
	run.wb.Add(aggregate.Failures("Failures", run.failures))
	run.log.Info("analysis finished",
		logger.Int("total", run.wb.Manifest.Total),
		logger.Int("succeeded", run.wb.Manifest.Succeeded),
		logger.Int("errored", run.wb.Manifest.Errored),
		logger.Int("skipped_volume", run.wb.Manifest.SkippedVolume),
	)
	return Output{Workbook: run.wb, Failures: run.failures}, nil
}

func (r *Runner) log() logger.Logger {
	if r.Log == nil {
		return logger.NewNop()
	}
	return r.Log
}

// run is the state of one Run call.
type run struct {
	*Runner
	req      Request
	records  []dataset.Record
	wb       aggregate.Workbook
	failures []annotation.Failure
	skipped  []annotation.Result[struct{}]
	volume   map[string]int
	log      logger.Logger
}

func (r *run) builder() prompt.Builder {
	return prompt.Builder{
		Media:           r.req.Media,
		MaxChars:        r.Settings.MaxChars,
		CrossBrandChars: r.Settings.CrossBrandChars,
		TopK:            r.Settings.TopK,
		Scale:           r.scale(),
	}
}

// prompts builds the first-stage prompt of the requested kind.
func (r *run) prompts(b prompt.Builder) func(annotation.Entity) (annotation.Prompt, error) {
	return func(e annotation.Entity) (annotation.Prompt, error) {
		return b.Build(r.req.Kind, e)
	}
}

func (r *run) scale() annotation.Scale {
	sc := prompt.AffinityScale
	if r.Settings.NeutralScore > 0 {
		sc.Neutral = r.Settings.NeutralScore
	}
	return sc
}

func (r *run) minVolume() int { return r.Settings.MinVolume[r.req.Kind] }

func (r *run) dispatcher(gated bool) annotate.Dispatcher {
	d := annotate.Dispatcher{Workers: r.Settings.Workers, Log: r.log}
	if gated {
		d.MinVolume = r.minVolume()
	}
	return d
}

func (r *run) groupOptions() annotate.GroupOptions {
	return annotate.GroupOptions{MaxItems: r.Settings.MaxItemsPerGroup, ByWeight: true, DropBlank: true}
}

// gate applies the minimum-volume gate ahead of expansion and records the
// skipped groups.
func (r *run) gate(groups []annotation.Entity) []annotation.Entity {
	pass, skipped := annotate.Gate(groups, r.minVolume())
	results := make([]annotation.Result[struct{}], len(skipped))
	for i, g := range skipped {
		results[i] = annotate.Skipped[struct{}](g, r.minVolume())
	}
	r.noteSkipped(skipped)
	account(r, "gate", results)
	return pass
}

func (r *run) noteSkipped(groups []annotation.Entity) {
	for _, g := range groups {
		r.skipped = append(r.skipped, annotate.Skipped[struct{}](g, r.minVolume()))
		r.volume[g.Key] = g.Volume()
	}
}

// skippedGroups returns the groups the dispatcher's gate rejected.
func skippedGroups[T any](groups []annotation.Entity, results []annotation.Result[T]) []annotation.Entity {
	byResult := annotate.ByKey(results)
	var out []annotation.Entity
	for _, g := range groups {
		if res, ok := byResult[g.Key]; ok && res.Status == annotation.StatusSkippedVolume {
			out = append(out, g)
		}
	}
	return out
}

func newWorker[T any](r *run, jsonMode bool, parse func(string, annotation.Entity) (T, error), fallback func(annotation.Entity) T) *annotate.Worker[T] {
	params := r.Settings.Params
	params.JSON = jsonMode
	return &annotate.Worker[T]{
		Client:   r.Client,
		Params:   params,
		Retry:    r.Settings.Retry,
		Parse:    parse,
		Fallback: fallback,
		Log:      r.log,
		Observer: r.Observer,
	}
}

// account folds a stage's results into the manifest and failure list.
func account[T any](r *run, stage string, results []annotation.Result[T]) {
	r.wb.Manifest.Merge(annotation.Summarize(results))
	r.failures = append(r.failures, annotation.FailuresOf(stage, results)...)
}

// single runs one second-stage call through the worker so it gets the same
// retry and parse handling as first-stage entities.
func single[T any](ctx context.Context, w *annotate.Worker[T], key string, brands []string, p annotation.Prompt) annotation.Result[T] {
	e := annotation.Entity{Key: key, Group: true}
	for i, b := range brands {
		e.Items = append(e.Items, annotation.Item{Index: i, Text: b})
	}
	return w.Annotate(ctx, e, p)
}

func failureOf[T any](stage string, res annotation.Result[T]) annotation.Failure {
	return annotation.Failure{
		Stage:    stage,
		Key:      res.Key,
		Status:   res.Status,
		Reason:   res.Reason,
		Attempts: res.Attempts,
	}
}

func byKey(entities []annotation.Entity) map[string]annotation.Entity {
	out := make(map[string]annotation.Entity, len(entities))
	for _, e := range entities {
		out[e.Key] = e
	}
	return out
}
