package analyses

import (
	"context"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/aggregate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/annotate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/prompt"
)

// pillars extracts each brand's content themes, then compares the themes
// across brands when at least two brands produced some.
func (r *run) pillars(ctx context.Context) error {
	b := r.builder()
	groups := annotate.Groups(r.records, r.groupOptions())

	w := newWorker(r, false, func(raw string, _ annotation.Entity) ([]annotation.Theme, error) {
		return annotation.ParseThemes(raw)
	}, func(annotation.Entity) []annotation.Theme { return []annotation.Theme{} })
	results := annotate.RunBatch(ctx, r.dispatcher(true), groups, w.Func(r.prompts(b)))
	account(r, "pillars", results)
	r.noteSkipped(skippedGroups(groups, results))
	r.wb.Add(aggregate.Pillars("Pillars", results))

	var themes []prompt.BrandThemes
	var brands []string
	for _, res := range results {
		if res.OK() {
			themes = append(themes, prompt.BrandThemes{Brand: res.Brand, Themes: res.Payload})
			brands = append(brands, res.Brand)
		}
	}
	if len(themes) < 2 {
		return nil
	}

	gw := newWorker(r, false, func(raw string, _ annotation.Entity) (annotation.Genericity, error) {
		return annotation.ParseGenericity(raw)
	}, nil)
	res := single(ctx, gw, "genericity", brands, b.Genericity(themes))
	if !res.OK() {
		r.failures = append(r.failures, failureOf("genericity", res))
	}
	r.wb.Add(aggregate.GenericityTable("Genericity", res.Payload))
	return nil
}
