package analyses

import (
	"context"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/aggregate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/annotate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

func (r *run) advantages(ctx context.Context) error {
	b := r.builder()
	groups := annotate.Groups(r.records, r.groupOptions())

	w := newWorker(r, true, func(raw string, _ annotation.Entity) (annotation.Advantages, error) {
		return annotation.ParseAdvantages(raw)
	}, func(e annotation.Entity) annotation.Advantages {
		return annotation.Advantages{Company: e.Brand, Items: []annotation.Advantage{}}
	})
	results := annotate.RunBatch(ctx, r.dispatcher(true), groups, w.Func(r.prompts(b)))
	account(r, "advantages", results)
	r.noteSkipped(skippedGroups(groups, results))

	r.wb.Add(aggregate.FlattenAdvantages("Advantages", results, byKey(groups), r.Settings.PreviewChars))
	r.wb.Add(aggregate.AdvantageSummary("Summary", results))
	return nil
}
