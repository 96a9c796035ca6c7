package analyses

import (
	"context"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/aggregate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/annotate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/prompt"
)

const labelColumn = "Top Archetype"

// archetype labels every item. Ads are annotated row by row; PR and social
// items are grouped per brand first so small brands can be gated out.
func (r *run) archetype(ctx context.Context) error {
	b := r.builder()
	var entities []annotation.Entity
	if r.req.Media == annotation.MediaAds {
		entities = annotate.Singles(r.records)
	} else {
		groups := annotate.Groups(r.records, annotate.GroupOptions{})
		entities = annotate.Expand(r.gate(groups), nil)
	}

	w := newWorker(r, false, func(raw string, _ annotation.Entity) (string, error) {
		return annotation.ParseLabel(raw, prompt.ArchetypeMarker)
	}, nil)
	results := annotate.RunBatch(ctx, r.dispatcher(false), entities, w.Func(r.prompts(b)))
	account(r, "archetype", results)

	items := make(map[string]annotation.Item, len(entities))
	for _, e := range entities {
		items[e.Key] = e.Items[0]
	}
	labeled := aggregate.Labels(results, items)
	r.wb.Add(aggregate.AppendLabel("Labeled", r.req.Table, labelColumn, labeled))

	branded := labeled[:0:0]
	for _, l := range labeled {
		if l.Brand != "" {
			branded = append(branded, l)
		}
	}
	summary := aggregate.LabelSummary("Summary", labelColumn, branded)
	r.wb.Add(summary)
	if r.req.Media != annotation.MediaAds {
		for _, row := range summary.Rows {
			r.wb.Add(aggregate.BrandDetail(row[1], labelColumn, branded, r.Settings.PreviewChars))
		}
	}
	return nil
}
