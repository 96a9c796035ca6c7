package analyses

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/aggregate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/annotate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/prompt"
)

// affinity scores every item of each sufficiently large brand once per
// persona and summarises the share of high scores.
func (r *run) affinity(ctx context.Context) error {
	b := r.builder()
	sc := r.scale()
	groups := annotate.Groups(r.records, annotate.GroupOptions{})
	entities := annotate.Expand(r.gate(groups), prompt.PersonaNames())

	w := newWorker(r, false, func(raw string, e annotation.Entity) (annotation.Scores, error) {
		p, ok := prompt.PersonaByName(e.Variant)
		if !ok {
			return annotation.Scores{}, fmt.Errorf("%w: unknown persona %q", annotation.ErrValidation, e.Variant)
		}
		return annotation.ParseScores(raw, p.Dimensions(), sc)
	}, func(e annotation.Entity) annotation.Scores {
		p, _ := prompt.PersonaByName(e.Variant)
		return annotation.NeutralScores(p.Dimensions(), sc)
	})
	results := annotate.RunBatch(ctx, r.dispatcher(false), entities, w.Func(r.prompts(b)))
	account(r, "affinity", results)

	groupsOf := make([]aggregate.ScoreGroup, len(prompt.Personas))
	for i, p := range prompt.Personas {
		groupsOf[i] = aggregate.ScoreGroup{Name: p.Name, Columns: p.Columns()}
	}
	scored := aggregate.ScoredFrom(results, byKey(entities))
	summary := aggregate.TopBox("Summary", scored, groupsOf, r.Settings.HighScore, sc.Neutral)
	r.wb.Add(summary)
	r.wb.Add(aggregate.ScoredItems("Items", scored, groupsOf, r.Settings.PreviewChars))

	if r.Settings.AffinitySummary && len(summary.Rows) > 0 {
		r.insights(ctx, summary)
	}
	return nil
}

// insights asks for a narrative over the top-box table. A failed call is
// recorded and leaves the workbook without the insights sheet.
func (r *run) insights(ctx context.Context, summary aggregate.Table) {
	var sb strings.Builder
	sb.WriteString(strings.Join(summary.Columns, " | "))
	brands := make([]string, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(row, " | "))
		brands = append(brands, row[0])
	}
	w := newWorker(r, false, func(raw string, _ annotation.Entity) (string, error) {
		text := strings.TrimSpace(raw)
		if text == "" {
			return "", fmt.Errorf("%w: empty summary", annotation.ErrParse)
		}
		return text, nil
	}, nil)
	res := single(ctx, w, "affinity summary", brands, annotation.Prompt{System: prompt.AffinitySummarySystem, User: sb.String()})
	if !res.OK() {
		r.failures = append(r.failures, failureOf("summary", res))
		return
	}
	r.wb.Add(aggregate.Table{Name: "Insights", Columns: []string{"Summary"}, Rows: [][]string{{res.Payload}}})
}
