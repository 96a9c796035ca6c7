package analyses

import (
	"context"
	"errors"
	"sort"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/aggregate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/annotate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/prompt"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/logger"
)

var errNoSelections = errors.New("no brand produced a selection")

// creativity picks each brand's most original items and then ranks the
// brands against each other on those picks.
func (r *run) creativity(ctx context.Context) error {
	b := r.builder()
	opt := r.groupOptions()
	opt.Dedup = true
	groups := annotate.Groups(r.records, opt)

	w := newWorker(r, true, func(raw string, e annotation.Entity) (annotation.Selection, error) {
		return annotation.ParseSelection(raw, e.Volume(), b.K(e.Volume()))
	}, func(annotation.Entity) annotation.Selection {
		return annotation.Selection{Indices: []int{}, Details: []annotation.SelectionDetail{}}
	})
	results := annotate.RunBatch(ctx, r.dispatcher(true), groups, w.Func(r.prompts(b)))
	account(r, "selection", results)
	r.noteSkipped(skippedGroups(groups, results))

	idx := byKey(groups)
	var payload []prompt.BrandSelection
	var brands []string
	for _, res := range results {
		if !res.OK() || len(res.Payload.Indices) == 0 {
			continue
		}
		payload = append(payload, prompt.BrandSelection{Brand: res.Brand, Selected: b.Snippets(idx[res.Key], res.Payload)})
		brands = append(brands, res.Brand)
	}

	rankings, rankErr := r.rank(ctx, b, payload, brands)
	r.wb.Add(aggregate.RankingTable("Overall Ranking", rankings, rankErr, brands))
	for _, res := range results {
		if res.OK() {
			r.wb.Add(aggregate.Selected(idx[res.Key], res.Payload, r.Settings.PreviewChars))
		}
	}
	return nil
}

func (r *run) rank(ctx context.Context, b prompt.Builder, payload []prompt.BrandSelection, brands []string) ([]annotation.Ranking, error) {
	if len(payload) == 0 {
		return nil, errNoSelections
	}
	p, err := b.CrossBrand(payload)
	if err != nil {
		return nil, err
	}
	w := newWorker(r, true, func(raw string, _ annotation.Entity) ([]annotation.Ranking, error) {
		return annotation.ParseRankings(raw)
	}, nil)
	res := single(ctx, w, "cross-brand ranking", brands, p)
	if !res.OK() {
		r.failures = append(r.failures, failureOf("ranking", res))
		r.log.Warn("cross-brand ranking failed, using alphabetical fallback", logger.String("reason", res.Reason))
		return nil, errors.New(res.Reason)
	}
	return completeRankings(res.Payload, brands), nil
}

// completeRankings appends brands the model left out, alphabetically and
// below every ranked brand, with the fallback score.
func completeRankings(in []annotation.Ranking, brands []string) []annotation.Ranking {
	seen := map[string]bool{}
	last := 0
	for _, rk := range in {
		seen[rk.Brand] = true
		if rk.Rank > last {
			last = rk.Rank
		}
	}
	var missing []string
	for _, b := range brands {
		if !seen[b] {
			missing = append(missing, b)
		}
	}
	sort.Strings(missing)
	out := append([]annotation.Ranking{}, in...)
	for i, b := range missing {
		out = append(out, annotation.Ranking{
			Brand:         b,
			Rank:          last + i + 1,
			Score:         aggregate.FallbackScore,
			Justification: "Not ranked by the model",
			Examples:      []string{},
		})
	}
	return out
}
