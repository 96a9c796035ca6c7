package aggregate

import (
	"sort"
	"strings"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

// FallbackScore is assigned to every brand when the ranking call failed.
const FallbackScore = 5.0

const maxFallbackReason = 100

// FallbackRankings orders brands alphabetically with the neutral score.
func FallbackRankings(brands []string, err error) []annotation.Ranking {
	sorted := append([]string{}, brands...)
	sort.Strings(sorted)
	reason := "unknown error"
	if err != nil {
		reason = cut(err.Error(), maxFallbackReason)
	}
	out := make([]annotation.Ranking, 0, len(sorted))
	for i, b := range sorted {
		out = append(out, annotation.Ranking{
			Brand:         b,
			Rank:          i + 1,
			Score:         FallbackScore,
			Justification: "Fallback due to ranking error: " + reason,
			Examples:      []string{},
		})
	}
	return out
}

// RankingTable renders a cross-brand ranking. When err is set, or the
// ranking is empty, the alphabetical fallback is rendered instead so the
// table always covers every brand.
func RankingTable(name string, rankings []annotation.Ranking, err error, brands []string) Table {
	if err != nil || len(rankings) == 0 {
		rankings = FallbackRankings(brands, err)
	}
	sorted := append([]annotation.Ranking{}, rankings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank < sorted[j].Rank
		}
		return sorted[i].Brand < sorted[j].Brand
	})
	rows := make([][]string, 0, len(sorted))
	for _, r := range sorted {
		rows = append(rows, []string{
			Int(r.Rank), r.Brand, Float(r.Score), r.Justification, strings.Join(r.Examples, " • "),
		})
	}
	return Table{
		Name:    name,
		Columns: []string{"Rank", "Brand", "Originality Score", "Justification", "Examples"},
		Rows:    rows,
	}
}
