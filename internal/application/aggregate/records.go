package aggregate

import (
	"strings"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

// Advantage flattening.

var advantageColumns = []string{
	"Brand", "Advantage ID", "Title", "Category", "Evidence",
	"Example Index", "Example Quote", "Example Text",
}

// FlattenAdvantages emits one row per cited example. A citation already
// used by an earlier advantage of the same brand is dropped; an advantage
// left without examples still gets one row.
func FlattenAdvantages(name string, results []annotation.Result[annotation.Advantages], entities map[string]annotation.Entity, previewChars int) Table {
	rows := [][]string{}
	for _, r := range results {
		if !r.OK() {
			continue
		}
		e := entities[r.Key]
		seen := map[string]bool{}
		for i, adv := range r.Payload.Items {
			id := Int(i + 1)
			base := []string{r.Brand, id, adv.Title, adv.Category, strings.Join(adv.Evidence, " | ")}
			emitted := false
			for _, ex := range citations(adv.Examples, seen) {
				idx, text := "", ""
				if ex.Index >= 0 {
					idx = Int(ex.Index)
					text = itemText(e, ex.Index, previewChars)
				}
				rows = append(rows, append(append([]string{}, base...), idx, ex.Quote, text))
				emitted = true
			}
			if !emitted {
				rows = append(rows, append(append([]string{}, base...), "", "", ""))
			}
		}
	}
	return Table{Name: name, Columns: advantageColumns, Rows: rows}
}

// citations filters examples already present in seen and records the rest.
// Examples are identified by index, or by quote when no index was given.
func citations(examples []annotation.Example, seen map[string]bool) []annotation.Example {
	var out []annotation.Example
	for _, ex := range examples {
		key := "q:" + strings.TrimSpace(ex.Quote)
		if ex.Index >= 0 {
			key = "i:" + Int(ex.Index)
		}
		if key == "q:" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ex)
	}
	return out
}

// AdvantageSummary lists each advantage once with its de-duplicated example
// count.
func AdvantageSummary(name string, results []annotation.Result[annotation.Advantages]) Table {
	rows := [][]string{}
	for _, r := range results {
		if !r.OK() {
			continue
		}
		seen := map[string]bool{}
		for i, adv := range r.Payload.Items {
			n := len(citations(adv.Examples, seen))
			rows = append(rows, []string{r.Brand, Int(i + 1), adv.Title, adv.Category, Int(n)})
		}
	}
	return Table{Name: name, Columns: []string{"Brand", "Advantage ID", "Title", "Category", "Example Count"}, Rows: rows}
}

// Creativity selections.

// Selected lists one brand's selected items in selection order.
func Selected(e annotation.Entity, sel annotation.Selection, previewChars int) Table {
	details := make(map[int]annotation.SelectionDetail, len(sel.Details))
	for _, d := range sel.Details {
		if _, ok := details[d.Idx]; !ok {
			details[d.Idx] = d
		}
	}
	rows := make([][]string, 0, len(sel.Indices))
	for pos, idx := range sel.Indices {
		d := details[idx]
		reach := ""
		if idx < len(e.Items) {
			reach = weight(e.Items[idx].Weight)
		}
		rows = append(rows, []string{
			Int(pos + 1), Int(idx), d.ShortTitle, d.OriginalityReason,
			strings.Join(d.Themes, ", "), reach, itemText(e, idx, previewChars),
		})
	}
	return Table{
		Name:    e.Brand,
		Columns: []string{"Position", "Item Index", "Short Title", "Originality Reason", "Themes", "Reach", "Content"},
		Rows:    rows,
	}
}

// Content pillars.

// Pillars flattens each brand's themes into one row per subtopic and post
// example. A theme with neither still gets a row.
func Pillars(name string, results []annotation.Result[[]annotation.Theme]) Table {
	rows := [][]string{}
	for _, r := range results {
		if !r.OK() {
			continue
		}
		for _, t := range r.Payload {
			base := []string{r.Brand, t.Name, t.Description, t.Share, t.PostsCount}
			n := 0
			for _, s := range t.Subtopics {
				content := s.Name
				if s.Description != "" {
					content += ": " + s.Description
				}
				rows = append(rows, append(append([]string{}, base...), "Subtopic", content))
				n++
			}
			for _, p := range t.Posts {
				rows = append(rows, append(append([]string{}, base...), "Post Example", p))
				n++
			}
			if n == 0 {
				rows = append(rows, append(append([]string{}, base...), "", ""))
			}
		}
	}
	return Table{Name: name, Columns: []string{"Brand", "Theme", "Description", "Share", "Posts Count", "Type", "Content"}, Rows: rows}
}

// GenericityTable lists bucketed themes followed by the brand ranking.
func GenericityTable(name string, g annotation.Genericity) Table {
	rows := make([][]string, 0, len(g.Buckets)+len(g.Ranking))
	for _, b := range g.Buckets {
		rows = append(rows, []string{b.Bucket, b.Theme, b.Explanation})
	}
	for _, r := range g.Ranking {
		rows = append(rows, []string{annotation.SectionRanking, "", r})
	}
	return Table{Name: name, Columns: []string{"Section", "Theme", "Explanation"}, Rows: rows}
}

func itemText(e annotation.Entity, idx, previewChars int) string {
	if idx < 0 || idx >= len(e.Items) {
		return ""
	}
	return annotation.Truncate(annotation.NormalizeText(e.Items[idx].Text), previewChars)
}
