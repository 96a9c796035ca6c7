package aggregate

import (
	"sort"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

// ScoreGroup names a set of score columns summarised together, such as the
// dimensions of one persona.
type ScoreGroup struct {
	Name    string
	Columns []string
}

// Scored is one item's scores for one score group.
type Scored struct {
	Brand string
	Item  int
	Group string
	Text  string
	annotation.Scores
}

// ScoredFrom pairs score results with the single item each entity carried.
// Failed results keep their neutral payload so every item stays counted.
func ScoredFrom(results []annotation.Result[annotation.Scores], entities map[string]annotation.Entity) []Scored {
	out := make([]Scored, 0, len(results))
	for _, r := range results {
		if r.Status == annotation.StatusSkippedVolume {
			continue
		}
		e := entities[r.Key]
		s := Scored{Brand: r.Brand, Group: e.Variant, Scores: r.Payload}
		if len(e.Items) > 0 {
			s.Item = e.Items[0].Index
			s.Text = e.Items[0].Text
		}
		out = append(out, s)
	}
	return out
}

type itemKey struct {
	brand string
	item  int
}

// TopBox computes, per brand, the share of items scoring at or above
// threshold for every column, and per group the mean of its columns.
// Missing values count as neutral.
func TopBox(name string, scored []Scored, groups []ScoreGroup, threshold, neutral int) Table {
	items := mergeItems(scored)
	brands := map[string][]itemKey{}
	for k := range items.values {
		brands[k.brand] = append(brands[k.brand], k)
	}
	names := make([]string, 0, len(brands))
	for b := range brands {
		names = append(names, b)
	}
	sort.Strings(names)

	cols := []string{"Brand", "Total Items"}
	for _, g := range groups {
		cols = append(cols, g.Name+"_%High")
	}
	for _, g := range groups {
		for _, c := range g.Columns {
			cols = append(cols, c+"_%High")
		}
	}

	rows := make([][]string, 0, len(names))
	for _, b := range names {
		keys := brands[b]
		total := len(keys)
		share := func(col string) float64 {
			high := 0
			for _, k := range keys {
				v, ok := items.values[k][col]
				if !ok {
					v = neutral
				}
				if v >= threshold {
					high++
				}
			}
			return float64(high) / float64(total) * 100
		}
		row := []string{b, Int(total)}
		var dims []string
		for _, g := range groups {
			sum := 0.0
			for _, c := range g.Columns {
				v := share(c)
				sum += v
				dims = append(dims, Float(v))
			}
			mean := 0.0
			if len(g.Columns) > 0 {
				mean = sum / float64(len(g.Columns))
			}
			row = append(row, Float(mean))
		}
		rows = append(rows, append(row, dims...))
	}
	return Table{Name: name, Columns: cols, Rows: rows}
}

// ScoredItems lists every scored item once with all of its columns.
func ScoredItems(name string, scored []Scored, groups []ScoreGroup, previewChars int) Table {
	items := mergeItems(scored)
	keys := make([]itemKey, 0, len(items.values))
	for k := range items.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].brand != keys[j].brand {
			return keys[i].brand < keys[j].brand
		}
		return keys[i].item < keys[j].item
	})

	cols := []string{"Brand", "Item Index", "Content Preview"}
	for _, g := range groups {
		cols = append(cols, g.Columns...)
	}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		row := []string{k.brand, Int(k.item), annotation.Truncate(annotation.NormalizeText(items.text[k]), previewChars)}
		for _, g := range groups {
			for _, c := range g.Columns {
				if v, ok := items.values[k][c]; ok {
					row = append(row, Int(v))
				} else {
					row = append(row, "")
				}
			}
		}
		rows = append(rows, row)
	}
	return Table{Name: name, Columns: cols, Rows: rows}
}

type merged struct {
	values map[itemKey]map[string]int
	text   map[itemKey]string
}

func mergeItems(scored []Scored) merged {
	m := merged{values: map[itemKey]map[string]int{}, text: map[itemKey]string{}}
	for _, s := range scored {
		k := itemKey{s.Brand, s.Item}
		if m.values[k] == nil {
			m.values[k] = map[string]int{}
		}
		for c, v := range s.Values {
			m.values[k][c] = v
		}
		if s.Text != "" {
			m.text[k] = s.Text
		}
	}
	return m
}
