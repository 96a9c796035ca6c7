package aggregate

import (
	"sort"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/dataset"
)

// Labeled is one item's label with the source row and group it belongs to.
type Labeled struct {
	Row   int
	Brand string
	Text  string
	Label string
}

// Labels converts label results into rows. Each result must be a single
// item entity; items gives the item by result key.
func Labels(results []annotation.Result[string], items map[string]annotation.Item) []Labeled {
	out := make([]Labeled, 0, len(results))
	for _, r := range results {
		it := items[r.Key]
		out = append(out, Labeled{Row: it.Row, Brand: r.Brand, Text: it.Text, Label: annotation.LabelFor(r)})
	}
	return out
}

// AppendLabel copies base and appends column holding each row's label.
// Rows without a label get an empty cell.
func AppendLabel(name string, base dataset.Table, column string, labeled []Labeled) Table {
	byRow := make(map[int]string, len(labeled))
	for _, l := range labeled {
		byRow[l.Row] = l.Label
	}
	cols := append(append([]string{}, base.Columns...), column)
	rows := make([][]string, len(base.Rows))
	for i, r := range base.Rows {
		row := make([]string, len(base.Columns)+1)
		copy(row, r)
		row[len(base.Columns)] = byRow[i]
		rows[i] = row
	}
	return Table{Name: name, Columns: cols, Rows: rows}
}

type brandTally struct {
	brand  string
	total  int
	counts map[string]int
	top    string
	share  float64
}

func terminal(label string) bool {
	switch label {
	case annotation.LabelNoContent, annotation.LabelParseError, annotation.LabelCallError:
		return true
	}
	return false
}

// LabelSummary tallies labels per brand, with counts and percentage shares
// of every label, and ranks brands by the share of their dominant label.
// Terminal labels count towards totals but only dominate when nothing else
// was assigned. Ties break alphabetically.
func LabelSummary(name, labelColumn string, labeled []Labeled) Table {
	tallies := map[string]*brandTally{}
	labelSet := map[string]bool{}
	for _, l := range labeled {
		t, ok := tallies[l.Brand]
		if !ok {
			t = &brandTally{brand: l.Brand, counts: map[string]int{}}
			tallies[l.Brand] = t
		}
		t.total++
		t.counts[l.Label]++
		labelSet[l.Label] = true
	}

	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	list := make([]*brandTally, 0, len(tallies))
	for _, t := range tallies {
		t.top = dominant(t.counts, labels)
		t.share = float64(t.counts[t.top]) / float64(t.total)
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].share != list[j].share {
			return list[i].share > list[j].share
		}
		return list[i].brand < list[j].brand
	})

	cols := []string{"Rank", "Brand", "Total Items", labelColumn, labelColumn + " %"}
	for _, l := range labels {
		cols = append(cols, l+" Count", l+" %")
	}
	rows := make([][]string, 0, len(list))
	for i, t := range list {
		row := []string{Int(i + 1), t.brand, Int(t.total), t.top, Percent(t.counts[t.top], t.total)}
		for _, l := range labels {
			row = append(row, Int(t.counts[l]), Percent(t.counts[l], t.total))
		}
		rows = append(rows, row)
	}
	return Table{Name: name, Columns: cols, Rows: rows}
}

func dominant(counts map[string]int, ordered []string) string {
	best, bestN := "", 0
	for _, pass := range []bool{false, true} {
		for _, l := range ordered {
			if terminal(l) != pass {
				continue
			}
			if counts[l] > bestN {
				best, bestN = l, counts[l]
			}
		}
		if bestN > 0 {
			return best
		}
	}
	return best
}

// BrandDetail lists one brand's labeled items in item order.
func BrandDetail(brand, labelColumn string, labeled []Labeled, previewChars int) Table {
	rows := [][]string{}
	for _, l := range labeled {
		if l.Brand != brand {
			continue
		}
		rows = append(rows, []string{Int(len(rows)), annotation.Truncate(annotation.NormalizeText(l.Text), previewChars), l.Label})
	}
	return Table{Name: brand, Columns: []string{"Content Index", "Content Preview", labelColumn}, Rows: rows}
}

// Skipped lists the groups rejected by the volume gate.
func Skipped[T any](name string, results []annotation.Result[T], volume map[string]int) Table {
	rows := [][]string{}
	for _, r := range results {
		if r.Status != annotation.StatusSkippedVolume {
			continue
		}
		rows = append(rows, []string{r.Key, Int(volume[r.Key]), r.Reason})
	}
	return Table{Name: name, Columns: []string{"Brand", "Item Count", "Reason"}, Rows: rows}
}

// Failures lists every entity that ended in an error or skip state.
func Failures(name string, failures []annotation.Failure) Table {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.Stage, f.Key, string(f.Status), Int(f.Attempts), f.Reason})
	}
	return Table{Name: name, Columns: []string{"Stage", "Entity", "Status", "Attempts", "Reason"}, Rows: rows}
}
