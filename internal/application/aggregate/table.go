package aggregate

import (
	"math"
	"strconv"
	"strings"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

// Table is one output sheet. Cells are pre-rendered strings so equal
// inputs always produce byte-identical tables.
type Table struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Workbook is the aggregated output of one analysis run.
type Workbook struct {
	Kind     annotation.Kind     `json:"kind"`
	Media    annotation.Media    `json:"media"`
	Tables   []Table             `json:"tables"`
	Manifest annotation.Manifest `json:"manifest"`
}

const maxSheetName = 31

var sheetReplacer = strings.NewReplacer("[", "_", "]", "_", ":", "_", "*", "_", "?", "_", "/", "_", "\\", "_")

// Add appends t, renaming it so sheet names stay unique
// (case-insensitively) and within spreadsheet limits.
func (w *Workbook) Add(t Table) {
	t.Name = w.uniqueName(t.Name)
	if t.Rows == nil {
		t.Rows = [][]string{}
	}
	w.Tables = append(w.Tables, t)
}

// Table returns the table named name.
func (w *Workbook) Table(name string) (Table, bool) {
	for _, t := range w.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

func (w *Workbook) uniqueName(name string) string {
	base := strings.TrimSpace(sheetReplacer.Replace(name))
	if base == "" {
		base = "(blank)"
	}
	base = cut(base, maxSheetName)
	candidate := base
	for n := 1; w.hasName(candidate); n++ {
		suffix := "_" + strconv.Itoa(n)
		candidate = cut(base, maxSheetName-len(suffix)) + suffix
	}
	return candidate
}

func (w *Workbook) hasName(name string) bool {
	for _, t := range w.Tables {
		if strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Percent renders part/total as a percentage with one decimal.
func Percent(part, total int) string {
	if total == 0 {
		return "0.0"
	}
	return Float(float64(part) / float64(total) * 100)
}

// Float renders v rounded half away from zero to one decimal.
func Float(v float64) string {
	return strconv.FormatFloat(Round1(v), 'f', 1, 64)
}

func Round1(v float64) float64 { return math.Round(v*10) / 10 }

func Int(v int) string { return strconv.Itoa(v) }

func weight(w *float64) string {
	if w == nil {
		return ""
	}
	return strconv.FormatFloat(*w, 'f', -1, 64)
}
