package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMissingColumn = errors.New("dataset missing column")

// Columns names the fields the pipeline reads from a table.
type Columns struct {
	Text   string `yaml:"textColumn" json:"text_column"`
	Brand  string `yaml:"brandColumn" json:"brand_column"`
	Weight string `yaml:"weightColumn" json:"weight_column"`
}

// Table is a header plus string rows, as loaded from a sheet.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Record is the projection of one row onto Columns.
type Record struct {
	Row    int
	Text   string
	Brand  string
	Weight *float64
}

func (t Table) Len() int { return len(t.Rows) }

// Index returns the position of col, or -1.
func (t Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	for i, c := range t.Columns {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(col)) {
			return i
		}
	}
	return -1
}

// Cell returns the value at row/col; short rows read as empty.
func (t Table) Cell(row, col int) string {
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Validate checks that the text column, and the brand column when grouped,
// are present.
func (t Table) Validate(c Columns, grouped bool) error {
	if t.Index(c.Text) < 0 {
		return fmt.Errorf("%w: %q", ErrMissingColumn, c.Text)
	}
	if grouped && t.Index(c.Brand) < 0 {
		return fmt.Errorf("%w: %q", ErrMissingColumn, c.Brand)
	}
	return nil
}

// Records projects every row onto c. Weights that are absent or not
// numeric stay nil.
func (t Table) Records(c Columns) []Record {
	ti, bi, wi := t.Index(c.Text), t.Index(c.Brand), -1
	if c.Weight != "" {
		wi = t.Index(c.Weight)
	}
	out := make([]Record, len(t.Rows))
	for r := range t.Rows {
		rec := Record{Row: r, Text: t.Cell(r, ti), Brand: strings.TrimSpace(t.Cell(r, bi))}
		if wi >= 0 {
			rec.Weight = ParseWeight(t.Cell(r, wi))
		}
		out[r] = rec
	}
	return out
}

// ParseWeight reads a reach/likes style number, tolerating thousands
// separators.
func ParseWeight(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
