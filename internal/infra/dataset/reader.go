package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	domain "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/dataset"
)

// Reader loads .xlsx workbooks and .csv files. The first row is the header.
type Reader struct{}

func NewReader() *Reader { return &Reader{} }

// Read returns the named sheet, or the first sheet when sheet is empty.
// CSV files ignore sheet.
func (r *Reader) Read(_ context.Context, path, sheet string) (domain.Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm":
		rows, err = readSheet(path, sheet)
	default:
		return domain.Table{}, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
	if err != nil {
		return domain.Table{}, err
	}
	return toTable(rows), nil
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.ReadAll()
}

// toTable splits off the header and pads short rows. Fully empty trailing
// rows are dropped.
func toTable(rows [][]string) domain.Table {
	if len(rows) == 0 {
		return domain.Table{}
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	body := rows[1:]
	for len(body) > 0 && blankRow(body[len(body)-1]) {
		body = body[:len(body)-1]
	}
	out := domain.Table{Columns: header, Rows: make([][]string, len(body))}
	for i, r := range body {
		row := make([]string, len(header))
		copy(row, r)
		out.Rows[i] = row
	}
	return out
}

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
