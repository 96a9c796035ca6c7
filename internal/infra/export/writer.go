package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/aggregate"
)

const manifestSheet = "Manifest"

// Writer renders a workbook as .xlsx, or as JSON when the path ends in .json.
type Writer struct{}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Write(path string, wb aggregate.Workbook) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return writeJSON(path, wb)
	}
	return writeXLSX(path, wb)
}

func writeJSON(path string, wb aggregate.Workbook) error {
	data, err := json.MarshalIndent(wb, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeXLSX(path string, wb aggregate.Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	tables := append(append([]aggregate.Table{}, wb.Tables...), manifestTable(wb))
	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("sheet %q: %w", t.Name, err)
		}
		if err := writeTable(f, t); err != nil {
			return fmt.Errorf("sheet %q: %w", t.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.SaveAs(path)
}

func writeTable(f *excelize.File, t aggregate.Table) error {
	if err := setRow(f, t.Name, 1, t.Columns); err != nil {
		return err
	}
	if err := f.SetPanes(t.Name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := setRow(f, t.Name, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return f.SetSheetRow(sheet, cell, &row)
}

// manifestTable is the run accounting appended to every workbook. A
// workbook that already uses the name gets a suffixed sheet.
func manifestTable(wb aggregate.Workbook) aggregate.Table {
	m := wb.Manifest
	rows := [][]string{
		{"analysis", string(wb.Kind)},
		{"media", string(wb.Media)},
		{"total", aggregate.Int(m.Total)},
		{"succeeded", aggregate.Int(m.Succeeded)},
		{"no_content", aggregate.Int(m.NoContent)},
		{"skipped_volume", aggregate.Int(m.SkippedVolume)},
		{"errored", aggregate.Int(m.Errored)},
	}
	for _, s := range m.Statuses() {
		rows = append(rows, []string{"status." + string(s), aggregate.Int(m.ByStatus[s])})
	}
	tmp := aggregate.Workbook{Tables: wb.Tables}
	tmp.Add(aggregate.Table{Name: manifestSheet, Columns: []string{"Field", "Value"}, Rows: rows})
	return tmp.Tables[len(tmp.Tables)-1]
}
