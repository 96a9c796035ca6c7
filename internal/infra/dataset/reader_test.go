package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"content", "brand", "likes"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"hello", "Acme", 12}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"short"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := NewReader().Read(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"content", "brand", "likes"}, tbl.Columns)
	assert.Equal(t, [][]string{{"hello", "Acme", "12"}, {"short", "", ""}}, tbl.Rows)

	_, err = NewReader().Read(context.Background(), path, "Missing")
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ads.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufefftext,brand\n\"a, b\",X\n,\n"), 0o600))
	tbl, err := NewReader().Read(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"text", "brand"}, tbl.Columns)
	assert.Equal(t, [][]string{{"a, b", "X"}}, tbl.Rows)
}

func TestReadUnsupported(t *testing.T) {
	_, err := NewReader().Read(context.Background(), "data.pkl", "")
	assert.ErrorContains(t, err, "unsupported dataset format")
}
