package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/aggregate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

func TestRunWritesWorkbookAndManifest(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "ads.csv")
	require.NoError(t, os.WriteFile(input, []byte("text,brand\nBuy now,Acme\n,Acme\nBold move,Bolt\n"), 0o644))
	out := filepath.Join(dir, "result.json")

	client := ai.ClientFunc(func(context.Context, ai.Request) (string, error) {
		return "Top Archetype: Hero", nil
	})
	var stdout bytes.Buffer
	cmd := newRunCmd(client)
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--analysis", "archetype", "--media", "ads", "--input", input, "--out", out,
		"--text-column", "text", "--brand-column", "brand",
	})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stdout.String(), "no_content")
	assert.Contains(t, stdout.String(), "wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var wb aggregate.Workbook
	require.NoError(t, json.Unmarshal(data, &wb))
	assert.Equal(t, annotation.KindArchetype, wb.Kind)
	assert.Equal(t, 3, wb.Manifest.Total)
	assert.Equal(t, 2, wb.Manifest.Succeeded)
	assert.Equal(t, 1, wb.Manifest.NoContent)
}

func TestRunRejectsUnknownAnalysis(t *testing.T) {
	cmd := newRunCmd(ai.ClientFunc(func(context.Context, ai.Request) (string, error) { return "", nil }))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--analysis", "sentiment", "--media", "ads", "--input", "x.csv"})
	assert.ErrorContains(t, cmd.Execute(), "unknown analysis kind")
}

func TestKindsListsEveryAnalysis(t *testing.T) {
	var stdout bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetArgs([]string{"kinds"})
	require.NoError(t, root.Execute())
	for _, k := range annotation.Kinds {
		assert.Contains(t, stdout.String(), string(k))
	}
}

func TestDefaultOut(t *testing.T) {
	assert.Equal(t, "data/posts_content_pillars.xlsx", defaultOut("data/posts.csv", annotation.KindPillars))
}
