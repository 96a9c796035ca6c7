package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/aggregate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/annotate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/dataset"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/prompt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptClient answers through reply and records every request.
type scriptClient struct {
	mu    sync.Mutex
	reqs  []ai.Request
	reply func(req ai.Request) (string, error)
}

func (c *scriptClient) Complete(_ context.Context, req ai.Request) (string, error) {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()
	return c.reply(req)
}

func (c *scriptClient) count(contains string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.reqs {
		if strings.Contains(r.Messages[0].Content, contains) {
			n++
		}
	}
	return n
}

func settings() Settings {
	retry := annotate.RetryPolicy{MaxAttempts: 3, Sleep: func(context.Context, time.Duration) error { return nil }}
	return Settings{
		Params:           annotate.CallParams{Model: "gpt-4o-mini", Temperature: 0.2, MaxTokens: 2000},
		Retry:            retry,
		Workers:          4,
		MinVolume:        map[annotation.Kind]int{annotation.KindCreativity: 2, annotation.KindAffinity: 2, annotation.KindKeyAdvantages: 2, annotation.KindPillars: 2, annotation.KindArchetype: 2},
		TopK:             2,
		MaxItemsPerGroup: 50,
		MaxChars:         1000,
		CrossBrandChars:  300,
		PreviewChars:     120,
		HighScore:        6,
		NeutralScore:     4,
	}
}

var columns = dataset.Columns{Text: "Content", Brand: "Company", Weight: "Reach"}

func table(rows ...[]string) dataset.Table {
	return dataset.Table{Columns: []string{"Content", "Company", "Reach"}, Rows: rows}
}

func sheet(t *testing.T, wb aggregate.Workbook, name string) aggregate.Table {
	t.Helper()
	tbl, ok := wb.Table(name)
	require.True(t, ok, "missing sheet %q", name)
	return tbl
}

func TestArchetypeAds(t *testing.T) {
	c := &scriptClient{reply: func(req ai.Request) (string, error) {
		if strings.Contains(req.Messages[1].Content, "garbled") {
			return "I cannot decide.", nil
		}
		if strings.Contains(req.Messages[1].Content, "bold") {
			return "Analysis...\nTop Archetype: The Hero", nil
		}
		return "Top Archetype: [The Sage]", nil
	}}
	r := &Runner{Client: c, Settings: settings()}
	out, err := r.Run(context.Background(), Request{
		Kind: annotation.KindArchetype, Media: annotation.MediaAds, Columns: columns,
		Table: table(
			[]string{"bold move", "Acme", "1"},
			[]string{"quiet wisdom", "Acme", "2"},
			[]string{"  ", "Acme", "3"},
			[]string{"bold again", "Bolt", "4"},
			[]string{"garbled", "Bolt", "5"},
		),
	})
	require.NoError(t, err)

	labeled := sheet(t, out.Workbook, "Labeled")
	last := len(labeled.Columns) - 1
	assert.Equal(t, "Top Archetype", labeled.Columns[last])
	got := make([]string, len(labeled.Rows))
	for i, row := range labeled.Rows {
		got[i] = row[last]
	}
	assert.Equal(t, []string{"The Hero", "The Sage", annotation.LabelNoContent, "The Hero", annotation.LabelParseError}, got)
	assert.Equal(t, 4, len(c.reqs), "blank row must not reach the client")

	summary := sheet(t, out.Workbook, "Summary")
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, []string{"1", "Bolt", "2", "The Hero", "50.0"}, summary.Rows[0][:5])
	assert.Equal(t, []string{"2", "Acme", "3", "The Hero", "33.3"}, summary.Rows[1][:5])

	m := out.Workbook.Manifest
	assert.Equal(t, 5, m.Total)
	assert.Equal(t, 3, m.Succeeded)
	assert.Equal(t, 1, m.NoContent)
	assert.Equal(t, 1, m.Errored)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, annotation.StatusParseError, out.Failures[0].Status)
}

func TestArchetypeGroupedGatesSmallBrands(t *testing.T) {
	c := &scriptClient{reply: func(ai.Request) (string, error) { return "Top Archetype: Explorer", nil }}
	r := &Runner{Client: c, Settings: settings()}
	out, err := r.Run(context.Background(), Request{
		Kind: annotation.KindArchetype, Media: annotation.MediaSocial, Columns: columns,
		Table: table([]string{"a", "Acme", ""}, []string{"b", "Acme", ""}, []string{"c", "Tiny", ""}),
	})
	require.NoError(t, err)
	assert.Len(t, c.reqs, 2)

	skipped := sheet(t, out.Workbook, "Skipped Brands")
	assert.Equal(t, [][]string{{"Tiny", "1", "too few items (1 < 2)"}}, skipped.Rows)
	assert.Equal(t, 1, out.Workbook.Manifest.SkippedVolume)
	sheet(t, out.Workbook, "Acme")
}

func creativityClient(ranking string) *scriptClient {
	return &scriptClient{reply: func(req ai.Request) (string, error) {
		if strings.Contains(req.Messages[0].Content, "compare creativity across brands") {
			return ranking, nil
		}
		return `{"selected_topk": [1, "0", 1, 9], "selected_details": [{"idx": 1, "short_title": "Bold", "originality_reason": "new", "themes": ["x"]}], "notes_overall": "ok"}`, nil
	}}
}

func creativityTable() dataset.Table {
	return table(
		[]string{"first ad", "Zeta", "10"},
		[]string{"second ad", "Zeta", "300"},
		[]string{"third ad", "Alpha", "5"},
		[]string{"fourth ad", "Alpha", "7"},
		[]string{"Fourth  ad", "Alpha", "1"},
		[]string{"lonely", "Solo", "9"},
	)
}

func TestCreativityRankingFallback(t *testing.T) {
	c := creativityClient(`{"rankings": [{"brand": "Zeta", "rank": 1}]}`)
	r := &Runner{Client: c, Settings: settings()}
	out, err := r.Run(context.Background(), Request{Kind: annotation.KindCreativity, Media: annotation.MediaSocial, Columns: columns, Table: creativityTable()})
	require.NoError(t, err)

	assert.Equal(t, 2, c.count("creativity analyst"), "Solo is gated and never called")
	assert.Equal(t, 1, c.count("compare creativity across brands"))
	for _, req := range c.reqs {
		assert.True(t, req.JSON)
	}

	ranking := sheet(t, out.Workbook, "Overall Ranking")
	require.Len(t, ranking.Rows, 2)
	assert.Equal(t, []string{"1", "Alpha", "5.0"}, ranking.Rows[0][:3])
	assert.Equal(t, []string{"2", "Zeta", "5.0"}, ranking.Rows[1][:3])
	assert.True(t, strings.HasPrefix(ranking.Rows[0][3], "Fallback due to ranking error: response missing required fields"))

	zeta := sheet(t, out.Workbook, "Zeta")
	require.Len(t, zeta.Rows, 2)
	// items are ordered by reach, so local index 1 is the lower-reach "first ad"
	assert.Equal(t, []string{"1", "1", "Bold", "new", "x", "10", "first ad"}, zeta.Rows[0])

	skipped := sheet(t, out.Workbook, "Skipped Brands")
	assert.Equal(t, "Solo", skipped.Rows[0][0])

	var stages []string
	for _, f := range out.Failures {
		stages = append(stages, f.Stage)
	}
	assert.ElementsMatch(t, []string{"selection", "ranking"}, stages)
}

func TestCreativityRankingCompletesMissingBrands(t *testing.T) {
	c := creativityClient(`{"rankings": [{"brand": "Zeta", "rank": 1, "originality_score": 8.5, "justification": "fresh", "examples": ["a"]}]}`)
	r := &Runner{Client: c, Settings: settings()}
	out, err := r.Run(context.Background(), Request{Kind: annotation.KindCreativity, Media: annotation.MediaPR, Columns: columns, Table: creativityTable()})
	require.NoError(t, err)

	ranking := sheet(t, out.Workbook, "Overall Ranking")
	require.Len(t, ranking.Rows, 2)
	assert.Equal(t, []string{"1", "Zeta", "8.5", "fresh", "a"}, ranking.Rows[0])
	assert.Equal(t, []string{"2", "Alpha", "5.0"}, ranking.Rows[1][:3])
}

func TestAdvantagesRetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	c := &scriptClient{reply: func(req ai.Request) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		user := req.Messages[1].Content
		calls[user]++
		if strings.Contains(user, "Acme") && calls[user] == 1 {
			return "", fmt.Errorf("status 503: %w", ai.ErrTransient)
		}
		return "```json\n{\"company\": \"x\", \"advantages\": [{\"title\": \"Price\", \"category\": \"Value\", \"evidence\": [\"cheap\"], \"examples\": [{\"post_index\": 0, \"quote\": \"q\"}]}]}\n```", nil
	}}
	r := &Runner{Client: c, Settings: settings()}
	out, err := r.Run(context.Background(), Request{
		Kind: annotation.KindKeyAdvantages, Media: annotation.MediaSocial, Columns: columns,
		Table: table([]string{"a", "Acme", "1"}, []string{"b", "Acme", "2"}, []string{"c", "Bolt", "1"}, []string{"d", "Bolt", "1"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Workbook.Manifest.Succeeded)
	assert.Empty(t, out.Failures)

	rows := sheet(t, out.Workbook, "Advantages").Rows
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme", rows[0][0])
	assert.Equal(t, "0", rows[0][5])
}

func TestPillarsWithGenericity(t *testing.T) {
	c := &scriptClient{reply: func(req ai.Request) (string, error) {
		if req.Messages[0].Content == prompt.GenericitySystem {
			return "MOST GENERIC THEMES:\nTHEME: Sales - everyone does it\nCOMPANY DIFFERENTIATION RANKING:\n1. Acme - bold", nil
		}
		return "THEME: Family\nDESCRIPTION: kids\nSHARE: 50%\nPOSTS_COUNT: 1\nSUBTOPICS:\n- Play: areas\nPOSTS:\n- \"[0] fun\"", nil
	}}
	r := &Runner{Client: c, Settings: settings()}
	out, err := r.Run(context.Background(), Request{
		Kind: annotation.KindPillars, Media: annotation.MediaSocial, Columns: columns,
		Table: table([]string{"a", "Acme", "1"}, []string{"b", "Acme", "2"}, []string{"c", "Bolt", "1"}, []string{"d", "Bolt", "1"}),
	})
	require.NoError(t, err)
	assert.Len(t, sheet(t, out.Workbook, "Pillars").Rows, 4)
	g := sheet(t, out.Workbook, "Genericity")
	assert.Equal(t, [][]string{
		{annotation.BucketGeneric, "Sales", "everyone does it"},
		{annotation.SectionRanking, "", "1. Acme - bold"},
	}, g.Rows)
}

// personaReply scores every criterion of the persona named in the system
// prompt, low for items mentioning "low".
func personaReply(req ai.Request) (string, error) {
	for _, p := range prompt.Personas {
		if !strings.Contains(req.Messages[0].Content, p.Name) {
			continue
		}
		score := 7
		if strings.Contains(req.Messages[1].Content, "low") {
			score = 2
		}
		var lines []string
		for _, c := range p.Criteria {
			lines = append(lines, fmt.Sprintf("%s: %d", c.Label, score))
		}
		return strings.Join(lines, "\n"), nil
	}
	return "", errors.New("no persona")
}

func TestAffinityTopBox(t *testing.T) {
	c := &scriptClient{reply: func(req ai.Request) (string, error) {
		if req.Messages[0].Content == prompt.AffinitySummarySystem {
			return "Acme wins.", nil
		}
		return personaReply(req)
	}}
	s := settings()
	s.AffinitySummary = true
	r := &Runner{Client: c, Settings: s}
	out, err := r.Run(context.Background(), Request{
		Kind: annotation.KindAffinity, Media: annotation.MediaSocial, Columns: columns,
		Table: table([]string{"great fun", "Acme", ""}, []string{"low effort", "Acme", ""}, []string{"x", "Tiny", ""}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2*len(prompt.Personas)+1, len(c.reqs))

	summary := sheet(t, out.Workbook, "Summary")
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, "Acme", summary.Rows[0][0])
	assert.Equal(t, "2", summary.Rows[0][1])
	for _, v := range summary.Rows[0][2:] {
		assert.Equal(t, "50.0", v)
	}
	assert.Len(t, sheet(t, out.Workbook, "Items").Rows, 2)
	assert.Equal(t, [][]string{{"Acme wins."}}, sheet(t, out.Workbook, "Insights").Rows)
	assert.Equal(t, 1, out.Workbook.Manifest.SkippedVolume)
}

func TestRunRejectsMissingColumns(t *testing.T) {
	r := &Runner{Client: &scriptClient{}, Settings: settings()}
	_, err := r.Run(context.Background(), Request{
		Kind: annotation.KindCreativity, Media: annotation.MediaSocial,
		Columns: dataset.Columns{Text: "Content", Brand: "Missing"},
		Table:   table([]string{"a", "b", "c"}),
	})
	require.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestRunIsDeterministic(t *testing.T) {
	run := func() aggregate.Workbook {
		r := &Runner{Client: creativityClient(`not json`), Settings: settings()}
		out, err := r.Run(context.Background(), Request{Kind: annotation.KindCreativity, Media: annotation.MediaSocial, Columns: columns, Table: creativityTable()})
		require.NoError(t, err)
		return out.Workbook
	}
	first := run()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run())
	}
}
