package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "Top Archetype: The Mentor", want: "The Mentor"},
		{name: "bracketed", raw: "Reasoning first\nTop Archetype: [The Eco Warrior]\nTop Archetype: Expert", want: "The Eco Warrior"},
		{name: "markdown", raw: "**Top Archetype:** Guardian", want: "Guardian"},
		{name: "case insensitive", raw: "top archetype: simplifier", want: "simplifier"},
		{name: "missing", raw: "I think this is about trust.", wantErr: true},
		{name: "empty value", raw: "Top Archetype:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLabel(tt.raw, "Top Archetype:")
			if tt.wantErr {
				require.ErrorIs(t, err, ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

var testDims = []Dimension{
	{Column: "Family_Kids_Products", Aliases: []string{"Kids' Products Relevance", "Kids Products"}},
	{Column: "Family_Kids_Events", Aliases: []string{"Kids' Events & Activities", "Kids Events"}},
	{Column: "Family_Household_Discounts", Aliases: []string{"Household Savings & Discounts", "Household Discounts"}},
}

var testScale = Scale{Min: 1, Max: 7, Neutral: 4}

func TestParseScoresFillsMissingDimension(t *testing.T) {
	raw := "Kids’ Products Relevance: 6\nHousehold Savings & Discounts: 2"

	got, err := ParseScores(raw, testDims, testScale)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"Family_Kids_Products":       6,
		"Family_Kids_Events":         4,
		"Family_Household_Discounts": 2,
	}, got.Values)
	assert.Equal(t, []string{"Family_Kids_Events"}, got.Filled)
}

func TestParseScoresFirstLineWinsAndRangeChecked(t *testing.T) {
	raw := "Kids Products: 9 out of 10, really 5\nKids' Products Relevance: 2\nKids Events: 7\nHousehold Discounts - 3"

	got, err := ParseScores(raw, testDims, testScale)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Values["Family_Kids_Products"])
	assert.Equal(t, 7, got.Values["Family_Kids_Events"])
	assert.Equal(t, 3, got.Values["Family_Household_Discounts"])
	assert.Empty(t, got.Filled)
}

func TestParseScoresIgnoresEchoedScale(t *testing.T) {
	raw := "Kids' Products Relevance (1-7): 6\nKids' Events & Activities (1-7): **2**\nHousehold Savings & Discounts: 3/7"

	got, err := ParseScores(raw, testDims, testScale)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Values["Family_Kids_Products"])
	assert.Equal(t, 2, got.Values["Family_Kids_Events"])
	assert.Equal(t, 4, got.Values["Family_Household_Discounts"])
	assert.Equal(t, []string{"Family_Household_Discounts"}, got.Filled)
}

func TestParseScoresNothingFound(t *testing.T) {
	got, err := ParseScores("I cannot rate this post.", testDims, testScale)
	require.ErrorIs(t, err, ErrParse)
	assert.Len(t, got.Filled, 3)
	for _, v := range got.Values {
		assert.Equal(t, 4, v)
	}
}

func TestDecodeJSONRepair(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "strict",
			raw:  `{"a": 1}`,
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "unterminated string after complete object",
			raw:  `{"a": 1}` + "\n" + `{"b": "never closed`,
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "unterminated string inside array",
			raw:  `{"rankings": [{"brand": "A", "rank": 1}, {"brand": "B", "justification": "cut off mid`,
			want: map[string]any{"rankings": []any{map[string]any{"brand": "A", "rank": float64(1)}}},
		},
		{
			name: "markdown fence",
			raw:  "```json\n{\"ok\": true}\n```",
			want: map[string]any{"ok": true},
		},
		{
			name: "prose around object",
			raw:  `Here you go: {"x": "y"} hope it helps`,
			want: map[string]any{"x": "y"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSON(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSONFallsBackToEmpty(t *testing.T) {
	got, err := DecodeJSON(`{"a": "never closed`)
	require.ErrorIs(t, err, ErrParse)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRepairStrategiesAreIndependent(t *testing.T) {
	_, ok := OuterBraces("no braces here", nil)
	assert.False(t, ok)

	got, ok := OuterBraces(`xx{"a":1}yy`, nil)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, got)

	_, ok = TruncateUnterminated(`{"a":1`, nil)
	assert.False(t, ok, "non syntax errors do not apply")
}

func TestParseSelection(t *testing.T) {
	raw := `{"selected_topk": [3, "1", 3, 9, -1, 2.5, 0, 4],
	  "selected_details": [{"idx": 3, "originality_reason": "fresh", "short_title": "Hook"}],
	  "notes_overall": "solid set"}`

	got, err := ParseSelection(raw, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 0}, got.Indices)
	require.Len(t, got.Details, 1)
	assert.Equal(t, "Hook", got.Details[0].ShortTitle)
	assert.Equal(t, "solid set", got.Notes)
}

func TestParseSelectionRequiresArray(t *testing.T) {
	got, err := ParseSelection(`{"selected_topk": "3"}`, 5, 3)
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, got.Indices)
	assert.NotNil(t, got.Indices)
}

func TestParseAdvantages(t *testing.T) {
	raw := `{"company": "Acme", "advantages": [
	  {"title": "Fast delivery", "category": "Logistics", "evidence": ["Ships same day", "Free returns"],
	   "examples": [{"ad_index": 1, "quote": "Today!"}, {"post_index": "3", "quote": "Free"}]},
	  "garbage",
	  {"title": "Low prices", "category": "Value", "evidence": "Cheapest in town"}]}`

	got, err := ParseAdvantages(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
	require.Len(t, got.Items, 2)
	assert.Equal(t, []Example{{Index: 1, Quote: "Today!"}, {Index: 3, Quote: "Free"}}, got.Items[0].Examples)
	assert.Equal(t, []string{"Cheapest in town"}, got.Items[1].Evidence)
	assert.Empty(t, got.Items[1].Examples)
}

func TestParseRankings(t *testing.T) {
	raw := `{"rankings": [
	  {"brand": "B", "rank": 1, "originality_score": "8.5", "justification": "bold", "examples": ["x", "y"]},
	  {"brand": "A", "rank": "2", "originality_score": 6, "justification": "safe"}]}`

	got, err := ParseRankings(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Ranking{Brand: "B", Rank: 1, Score: 8.5, Justification: "bold", Examples: []string{"x", "y"}}, got[0])
	assert.Equal(t, 2, got[1].Rank)
}

func TestParseRankingsValidation(t *testing.T) {
	_, err := ParseRankings(`{"rankings": [{"brand": "A", "rank": 1, "justification": "no score"}]}`)
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseRankings(`{"rankings": [{"brand": "A", "rank": 1, "originality_score": null, "justification": "null score"}]}`)
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseRankings(`{"rankings": [{"brand": " ", "rank": 1, "originality_score": 7, "justification": "blank brand"}]}`)
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseRankings(`{"rankings": []}`)
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseRankings(`not json at all`)
	require.ErrorIs(t, err, ErrParse)
	assert.Equal(t, StatusParseError, StatusOf(err))
}

func TestParseThemes(t *testing.T) {
	raw := `THEME: Family Weekends
DESCRIPTION: Events for kids
SHARE: 40%
POSTS_COUNT: 4
SUBTOPICS:
- Workshops: Crafts and painting
- no colon here
POSTS:
- "Join our Saturday workshop"
- Face painting all day

THEME: Deals
DESCRIPTION: Discounts
SUBTOPICS:
- Black Friday: Big sale`

	got, err := ParseThemes(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Family Weekends", got[0].Name)
	assert.Equal(t, "40%", got[0].Share)
	assert.Equal(t, "4", got[0].PostsCount)
	assert.Equal(t, []Subtopic{{Name: "Workshops", Description: "Crafts and painting"}}, got[0].Subtopics)
	assert.Equal(t, []string{"Join our Saturday workshop", "Face painting all day"}, got[0].Posts)
	assert.Equal(t, "Deals", got[1].Name)
	assert.Empty(t, got[1].Posts)

	_, err = ParseThemes("Sorry, I can't help.")
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseGenericity(t *testing.T) {
	raw := `MOST GENERIC THEMES:
THEME: Promotions - everyone runs sales

MODERATELY DIFFERENTIATED THEMES:
THEME: Kids - some brands

MOST DIFFERENTIATED THEMES:
THEME: Art Walks - only one mall
THEME: missing separator

COMPANY DIFFERENTIATION RANKING:
1. Acme - mostly sales
2. Borealis - art focus`

	got, err := ParseGenericity(raw)
	require.NoError(t, err)
	assert.Equal(t, []BucketTheme{
		{Bucket: BucketGeneric, Theme: "Promotions", Explanation: "everyone runs sales"},
		{Bucket: BucketModerate, Theme: "Kids", Explanation: "some brands"},
		{Bucket: BucketDifferentiated, Theme: "Art Walks", Explanation: "only one mall"},
	}, got.Buckets)
	assert.Equal(t, []string{"1. Acme - mostly sales", "2. Borealis - art focus"}, got.Ranking)
}

func TestManifest(t *testing.T) {
	results := []Result[string]{
		{Status: StatusSuccess}, {Status: StatusSuccess}, {Status: StatusNoContent},
		{Status: StatusSkippedVolume}, {Status: StatusCallError}, {Status: StatusParseError},
	}
	m := Summarize(results)
	assert.Equal(t, 6, m.Total)
	assert.Equal(t, 2, m.Succeeded)
	assert.Equal(t, 1, m.NoContent)
	assert.Equal(t, 1, m.SkippedVolume)
	assert.Equal(t, 2, m.Errored)

	var total Manifest
	total.Merge(m)
	total.Merge(m)
	assert.Equal(t, 12, total.Total)
	assert.Equal(t, 4, total.Errored)
}
