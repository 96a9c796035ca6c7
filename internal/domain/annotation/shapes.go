package annotation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// SelectionDetail explains why one item was selected.
type SelectionDetail struct {
	Idx               int      `json:"idx"`
	OriginalityReason string   `json:"originality_reason"`
	ShortTitle        string   `json:"short_title"`
	Themes            []string `json:"themes"`
}

// Selection is a within-group top-K pick of item indices.
type Selection struct {
	Indices []int             `json:"selected_topk"`
	Details []SelectionDetail `json:"selected_details"`
	Notes   string            `json:"notes_overall"`
}

// Example cites one item of a group. Index is -1 when the answer gave none.
type Example struct {
	Index int    `json:"index"`
	Quote string `json:"quote"`
}

type Advantage struct {
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Evidence []string  `json:"evidence"`
	Examples []Example `json:"examples"`
}

type Advantages struct {
	Company string      `json:"company"`
	Items   []Advantage `json:"advantages"`
}

// Ranking is one brand's place in a cross-brand comparison.
type Ranking struct {
	Brand         string   `json:"brand"`
	Rank          int      `json:"rank"`
	Score         float64  `json:"originality_score"`
	Justification string   `json:"justification"`
	Examples      []string `json:"examples"`
}

// ParseSelection decodes a top-K selection over n items. Indices are cast
// to int, dropped when outside [0,n), de-duplicated in first-seen order and
// capped at k.
func ParseSelection(raw string, n, k int) (Selection, error) {
	empty := Selection{Indices: []int{}, Details: []SelectionDetail{}}
	obj, err := DecodeJSON(raw)
	if err != nil {
		return empty, err
	}
	list, ok := obj["selected_topk"].([]any)
	if !ok {
		return empty, fmt.Errorf("%w: selected_topk is not an array", ErrValidation)
	}
	sel := empty
	seen := map[int]bool{}
	for _, v := range list {
		idx, ok := toIndex(v)
		if !ok || idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		sel.Indices = append(sel.Indices, idx)
		if len(sel.Indices) == k {
			break
		}
	}
	if details, ok := obj["selected_details"].([]any); ok {
		for _, d := range details {
			var det SelectionDetail
			if decodeWeak(d, &det) == nil {
				sel.Details = append(sel.Details, det)
			}
		}
	}
	sel.Notes = stringValue(obj["notes_overall"])
	return sel, nil
}

// indexKeys are accepted, in order, as the item reference of an example.
var indexKeys = []string{"ad_index", "article_index", "post_index", "index", "idx"}

// ParseAdvantages decodes an advantages extraction. The advantages key must
// hold an array; malformed entries inside it are skipped.
func ParseAdvantages(raw string) (Advantages, error) {
	empty := Advantages{Items: []Advantage{}}
	obj, err := DecodeJSON(raw)
	if err != nil {
		return empty, err
	}
	list, ok := obj["advantages"].([]any)
	if !ok {
		return empty, fmt.Errorf("%w: advantages is not an array", ErrValidation)
	}
	out := empty
	out.Company = stringValue(obj["company"])
	for _, v := range list {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		adv := Advantage{
			Title:    stringValue(m["title"]),
			Category: stringValue(m["category"]),
			Evidence: stringList(m["evidence"]),
		}
		if exs, ok := m["examples"].([]any); ok {
			for _, e := range exs {
				em, ok := e.(map[string]any)
				if !ok {
					continue
				}
				ex := Example{Index: -1, Quote: stringValue(em["quote"])}
				for _, key := range indexKeys {
					if idx, ok := toIndex(em[key]); ok {
						ex.Index = idx
						break
					}
				}
				adv.Examples = append(adv.Examples, ex)
			}
		}
		out.Items = append(out.Items, adv)
	}
	return out, nil
}

var rankingRequired = []string{"brand", "rank", "originality_score", "justification"}

// ParseRankings decodes a cross-brand ranking. Every entry must carry the
// brand, rank, score and justification fields. A null value counts as
// missing, as does a blank brand, rank or score.
func ParseRankings(raw string) ([]Ranking, error) {
	obj, err := DecodeJSON(raw)
	if err != nil {
		return []Ranking{}, err
	}
	list, ok := obj["rankings"].([]any)
	if !ok || len(list) == 0 {
		return []Ranking{}, fmt.Errorf("%w: rankings missing or empty", ErrValidation)
	}
	out := make([]Ranking, 0, len(list))
	for i, v := range list {
		m, ok := v.(map[string]any)
		if !ok {
			return []Ranking{}, fmt.Errorf("%w: ranking %d is not an object", ErrValidation, i)
		}
		for _, key := range rankingRequired {
			if !present(m, key) {
				return []Ranking{}, fmt.Errorf("%w: ranking %d missing %s", ErrValidation, i, key)
			}
		}
		var r Ranking
		if err := decodeWeak(m, &r); err != nil {
			return []Ranking{}, fmt.Errorf("%w: ranking %d: %v", ErrValidation, i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func present(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	if str, isStr := v.(string); isStr && key != "justification" {
		return strings.TrimSpace(str) != ""
	}
	return true
}

func decodeWeak(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

func toIndex(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case int:
		return t, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s := stringValue(x); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}
