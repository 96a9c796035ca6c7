package prompt

import (
	"fmt"
	"strings"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

// Selection asks for the K most original items of one group.
func (b Builder) Selection(e annotation.Entity) (annotation.Prompt, error) {
	p := ProfileFor(b.Media)
	k := b.K(e.Volume())

	payload, err := marshal(b.indexed(e))
	if err != nil {
		return annotation.Prompt{}, err
	}

	lines := []string{
		fmt.Sprintf("Task: from the following %s (one %s only), choose the %d most ORIGINAL %s relative to the others in this set.", p.Items, p.Owner, k, p.Items),
		"Originality means a novel angle, unexpected framing, a fresh creative device or a distinct voice compared with typical " + p.Channel + " and with the rest of this set.",
		"Rules:",
		"- Judge only originality and creativity, never performance, reach or engagement.",
		"- If several items share one idea, pick at most the strongest one.",
		"- Prefer a diverse set of creative ideas.",
		"- Indices must be the idx values given in the list.",
	}
	if p.Relevance != "" {
		lines = append(lines, "- "+p.Relevance)
	}
	lines = append(lines,
		"",
		"Return strict JSON only (no markdown) with these keys:",
		"- selected_topk: array of integers (idx of the chosen items)",
		"- selected_details: array of objects with idx (int), originality_reason (string), optional short_title (string) and themes (array of strings)",
		"- notes_overall: optional string",
		"",
		fmt.Sprintf("%s (JSON array):", capitalize(p.Items)),
		payload,
	)

	system := fmt.Sprintf("You are a creativity analyst. Given a set of %s from one %s, pick the %s that are most original relative to the rest of that set.", p.Items, p.Owner, p.Items)
	return annotation.Prompt{System: system, User: strings.Join(lines, "\n")}, nil
}

// Snippet is one selected item as shown in the cross-brand comparison.
type Snippet struct {
	Text   string   `json:"text"`
	Themes []string `json:"themes"`
}

// BrandSelection is one brand's entry in the cross-brand payload.
type BrandSelection struct {
	Brand    string    `json:"brand"`
	Selected []Snippet `json:"selected_items"`
}

// Snippets turns a selection into comparison snippets. Details are
// preferred; without them the selected item texts are used.
func (b Builder) Snippets(e annotation.Entity, sel annotation.Selection) []Snippet {
	out := []Snippet{}
	if len(sel.Details) > 0 {
		for _, d := range sel.Details {
			themes := d.Themes
			if themes == nil {
				themes = []string{}
			}
			text := annotation.NormalizeText(d.ShortTitle + " -- " + d.OriginalityReason)
			out = append(out, Snippet{Text: annotation.Truncate(text, b.CrossBrandChars), Themes: themes})
		}
		return out
	}
	for _, idx := range sel.Indices {
		for _, it := range e.Items {
			if it.Index == idx {
				out = append(out, Snippet{Text: annotation.Truncate(annotation.NormalizeText(it.Text), b.CrossBrandChars), Themes: []string{}})
			}
		}
	}
	return out
}

// CrossBrand asks for a ranking of brands by the originality of their
// already selected items.
func (b Builder) CrossBrand(payload []BrandSelection) (annotation.Prompt, error) {
	p := ProfileFor(b.Media)
	body, err := marshal(payload)
	if err != nil {
		return annotation.Prompt{}, err
	}
	user := strings.Join([]string{
		fmt.Sprintf("You are given several %s, each with its top selected %s (already filtered for originality within the %s).", p.Owners, p.Items, p.Owner),
		fmt.Sprintf("Rank the %s by overall originality compared to each other, considering:", p.Owners),
		"- depth of originality across the set",
		"- diversity of creative ideas",
		"- boldness and novelty against category norms, judged on the text alone",
		"For each brand include two or three short example snippets (at most 100 characters each) that illustrate the originality you describe. Escape every string properly.",
		"Return strict JSON only (no markdown) with the key rankings: an array of objects with",
		"- brand (string)",
		"- rank (int, 1 is most original)",
		"- originality_score (0-10, decimals allowed)",
		"- justification (2-3 sentences)",
		"- examples (array of strings)",
		"",
		"Brands (JSON array):",
		body,
	}, "\n")
	system := "You compare creativity across brands using their already selected top items and rank brands by the originality of those items relative to each other."
	return annotation.Prompt{System: system, User: user}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
