package prompt

import (
	"fmt"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

type advantagesItem struct {
	Index  int      `json:"index"`
	Text   string   `json:"text"`
	Weight *float64 `json:"reach"`
}

type advantagesPayload struct {
	Company string           `json:"company"`
	Items   []advantagesItem `json:"items"`
}

// Advantages asks for the recurring benefits communicated by one group.
func (b Builder) Advantages(e annotation.Entity) (annotation.Prompt, error) {
	p := ProfileFor(b.Media)
	items := make([]advantagesItem, len(e.Items))
	for i, it := range e.Items {
		items[i] = advantagesItem{Index: it.Index, Text: b.Clean(it.Text), Weight: it.Weight}
	}
	payload, err := marshal(advantagesPayload{Company: e.Brand, Items: items})
	if err != nil {
		return annotation.Prompt{}, err
	}

	system := fmt.Sprintf(`You are auditing %s. Output only valid JSON.
Each advantage must have: title (short, English), category, evidence[] and examples[] (each with %s and quote).
Categories: find the categories the %s use most often; every category needs AT LEAST 2 %s that relate to it directly.
Evidence: 2-3 sentences explaining the key advantage in this category.
Examples: never cite the same item twice; give the original quote followed by its English translation in brackets.`,
		p.Channel, p.IndexKey, p.Items, p.Items)

	user := fmt.Sprintf(`Extract 1-5 recurring benefits from the %s below. Use only explicit information.
The %s value is the index field of the cited item. Never use the same example twice.
JSON format: {"company": "...", "advantages": [{"title": "...", "category": "...", "evidence": ["..."], "examples": [{"%s": 0, "quote": "..."}]}]}

%s`, p.Items, p.IndexKey, p.IndexKey, payload)

	return annotation.Prompt{System: system, User: user}, nil
}
