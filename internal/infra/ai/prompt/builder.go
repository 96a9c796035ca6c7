package prompt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

// Builder assembles prompts for every analysis kind. It is a pure function
// of its settings and the entity.
type Builder struct {
	Media annotation.Media
	// MaxChars caps each item's text before it is embedded.
	MaxChars int
	// CrossBrandChars caps snippets in cross-brand comparisons.
	CrossBrandChars int
	// TopK is the requested selection size; it is lowered to the group size.
	TopK int
	// Scale is the persona rating scale; zero uses AffinityScale.
	Scale annotation.Scale
}

// Build returns the first-stage prompt of kind for e.
func (b Builder) Build(kind annotation.Kind, e annotation.Entity) (annotation.Prompt, error) {
	switch kind {
	case annotation.KindArchetype:
		return b.Archetype(e), nil
	case annotation.KindCreativity:
		return b.Selection(e)
	case annotation.KindKeyAdvantages:
		return b.Advantages(e)
	case annotation.KindPillars:
		return b.Pillars(e), nil
	case annotation.KindAffinity:
		return b.Affinity(e)
	}
	return annotation.Prompt{}, fmt.Errorf("no prompt template for %q", kind)
}

// Clean normalizes and caps one item's text.
func (b Builder) Clean(s string) string {
	return annotation.Truncate(annotation.NormalizeText(s), b.MaxChars)
}

// K returns the selection size for a group of n items.
func (b Builder) K(n int) int {
	if b.TopK <= 0 || b.TopK > n {
		return n
	}
	return b.TopK
}

// tagged renders group items one per line as "[index] text".
func (b Builder) tagged(e annotation.Entity) string {
	var sb strings.Builder
	for _, it := range e.Items {
		sb.WriteString("[")
		sb.WriteString(strconv.Itoa(it.Index))
		sb.WriteString("] ")
		sb.WriteString(b.Clean(it.Text))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

type indexedItem struct {
	Idx    int      `json:"idx"`
	Weight *float64 `json:"reach"`
	Text   string   `json:"text"`
}

func (b Builder) indexed(e annotation.Entity) []indexedItem {
	out := make([]indexedItem, len(e.Items))
	for i, it := range e.Items {
		out[i] = indexedItem{Idx: it.Index, Weight: it.Weight, Text: b.Clean(it.Text)}
	}
	return out
}

func marshal(v any) (string, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode prompt payload: %w", err)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
