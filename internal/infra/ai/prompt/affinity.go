package prompt

import (
	"fmt"
	"strings"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

// Criterion is one scored dimension of a persona.
type Criterion struct {
	Column   string
	Label    string
	Question string
	Aliases  []string
}

// Persona is an audience segment scored on three criteria.
type Persona struct {
	Name     string
	Audience string
	Criteria []Criterion
}

// Dimensions returns the parser dimensions of the persona. The label itself
// is always the first alias.
func (p Persona) Dimensions() []annotation.Dimension {
	out := make([]annotation.Dimension, len(p.Criteria))
	for i, c := range p.Criteria {
		out[i] = annotation.Dimension{Column: c.Column, Aliases: append([]string{c.Label}, c.Aliases...)}
	}
	return out
}

// Columns lists the score columns of the persona in order.
func (p Persona) Columns() []string {
	out := make([]string, len(p.Criteria))
	for i, c := range p.Criteria {
		out[i] = c.Column
	}
	return out
}

var Personas = []Persona{
	{
		Name:     "Families & Household Shoppers",
		Audience: "parents, caregivers and people shopping for a household",
		Criteria: []Criterion{
			{"Family_Kids_Products", "Kids' Products Relevance", "Does it feature toys, clothing, food or other products made for children?", []string{"Kids Products", "Products Relevance"}},
			{"Family_Kids_Events", "Kids' Events & Activities", "Does it promote events, workshops or entertainment for children or families?", []string{"Kids Events", "Events Activities"}},
			{"Family_Household_Discounts", "Household Savings & Discounts", "Does it highlight discounts, bundles or savings aimed at household shopping?", []string{"Household Discounts", "Savings Discounts"}},
		},
	},
	{
		Name:     "Young Adults – Tech & Fashion",
		Audience: "students, young professionals and early-career adults",
		Criteria: []Criterion{
			{"Young_Tech_Gaming", "Technology & Gaming Relevance", "Does it feature electronics, gaming or other digital lifestyle products?", []string{"Technology Gaming", "Gaming Relevance"}},
			{"Young_Fashion_Style", "Fashion & Style for Young Adults", "Does it highlight clothing, footwear or accessories for a youthful, trend-aware audience?", []string{"Fashion Style", "Style Young Adults"}},
			{"Young_Social_Events", "Social & Youth-Oriented Events", "Does it promote live music, launches or gatherings for young adults?", []string{"Social Events", "Youth Events"}},
		},
	},
	{
		Name:     "Store Owners & Business Partners",
		Audience: "current or potential tenants and brand partners",
		Criteria: []Criterion{
			{"Store_Business_Growth", "Business Growth Opportunities", "Does it show how the venue drives traffic, supports campaigns or widens customer reach?", []string{"Business Growth", "Growth Opportunities"}},
			{"Store_Partnership_CoMarketing", "Partnership & Co-Marketing Potential", "Does it highlight joint promotions, cross-store events or shared advertising?", []string{"Partnership Marketing", "Co-Marketing"}},
			{"Store_Market_Insights", "Market Insights & Strategic Positioning", "Does it offer information on customer trends, competitive positioning or investment value?", []string{"Market Insights", "Strategic Positioning"}},
		},
	},
	{
		Name:     "Shopping Experience & Mall Environment",
		Audience: "visitors who care about comfort, accessibility and atmosphere",
		Criteria: []Criterion{
			{"Experience_Accessibility_Comfort", "Accessibility & Comfort", "Does it emphasise parking, navigation, seating or family services such as lifts and rest areas?", []string{"Accessibility Comfort", "Comfort"}},
			{"Experience_Ambience_Design", "Ambience & Design Quality", "Does it convey a pleasant, clean or distinctive atmosphere?", []string{"Ambience Design", "Design Quality"}},
			{"Experience_Mallwide_Events", "Mall-Wide Events & Services", "Does it highlight seasonal festivals, centre-wide promotions or service improvements?", []string{"Mallwide Events", "Events Services"}},
		},
	},
}

// PersonaByName finds a persona; ok is false for unknown names.
func PersonaByName(name string) (Persona, bool) {
	for _, p := range Personas {
		if p.Name == name {
			return p, true
		}
	}
	return Persona{}, false
}

// PersonaNames lists persona names in order.
func PersonaNames() []string {
	out := make([]string, len(Personas))
	for i, p := range Personas {
		out[i] = p.Name
	}
	return out
}

// AffinitySystem is the scoring instruction for one persona.
func AffinitySystem(m annotation.Media, p Persona, sc annotation.Scale) string {
	prof := ProfileFor(m)
	var sb strings.Builder
	fmt.Fprintf(&sb, "You will receive one item of %s. Read it from the perspective of %s (%s).\n\n", prof.Channel, p.Name, p.Audience)
	fmt.Fprintf(&sb, "Score each of the following points from %d to %d, where %d means the item is not relevant to this audience and %d means it is strongly relevant.\n\n", sc.Min, sc.Max, sc.Min, sc.Max)
	for i, c := range p.Criteria {
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, c.Label, c.Question)
	}
	sb.WriteString("\nRespond ONLY in the following format:\n")
	for _, c := range p.Criteria {
		fmt.Fprintf(&sb, "%s: [score]\n", c.Label)
	}
	return sb.String()
}

// AffinityScale is the rating scale personas are scored on.
var AffinityScale = annotation.Scale{Min: 1, Max: 7, Neutral: 4}

// Affinity builds the persona scoring prompt for a single item entity. The
// persona is selected by the entity variant.
func (b Builder) Affinity(e annotation.Entity) (annotation.Prompt, error) {
	p, ok := PersonaByName(e.Variant)
	if !ok {
		return annotation.Prompt{}, fmt.Errorf("unknown persona %q", e.Variant)
	}
	return annotation.Prompt{System: AffinitySystem(b.Media, p, b.scale()), User: b.Clean(e.Text())}, nil
}

// AffinitySummarySystem asks for a short narrative over aggregated scores.
const AffinitySummarySystem = `Analyze the audience affinity results below and give concise, actionable insights on:
1. which brands perform best for each audience segment, based on the high-score percentages
2. key patterns across segments
3. specific recommendations for improvement

The numbers are the share of items scored in the top box for each audience dimension.`

func (b Builder) scale() annotation.Scale {
	if b.Scale.Max == 0 {
		return AffinityScale
	}
	return b.Scale
}
