package prompt

import (
	"fmt"
	"strings"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

// maxThemes bounds the theme count by the number of items analysed.
func maxThemes(n int) string {
	switch {
	case n <= 10:
		return "2-3"
	case n <= 20:
		return "3-4"
	default:
		return "4-5"
	}
}

// Pillars asks for the main content themes of one group. Items are tagged
// with their local index.
func (b Builder) Pillars(e annotation.Entity) annotation.Prompt {
	p := ProfileFor(b.Media)
	system := fmt.Sprintf(`You are performing a topical analysis of %s.
Always respond in English, but keep quoted examples in their original language.

Classify the content into main themes. Be conservative: only create themes that are truly distinct and meaningful.
There are %d items, so create at most %s themes.

For each theme give a clear name, a brief description, its share of the content, the number of items in it,
2-3 subtopics and 2-3 exact quotes from the items.

Format your response EXACTLY as follows, repeating the block for every theme:

THEME: [Theme Name]
DESCRIPTION: [Brief description]
SHARE: [Percentage of content]%%
POSTS_COUNT: [Number of items]
SUBTOPICS:
- [Subtopic]: [Description]
POSTS:
- "[Exact quote]"`, p.Channel, e.Volume(), maxThemes(e.Volume()))
	return annotation.Prompt{System: system, User: b.tagged(e)}
}

// GenericitySystem instructs the cross-brand theme comparison.
const GenericitySystem = `You are a senior content strategist comparing content pillar structures across companies.

1. Group the themes into three buckets:
   - MOST GENERIC THEMES (appear in nearly all companies)
   - MODERATELY DIFFERENTIATED THEMES (appear in some companies)
   - MOST DIFFERENTIATED THEMES (unique or nearly unique to one company)
2. Explain each theme briefly.
3. Rank the companies from most generic to most differentiated.

Format your response as:

MOST GENERIC THEMES:
THEME: [Theme Name] - [Why it is generic]

MODERATELY DIFFERENTIATED THEMES:
THEME: [Theme Name] - [Explanation]

MOST DIFFERENTIATED THEMES:
THEME: [Theme Name] - [What makes it unique]

COMPANY DIFFERENTIATION RANKING:
1. [Company Name] - [Explanation]`

// BrandThemes pairs a brand with its parsed themes.
type BrandThemes struct {
	Brand  string
	Themes []annotation.Theme
}

// Genericity builds the comparison prompt over every brand's themes.
func (b Builder) Genericity(brands []BrandThemes) annotation.Prompt {
	var sb strings.Builder
	for _, bt := range brands {
		fmt.Fprintf(&sb, "Company: %s\n", bt.Brand)
		for _, t := range bt.Themes {
			fmt.Fprintf(&sb, "THEME: %s\n", t.Name)
			for _, s := range t.Subtopics {
				fmt.Fprintf(&sb, "  SUBTOPIC: %s - %s\n", s.Name, s.Description)
			}
			for _, post := range t.Posts {
				fmt.Fprintf(&sb, "  EXAMPLE: %s\n", annotation.Truncate(annotation.NormalizeText(post), b.CrossBrandChars))
			}
		}
		sb.WriteString("\n")
	}
	return annotation.Prompt{System: GenericitySystem, User: strings.TrimRight(sb.String(), "\n")}
}
