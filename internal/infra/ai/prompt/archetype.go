package prompt

import (
	"fmt"
	"strings"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

// ArchetypeMarker prefixes the label line of an archetype answer.
const ArchetypeMarker = "Top Archetype:"

// Archetype is one positioning archetype and the traits that signal it.
type Archetype struct {
	Name   string
	Traits string
}

var Archetypes = []Archetype{
	{"The Futurist", "innovative, disruptive, pioneering, visionary"},
	{"The Eco Warrior", "ecological, sustainable, environmental, renewable"},
	{"The Technologist", "technological, automated, smart, integrated"},
	{"The Mentor", "guiding, insightful, informative, supportive"},
	{"The Collaborator", "community, collaborative, teamwork, partner"},
	{"The People's Champion", "democratic, inclusive, empowering, friendly"},
	{"The Nurturer", "caring, understanding, nurturing, encouraging"},
	{"The Simplifier", "simple, easy, simplifying, effortless"},
	{"The Expert", "intelligent, expert, specialized, scientific"},
	{"The Value-Seeker", "cost-effective, affordable, economical, low-cost"},
	{"The Personalizer", "adaptive, tailored, personalized, customized"},
	{"The Accelerator", "agile, instant, fast, enabling"},
	{"The Guardian", "safe, secure, dependable, encrypted"},
	{"The Principled", "honest, transparent, fair, responsible"},
	{"The Jet-Setter", "global, international, largest, leading"},
	{"The Optimizer", "efficient, optimized, streamlined, frictionless"},
}

// ArchetypeSystem is the classification instruction for one media type.
func ArchetypeSystem(m annotation.Media) string {
	p := ProfileFor(m)
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a senior public relations and brand communication expert studying how a %s positions itself through its %s.\n", p.Owner, p.Items)
	sb.WriteString("Assign the single best-fitting archetype to the content you receive, using this framework:\n\n")
	for i, a := range Archetypes {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, a.Name, a.Traits)
	}
	sb.WriteString("\nAlways answer in exactly this format:\n\n")
	sb.WriteString(ArchetypeMarker + " [Top Archetype]\n")
	return sb.String()
}

// Archetype builds the prompt for one content item.
func (b Builder) Archetype(e annotation.Entity) annotation.Prompt {
	return annotation.Prompt{System: ArchetypeSystem(b.Media), User: b.Clean(e.Text())}
}
