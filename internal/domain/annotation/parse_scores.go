package annotation

import (
	"fmt"
	"strconv"
	"strings"
)

// Dimension is one scored label of a line-oriented scoring response.
type Dimension struct {
	Column  string
	Aliases []string
}

// Scale bounds a score response and names the value used for missing labels.
type Scale struct {
	Min, Max, Neutral int
}

// Scores holds one value per dimension column plus the columns that had to
// be filled with the neutral value.
type Scores struct {
	Values map[string]int
	Filled []string
}

// NeutralScores returns scores with every dimension at the neutral value.
func NeutralScores(dims []Dimension, sc Scale) Scores {
	s := Scores{Values: make(map[string]int, len(dims))}
	for _, d := range dims {
		s.Values[d.Column] = sc.Neutral
		s.Filled = append(s.Filled, d.Column)
	}
	return s
}

// ParseScores reads one score per dimension. The first line mentioning any
// alias of a dimension and carrying a standalone in-range integer wins, so
// an echoed scale such as "(1-7)" is never read as the score. Missing
// dimensions get the neutral value; when no dimension is found at all the
// neutral payload is returned with ErrParse.
func ParseScores(raw string, dims []Dimension, sc Scale) (Scores, error) {
	out := Scores{Values: make(map[string]int, len(dims))}
	lines := strings.Split(raw, "\n")
	for _, d := range dims {
		if v, ok := findScore(lines, d, sc); ok {
			out.Values[d.Column] = v
		}
	}
	found := len(out.Values)
	for _, d := range dims {
		if _, ok := out.Values[d.Column]; !ok {
			out.Values[d.Column] = sc.Neutral
			out.Filled = append(out.Filled, d.Column)
		}
	}
	if found == 0 && len(dims) > 0 {
		return out, fmt.Errorf("%w: no score labels found", ErrParse)
	}
	return out, nil
}

func findScore(lines []string, d Dimension, sc Scale) (int, bool) {
	for _, line := range lines {
		norm := normalizeQuotes(strings.ToLower(line))
		for _, alias := range d.Aliases {
			a := normalizeQuotes(strings.ToLower(alias))
			i := strings.Index(norm, a)
			if i < 0 {
				continue
			}
			if v, ok := firstInRange(norm[i+len(a):], sc); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func firstInRange(s string, sc Scale) (int, bool) {
	for _, field := range strings.Fields(s) {
		tok := strings.Trim(field, "*.,;")
		if !isDigits(tok) {
			continue
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		if v >= sc.Min && v <= sc.Max {
			return v, true
		}
	}
	return 0, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var quoteReplacer = strings.NewReplacer("’", "'", "‘", "'", "–", "-", "—", "-")

func normalizeQuotes(s string) string { return quoteReplacer.Replace(s) }
