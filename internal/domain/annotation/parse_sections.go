package annotation

import (
	"fmt"
	"strings"
)

type Subtopic struct {
	Name        string
	Description string
}

// Theme is one content pillar of a brand.
type Theme struct {
	Name        string
	Description string
	Share       string
	PostsCount  string
	Subtopics   []Subtopic
	Posts       []string
}

// ParseThemes reads THEME/DESCRIPTION/SHARE/POSTS_COUNT/SUBTOPICS/POSTS
// sections. A response without any THEME line is a parse error.
func ParseThemes(raw string) ([]Theme, error) {
	var (
		themes []Theme
		cur    *Theme
		block  string
	)
	flush := func() {
		if cur != nil {
			themes = append(themes, *cur)
		}
	}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*"))
		if line == "" {
			continue
		}
		switch {
		case hasField(line, "THEME"):
			flush()
			cur = &Theme{Name: fieldValue(line, "THEME")}
			block = ""
		case cur == nil:
			continue
		case hasField(line, "DESCRIPTION"):
			cur.Description = fieldValue(line, "DESCRIPTION")
		case hasField(line, "SHARE"):
			cur.Share = fieldValue(line, "SHARE")
		case hasField(line, "POSTS_COUNT"):
			cur.PostsCount = fieldValue(line, "POSTS_COUNT")
		case hasField(line, "SUBTOPICS"):
			block = "subtopics"
		case hasField(line, "POSTS"):
			block = "posts"
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "• "):
			content := strings.TrimSpace(strings.TrimLeft(line, "-• "))
			switch block {
			case "subtopics":
				if name, desc, ok := strings.Cut(content, ":"); ok {
					cur.Subtopics = append(cur.Subtopics, Subtopic{
						Name:        strings.Trim(strings.TrimSpace(name), "[]"),
						Description: strings.TrimSpace(desc),
					})
				}
			case "posts":
				cur.Posts = append(cur.Posts, unquote(content))
			}
		}
	}
	flush()
	if len(themes) == 0 {
		return []Theme{}, fmt.Errorf("%w: no THEME sections", ErrParse)
	}
	return themes, nil
}

// Genericity buckets themes across brands and ranks brands from most
// generic to most differentiated.
type Genericity struct {
	Buckets []BucketTheme
	Ranking []string
}

type BucketTheme struct {
	Bucket      string
	Theme       string
	Explanation string
}

// Genericity section headers in response order.
const (
	BucketGeneric        = "MOST GENERIC THEMES"
	BucketModerate       = "MODERATELY DIFFERENTIATED THEMES"
	BucketDifferentiated = "MOST DIFFERENTIATED THEMES"
	SectionRanking       = "COMPANY DIFFERENTIATION RANKING"
)

var genericitySections = []string{BucketGeneric, BucketModerate, BucketDifferentiated, SectionRanking}

// ParseGenericity reads the bucketed theme comparison. Theme lines are
// "THEME: name - explanation"; ranking lines are numbered.
func ParseGenericity(raw string) (Genericity, error) {
	out := Genericity{Buckets: []BucketTheme{}, Ranking: []string{}}
	section := ""
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*#"))
		if line == "" {
			continue
		}
		if s, ok := sectionHeader(line); ok {
			section = s
			continue
		}
		switch {
		case section == "":
			continue
		case section == SectionRanking:
			if isNumbered(line) {
				out.Ranking = append(out.Ranking, line)
			}
		case hasField(line, "THEME"):
			info := fieldValue(line, "THEME")
			name, expl, ok := strings.Cut(info, " - ")
			if !ok {
				continue
			}
			out.Buckets = append(out.Buckets, BucketTheme{
				Bucket:      section,
				Theme:       strings.TrimSpace(name),
				Explanation: strings.TrimSpace(expl),
			})
		}
	}
	if len(out.Buckets) == 0 && len(out.Ranking) == 0 {
		return out, fmt.Errorf("%w: no genericity sections", ErrParse)
	}
	return out, nil
}

func sectionHeader(line string) (string, bool) {
	upper := strings.ToUpper(line)
	for _, s := range genericitySections {
		if strings.HasPrefix(upper, s) {
			return s, true
		}
	}
	return "", false
}

func isNumbered(line string) bool {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i > 0 && i < len(line) && line[i] == '.'
}

func hasField(line, name string) bool {
	return strings.HasPrefix(strings.ToUpper(line), name+":")
}

func fieldValue(line, name string) string {
	return strings.TrimSpace(line[len(name)+1:])
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	if strings.HasPrefix(s, "“") && strings.HasSuffix(s, "”") {
		return strings.TrimSuffix(strings.TrimPrefix(s, "“"), "”")
	}
	return s
}
