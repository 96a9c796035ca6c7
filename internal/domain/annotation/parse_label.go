package annotation

import (
	"fmt"
	"strings"
)

// Terminal labels written into label columns for non-success results.
const (
	LabelNoContent  = "No Content"
	LabelParseError = "Parsing Error"
	LabelCallError  = "Error"
)

// ParseLabel scans raw line by line for marker and returns the value after
// it from the first matching line. Surrounding brackets, quotes and
// markdown are dropped so "Top Archetype: [The Mentor]" yields "The Mentor".
func ParseLabel(raw, marker string) (string, error) {
	want := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(marker), ":"))
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "*#> \t"))
		lower := strings.ToLower(line)
		i := strings.Index(lower, want)
		if i < 0 {
			continue
		}
		rest := line[i+len(want):]
		colon := strings.Index(rest, ":")
		if colon < 0 {
			continue
		}
		label := cleanLabel(rest[colon+1:])
		if label == "" {
			continue
		}
		return label, nil
	}
	return "", fmt.Errorf("%w: marker %q not found", ErrParse, marker)
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "[]\"'*`. ")
	return strings.TrimSpace(s)
}

// LabelFor returns the label column value for a label result.
func LabelFor(r Result[string]) string {
	switch r.Status {
	case StatusSuccess:
		return r.Payload
	case StatusNoContent:
		return LabelNoContent
	case StatusParseError, StatusValidationError:
		return LabelParseError
	default:
		return LabelCallError
	}
}
