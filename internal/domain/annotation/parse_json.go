package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Repair turns a raw response that failed strict decoding into a candidate
// that may decode. ok is false when the strategy does not apply.
type Repair func(raw string, decodeErr error) (candidate string, ok bool)

// RepairChain is tried in order after strict decoding fails.
var RepairChain = []Repair{TruncateUnterminated, OuterBraces}

// DecodeJSON decodes raw into a JSON object, falling back through the
// repair chain. The returned map is never nil.
func DecodeJSON(raw string) (map[string]any, error) {
	return DecodeJSONWith(raw, RepairChain)
}

// DecodeJSONWith is DecodeJSON with a caller-supplied repair chain.
func DecodeJSONWith(raw string, chain []Repair) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	obj, err := decodeObject(raw)
	if err == nil {
		return obj, nil
	}
	first := err
	for _, repair := range chain {
		candidate, ok := repair(raw, first)
		if !ok {
			continue
		}
		if obj, err := decodeObject(candidate); err == nil {
			return obj, nil
		}
	}
	return map[string]any{}, fmt.Errorf("%w: %v", ErrParse, first)
}

func decodeObject(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("json value is not an object")
	}
	return obj, nil
}

// TruncateUnterminated applies when decoding stopped inside an open string
// literal. The text is cut at the last closing brace before the error
// offset; containers still open at the cut are closed.
func TruncateUnterminated(raw string, decodeErr error) (string, bool) {
	var syn *json.SyntaxError
	if !errors.As(decodeErr, &syn) || raw == "" {
		return "", false
	}
	offset := int(syn.Offset)
	if offset <= 0 || offset > len(raw) {
		offset = len(raw)
	}
	if !insideString(raw[:offset]) && !insideString(raw[:offset-1]) {
		return "", false
	}
	cut := strings.LastIndex(raw[:offset], "}")
	if cut < 0 {
		return "", false
	}
	head := raw[:cut+1]
	if start := strings.Index(head, "{"); start > 0 {
		head = head[start:]
	}
	if json.Valid([]byte(head)) {
		return head, true
	}
	return closeContainers(head), true
}

// OuterBraces keeps the text between the first '{' and the last '}'.
func OuterBraces(raw string, _ error) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// insideString reports whether s ends inside an open JSON string literal.
func insideString(s string) bool {
	in, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case esc:
			esc = false
		case c == '\\' && in:
			esc = true
		case c == '"':
			in = !in
		}
	}
	return in
}

// closeContainers appends the closers for every object or array left open
// in s. s must not end inside a string.
func closeContainers(s string) string {
	var stack []byte
	in, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if in {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				in = false
			}
			continue
		}
		switch c {
		case '"':
			in = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if in {
		return s
	}
	var b strings.Builder
	b.WriteString(s)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
