package annotation

import "strings"

// Item is one content item. Index is the source row index for single
// entities and the local position inside a group.
type Item struct {
	Index  int
	Row    int
	Text   string
	Weight *float64
}

// Entity is one unit submitted for annotation: either a single content item
// or a brand group with its ordered items.
type Entity struct {
	// Seq is the caller-assigned ordinal used to restore order after dispatch.
	Seq   int
	Key   string
	Brand string
	Group bool
	// Variant selects a template variant, such as a persona, for the same items.
	Variant string
	Items   []Item
}

func (e Entity) IsGroup() bool { return e.Group }

// Volume is the number of items carried by the entity.
func (e Entity) Volume() int { return len(e.Items) }

// Text returns the text of a single-item entity.
func (e Entity) Text() string {
	if len(e.Items) == 0 {
		return ""
	}
	return e.Items[0].Text
}

// Empty reports whether the entity has nothing usable to annotate.
func (e Entity) Empty() bool {
	for _, it := range e.Items {
		if !IsBlank(it.Text) {
			return false
		}
	}
	return true
}

// IsBlank treats whitespace and spreadsheet null placeholders as no text.
func IsBlank(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return true
	}
	switch strings.ToLower(t) {
	case "nan", "null", "none", "n/a", "#n/a":
		return true
	}
	return false
}

// Prompt is the system instruction and user payload built once per entity.
type Prompt struct {
	System string
	User   string
}
