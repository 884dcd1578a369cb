package models

// Category identifies one of the fixed highlight color categories.
type Category string

const (
	CategoryRed    Category = "red"
	CategoryYellow Category = "yellow"
	CategoryGreen  Category = "green"
	CategoryBlue   Category = "blue"
)

// CategoryConfig maps each valid category to its display color. It is built
// once by the caller and threaded explicitly into the highlight engine; there
// is no ambient category registry.
type CategoryConfig map[Category]string

// DefaultCategories returns the standard four-category palette.
func DefaultCategories() CategoryConfig {
	return CategoryConfig{
		CategoryRed:    "#ef4444",
		CategoryYellow: "#eab308",
		CategoryGreen:  "#22c55e",
		CategoryBlue:   "#3b82f6",
	}
}

// Valid reports whether c is a known category in this configuration.
func (cc CategoryConfig) Valid(c Category) bool {
	_, ok := cc[c]
	return ok
}

// Highlight is one user annotation over note content. The note's serialized
// markup is authoritative for Text, Category and Number; Commentary and
// IsExpanded live only in the note's sidecar and are merged in on load.
type Highlight struct {
	ID         string   `json:"id"`
	Category   Category `json:"category"`
	Number     int      `json:"number"` // contiguous 1..K within the category
	Text       string   `json:"text"`
	Commentary string   `json:"commentary,omitempty"`
	IsExpanded bool     `json:"is_expanded,omitempty"`
}

// HighlightSidecar carries the user-authored highlight fields persisted next
// to a note's content. Text, category and number are never trusted from here.
type HighlightSidecar struct {
	ID         string `json:"id"`
	Commentary string `json:"commentary,omitempty"`
	IsExpanded bool   `json:"is_expanded,omitempty"`
}
