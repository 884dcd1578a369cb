package highlight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/studydesk/api/internal/models"
)

// ResequencePlan computes the old->new number mapping that compacts a
// category's numbers to a contiguous 1..K, preserving relative order. It is
// pure; applying the plan to the in-memory set, the markup, or a detached
// rendering layer is the caller's side of the contract.
func ResequencePlan(highlights []models.Highlight, category models.Category) map[int]int {
	var numbers []int
	for _, h := range highlights {
		if h.Category == category {
			numbers = append(numbers, h.Number)
		}
	}
	sort.Ints(numbers)
	plan := make(map[int]int, len(numbers))
	for i, n := range numbers {
		plan[n] = i + 1
	}
	return plan
}

func applyPlan(highlights []models.Highlight, category models.Category, plan map[int]int) {
	for i := range highlights {
		if highlights[i].Category != category {
			continue
		}
		if n, ok := plan[highlights[i].Number]; ok {
			highlights[i].Number = n
		}
	}
}

// Set is a caller-owned working set of highlights. The engine mutates it only
// through these operations; ids are permanent and never renumbered, display
// numbers are kept contiguous per category.
type Set struct {
	categories models.CategoryConfig
	items      []models.Highlight
}

// NewSet wraps an existing highlight list (typically the output of Restore).
func NewSet(categories models.CategoryConfig, items []models.Highlight) *Set {
	return &Set{categories: categories, items: items}
}

// Items returns the current highlights in working-set order.
func (s *Set) Items() []models.Highlight {
	return s.items
}

// NumbersByID returns the current id->number assignment, the shape consumed
// by ApplyNumbers when pushing a resequence into serialized content.
func (s *Set) NumbersByID() map[string]int {
	out := make(map[string]int, len(s.items))
	for _, h := range s.items {
		out[h.ID] = h.Number
	}
	return out
}

// Add allocates the next display number in the category and appends a
// highlight with a new-format id. Resequencing elsewhere guarantees no
// permanent gaps, so max+1 is the next free number.
func (s *Set) Add(category models.Category, text string) (models.Highlight, error) {
	if !s.categories.Valid(category) {
		return models.Highlight{}, fmt.Errorf("unknown highlight category %q", category)
	}
	max := 0
	for _, h := range s.items {
		if h.Category == category && h.Number > max {
			max = h.Number
		}
	}
	h := models.Highlight{
		ID:       NewID(),
		Category: category,
		Number:   max + 1,
		Text:     text,
	}
	s.items = append(s.items, h)
	return h, nil
}

// Remove deletes the highlight with the exact id and resequences its
// category. An unknown id is a no-op, not an error.
func (s *Set) Remove(id string) (removed *models.Highlight, plans map[models.Category]map[int]int) {
	idx := -1
	for i, h := range s.items {
		if h.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}
	h := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	plan := s.Resequence(h.Category)
	return &h, map[models.Category]map[int]int{h.Category: plan}
}

// RemoveByText deletes every highlight whose text loosely matches matchText:
// equal to, containing, or contained by it, case-insensitive and
// whitespace-trimmed. The looseness is a deliberate heuristic that tolerates
// minor re-serialization drift of the underlying markup; exact=true narrows
// it to equality for callers that want precise semantics. Every touched
// category is resequenced.
func (s *Set) RemoveByText(matchText string, exact bool) (removed []models.Highlight, plans map[models.Category]map[int]int) {
	needle := strings.ToLower(strings.TrimSpace(matchText))
	if needle == "" {
		return nil, nil
	}

	var kept []models.Highlight
	for _, h := range s.items {
		if textMatches(h.Text, needle, exact) {
			removed = append(removed, h)
		} else {
			kept = append(kept, h)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	s.items = kept

	plans = make(map[models.Category]map[int]int)
	for _, h := range removed {
		if _, done := plans[h.Category]; !done {
			plans[h.Category] = s.Resequence(h.Category)
		}
	}
	return removed, plans
}

func textMatches(text, needle string, exact bool) bool {
	hay := strings.ToLower(strings.TrimSpace(text))
	if exact {
		return hay == needle
	}
	return hay == needle || strings.Contains(hay, needle) || strings.Contains(needle, hay)
}

// Resequence compacts the category's numbers to 1..K in place and returns the
// old->new plan for the caller to apply to its rendering layer.
func (s *Set) Resequence(category models.Category) map[int]int {
	plan := ResequencePlan(s.items, category)
	applyPlan(s.items, category, plan)
	return plan
}
