package highlight

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/studydesk/api/internal/models"
)

// fragment is one contiguous highlighted range found during extraction. An
// annotation whose text was split by intervening edits shows up as several
// fragments sharing an id.
type fragment struct {
	id       string
	category models.Category
	number   int
	pos      int // document-order position of the fragment start
	text     string
}

// legacyIDRe matches the older id encoding that combined category and
// sequence number in one string, e.g. "red-2". Legacy ids are recognized and
// preserved as-is, never rewritten to the new format.
var legacyIDRe = regexp.MustCompile(`^([a-z]+)-([0-9]+)$`)

// NewID generates a new-format highlight id.
func NewID() string {
	return "hl-" + uuid.NewString()
}

// ParseLegacyID extracts the category and sequence number from a legacy id.
func ParseLegacyID(id string) (models.Category, int, bool) {
	m := legacyIDRe.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return models.Category(m[1]), n, true
}

// mergeFragments groups fragments by id (first-seen order), sorts each
// group's ranges by position, and concatenates the covered text in position
// order. Category and number come from the first fragment that carries them;
// a legacy id supplies both when the fragments themselves do not.
func mergeFragments(frags []fragment) []models.Highlight {
	order := make([]string, 0)
	groups := make(map[string][]fragment)
	for _, f := range frags {
		if f.id == "" {
			continue
		}
		if _, ok := groups[f.id]; !ok {
			order = append(order, f.id)
		}
		groups[f.id] = append(groups[f.id], f)
	}

	out := make([]models.Highlight, 0, len(order))
	for _, id := range order {
		group := groups[id]
		sort.SliceStable(group, func(i, j int) bool { return group[i].pos < group[j].pos })

		h := models.Highlight{ID: id}
		text := ""
		for _, f := range group {
			text += f.text
			if h.Category == "" && f.category != "" {
				h.Category = f.category
			}
			if h.Number == 0 && f.number > 0 {
				h.Number = f.number
			}
		}
		h.Text = text

		if cat, n, ok := ParseLegacyID(id); ok {
			if h.Category == "" {
				h.Category = cat
			}
			if h.Number == 0 {
				h.Number = n
			}
		}
		out = append(out, h)
	}
	return out
}
