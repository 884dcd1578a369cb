package highlight

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/studydesk/api/internal/models"
)

func TestWrapFirstFlatMarkup(t *testing.T) {
	t.Parallel()

	h := models.Highlight{ID: "hl-new", Category: models.CategoryYellow, Number: 1, Text: "second law"}

	out, err := WrapFirst("The second law applies here", h)
	if err != nil {
		t.Fatalf("WrapFirst: %v", err)
	}

	want := `<mark data-highlight-id="hl-new" data-highlight-category="yellow" data-highlight-number="1">second law</mark>`
	if !strings.Contains(out, want) {
		t.Errorf("wrapped content missing mark element:\n%s", out)
	}
	if !strings.HasPrefix(out, "The ") || !strings.HasSuffix(out, " applies here") {
		t.Errorf("surrounding text not preserved:\n%s", out)
	}
}

func TestWrapFirstSkipsExistingHighlights(t *testing.T) {
	t.Parallel()

	content := `<mark data-highlight-id="hl-a" data-highlight-category="red" data-highlight-number="1">law</mark> and law again`
	h := models.Highlight{ID: "hl-b", Category: models.CategoryBlue, Number: 1, Text: "law"}

	out, err := WrapFirst(content, h)
	if err != nil {
		t.Fatalf("WrapFirst: %v", err)
	}

	// The occurrence inside hl-a stays untouched; the bare one is wrapped.
	if !strings.Contains(out, `data-highlight-id="hl-a"`) {
		t.Errorf("existing highlight lost:\n%s", out)
	}
	if !strings.Contains(out, `<mark data-highlight-id="hl-b" data-highlight-category="blue" data-highlight-number="1">law</mark>`) {
		t.Errorf("bare occurrence not wrapped:\n%s", out)
	}

	restored := extractMarkup(out)
	if len(restored) != 2 {
		t.Fatalf("expected 2 highlights after wrap, got %d", len(restored))
	}
}

func TestWrapFirstTextNotFound(t *testing.T) {
	t.Parallel()

	h := models.Highlight{ID: "hl-x", Category: models.CategoryRed, Number: 1, Text: "absent"}
	if _, err := WrapFirst("nothing matches here", h); !errors.Is(err, ErrTextNotFound) {
		t.Errorf("expected ErrTextNotFound, got %v", err)
	}

	// Text only present inside an existing highlight also has nothing to wrap.
	content := `<mark data-highlight-id="hl-a" data-highlight-category="red" data-highlight-number="1">absent</mark>`
	if _, err := WrapFirst(content, h); !errors.Is(err, ErrTextNotFound) {
		t.Errorf("expected ErrTextNotFound for covered text, got %v", err)
	}
}

func TestWrapFirstStructural(t *testing.T) {
	t.Parallel()

	doc := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"energy is conserved in closed systems"}]}]}`
	h := models.Highlight{ID: "hl-s", Category: models.CategoryGreen, Number: 1, Text: "conserved"}

	out, err := WrapFirst(doc, h)
	if err != nil {
		t.Fatalf("WrapFirst: %v", err)
	}

	var root map[string]any
	if err := json.Unmarshal([]byte(out), &root); err != nil {
		t.Fatalf("output is not a structured document: %v", err)
	}

	frags := extractStructural(out)
	if len(frags) != 1 {
		t.Fatalf("expected 1 highlight fragment, got %d", len(frags))
	}
	if frags[0].id != "hl-s" || frags[0].category != models.CategoryGreen || frags[0].number != 1 {
		t.Errorf("fragment = %+v", frags[0])
	}
	if frags[0].text != "conserved" {
		t.Errorf("fragment text = %q, want %q", frags[0].text, "conserved")
	}

	// The split leaves re-assemble to the original paragraph text.
	restored := NewEngine(models.DefaultCategories(), nil).Restore(out, nil)
	if len(restored) != 1 {
		t.Fatalf("expected 1 restored highlight, got %d", len(restored))
	}
	if !strings.Contains(out, "energy is ") || !strings.Contains(out, " in closed systems") {
		t.Errorf("surrounding leaves lost:\n%s", out)
	}
}
