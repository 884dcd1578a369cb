package highlight

import (
	"encoding/json"
	"strings"

	"github.com/studydesk/api/internal/models"
)

// Structural extraction reads the parsed rich-text document tree: nested
// nodes with text leaves, each leaf optionally carrying marks. A highlight
// mark has attrs {id, category, number}. The tree is walked generically (not
// into typed structs) so unknown node kinds and mark attrs survive a
// renumber-and-rewrite round trip untouched.

// extractStructural returns the highlight fragments found in a structured
// document, or nil when content is not a structured document (or carries no
// marks). It never errors; non-JSON content simply yields nothing and lets
// the caller fall back to the flat markup scan.
func extractStructural(content string) []fragment {
	root, ok := parseDoc(content)
	if !ok {
		return nil
	}
	var frags []fragment
	pos := 0
	walkNode(root, &pos, &frags)
	return frags
}

func parseDoc(content string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var root map[string]any
	if err := json.Unmarshal([]byte(trimmed), &root); err != nil {
		return nil, false
	}
	return root, true
}

func walkNode(node map[string]any, pos *int, frags *[]fragment) {
	if text, ok := node["text"].(string); ok {
		if f, ok := highlightMarkFragment(node, *pos, text); ok {
			*frags = append(*frags, f)
		}
		*pos += len([]rune(text))
		return
	}
	children, _ := node["content"].([]any)
	for _, c := range children {
		if child, ok := c.(map[string]any); ok {
			walkNode(child, pos, frags)
		}
	}
	// Block boundaries separate ranges so adjacent paragraphs do not appear
	// contiguous.
	*pos++
}

func highlightMarkFragment(node map[string]any, pos int, text string) (fragment, bool) {
	marks, _ := node["marks"].([]any)
	for _, m := range marks {
		mark, ok := m.(map[string]any)
		if !ok || mark["type"] != "highlight" {
			continue
		}
		attrs, _ := mark["attrs"].(map[string]any)
		id, _ := attrs["id"].(string)
		if id == "" {
			continue
		}
		f := fragment{id: id, pos: pos, text: text}
		if cat, ok := attrs["category"].(string); ok {
			f.category = models.Category(cat)
		}
		if n, ok := attrs["number"].(float64); ok {
			f.number = int(n)
		}
		return f, true
	}
	return fragment{}, false
}

// renumberStructural rewrites the number attr of every highlight mark whose
// id appears in numbers, returning the re-serialized document. Content that
// is not a structured document is returned unchanged.
func renumberStructural(content string, numbers map[string]int) (string, bool) {
	root, ok := parseDoc(content)
	if !ok {
		return content, false
	}
	renumberNode(root, numbers)
	out, err := json.Marshal(root)
	if err != nil {
		return content, false
	}
	return string(out), true
}

func renumberNode(node map[string]any, numbers map[string]int) {
	marks, _ := node["marks"].([]any)
	for _, m := range marks {
		mark, ok := m.(map[string]any)
		if !ok || mark["type"] != "highlight" {
			continue
		}
		attrs, _ := mark["attrs"].(map[string]any)
		id, _ := attrs["id"].(string)
		if n, ok := numbers[id]; ok && attrs != nil {
			attrs["number"] = n
		}
	}
	children, _ := node["content"].([]any)
	for _, c := range children {
		if child, ok := c.(map[string]any); ok {
			renumberNode(child, numbers)
		}
	}
}
