package highlight

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/studydesk/api/internal/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Flat-markup extraction is the fallback for content whose structural layer
// is unavailable: rendered HTML is scanned directly for elements carrying the
// highlight data attributes, or a bare legacy id. A highlight split across
// several elements shares one id and is merged downstream.

const (
	attrID       = "data-highlight-id"
	attrCategory = "data-highlight-category"
	attrNumber   = "data-highlight-number"
)

func extractMarkup(content string) []fragment {
	nodes, err := parseFragmentHTML(content)
	if err != nil {
		return nil
	}
	var frags []fragment
	pos := 0
	for _, n := range nodes {
		walkHTML(n, &pos, &frags)
	}
	return frags
}

func parseFragmentHTML(content string) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(content), body)
}

func walkHTML(n *html.Node, pos *int, frags *[]fragment) {
	if n.Type == html.ElementNode {
		if id := highlightID(n); id != "" {
			text := textContent(n)
			f := fragment{id: id, pos: *pos, text: text}
			if cat := attrValue(n, attrCategory); cat != "" {
				f.category = models.Category(cat)
			}
			if num := attrValue(n, attrNumber); num != "" {
				if v, err := strconv.Atoi(num); err == nil {
					f.number = v
				}
			}
			*frags = append(*frags, f)
			*pos += len([]rune(text))
			return
		}
	}
	if n.Type == html.TextNode {
		*pos += len([]rune(n.Data))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, pos, frags)
	}
}

// highlightID returns the element's highlight id: the data attribute, or a
// plain id attribute in the legacy {category}-{number} format.
func highlightID(n *html.Node) string {
	if id := attrValue(n, attrID); id != "" {
		return id
	}
	if id := attrValue(n, "id"); id != "" {
		if _, _, ok := ParseLegacyID(id); ok {
			return id
		}
	}
	return ""
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Span is one run of note text, optionally covered by a highlight. Spans are
// the input to the inverse embedding operation.
type Span struct {
	Text      string
	Highlight *models.Highlight
}

// SerializeSpans embeds highlights into flat markup: plain runs are escaped
// text, highlighted runs become mark elements carrying the data attributes.
// Legacy-format ids are written as-is; they stay recognizable on re-restore.
func SerializeSpans(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Highlight == nil {
			b.WriteString(html.EscapeString(s.Text))
			continue
		}
		h := s.Highlight
		fmt.Fprintf(&b, `<mark %s=%q %s=%q %s="%d">%s</mark>`,
			attrID, h.ID,
			attrCategory, string(h.Category),
			attrNumber, h.Number,
			html.EscapeString(s.Text),
		)
	}
	return b.String()
}

// ApplyNumbers rewrites the per-id display numbers inside serialized content,
// structural or flat, returning the updated serialization. This is the
// caller-applied side of a resequence plan: the engine computes the mapping,
// the owner of the rendering layer pushes it into the markup. Content that
// cannot be parsed is returned unchanged.
func ApplyNumbers(content string, numbers map[string]int) string {
	if len(numbers) == 0 {
		return content
	}
	if out, ok := renumberStructural(content, numbers); ok {
		return out
	}
	nodes, err := parseFragmentHTML(content)
	if err != nil {
		return content
	}
	for _, n := range nodes {
		renumberHTML(n, numbers)
	}
	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return content
		}
	}
	return b.String()
}

func renumberHTML(n *html.Node, numbers map[string]int) {
	if n.Type == html.ElementNode {
		if id := highlightID(n); id != "" {
			if num, ok := numbers[id]; ok {
				setAttr(n, attrNumber, strconv.Itoa(num))
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renumberHTML(c, numbers)
	}
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
