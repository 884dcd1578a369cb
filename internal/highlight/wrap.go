package highlight

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/studydesk/api/internal/models"
)

// ErrTextNotFound reports that the highlight's text has no un-highlighted
// occurrence in the content, so there is nothing to wrap.
var ErrTextNotFound = errors.New("highlight text not found in content")

// WrapFirst embeds a new highlight into serialized content by wrapping the
// first occurrence of its text that is not already inside a highlight.
// Structural documents get a highlight mark on a split text leaf; flat markup
// gets a mark element. The occurrence must sit inside a single text run;
// selections spanning element boundaries are the rendering layer's job.
func WrapFirst(content string, h models.Highlight) (string, error) {
	if h.Text == "" {
		return "", ErrTextNotFound
	}
	if root, ok := parseDoc(content); ok {
		if !wrapStructural(root, h) {
			return "", ErrTextNotFound
		}
		out, err := json.Marshal(root)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	return wrapMarkup(content, h)
}

func wrapStructural(node map[string]any, h models.Highlight) bool {
	children, _ := node["content"].([]any)
	updated, done := wrapLeafIn(children, h)
	if done {
		node["content"] = updated
	}
	return done
}

// wrapLeafIn finds the first splittable text leaf and replaces it with up to
// three leaves: unwrapped prefix, the marked match, unwrapped suffix. Marks
// already on the leaf (bold etc.) are carried onto every piece.
func wrapLeafIn(children []any, h models.Highlight) ([]any, bool) {
	for i, c := range children {
		child, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if text, isLeaf := child["text"].(string); isLeaf {
			if _, marked := highlightMarkFragment(child, 0, text); marked {
				continue
			}
			idx := strings.Index(text, h.Text)
			if idx < 0 {
				continue
			}

			var repl []any
			if idx > 0 {
				before := copyLeaf(child)
				before["text"] = text[:idx]
				repl = append(repl, before)
			}
			marked := copyLeaf(child)
			marked["text"] = h.Text
			existing, _ := child["marks"].([]any)
			marked["marks"] = append(append([]any{}, existing...), map[string]any{
				"type": "highlight",
				"attrs": map[string]any{
					"id":       h.ID,
					"category": string(h.Category),
					"number":   h.Number,
				},
			})
			repl = append(repl, marked)
			if rest := text[idx+len(h.Text):]; rest != "" {
				after := copyLeaf(child)
				after["text"] = rest
				repl = append(repl, after)
			}

			out := make([]any, 0, len(children)+2)
			out = append(out, children[:i]...)
			out = append(out, repl...)
			out = append(out, children[i+1:]...)
			return out, true
		}
		if sub, ok := child["content"].([]any); ok {
			if updated, done := wrapLeafIn(sub, h); done {
				child["content"] = updated
				return children, true
			}
		}
	}
	return children, false
}

func copyLeaf(leaf map[string]any) map[string]any {
	out := make(map[string]any, len(leaf))
	for k, v := range leaf {
		out[k] = v
	}
	return out
}

func wrapMarkup(content string, h models.Highlight) (string, error) {
	nodes, err := parseFragmentHTML(content)
	if err != nil {
		return "", err
	}

	// Re-parent under a container so top-level text nodes can be split too.
	container := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		container.AppendChild(n)
	}

	if !wrapTextNode(container, h) {
		return "", ErrTextNotFound
	}

	var b strings.Builder
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func wrapTextNode(n *html.Node, h models.Highlight) bool {
	if n.Type == html.ElementNode && highlightID(n) != "" {
		return false
	}
	if n.Type == html.TextNode {
		idx := strings.Index(n.Data, h.Text)
		if idx < 0 {
			return false
		}
		parent := n.Parent

		mark := &html.Node{
			Type:     html.ElementNode,
			Data:     "mark",
			DataAtom: atom.Mark,
			Attr: []html.Attribute{
				{Key: attrID, Val: h.ID},
				{Key: attrCategory, Val: string(h.Category)},
				{Key: attrNumber, Val: strconv.Itoa(h.Number)},
			},
		}
		mark.AppendChild(&html.Node{Type: html.TextNode, Data: h.Text})

		if before := n.Data[:idx]; before != "" {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: before}, n)
		}
		parent.InsertBefore(mark, n)
		if after := n.Data[idx+len(h.Text):]; after != "" {
			n.Data = after
		} else {
			parent.RemoveChild(n)
		}
		return true
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if wrapTextNode(c, h) {
			return true
		}
		c = next
	}
	return false
}
