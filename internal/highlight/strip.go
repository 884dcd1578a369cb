package highlight

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
)

// StripMarks removes the highlight marks for the given ids from serialized
// content, structural or flat, leaving the underlying text in place. Content
// that cannot be parsed is returned unchanged.
func StripMarks(content string, ids []string) string {
	if len(ids) == 0 {
		return content
	}
	dead := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		dead[id] = struct{}{}
	}

	if out, ok := stripStructural(content, dead); ok {
		return out
	}

	nodes, err := parseFragmentHTML(content)
	if err != nil {
		return content
	}
	parent := &html.Node{Type: html.ElementNode, Data: "body"}
	for _, n := range nodes {
		n.Parent = nil
		n.PrevSibling = nil
		n.NextSibling = nil
		parent.AppendChild(n)
	}
	unwrapMarks(parent, dead)

	var b strings.Builder
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return content
		}
	}
	return b.String()
}

func stripStructural(content string, dead map[string]struct{}) (string, bool) {
	root, ok := parseDoc(content)
	if !ok {
		return content, false
	}
	stripNode(root, dead)
	out, err := json.Marshal(root)
	if err != nil {
		return content, false
	}
	return string(out), true
}

func stripNode(node map[string]any, dead map[string]struct{}) {
	if marks, ok := node["marks"].([]any); ok {
		kept := marks[:0]
		for _, m := range marks {
			if mark, ok := m.(map[string]any); ok && mark["type"] == "highlight" {
				attrs, _ := mark["attrs"].(map[string]any)
				if id, _ := attrs["id"].(string); id != "" {
					if _, gone := dead[id]; gone {
						continue
					}
				}
			}
			kept = append(kept, m)
		}
		if len(kept) == 0 {
			delete(node, "marks")
		} else {
			node["marks"] = kept
		}
	}
	children, _ := node["content"].([]any)
	for _, c := range children {
		if child, ok := c.(map[string]any); ok {
			stripNode(child, dead)
		}
	}
}

// unwrapMarks replaces each highlight element whose id is dead with its own
// children, preserving the wrapped text.
func unwrapMarks(parent *html.Node, dead map[string]struct{}) {
	c := parent.FirstChild
	for c != nil {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			if id := highlightID(c); id != "" {
				if _, gone := dead[id]; gone {
					for gc := c.FirstChild; gc != nil; {
						gcNext := gc.NextSibling
						c.RemoveChild(gc)
						parent.InsertBefore(gc, c)
						gc = gcNext
					}
					parent.RemoveChild(c)
					c = next
					continue
				}
			}
			unwrapMarks(c, dead)
		}
		c = next
	}
}
