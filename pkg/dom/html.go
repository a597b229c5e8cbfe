package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ParseHTML parses an HTML document into an element tree rooted at a
// TagDocument node. The parser always synthesizes html, head and body.
func ParseHTML(r io.Reader) (*Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	root := &Node{Tag: TagDocument}
	convert(doc, root)
	return root, nil
}

// ParseHTMLString is ParseHTML for an in-memory document.
func ParseHTMLString(s string) (*Node, error) {
	return ParseHTML(strings.NewReader(s))
}

func convert(src *html.Node, dst *Node) {
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		el := &Node{Tag: strings.ToLower(c.Data)}
		for _, a := range c.Attr {
			switch a.Key {
			case "class":
				el.Classes = ParseClassList(a.Val)
			case "id":
				el.ID = a.Val
			}
		}
		dst.AppendChild(el)
		convert(c, el)
	}
}
