package dom

import (
	"encoding/json"
	"fmt"
)

// Level describes one element on the way from an event target up to the
// body, as reported by the in-page shim.
type Level struct {
	Tag   string          `json:"tag"`
	Class json.RawMessage `json:"class,omitempty"`
	// Index is the 0-based position among the parent's element children.
	Index int `json:"index"`
	// Siblings holds the class value of every element child of the
	// parent, in document order, the element itself included.
	Siblings []json.RawMessage `json:"siblings,omitempty"`
}

// Ancestry is the wire description of an event target.
type Ancestry struct {
	IsBody bool `json:"isBody"`
	// Path runs from the target upward and excludes the body.
	Path []Level `json:"path"`
}

// Build reconstructs the tree fragment the ancestry describes and returns
// the target node. The fragment is rooted at html > body; siblings off the
// path are classed placeholders.
func (a Ancestry) Build() (*Node, error) {
	htmlEl := &Node{Tag: TagHTML}
	body := htmlEl.AppendChild(&Node{Tag: TagBody})
	if a.IsBody || len(a.Path) == 0 {
		return body, nil
	}

	parent := body
	var target *Node
	for i := len(a.Path) - 1; i >= 0; i-- {
		lvl := a.Path[i]
		el := &Node{Tag: lvl.Tag, Classes: ParseClassList(lvl.Class)}

		if len(lvl.Siblings) == 0 {
			parent.AppendChild(el)
		} else {
			if lvl.Index < 0 || lvl.Index >= len(lvl.Siblings) {
				return nil, fmt.Errorf("ancestry level %d: index %d out of range (%d siblings)", i, lvl.Index, len(lvl.Siblings))
			}
			for j, cls := range lvl.Siblings {
				if j == lvl.Index {
					parent.AppendChild(el)
					continue
				}
				parent.AppendChild(&Node{Classes: ParseClassList(cls)})
			}
		}
		parent = el
		target = el
	}
	return target, nil
}
