// Package selector names DOM elements with short, readable CSS selectors.
//
// Selectors are built from the first class token of each class-bearing
// ancestor, so they survive most markup changes. They are best effort:
// two elements can share a selector.
package selector

import (
	"strconv"
	"strings"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/pkg/dom"
)

// Empty is the sentinel for "do not record this element".
const Empty = ""

// Synthesize returns the selector for el, or Empty when nothing on the
// path from el up to the root container carries a class.
//
// Elements without a class never fall back to their tag name; the
// caller drops the event instead.
func Synthesize(el *dom.Node) string {
	if el == nil {
		return Empty
	}
	if el.IsRoot() {
		return domain.SelectorBody
	}

	var path []string
	for cur := el; cur != nil && !cur.IsRoot(); cur = cur.Parent {
		token := cur.Classes.First()
		if token == "" {
			continue
		}
		seg := "." + token
		if cur.Parent != nil && !cur.Parent.IsRoot() && sharedFirstClass(cur.Parent, token) > 1 {
			seg += ":nth-child(" + strconv.Itoa(cur.Index()) + ")"
		}
		path = append(path, seg)
	}
	if len(path) == 0 {
		return Empty
	}

	// Collected target-first; emit root-to-target.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return strings.Join(path, " ")
}

// sharedFirstClass counts parent's children whose first class is token.
func sharedFirstClass(parent *dom.Node, token string) int {
	n := 0
	for _, c := range parent.Children {
		if c.Classes.First() == token {
			n++
		}
	}
	return n
}
