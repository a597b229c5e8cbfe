// Package dom is the element tree the selector synthesizer works on.
//
// Trees are built at the boundary, either from HTML (ParseHTML) or from the
// ancestor chain reported by the in-page shim (Ancestry.Build). Class
// attributes are normalized into a ClassList there, so nothing downstream
// deals with raw attribute values.
package dom

// Document-level tag names.
const (
	TagDocument = "#document"
	TagHTML     = "html"
	TagBody     = "body"
)

// Node is an element in the tree. Only element nodes are represented;
// Children therefore matches the DOM's element children.
type Node struct {
	Tag      string
	ID       string
	Classes  ClassList
	Parent   *Node
	Children []*Node
}

// NewElement creates a detached element.
func NewElement(tag string, classes ...string) *Node {
	return &Node{Tag: tag, Classes: ClassList(classes)}
}

// AppendChild attaches c as the last child of n and returns c.
func (n *Node) AppendChild(c *Node) *Node {
	c.Parent = n
	n.Children = append(n.Children, c)
	return c
}

// IsRoot reports whether n is the root container (the body element).
func (n *Node) IsRoot() bool {
	return n != nil && n.Tag == TagBody
}

// IsDocumentLevel reports whether n stands for the page itself: the
// document, the html element or the body.
func (n *Node) IsDocumentLevel() bool {
	if n == nil {
		return true
	}
	switch n.Tag {
	case TagDocument, TagHTML, TagBody:
		return true
	}
	return false
}

// Index returns the 1-based position of n among its parent's children, or 0
// when n is detached.
func (n *Node) Index() int {
	if n.Parent == nil {
		return 0
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return i + 1
		}
	}
	return 0
}

// Find returns the first node in n's subtree (n included, depth first)
// matching fn.
func (n *Node) Find(fn func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	if fn(n) {
		return n
	}
	for _, c := range n.Children {
		if m := c.Find(fn); m != nil {
			return m
		}
	}
	return nil
}

// FindByID returns the element whose id attribute equals id.
func (n *Node) FindByID(id string) *Node {
	return n.Find(func(x *Node) bool { return x.ID == id })
}

// Body returns the body element in n's subtree.
func (n *Node) Body() *Node {
	return n.Find(func(x *Node) bool { return x.IsRoot() })
}
