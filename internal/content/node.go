package content

import (
	"maps"
	"slices"
	"strings"
)

// NodeType names the kind of a content tree node.
type NodeType string

// Node types produced by the format parsers.
const (
	NodeParagraph  NodeType = "paragraph"
	NodeHeading    NodeType = "heading"
	NodeImage      NodeType = "image"
	NodeList       NodeType = "list"
	NodeListItem   NodeType = "list-item"
	NodeBlockquote NodeType = "blockquote"
	NodeCode       NodeType = "code"
	NodeTable      NodeType = "table"
	NodeBreak      NodeType = "break"

	// Inline node types.
	NodeText     NodeType = "text"
	NodeEmphasis NodeType = "emphasis"
	NodeStrong   NodeType = "strong"
	NodeLink     NodeType = "link"
	NodeInline   NodeType = "inline-code"
)

// IsInline reports whether nodes of this type flow inside a block.
func (t NodeType) IsInline() bool {
	switch t {
	case NodeText, NodeEmphasis, NodeStrong, NodeLink, NodeInline:
		return true
	default:
		return false
	}
}

// Node is one node of the unified content tree. Top-level nodes of a chapter
// are content units and carry a stable ID.
type Node struct {
	ID       string            `json:"id,omitempty"`
	Type     NodeType          `json:"type"`
	Value    string            `json:"value,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		ID:    n.ID,
		Type:  n.Type,
		Value: n.Value,
	}
	if n.Attrs != nil {
		c.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Equal reports whether n and o describe the same tree.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	return n.ID == o.ID &&
		n.Type == o.Type &&
		n.Value == o.Value &&
		maps.Equal(n.Attrs, o.Attrs) &&
		slices.EqualFunc(n.Children, o.Children, (*Node).Equal)
}

// Text returns the node's own value followed by the text of its descendants.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.Walk(func(m *Node) bool {
		b.WriteString(m.Value)
		return true
	})
	return b.String()
}

// Attr returns an attribute value.
func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// Walk visits the node and its descendants depth-first. Returning false from
// fn stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}
