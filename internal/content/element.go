package content

import (
	"html"
	"maps"
	"slices"
	"sort"
	"strings"
)

// TextTag is the tag of an element that carries only text.
const TextTag = "#text"

// Element is a renderer-agnostic rendered element. The renderer maps it onto
// whatever view system it owns.
type Element struct {
	Tag      string            `json:"tag"`
	UnitID   string            `json:"unitId,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text,omitempty"`
	Children []*Element        `json:"children,omitempty"`
}

// NewText creates a text element.
func NewText(text string) *Element {
	return &Element{Tag: TextTag, Text: text}
}

// Wrap returns a new element with tag wrapping e.
func Wrap(tag string, e *Element, attrs map[string]string) *Element {
	return &Element{Tag: tag, Attrs: attrs, Children: []*Element{e}}
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := &Element{Tag: e.Tag, UnitID: e.UnitID, Text: e.Text}
	if e.Attrs != nil {
		c.Attrs = make(map[string]string, len(e.Attrs))
		for k, v := range e.Attrs {
			c.Attrs[k] = v
		}
	}
	if e.Children != nil {
		c.Children = make([]*Element, len(e.Children))
		for i, child := range e.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Equal reports whether e and o describe the same element tree.
func (e *Element) Equal(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.Tag == o.Tag &&
		e.UnitID == o.UnitID &&
		e.Text == o.Text &&
		maps.Equal(e.Attrs, o.Attrs) &&
		slices.EqualFunc(e.Children, o.Children, (*Element).Equal)
}

var tagByType = map[NodeType]string{
	NodeParagraph:  "p",
	NodeHeading:    "h",
	NodeImage:      "img",
	NodeList:       "ul",
	NodeListItem:   "li",
	NodeBlockquote: "blockquote",
	NodeCode:       "pre",
	NodeTable:      "table",
	NodeBreak:      "br",
	NodeEmphasis:   "em",
	NodeStrong:     "strong",
	NodeLink:       "a",
	NodeInline:     "code",
}

// TagFor returns the default element tag for a node type.
func TagFor(n *Node) string {
	if n.Type == NodeText {
		return TextTag
	}
	if n.Type == NodeHeading {
		level := n.Attr("level")
		if level == "" {
			level = "1"
		}
		return "h" + level
	}
	if tag, ok := tagByType[n.Type]; ok {
		return tag
	}
	return "div"
}

// DefaultInline renders an inline node without any plugin involvement.
func DefaultInline(n *Node) *Element {
	if n == nil {
		return nil
	}
	if n.Type == NodeText {
		return NewText(n.Value)
	}
	e := &Element{Tag: TagFor(n), UnitID: n.ID}
	if n.Type == NodeLink {
		e.Attrs = map[string]string{"href": n.Attr("href")}
	}
	if n.Value != "" {
		e.Children = append(e.Children, NewText(n.Value))
	}
	for _, c := range n.Children {
		e.Children = append(e.Children, DefaultInline(c))
	}
	return e
}

// Build renders a node into an element, delegating every inline child to
// inline. A nil inline uses DefaultInline.
func Build(n *Node, inline func(*Node) *Element) *Element {
	if n == nil {
		return nil
	}
	if inline == nil {
		inline = DefaultInline
	}
	if n.Type.IsInline() {
		return inline(n)
	}

	e := &Element{Tag: TagFor(n), UnitID: n.ID}
	switch n.Type {
	case NodeImage:
		e.Attrs = map[string]string{"src": n.Attr("src"), "alt": n.Attr("alt")}
	case NodeCode:
		if lang := n.Attr("lang"); lang != "" {
			e.Attrs = map[string]string{"lang": lang}
		}
	}
	if n.Value != "" {
		e.Children = append(e.Children, NewText(n.Value))
	}
	for _, c := range n.Children {
		e.Children = append(e.Children, Build(c, inline))
	}
	return e
}

// Markup serialises the element tree as compact HTML-like text. Attribute
// order is sorted so output is stable.
func (e *Element) Markup() string {
	var b strings.Builder
	e.writeMarkup(&b)
	return b.String()
}

func (e *Element) writeMarkup(b *strings.Builder) {
	if e == nil {
		return
	}
	if e.Tag == TextTag {
		b.WriteString(html.EscapeString(e.Text))
		return
	}

	b.WriteByte('<')
	b.WriteString(e.Tag)
	if e.UnitID != "" {
		b.WriteString(` data-unit="`)
		b.WriteString(html.EscapeString(e.UnitID))
		b.WriteByte('"')
	}
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(e.Attrs[k]))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	if e.Text != "" {
		b.WriteString(html.EscapeString(e.Text))
	}
	for _, c := range e.Children {
		c.writeMarkup(b)
	}
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteByte('>')
}
