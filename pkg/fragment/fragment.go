// Package fragment builds the HTML fragments the widgets push to the thin
// client. It is a deliberately small node tree: elements, text, raw HTML and
// attributes, rendered to a string with proper escaping. Fragments are
// identified by their root element id; the client swaps the element with the
// same id when a patch frame arrives.
package fragment

import (
	"html"
	"sort"
	"strings"
)

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement Kind = iota
	KindText
	KindRaw
)

// Node is one node of a rendered fragment.
type Node struct {
	Kind     Kind
	Tag      string
	Attrs    map[string]string
	Children []*Node
	Text     string // for KindText and KindRaw
}

// Attr is a key/value attribute passed to El and the element helpers.
type Attr struct {
	Key   string
	Value string
}

// A applies an attribute.
func A(key, value string) Attr { return Attr{Key: key, Value: value} }

// ID sets the element id.
func ID(v string) Attr { return Attr{Key: "id", Value: v} }

// Class sets the class attribute. Multiple values are space-joined.
func Class(names ...string) Attr {
	return Attr{Key: "class", Value: strings.Join(names, " ")}
}

// Data sets a data-* attribute.
func Data(name, value string) Attr {
	return Attr{Key: "data-" + name, Value: value}
}

// Href sets the href attribute.
func Href(v string) Attr { return Attr{Key: "href", Value: v} }

// voidElements render without a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// El creates an element node. Arguments may be Attr, *Node, []*Node or
// string (appended as an escaped text child). Nil children are skipped so
// conditional render helpers can return nil.
func El(tag string, args ...any) *Node {
	n := &Node{Kind: KindElement, Tag: tag}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case Attr:
			if n.Attrs == nil {
				n.Attrs = make(map[string]string)
			}
			n.Attrs[v.Key] = v.Value
		case *Node:
			if v != nil {
				n.Children = append(n.Children, v)
			}
		case []*Node:
			for _, c := range v {
				if c != nil {
					n.Children = append(n.Children, c)
				}
			}
		case string:
			n.Children = append(n.Children, Text(v))
		}
	}
	return n
}

// Text creates an escaped text node.
func Text(s string) *Node { return &Node{Kind: KindText, Text: s} }

// Raw creates an unescaped HTML node. Only use with trusted markup.
func Raw(s string) *Node { return &Node{Kind: KindRaw, Text: s} }

// If returns node when the condition holds, nil otherwise.
func If(cond bool, node *Node) *Node {
	if cond {
		return node
	}
	return nil
}

// Map renders one node per item.
func Map[T any](items []T, fn func(T) *Node) []*Node {
	out := make([]*Node, 0, len(items))
	for _, it := range items {
		out = append(out, fn(it))
	}
	return out
}

// Common element helpers, named after their tags.

func Div(args ...any) *Node    { return El("div", args...) }
func Span(args ...any) *Node   { return El("span", args...) }
func Anchor(args ...any) *Node { return El("a", args...) }
func Button(args ...any) *Node { return El("button", args...) }
func Table(args ...any) *Node  { return El("table", args...) }
func Tbody(args ...any) *Node  { return El("tbody", args...) }
func Tr(args ...any) *Node     { return El("tr", args...) }
func Td(args ...any) *Node     { return El("td", args...) }
func Ul(args ...any) *Node     { return El("ul", args...) }
func Li(args ...any) *Node     { return El("li", args...) }
func Small(args ...any) *Node  { return El("small", args...) }
func Strong(args ...any) *Node { return El("strong", args...) }
func Img(args ...any) *Node    { return El("img", args...) }
func Br() *Node                { return El("br") }

// HTML renders the node tree to an HTML string.
func (n *Node) HTML() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	switch n.Kind {
	case KindText:
		b.WriteString(html.EscapeString(n.Text))
	case KindRaw:
		b.WriteString(n.Text)
	case KindElement:
		b.WriteByte('<')
		b.WriteString(n.Tag)
		// Deterministic attribute order keeps renders diffable and testable.
		if len(n.Attrs) > 0 {
			keys := make([]string, 0, len(n.Attrs))
			for k := range n.Attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				b.WriteByte(' ')
				b.WriteString(k)
				b.WriteString(`="`)
				b.WriteString(html.EscapeString(n.Attrs[k]))
				b.WriteByte('"')
			}
		}
		if voidElements[n.Tag] {
			b.WriteString(">")
			return
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			c.write(b)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteByte('>')
	}
}

// Attr returns the value of an attribute, or "" when absent.
func (n *Node) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// Find returns the first descendant (depth-first, self included) whose
// attribute matches, or nil. Used mostly by tests to assert on rendered
// state without string matching.
func (n *Node) Find(key, value string) *Node {
	if n.Attr(key) == value {
		return n
	}
	for _, c := range n.Children {
		if c.Kind != KindElement {
			continue
		}
		if found := c.Find(key, value); found != nil {
			return found
		}
	}
	return nil
}

// TextContent returns the concatenated text of the subtree.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.collectText(&b)
	return b.String()
}

func (n *Node) collectText(b *strings.Builder) {
	if n.Kind == KindText || n.Kind == KindRaw {
		b.WriteString(n.Text)
		return
	}
	for _, c := range n.Children {
		c.collectText(b)
	}
}
