// Package node defines the parsed protocol tree handed over by the transport: a tag, string attributes and
// content which is either a list of child nodes or an opaque byte payload.
package node

import (
	"fmt"
	"strconv"
	"strings"
)

type Attrs map[string]string

type Node struct {
	Tag     string
	Attrs   Attrs
	Content interface{}
}

// Attr returns the attribute value and whether it was present.
func (n *Node) Attr(key string) (string, bool) {
	if n.Attrs == nil {
		return "", false
	}
	v, ok := n.Attrs[key]
	return v, ok
}

// AttrString returns the attribute or "" when absent.
func (n *Node) AttrString(key string) string {
	v, _ := n.Attr(key)
	return v
}

func (n *Node) AttrUint(key string) (uint64, error) {
	v, ok := n.Attr(key)
	if !ok {
		return 0, fmt.Errorf("node: %s missing attribute %q", n.Tag, key)
	}
	u, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("node: %s attribute %q: %w", n.Tag, key, err)
	}
	return u, nil
}

// AttrBool treats "true" and "1" as set.
func (n *Node) AttrBool(key string) bool {
	v, _ := n.Attr(key)
	return v == "true" || v == "1"
}

func (n *Node) Children() []Node {
	if children, ok := n.Content.([]Node); ok {
		return children
	}
	return nil
}

func (n *Node) Child(tag string) (Node, bool) {
	for _, c := range n.Children() {
		if c.Tag == tag {
			return c, true
		}
	}
	return Node{}, false
}

func (n *Node) Bytes() ([]byte, bool) {
	b, ok := n.Content.([]byte)
	return b, ok
}

// String renders the node in an XML-like form for logs; byte payloads are shown by length only.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(n.Tag)
	for k, v := range n.Attrs {
		fmt.Fprintf(b, " %s=%q", k, v)
	}
	switch c := n.Content.(type) {
	case []Node:
		b.WriteByte('>')
		for i := range c {
			c[i].write(b)
		}
		fmt.Fprintf(b, "</%s>", n.Tag)
	case []byte:
		fmt.Fprintf(b, "><!-- %d bytes --></%s>", len(c), n.Tag)
	default:
		b.WriteString("/>")
	}
}
