// Package item defines the raw measurement item tree the version mappers
// consume: hierarchical nodes with a full path name, an attribute map that is
// populated on first request, and, for leaf nodes, a tabular payload that is
// fetched on first request and cached thereafter.
package item

import (
	"fmt"
	"path"
)

// Column is one named column of a leaf payload. Exactly one of the value
// slices is non-nil.
type Column struct {
	Name    string
	Ints    []int64
	Floats  []float64
	Strings []string
}

// Len returns the number of rows in the column.
func (c Column) Len() int {
	switch {
	case c.Ints != nil:
		return len(c.Ints)
	case c.Floats != nil:
		return len(c.Floats)
	default:
		return len(c.Strings)
	}
}

// Table is the payload of a leaf node. Regular device datasets carry named
// columns; array and area payloads carry a single float column plus the
// original shape (rank 1 or 2).
type Table struct {
	Columns []Column
	Shape   []int
}

// Column returns the named column, or nil if absent.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Source supplies attributes and payload for one node on demand.
type Source interface {
	// Attributes returns the node's attribute map.
	Attributes() (map[string]string, error)

	// Data returns the leaf payload. Group-only sources return an error.
	Data() (*Table, error)
}

// Node is one item of the measurement tree.
type Node struct {
	name     string
	leaf     bool
	children []*Node
	source   Source

	attrs     map[string]string
	attrsDone bool
	table     *Table
}

// NewNode creates a node with the given full path name. Leaf nodes carry a
// payload, group nodes carry children.
func NewNode(name string, leaf bool, source Source) *Node {
	return &Node{name: name, leaf: leaf, source: source}
}

// Name returns the full hierarchical path of the node.
func (n *Node) Name() string { return n.name }

// Base returns the last path component of the node name.
func (n *Node) Base() string { return path.Base(n.name) }

// IsLeaf reports whether the node carries a payload.
func (n *Node) IsLeaf() bool { return n.leaf }

// Children returns the child nodes of a group node.
func (n *Node) Children() []*Node { return n.children }

// AddChild appends a child node.
func (n *Node) AddChild(c *Node) { n.children = append(n.children, c) }

// Child returns the direct child with the given base name, or nil.
func (n *Node) Child(base string) *Node {
	for _, c := range n.children {
		if c.Base() == base {
			return c
		}
	}
	return nil
}

// Find resolves a slash-separated path relative to this node, or nil.
func (n *Node) Find(rel string) *Node {
	cur := n
	for _, part := range splitPath(rel) {
		if cur = cur.Child(part); cur == nil {
			return nil
		}
	}
	return cur
}

// Attributes returns the attribute map, fetching it from the source on first
// use.
func (n *Node) Attributes() (map[string]string, error) {
	if n.attrsDone {
		return n.attrs, nil
	}
	if n.source == nil {
		n.attrs = map[string]string{}
		n.attrsDone = true
		return n.attrs, nil
	}
	attrs, err := n.source.Attributes()
	if err != nil {
		return nil, fmt.Errorf("fetching attributes of %s: %w", n.name, err)
	}
	if attrs == nil {
		attrs = map[string]string{}
	}
	n.attrs = attrs
	n.attrsDone = true
	return n.attrs, nil
}

// Attr returns a single attribute value; ok is false if it is absent or the
// attribute fetch failed.
func (n *Node) Attr(name string) (string, bool) {
	attrs, err := n.Attributes()
	if err != nil {
		return "", false
	}
	v, ok := attrs[name]
	return v, ok
}

// Data returns the leaf payload, fetching it from the source on first use
// and caching it thereafter.
func (n *Node) Data() (*Table, error) {
	if n.table != nil {
		return n.table, nil
	}
	if !n.leaf || n.source == nil {
		return nil, fmt.Errorf("%s is not a leaf item", n.name)
	}
	table, err := n.source.Data()
	if err != nil {
		return nil, fmt.Errorf("fetching data of %s: %w", n.name, err)
	}
	n.table = table
	return table, nil
}

func splitPath(p string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				parts = append(parts, p[start:i])
			}
			start = i + 1
		}
	}
	return parts
}
