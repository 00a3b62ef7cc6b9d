package item

import "path"

// MemSource is an in-memory Source used for synthetic trees in tests and for
// nodes fabricated by transforms. FetchCount records how often the payload
// was requested, which the import-idempotence tests rely on.
type MemSource struct {
	Attrs      map[string]string
	Table      *Table
	FetchCount int
}

// Attributes implements Source.
func (s *MemSource) Attributes() (map[string]string, error) {
	return s.Attrs, nil
}

// Data implements Source.
func (s *MemSource) Data() (*Table, error) {
	s.FetchCount++
	return s.Table, nil
}

// Builder assembles an in-memory item tree.
type Builder struct {
	root *Node
}

// NewBuilder creates a builder with an attribute-less root group.
func NewBuilder(rootAttrs map[string]string) *Builder {
	return &Builder{root: NewNode("/", false, &MemSource{Attrs: rootAttrs})}
}

// Root returns the built tree.
func (b *Builder) Root() *Node { return b.root }

// Group ensures a group node exists at the given absolute path and returns it.
func (b *Builder) Group(p string, attrs map[string]string) *Node {
	n := b.ensure(p, false)
	if attrs != nil {
		n.source = &MemSource{Attrs: attrs}
	}
	return n
}

// Leaf creates a leaf node at the given absolute path.
func (b *Builder) Leaf(p string, attrs map[string]string, table *Table) *Node {
	n := b.ensure(p, true)
	n.source = &MemSource{Attrs: attrs, Table: table}
	return n
}

// LeafSource creates a leaf node backed by an explicit source, so tests can
// observe fetch counts.
func (b *Builder) LeafSource(p string, src Source) *Node {
	n := b.ensure(p, true)
	n.source = src
	return n
}

func (b *Builder) ensure(p string, leaf bool) *Node {
	cur := b.root
	parts := splitPath(p)
	for i, part := range parts {
		next := cur.Child(part)
		if next == nil {
			full := "/" + path.Join(parts[:i+1]...)
			next = NewNode(full, leaf && i == len(parts)-1, nil)
			cur.AddChild(next)
		}
		cur = next
	}
	cur.leaf = leaf
	return cur
}
