package item

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-hdf5/hdf5"
)

// layoutAttr marks an HDF5 group whose child datasets are the columns of one
// tabular leaf. The measurement writer stores every position-indexed table
// this way; it keeps the container free of compound datatypes.
const layoutAttr = "Layout"

// FromHDF5 builds the item tree for an open HDF5 file. Structure (names,
// group/leaf classification) is walked eagerly; attributes and payloads stay
// in the file until a node is asked for them.
func FromHDF5(f *hdf5.File) (*Node, error) {
	root := NewNode("/", false, &h5GroupSource{group: f.Root()})
	if err := fillGroup(root, f.Root()); err != nil {
		return nil, err
	}
	return root, nil
}

func fillGroup(n *Node, g *hdf5.Group) error {
	members, err := g.Members()
	if err != nil {
		return fmt.Errorf("listing %s: %w", g.Path(), err)
	}
	for _, name := range members {
		childPath := path.Join(n.Name(), name)

		if sub, err := g.OpenGroup(name); err == nil {
			if isTableGroup(sub) {
				n.AddChild(NewNode(childPath, true, &h5TableSource{group: sub}))
				continue
			}
			child := NewNode(childPath, false, &h5GroupSource{group: sub})
			if err := fillGroup(child, sub); err != nil {
				return err
			}
			n.AddChild(child)
			continue
		}

		ds, err := g.OpenDataset(name)
		if err != nil {
			return fmt.Errorf("opening %s: %w", childPath, err)
		}
		n.AddChild(NewNode(childPath, true, &h5DatasetSource{dataset: ds}))
	}
	return nil
}

func isTableGroup(g *hdf5.Group) bool {
	attr := g.Attr(layoutAttr)
	if attr == nil {
		return false
	}
	v, err := attr.Value()
	if err != nil {
		return false
	}
	s, ok := v.(string)
	return ok && s == "table"
}

// h5GroupSource serves attributes of a plain group node.
type h5GroupSource struct {
	group *hdf5.Group
}

func (s *h5GroupSource) Attributes() (map[string]string, error) {
	return readAttrs(s.group.Attrs(), func(name string) *hdf5.Attribute { return s.group.Attr(name) })
}

func (s *h5GroupSource) Data() (*Table, error) {
	return nil, fmt.Errorf("%s is a group, not a dataset", s.group.Path())
}

// h5TableSource serves a table group: each child dataset is one column, in
// member order.
type h5TableSource struct {
	group *hdf5.Group
}

func (s *h5TableSource) Attributes() (map[string]string, error) {
	return readAttrs(s.group.Attrs(), func(name string) *hdf5.Attribute { return s.group.Attr(name) })
}

func (s *h5TableSource) Data() (*Table, error) {
	members, err := s.group.Members()
	if err != nil {
		return nil, fmt.Errorf("listing table %s: %w", s.group.Path(), err)
	}
	table := &Table{}
	for _, name := range members {
		ds, err := s.group.OpenDataset(name)
		if err != nil {
			return nil, fmt.Errorf("opening column %s/%s: %w", s.group.Path(), name, err)
		}
		col, err := readColumn(name, ds)
		if err != nil {
			return nil, err
		}
		table.Columns = append(table.Columns, col)
	}
	return table, nil
}

// h5DatasetSource serves a bare dataset leaf (array and area payloads,
// per-position sub-datasets). The payload becomes a single float column plus
// the dataset shape.
type h5DatasetSource struct {
	dataset *hdf5.Dataset
}

func (s *h5DatasetSource) Attributes() (map[string]string, error) {
	return readAttrs(s.dataset.Attrs(), func(name string) *hdf5.Attribute { return s.dataset.Attr(name) })
}

func (s *h5DatasetSource) Data() (*Table, error) {
	values, err := s.dataset.ReadFloat64()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.dataset.Path(), err)
	}
	shape := make([]int, 0, 2)
	for _, d := range s.dataset.Shape() {
		shape = append(shape, int(d))
	}
	return &Table{
		Columns: []Column{{Name: s.dataset.Name(), Floats: values}},
		Shape:   shape,
	}, nil
}

func readColumn(name string, ds *hdf5.Dataset) (Column, error) {
	// Integer columns carry position counts and millisecond offsets; strings
	// occur for enumerated devices. Everything else is read as float64.
	switch ds.DtypeClass() {
	case 0: // fixed-point
		vals, err := ds.ReadInt64()
		if err != nil {
			return Column{}, fmt.Errorf("reading int column %s: %w", ds.Path(), err)
		}
		return Column{Name: name, Ints: vals}, nil
	case 3: // string
		vals, err := ds.ReadString()
		if err != nil {
			return Column{}, fmt.Errorf("reading string column %s: %w", ds.Path(), err)
		}
		return Column{Name: name, Strings: vals}, nil
	default:
		vals, err := ds.ReadFloat64()
		if err != nil {
			return Column{}, fmt.Errorf("reading float column %s: %w", ds.Path(), err)
		}
		return Column{Name: name, Floats: vals}, nil
	}
}

func readAttrs(names []string, get func(string) *hdf5.Attribute) (map[string]string, error) {
	attrs := make(map[string]string, len(names))
	for _, name := range names {
		attr := get(name)
		if attr == nil {
			continue
		}
		v, err := attr.Value()
		if err != nil {
			return nil, fmt.Errorf("reading attribute %s: %w", name, err)
		}
		attrs[name] = attrString(v)
	}
	return attrs, nil
}

func attrString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		if len(x) == 1 {
			return x[0]
		}
		return fmt.Sprint(x)
	default:
		return fmt.Sprint(v)
	}
}
