package evedata

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/robert-malhotra/go-evedata/internal/item"
	"github.com/robert-malhotra/go-evedata/internal/series"
)

// Attribute names an importer target mapping can write to.
const (
	attrPositions  = "positions"
	attrMillis     = "millis"
	attrValues     = "values"
	attrStrings    = "strings"
	attrMeans      = "means"
	attrStdDevs    = "stddevs"
	attrAvgCounts  = "averagecounts"
	attrAttempts   = "attempts"
	attrTrigIntv   = "triggerintv"
	attrNormalized = "normalized"
	attrDiscard    = "-"
)

// frame is the unit of work flowing through a preprocessing chain: the
// columns of one raw table, plus the ragged regrouping a step may have
// produced from the flat value column.
type frame struct {
	cols   []item.Column
	ragged [][]float64
}

// step is a pure frame transformation.
type step func(frame) frame

// importer loads one raw source into an entity.
type importer interface {
	load(d *Data) error
	addSteps(steps ...step)
}

// tableImporter imports a tabular leaf: fetch, run the preprocessing chain,
// then write each named column onto the entity attribute the target table
// names for it.
type tableImporter struct {
	node    *item.Node
	targets map[string]string
	steps   []step
}

func newTableImporter(node *item.Node, targets map[string]string, steps ...step) *tableImporter {
	return &tableImporter{node: node, targets: targets, steps: steps}
}

func (t *tableImporter) addSteps(steps ...step) {
	t.steps = append(t.steps, steps...)
}

func (t *tableImporter) load(d *Data) error {
	tbl, err := t.node.Data()
	if err != nil {
		return err
	}
	fr := frame{cols: append([]item.Column(nil), tbl.Columns...)}
	for _, s := range t.steps {
		fr = s(fr)
	}
	if fr.ragged != nil {
		d.raw = fr.ragged
	}
	for _, col := range fr.cols {
		attr, ok := t.targets[col.Name]
		if !ok {
			attr = defaultTarget(col)
		}
		if attr == attrDiscard {
			continue
		}
		if err := d.assign(attr, col); err != nil {
			return err
		}
	}
	return nil
}

// defaultTarget maps well-known column names; anything else lands on the
// primary value attribute.
func defaultTarget(col item.Column) string {
	switch col.Name {
	case "PosCounter":
		return attrPositions
	case "mSecsSinceStart":
		return attrMillis
	}
	if col.Strings != nil {
		return attrStrings
	}
	return attrValues
}

// assign writes one column onto a named attribute.
func (d *Data) assign(attr string, col item.Column) error {
	switch attr {
	case attrPositions:
		d.positions = asInts(col)
	case attrMillis:
		d.millis = asInts(col)
	case attrValues:
		d.values = asFloats(col)
	case attrStrings:
		d.strings = col.Strings
	case attrMeans:
		d.means = asFloats(col)
	case attrStdDevs:
		d.stddevs = asFloats(col)
	case attrAvgCounts:
		d.averageCounts = asInts(col)
	case attrAttempts:
		d.attempts = asInts(col)
	case attrTrigIntv:
		d.triggerIntv = asFloats(col)
	case attrNormalized:
		d.normValues = asFloats(col)
	default:
		return fmt.Errorf("unknown import target %q for column %q", attr, col.Name)
	}
	return nil
}

func asInts(col item.Column) []int64 {
	if col.Ints != nil {
		return col.Ints
	}
	out := make([]int64, len(col.Floats))
	for i, v := range col.Floats {
		out[i] = int64(v)
	}
	return out
}

func asFloats(col item.Column) []float64 {
	if col.Floats != nil {
		return col.Floats
	}
	out := make([]float64, len(col.Ints))
	for i, v := range col.Ints {
		out[i] = float64(v)
	}
	return out
}

// stepKeepPositions keeps only rows whose leading position column value is
// contained in allowed. allowed must be sorted ascending.
func stepKeepPositions(allowed []int64) step {
	return func(fr frame) frame {
		pos := leadingPositions(fr)
		if pos == nil {
			return fr
		}
		var keep []int
		for i, p := range pos {
			if series.Contains(allowed, p) {
				keep = append(keep, i)
			}
		}
		return filterRows(fr, keep)
	}
}

// stepRegroupByGap splits the leading position column into contiguous runs
// wherever the gap to the previous position exceeds gap, groups the flat
// value column into one ragged row per run, and relabels the leading column
// with the given per-run positions.
func stepRegroupByGap(runPositions []int64, gap int64) step {
	return func(fr frame) frame {
		pos := leadingPositions(fr)
		if pos == nil {
			return fr
		}
		runs := series.SplitRuns(pos, gap)
		var values []float64
		for i := range fr.cols {
			if fr.cols[i].Floats != nil {
				values = fr.cols[i].Floats
				break
			}
		}
		out := frame{ragged: series.GroupByRuns(values, runs)}
		out.cols = []item.Column{{Name: "PosCounter", Ints: runPositions}}
		return out
	}
}

func leadingPositions(fr frame) []int64 {
	for _, col := range fr.cols {
		if col.Ints != nil {
			return col.Ints
		}
	}
	return nil
}

func filterRows(fr frame, keep []int) frame {
	out := frame{cols: make([]item.Column, len(fr.cols)), ragged: fr.ragged}
	for i, col := range fr.cols {
		nc := item.Column{Name: col.Name}
		switch {
		case col.Ints != nil:
			nc.Ints = make([]int64, 0, len(keep))
			for _, k := range keep {
				nc.Ints = append(nc.Ints, col.Ints[k])
			}
		case col.Floats != nil:
			nc.Floats = make([]float64, 0, len(keep))
			for _, k := range keep {
				nc.Floats = append(nc.Floats, col.Floats[k])
			}
		case col.Strings != nil:
			nc.Strings = make([]string, 0, len(keep))
			for _, k := range keep {
				nc.Strings = append(nc.Strings, col.Strings[k])
			}
		}
		out.cols[i] = nc
	}
	return out
}

// subsetImporter imports an array or area channel: every leaf child of the
// device group is one per-position sub-dataset, named by its zero-padded
// position count. Each sub-dataset contributes one row of the entity's
// payload matrix, so the payload count always equals the number of
// contributing sub-datasets.
type subsetImporter struct {
	group *item.Node
	area  bool
}

func newSubsetImporter(group *item.Node, area bool) *subsetImporter {
	return &subsetImporter{group: group, area: area}
}

func (s *subsetImporter) addSteps(steps ...step) {
	// Sub-dataset assembly has no tabular preprocessing chain; position
	// filters on array/area channels are not supported.
}

func (s *subsetImporter) load(d *Data) error {
	children := append([]*item.Node(nil), s.group.Children()...)
	sort.Slice(children, func(a, b int) bool { return children[a].Base() < children[b].Base() })

	for _, child := range children {
		if !child.IsLeaf() {
			continue
		}
		pos, err := strconv.ParseInt(child.Base(), 10, 64)
		if err != nil {
			return fmt.Errorf("sub-dataset %s has no numeric position name: %w", child.Name(), err)
		}
		tbl, err := child.Data()
		if err != nil {
			return err
		}
		if len(tbl.Columns) == 0 {
			return fmt.Errorf("sub-dataset %s is empty", child.Name())
		}
		payload := asFloats(tbl.Columns[0])
		d.positions = append(d.positions, pos)
		if s.area {
			rows, cols := 0, 0
			if len(tbl.Shape) == 2 {
				rows, cols = tbl.Shape[0], tbl.Shape[1]
			} else {
				rows, cols = 1, len(payload)
			}
			d.areas = append(d.areas, &Area{Rows: rows, Cols: cols, Values: payload})
		} else {
			d.arrays = append(d.arrays, payload)
		}
	}
	return nil
}
