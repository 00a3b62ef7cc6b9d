package evedata

import (
	"fmt"

	"github.com/robert-malhotra/go-evedata/internal/series"
)

// AxisSelection picks one entity, and optionally one of its float
// attributes, as a join axis. An empty Attribute selects the primary value
// series ("values"; "means", "stddevs" and "normalized" are also accepted).
type AxisSelection struct {
	Axis      *Data
	Attribute string
}

// JoinResult holds device series reconciled onto the data entity's position
// index. All slices have equal length; Missing marks axis elements for which
// no qualifying value exists. A missing element's value is unspecified and
// must not be read as a measurement.
type JoinResult struct {
	Positions []int64
	Data      []float64
	Axes      [][]float64
	Missing   [][]bool
}

// joinStrategy reconciles one data entity with its axes.
type joinStrategy interface {
	join(f *File, data *Data, axes []AxisSelection) (*JoinResult, error)
}

// joinStrategyFor returns the registered strategy with the given name.
func joinStrategyFor(name string) (joinStrategy, error) {
	mk, ok := joinRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJoinStrategy, name)
	}
	return mk(), nil
}

var joinRegistry = map[string]func() joinStrategy{
	"lastfill": func() joinStrategy { return lastFillJoin{} },
	"inner":    func() joinStrategy { return innerJoin{} },
}

// lastFillJoin reproduces the historical presentation rule: for every data
// position, an axis contributes its latest value at or before that position.
// A per-module snapshot value recorded before the axis's own series starts
// is spliced in as an extra leading sample. Data rows are never dropped and
// positions with no qualifying axis value are marked missing, never zero.
type lastFillJoin struct{}

func (lastFillJoin) join(f *File, data *Data, axes []AxisSelection) (*JoinResult, error) {
	positions, err := data.Positions()
	if err != nil {
		return nil, err
	}
	values, err := data.Values()
	if err != nil {
		return nil, err
	}

	res := &JoinResult{Positions: positions, Data: values}
	for _, sel := range axes {
		axPositions, axValues, err := axisSeries(f, sel)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(positions))
		missing := make([]bool, len(positions))
		for i, p := range positions {
			idx := series.SearchLastLE(axPositions, p)
			if idx < 0 {
				missing[i] = true
				continue
			}
			out[i] = axValues[idx]
		}
		res.Axes = append(res.Axes, out)
		res.Missing = append(res.Missing, missing)
	}
	return res, nil
}

// innerJoin keeps only data positions for which every axis has an exact
// sample. No element is ever missing, at the price of dropped data rows.
type innerJoin struct{}

func (innerJoin) join(f *File, data *Data, axes []AxisSelection) (*JoinResult, error) {
	positions, err := data.Positions()
	if err != nil {
		return nil, err
	}
	values, err := data.Values()
	if err != nil {
		return nil, err
	}

	axPositions := make([][]int64, len(axes))
	axValues := make([][]float64, len(axes))
	for i, sel := range axes {
		axPositions[i], axValues[i], err = axisSeries(f, sel)
		if err != nil {
			return nil, err
		}
	}

	res := &JoinResult{}
	for i, p := range positions {
		indices := make([]int, len(axes))
		match := true
		for a := range axes {
			idx := series.SearchLastLE(axPositions[a], p)
			if idx < 0 || axPositions[a][idx] != p {
				match = false
				break
			}
			indices[a] = idx
		}
		if !match {
			continue
		}
		res.Positions = append(res.Positions, p)
		res.Data = append(res.Data, values[i])
		for a := range axes {
			if len(res.Axes) <= a {
				res.Axes = append(res.Axes, nil)
				res.Missing = append(res.Missing, nil)
			}
			res.Axes[a] = append(res.Axes[a], axValues[a][indices[a]])
			res.Missing[a] = append(res.Missing[a], false)
		}
	}
	return res, nil
}

// axisSeries loads an axis selection and splices in its snapshot value where
// one was recorded before the series' own first position.
func axisSeries(f *File, sel AxisSelection) ([]int64, []float64, error) {
	if sel.Axis == nil {
		return nil, nil, ErrMissingInput
	}
	positions, err := sel.Axis.Positions()
	if err != nil {
		return nil, nil, err
	}
	values, err := sel.Axis.attribute(sel.Attribute)
	if err != nil {
		return nil, nil, err
	}
	if values == nil {
		return nil, nil, fmt.Errorf("axis %s has no numeric values to join", sel.Axis.ID())
	}
	if len(positions) != len(values) {
		return nil, nil, fmt.Errorf("axis %s: %d positions vs %d values", sel.Axis.ID(), len(positions), len(values))
	}

	snap := f.Snapshot(sel.Axis.ID())
	if snap == nil {
		return positions, values, nil
	}
	snapPositions, err := snap.Positions()
	if err != nil || len(snapPositions) == 0 {
		return positions, values, nil
	}
	snapValues, err := snap.Values()
	if err != nil || len(snapValues) == 0 {
		return positions, values, nil
	}
	if len(positions) > 0 && snapPositions[0] >= positions[0] {
		return positions, values, nil
	}

	splicedP := append([]int64{snapPositions[0]}, positions...)
	splicedV := append([]float64{snapValues[0]}, values...)
	return splicedP, splicedV, nil
}

// Join reconciles one data entity with one or more axes using the file's
// configured strategy.
func (f *File) Join(data *Data, axes ...AxisSelection) (*JoinResult, error) {
	return f.JoinWith(f.joinName, data, axes...)
}

// JoinWith is Join with an explicit strategy name.
func (f *File) JoinWith(strategy string, data *Data, axes ...AxisSelection) (*JoinResult, error) {
	if data == nil {
		return nil, ErrMissingInput
	}
	s, err := joinStrategyFor(strategy)
	if err != nil {
		return nil, err
	}
	return s.join(f, data, axes)
}
