package evedata

import "go.uber.org/zap"

// ReconstructPositions recovers, purely from the declaration, the ordered
// position counts every module produced during execution. Three passes over
// the tree reached from the root: per-pass counts, totals across enclosing
// nesting, then a single depth-first walk handing one global counter through
// nested and appended chains.
//
// A description without a root module leaves every module unannotated;
// callers must treat absent position counts as unknown, not as zero. Modules
// with unresolvable axis set-point counts (file-sourced positions, dangling
// references) get a best-effort estimate from their remaining axes.
func (d *ScanDescription) ReconstructPositions(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	root := d.Root()
	if root == nil {
		log.Warn("position reconstruction skipped, no root module")
		return
	}

	for _, m := range d.Modules {
		m.PositionsPerPass = positionsPerPass(m)
	}
	d.computeTotals(root, 1)
	d.assign(root, 1)
}

// positionsPerPass computes how many positions one pass of the module emits,
// including the trailing positioning position.
func positionsPerPass(m *ScanModule) int {
	if m.Type != ModuleClassic {
		return 1
	}
	setPoints := 0
	for _, a := range m.Axes {
		if a.SetPoints > setPoints {
			setPoints = a.SetPoints
		}
	}
	if setPoints == 0 {
		// No locally resolvable axis; best available estimate is a single
		// position per pass.
		setPoints = 1
	}
	measurements := m.MeasurementsPerPosition
	if measurements < 1 {
		measurements = 1
	}
	n := setPoints * measurements
	if m.HasPositioning() {
		n++
	}
	return n
}

// computeTotals propagates the multiplying factor down the tree: a nested
// module runs once per parent position except the positioning one; an
// appended module inherits its predecessor's factor unchanged.
func (d *ScanDescription) computeTotals(m *ScanModule, factor int) {
	m.TotalPositions = m.PositionsPerPass * factor

	if nested := d.Modules[m.NestedID]; nested != nil {
		nestedFactor := m.TotalPositions
		if m.HasPositioning() {
			nestedFactor -= factor
		}
		d.computeTotals(nested, nestedFactor)
	}
	if appended := d.Modules[m.AppendedID]; appended != nil {
		d.computeTotals(appended, factor)
	}
}

// assign emits the position counts for one pass of m starting at start and
// returns the next free position. Nested modules consume positions directly
// after each emitted parent position; appended modules continue the same
// counter afterwards.
func (d *ScanDescription) assign(m *ScanModule, start int64) int64 {
	counter := start

	main := m.PositionsPerPass
	if m.HasPositioning() {
		main--
	}
	for i := 0; i < main; i++ {
		m.PositionCounts = append(m.PositionCounts, counter)
		counter++
		if nested := d.Modules[m.NestedID]; nested != nil {
			counter = d.assign(nested, counter)
		}
	}

	if m.HasPositioning() {
		m.PositionCounts = append(m.PositionCounts, counter)
		for i := range m.Positionings {
			m.Positionings[i].PositionCounts = append(m.Positionings[i].PositionCounts, counter)
		}
		counter++
	}

	if appended := d.Modules[m.AppendedID]; appended != nil {
		counter = d.assign(appended, counter)
	}
	return counter
}
