package evedata

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-evedata/internal/scml"
)

// DeviceInfo is one entry of the declared device catalog (motors, detectors,
// auxiliary devices) of a scan description.
type DeviceInfo struct {
	ID        string
	Name      string
	Unit      string
	PV        string
	HighLimit float64
	LowLimit  float64
	Kind      Kind
}

// descriptionSteps is the fixed step sequence of the description-facing
// mapper, structurally the container family's twin: a different source tree,
// a different destination sub-graph, the same claim-ledger discipline.
type descriptionSteps interface {
	mapModules(doc *scml.Document, d *ScanDescription, l *moduleLedger) error
	mapDevices(doc *scml.Document, d *ScanDescription) error
	mapAxes(doc *scml.Document, d *ScanDescription) error
	mapChannels(doc *scml.Document, d *ScanDescription) error
	mapPositionings(doc *scml.Document, d *ScanDescription) error
}

// moduleLedger tracks the scan-module ids still to map.
type moduleLedger struct {
	order []int
	open  map[int]bool
}

func newModuleLedger(doc *scml.Document) *moduleLedger {
	l := &moduleLedger{open: make(map[int]bool)}
	for _, chain := range doc.Scan.Chains {
		for _, m := range chain.Modules {
			l.order = append(l.order, m.ID)
			l.open[m.ID] = true
		}
	}
	return l
}

func (l *moduleLedger) claim(id int) { delete(l.open, id) }

func (l *moduleLedger) remaining() []int {
	var out []int
	for _, id := range l.order {
		if l.open[id] {
			out = append(out, id)
		}
	}
	return out
}

// mapDescription populates dst from a decoded SCML document, then discards
// modules not reachable from the root.
func mapDescription(s descriptionSteps, doc *scml.Document, dst *ScanDescription, log *zap.Logger) error {
	if doc == nil || dst == nil {
		return ErrMissingInput
	}
	dst.Version = doc.Version
	if dst.Modules == nil {
		dst.Modules = make(map[int]*ScanModule)
	}

	l := newModuleLedger(doc)
	if err := s.mapModules(doc, dst, l); err != nil {
		return err
	}
	if err := s.mapDevices(doc, dst); err != nil {
		return err
	}
	if err := s.mapAxes(doc, dst); err != nil {
		return err
	}
	if err := s.mapChannels(doc, dst); err != nil {
		return err
	}
	if err := s.mapPositionings(doc, dst); err != nil {
		return err
	}

	if rest := l.remaining(); len(rest) > 0 {
		log.Warn("unmapped scan modules", zap.Ints("ids", rest))
	}
	pruneUnreachable(dst, log)
	return nil
}

// pruneUnreachable drops modules not reachable from the root via nested and
// appended links. Without a root the description is left as is; position
// reconstruction then becomes a no-op.
func pruneUnreachable(d *ScanDescription, log *zap.Logger) {
	root := d.Root()
	if root == nil {
		log.Warn("scan description has no root module, positions stay unknown")
		return
	}
	reachable := make(map[int]bool)
	var visit func(m *ScanModule)
	visit = func(m *ScanModule) {
		if m == nil || reachable[m.ID] {
			return
		}
		reachable[m.ID] = true
		visit(d.Modules[m.NestedID])
		visit(d.Modules[m.AppendedID])
	}
	visit(root)

	for id := range d.Modules {
		if !reachable[id] {
			log.Warn("discarding disconnected scan module", zap.Int("id", id))
			delete(d.Modules, id)
		}
	}
}

// scmlV9e0 is the oldest supported description generation: no valuecount
// element, axes declared via position lists and ranges only.
type scmlV9e0 struct {
	log *zap.Logger
}

func (c *scmlV9e0) mapModules(doc *scml.Document, d *ScanDescription, l *moduleLedger) error {
	for _, chain := range doc.Scan.Chains {
		for _, raw := range chain.Modules {
			var typ ModuleType
			switch {
			case raw.Classic != nil:
				typ = ModuleClassic
			case raw.SaveAxisPositions != nil || raw.SaveChannelValues != nil:
				typ = ModuleStaticSnapshot
			case raw.DynamicAxisPositions != nil || raw.DynamicChannelValues != nil:
				typ = ModuleDynamicSnapshot
			default:
				// No variant marker; stays on the ledger and is reported.
				continue
			}
			l.claim(raw.ID)

			m := &ScanModule{
				ID:                      raw.ID,
				ParentID:                raw.Parent,
				Name:                    raw.Name,
				Type:                    typ,
				MeasurementsPerPosition: 1,
			}
			if raw.Appended != nil {
				m.AppendedID = *raw.Appended
			}
			if raw.Nested != nil {
				m.NestedID = *raw.Nested
			}
			d.Modules[raw.ID] = m
		}
	}
	return nil
}

func (c *scmlV9e0) mapDevices(doc *scml.Document, d *ScanDescription) error {
	if d.Devices == nil {
		d.Devices = make(map[string]DeviceInfo)
	}
	for _, motor := range doc.Motors {
		for _, a := range motor.Axes {
			d.Devices[a.ID] = DeviceInfo{
				ID: a.ID, Name: a.Name, Unit: a.Unit, PV: a.PV,
				HighLimit: a.HighLimit, LowLimit: a.LowLimit, Kind: KindAxis,
			}
		}
	}
	for _, det := range doc.Detectors {
		for _, ch := range det.Channels {
			d.Devices[ch.ID] = DeviceInfo{ID: ch.ID, Name: ch.Name, Unit: ch.Unit, PV: ch.PV, Kind: KindChannel}
		}
	}
	for _, dev := range doc.Devices {
		d.Devices[dev.ID] = DeviceInfo{ID: dev.ID, Name: dev.Name, PV: dev.PV, Kind: KindMonitor}
	}
	return nil
}

func (c *scmlV9e0) mapAxes(doc *scml.Document, d *ScanDescription) error {
	return c.mapAxesWith(doc, d, c.resolveAxis)
}

// mapAxesWith fills the per-module axis declarations using the given
// step-function resolver, then fixes up reference declarations against their
// sibling axes.
func (c *scmlV9e0) mapAxesWith(doc *scml.Document, d *ScanDescription, resolve func(scml.Axis) AxisDecl) error {
	for _, raw := range classicModules(doc) {
		m := d.Modules[raw.ID]
		if m == nil {
			continue
		}
		for _, a := range raw.Classic.Axes {
			m.Axes = append(m.Axes, resolve(a))
		}
		c.resolveRefs(m)
	}
	return nil
}

func (c *scmlV9e0) resolveRefs(m *ScanModule) {
	for i := range m.Axes {
		ref := m.Axes[i].Ref
		if ref == "" {
			continue
		}
		found := false
		for j := range m.Axes {
			if m.Axes[j].ID == ref && m.Axes[j].Resolved {
				m.Axes[i].SetPoints = m.Axes[j].SetPoints
				m.Axes[i].Resolved = true
				found = true
				break
			}
		}
		if !found {
			// Degraded placeholder, consistent with historical behavior:
			// the axis keeps an unresolved count and reconstruction works
			// with the remaining axes.
			c.log.Warn("unresolved axis reference",
				zap.Int("module", m.ID),
				zap.String("axis", m.Axes[i].ID),
				zap.String("ref", ref))
		}
	}
}

func (c *scmlV9e0) resolveAxis(a scml.Axis) AxisDecl {
	decl := AxisDecl{ID: a.AxisID, StepFunction: a.StepFunction}
	switch a.StepFunction {
	case "Positionlist":
		n := 0
		for _, p := range strings.Split(a.PositionList, ",") {
			if strings.TrimSpace(p) != "" {
				n++
			}
		}
		decl.SetPoints = n
		decl.Resolved = n > 0
	case "Range":
		decl.SetPoints, decl.Resolved = rangeSetPoints(a.Start, a.Stop, a.StepWidth)
	default:
		c.log.Warn("unsupported step function, set-point count stays unresolved",
			zap.String("axis", a.AxisID),
			zap.String("stepfunction", a.StepFunction))
	}
	return decl
}

func (c *scmlV9e0) mapChannels(doc *scml.Document, d *ScanDescription) error {
	for _, raw := range classicModules(doc) {
		m := d.Modules[raw.ID]
		if m == nil {
			continue
		}
		for _, ch := range raw.Classic.Channels {
			m.Channels = append(m.Channels, ChannelDecl{
				ID:           ch.ChannelID,
				NormalizeID:  ch.NormalizeID,
				AverageCount: ch.AverageCount,
			})
			if isSkipChannel(ch.ChannelID) {
				m.SkipChannelID = ch.ChannelID
			}
			if ch.NormalizeID != "" && !moduleDeclares(raw.Classic, ch.NormalizeID) {
				c.log.Warn("normalizing channel not declared in module",
					zap.Int("module", m.ID),
					zap.String("channel", ch.ChannelID),
					zap.String("normalize", ch.NormalizeID))
			}
		}
	}
	return nil
}

func (c *scmlV9e0) mapPositionings(doc *scml.Document, d *ScanDescription) error {
	for _, raw := range classicModules(doc) {
		m := d.Modules[raw.ID]
		if m == nil {
			continue
		}
		for _, p := range raw.Classic.Positionings {
			m.Positionings = append(m.Positionings, PositioningDecl{
				AxisID:    p.AxisID,
				ChannelID: p.ChannelID,
				Plugin:    p.Plugin,
			})
		}
	}
	return nil
}

// scmlV9e1 honors the valuecount element (repeated measurements per
// position), which 9.0 did not have.
type scmlV9e1 struct {
	scmlV9e0
}

func (c *scmlV9e1) mapModules(doc *scml.Document, d *ScanDescription, l *moduleLedger) error {
	if err := c.scmlV9e0.mapModules(doc, d, l); err != nil {
		return err
	}
	for _, raw := range classicModules(doc) {
		if m := d.Modules[raw.ID]; m != nil && raw.Classic.ValueCount > 0 {
			m.MeasurementsPerPosition = raw.Classic.ValueCount
		}
	}
	return nil
}

// scmlV9e2 adds the File and Ref step functions. File-sourced set points
// cannot be resolved from the description alone; those axes stay unresolved
// and position reconstruction is best effort for their modules.
type scmlV9e2 struct {
	scmlV9e1
}

func (c *scmlV9e2) mapAxes(doc *scml.Document, d *ScanDescription) error {
	return c.mapAxesWith(doc, d, c.resolveAxisV2)
}

func (c *scmlV9e2) resolveAxisV2(a scml.Axis) AxisDecl {
	switch a.StepFunction {
	case "File":
		c.log.Warn("file-sourced axis positions, set-point count stays unresolved",
			zap.String("axis", a.AxisID),
			zap.String("file", a.FileName))
		return AxisDecl{ID: a.AxisID, StepFunction: a.StepFunction, FromFile: true}
	case "Ref":
		return AxisDecl{ID: a.AxisID, StepFunction: a.StepFunction, Ref: a.Ref}
	default:
		return c.resolveAxis(a)
	}
}

func classicModules(doc *scml.Document) []scml.ScanModule {
	var out []scml.ScanModule
	for _, chain := range doc.Scan.Chains {
		for _, m := range chain.Modules {
			if m.Classic != nil {
				out = append(out, m)
			}
		}
	}
	return out
}

func moduleDeclares(cl *scml.Classic, channelID string) bool {
	for _, ch := range cl.Channels {
		if ch.ChannelID == channelID {
			return true
		}
	}
	return false
}

func rangeSetPoints(start, stop, width float64) (int, bool) {
	if width == 0 {
		return 0, false
	}
	n := int(math.Floor((stop-start)/width)) + 1
	if n < 1 {
		return 0, false
	}
	return n, true
}

// LoadDescription decodes and maps a scan description from raw SCML bytes.
// It fails with ErrUnsupportedVersion when no mapper is registered for the
// document's language version.
func LoadDescription(data []byte, opts ...Option) (*ScanDescription, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if len(data) == 0 {
		return nil, ErrMissingInput
	}
	doc, err := scml.Parse(data)
	if err != nil {
		return nil, err
	}
	steps, err := descriptionMapperFor(doc.Version, cfg.log)
	if err != nil {
		return nil, err
	}
	desc := &ScanDescription{}
	if err := mapDescription(steps, doc, desc, cfg.log); err != nil {
		return nil, fmt.Errorf("mapping scan description: %w", err)
	}
	return desc, nil
}
