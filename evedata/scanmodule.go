package evedata

import "strings"

// ModuleType is the variant of a scan module.
type ModuleType int

const (
	// ModuleClassic drives axes and records channels in a main phase, with
	// an optional post-phase positioning step.
	ModuleClassic ModuleType = iota

	// ModuleStaticSnapshot records declared devices once.
	ModuleStaticSnapshot

	// ModuleDynamicSnapshot records whatever devices are live once.
	ModuleDynamicSnapshot
)

// String returns the module type name.
func (t ModuleType) String() string {
	switch t {
	case ModuleClassic:
		return "classic"
	case ModuleStaticSnapshot:
		return "static snapshot"
	default:
		return "dynamic snapshot"
	}
}

// AxisDecl is one axis declared in a module's main phase.
type AxisDecl struct {
	ID string

	// SetPoints is the number of set points the step function produces.
	// Zero with Resolved=false means the count could not be determined
	// locally (file-sourced or dangling reference); position reconstruction
	// then works with the best available estimate.
	SetPoints int
	Resolved  bool

	StepFunction string
	FromFile     bool
	Ref          string
}

// ChannelDecl is one channel declared in a module's main phase.
type ChannelDecl struct {
	ID           string
	NormalizeID  string
	AverageCount int
}

// PositioningDecl is a post-phase positioning step of a classic module.
type PositioningDecl struct {
	AxisID    string
	ChannelID string
	Plugin    string

	// PositionCounts are the positions the step produced, one per pass of
	// the module, assigned during reconstruction; nil while unknown.
	PositionCounts []int64
}

// ScanModule is one node of the declared module structure. A module has at
// most one appended successor and at most one nested child; the nested child
// runs once per position of this module.
type ScanModule struct {
	ID       int
	ParentID int
	Name     string
	Type     ModuleType

	// AppendedID and NestedID are 0 when absent.
	AppendedID int
	NestedID   int

	MeasurementsPerPosition int

	Axes         []AxisDecl
	Channels     []ChannelDecl
	Positionings []PositioningDecl

	// SkipChannelID is set when the module declares an MPSKIP channel, the
	// hardware averaging workaround undone by the skip transform.
	SkipChannelID string

	// PositionsPerPass is the number of positions one pass produces,
	// including the positioning position. TotalPositions multiplies in all
	// enclosing nesting. Both are computed by position reconstruction and
	// stay 0 when the description is structurally unusable.
	PositionsPerPass int
	TotalPositions   int

	// PositionCounts is the reconstructed ordered sequence of position
	// counts this module produced; nil while unknown.
	PositionCounts []int64
}

// HasPositioning reports whether the module declares a post-phase
// positioning step.
func (m *ScanModule) HasPositioning() bool { return len(m.Positionings) > 0 }

// DeclaredDeviceIDs returns the ids of all devices the module declares,
// axes first.
func (m *ScanModule) DeclaredDeviceIDs() []string {
	ids := make([]string, 0, len(m.Axes)+len(m.Channels))
	for _, a := range m.Axes {
		ids = append(ids, a.ID)
	}
	for _, c := range m.Channels {
		ids = append(ids, c.ID)
	}
	return ids
}

// ScanDescription is the mapped scan description: the module set plus the
// language version it was declared in.
type ScanDescription struct {
	Version string
	Modules map[int]*ScanModule

	// Devices is the declared device catalog (motors, detectors, auxiliary
	// devices) keyed by identifier.
	Devices map[string]DeviceInfo
}

// Root returns the module with parent id 0, or nil for a malformed or empty
// description.
func (d *ScanDescription) Root() *ScanModule {
	for _, m := range d.Modules {
		if m.ParentID == 0 {
			return m
		}
	}
	return nil
}

// Module returns the module with the given id, or nil.
func (d *ScanDescription) Module(id int) *ScanModule {
	if d == nil {
		return nil
	}
	return d.Modules[id]
}

// isRBV reports whether a device identifier names a readback pseudo-channel.
func isRBV(id string) bool {
	return strings.HasSuffix(id, ":RBV") || strings.Contains(id, "_RBV")
}

// isSkipChannel reports whether a channel identifier belongs to the MPSKIP
// averaging workaround.
func isSkipChannel(id string) bool {
	return strings.Contains(strings.ToLower(id), "mpskip")
}
