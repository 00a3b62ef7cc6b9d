package evedata

import "time"

// GlobalMetadata holds the per-measurement header fields mapped from the
// container's root attributes. Fields absent in older schema generations
// stay at their zero value.
type GlobalMetadata struct {
	// EVEH5Version is the container schema version; its major number selected
	// the container mapper.
	EVEH5Version string

	// Version is the measurement program's own schema version.
	Version string

	// XMLVersion is the scan description language version.
	XMLVersion string

	Location string
	Comment  string

	StartTime time.Time
	EndTime   time.Time // zero before EVEH5 v6

	Simulation bool // EVEH5 v7 and later

	PreferredChannel              string
	PreferredAxis                 string
	PreferredNormalizationChannel string // EVEH5 v6 and later
}

// ROI is a region of interest of an array or area channel, in detector
// coordinates along one dimension.
type ROI struct {
	Low  int
	High int
}

// Metadata describes one device. Every Data entity owns exactly one Metadata
// of the matching kind and mode.
type Metadata struct {
	kind       Kind
	mode       ChannelMode
	normalized bool

	// ID is the device identifier from the scan description / container.
	ID string

	// Name is the display name of the device.
	Name string

	Unit string

	// PV is the process-variable address the device was driven/read through.
	PV string

	// Axis limits, valid for axis metadata only.
	HighLimit float64
	LowLimit  float64

	// DetectorType is the raw detector classification from the container
	// ("Standard", "Interval", ...), channels only.
	DetectorType string

	// AverageCount is the declared number of sub-samples per position for
	// averaged channels.
	AverageCount int

	// ROIs are the declared regions of interest of array and area channels.
	ROIs []ROI
}

// Kind returns the device kind the metadata describes.
func (m *Metadata) Kind() Kind { return m.kind }

// Mode returns the channel mode, meaningful for channel metadata.
func (m *Metadata) Mode() ChannelMode { return m.mode }

// Normalized reports whether the described channel carries the normalized
// capability.
func (m *Metadata) Normalized() bool { return m.normalized }
