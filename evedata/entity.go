package evedata

import (
	"fmt"

	"github.com/robert-malhotra/go-evedata/internal/series"
)

// Kind is the top-level classification of a recorded device series.
type Kind int

const (
	// KindMonitor is an irregularly sampled device keyed by milliseconds
	// since measurement start; it has no position counts.
	KindMonitor Kind = iota

	// KindAxis is a set-point device keyed by position count.
	KindAxis

	// KindChannel is a readout device keyed by position count.
	KindChannel
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMonitor:
		return "monitor"
	case KindAxis:
		return "axis"
	default:
		return "channel"
	}
}

// ChannelMode is the sub-variant of a channel entity.
type ChannelMode int

const (
	// ModeSinglePoint records one value per position.
	ModeSinglePoint ChannelMode = iota

	// ModeAverage records the mean of several sub-samples per position,
	// with standard deviation and, where available, the raw sub-samples.
	ModeAverage

	// ModeInterval records a variable number of samples per position.
	ModeInterval

	// ModeArray records a 1-D payload per position (MCA spectra and the like).
	ModeArray

	// ModeArea records a 2-D payload per position (camera frames).
	ModeArea
)

// String returns the mode name.
func (m ChannelMode) String() string {
	switch m {
	case ModeSinglePoint:
		return "single"
	case ModeAverage:
		return "average"
	case ModeInterval:
		return "interval"
	case ModeArray:
		return "array"
	default:
		return "area"
	}
}

// Area is one 2-D payload of an area channel, stored row-major.
type Area struct {
	Rows   int
	Cols   int
	Values []float64
}

// Data is one device's recorded series. Value attributes are imported from
// the container on the first Load (or first accessor call); repeated loads
// are no-ops. Load is not safe for concurrent first use on the same entity;
// callers running concurrently must serialize it per entity.
type Data struct {
	id         string
	kind       Kind
	mode       ChannelMode
	normalized bool

	// normalizeID names the normalizing channel; only set when normalized.
	normalizeID string

	// moduleID is the scan module the series originated in, 0 if unknown.
	moduleID int

	snapshot bool

	meta *Metadata

	positions []int64
	millis    []int64
	values    []float64
	strings   []string

	raw           [][]float64
	means         []float64
	stddevs       []float64
	averageCounts []int64
	attempts      []int64
	triggerIntv   []float64
	normValues    []float64

	arrays [][]float64
	areas  []*Area

	importers []importer
	loaded    bool
}

// newData creates an entity with a parallel metadata variant.
func newData(id string, kind Kind, mode ChannelMode, meta *Metadata) *Data {
	if meta == nil {
		meta = &Metadata{ID: id}
	}
	meta.kind = kind
	meta.mode = mode
	return &Data{id: id, kind: kind, mode: mode, meta: meta}
}

// ID returns the device identifier.
func (d *Data) ID() string { return d.id }

// Name returns the display name, falling back to the identifier.
func (d *Data) Name() string {
	if d.meta != nil && d.meta.Name != "" {
		return d.meta.Name
	}
	return d.id
}

// Kind returns the entity kind.
func (d *Data) Kind() Kind { return d.kind }

// Mode returns the channel mode; meaningful for channel entities.
func (d *Data) Mode() ChannelMode { return d.mode }

// Normalized reports whether the entity carries the normalized capability.
func (d *Data) Normalized() bool { return d.normalized }

// NormalizeID returns the identifier of the normalizing channel, empty when
// the entity is not normalized.
func (d *Data) NormalizeID() string { return d.normalizeID }

// ModuleID returns the scan module the series originated in, 0 if unknown.
func (d *Data) ModuleID() int { return d.moduleID }

// IsSnapshot reports whether the entity is a one-off snapshot series rather
// than part of a module's main phase.
func (d *Data) IsSnapshot() bool { return d.snapshot }

// Metadata returns the entity's metadata.
func (d *Data) Metadata() *Metadata { return d.meta }

// Load runs the deferred import once: every importer fetches its raw table,
// applies its preprocessing chain and writes the resulting columns onto the
// entity; then the kind-dependent post-processing sorts and deduplicates.
// A successful load is cached; a failed one is not, so callers may retry
// after transient I/O errors.
func (d *Data) Load() error {
	if d.loaded {
		return nil
	}
	for _, imp := range d.importers {
		if err := imp.load(d); err != nil {
			return fmt.Errorf("importing %s: %w", d.id, err)
		}
	}
	d.postImport()
	d.loaded = true
	return nil
}

// postImport enforces the variant policies: measured series are sorted by
// position; axes collapse duplicate positions keeping the last occurrence,
// channels keeping the first. Averaged entities with raw sub-samples derive
// mean and standard deviation.
func (d *Data) postImport() {
	if d.kind != KindAxis && d.kind != KindChannel {
		return
	}
	if len(d.positions) > 0 {
		perm := series.SortPerm(d.positions)
		d.permute(perm)

		policy := series.KeepFirst
		if d.kind == KindAxis {
			policy = series.KeepLast
		}
		keep := series.DedupPerm(d.positions, policy)
		if len(keep) != len(d.positions) {
			d.permute(keep)
		}
	}
	if d.raw != nil && d.means == nil {
		d.means = make([]float64, len(d.raw))
		d.stddevs = make([]float64, len(d.raw))
		for i, row := range d.raw {
			d.means[i] = series.Mean(row)
			d.stddevs[i] = series.StdDev(row)
		}
		if d.values == nil {
			d.values = d.means
		}
	}
}

// permute reorders every position-aligned attribute by idx.
func (d *Data) permute(idx []int) {
	d.positions = series.ApplyPermInt64(d.positions, idx)
	if d.millis != nil {
		d.millis = series.ApplyPermInt64(d.millis, idx)
	}
	if d.values != nil {
		d.values = series.ApplyPermFloat64(d.values, idx)
	}
	if d.strings != nil {
		d.strings = series.ApplyPermStrings(d.strings, idx)
	}
	if d.means != nil {
		d.means = series.ApplyPermFloat64(d.means, idx)
	}
	if d.stddevs != nil {
		d.stddevs = series.ApplyPermFloat64(d.stddevs, idx)
	}
	if d.normValues != nil {
		d.normValues = series.ApplyPermFloat64(d.normValues, idx)
	}
	if d.triggerIntv != nil {
		d.triggerIntv = series.ApplyPermFloat64(d.triggerIntv, idx)
	}
	if d.averageCounts != nil {
		d.averageCounts = series.ApplyPermInt64(d.averageCounts, idx)
	}
	if d.attempts != nil {
		d.attempts = series.ApplyPermInt64(d.attempts, idx)
	}
	if d.raw != nil {
		raw := make([][]float64, len(idx))
		for i, p := range idx {
			raw[i] = d.raw[p]
		}
		d.raw = raw
	}
	if d.arrays != nil {
		arrays := make([][]float64, len(idx))
		for i, p := range idx {
			arrays[i] = d.arrays[p]
		}
		d.arrays = arrays
	}
	if d.areas != nil {
		areas := make([]*Area, len(idx))
		for i, p := range idx {
			areas[i] = d.areas[p]
		}
		d.areas = areas
	}
}

// Positions returns the position counts of a measured series, importing on
// first use.
func (d *Data) Positions() ([]int64, error) {
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d.positions, nil
}

// Milliseconds returns the millisecond timestamps of a monitor series (or of
// the position-timestamp entity), importing on first use.
func (d *Data) Milliseconds() ([]int64, error) {
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d.millis, nil
}

// Values returns the primary value series, importing on first use. For
// averaged entities this is the per-position mean.
func (d *Data) Values() ([]float64, error) {
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d.values, nil
}

// StringValues returns the value series of string-valued devices.
func (d *Data) StringValues() ([]string, error) {
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d.strings, nil
}

// Raw returns the per-position raw sub-samples of an averaged entity, one
// ragged row per position; nil when the container carried only the mean.
func (d *Data) Raw() ([][]float64, error) {
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d.raw, nil
}

// StdDevs returns the per-position standard deviations of an averaged entity.
func (d *Data) StdDevs() ([]float64, error) {
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d.stddevs, nil
}

// AverageCounts returns the per-position sub-sample counts of an averaged
// entity.
func (d *Data) AverageCounts() ([]int64, error) {
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d.averageCounts, nil
}

// NormalizedValues returns the normalized value series; nil unless the
// entity carries the normalized capability.
func (d *Data) NormalizedValues() ([]float64, error) {
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d.normValues, nil
}

// Arrays returns the per-position 1-D payloads of an array channel.
func (d *Data) Arrays() ([][]float64, error) {
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d.arrays, nil
}

// Areas returns the per-position 2-D payloads of an area channel.
func (d *Data) Areas() ([]*Area, error) {
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d.areas, nil
}

// attribute returns a named float attribute for join-axis selection.
func (d *Data) attribute(name string) ([]float64, error) {
	if err := d.Load(); err != nil {
		return nil, err
	}
	switch name {
	case "", "values":
		return d.values, nil
	case "means":
		return d.means, nil
	case "stddevs":
		return d.stddevs, nil
	case "normalized":
		return d.normValues, nil
	default:
		return nil, fmt.Errorf("%s has no attribute %q", d.id, name)
	}
}
