package evedata

import (
	"fmt"
	"os"
	"sort"

	"github.com/robert-malhotra/go-hdf5/hdf5"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-evedata/internal/item"
	"github.com/robert-malhotra/go-evedata/internal/scml"
)

// File is one mapped measurement: global metadata, the scan description
// (when present), and the device entities grouped by the scan module that
// produced their positions. Device series stay unloaded until first access.
type File struct {
	path   string
	h5     *hdf5.File
	closed bool

	log      *zap.Logger
	joinName string

	meta        GlobalMetadata
	description *ScanDescription

	main     []*Data
	monitors []*Data
	snapshot map[string]*Data
	byID     map[string]*Data

	// groups maps a position-count origin (scan module id) to the entities
	// recorded in it; populated once a description is attached.
	groups map[int][]*Data

	// posTimer is the cross-cutting position-to-timestamp entity used to
	// align monitor data with positions.
	posTimer *Data
}

// Open opens a measurement file, maps it with the mapper matching its
// container schema version, and, when the file carries an embedded scan
// description, maps that too, reconstructs position counts and applies the
// skip-averaging transform.
func Open(path string, opts ...Option) (*File, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	h5, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	root, err := item.FromHDF5(h5)
	if err != nil {
		h5.Close()
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}

	f, err := fromItem(root, cfg)
	if err != nil {
		h5.Close()
		return nil, err
	}
	f.path = path
	f.h5 = h5

	xml, ok, err := extractEmbedded(path)
	if err != nil {
		f.log.Warn("embedded scan description unreadable", zap.Error(err))
	} else if ok {
		if err := f.UseDescription(xml); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// fromItem maps a raw item tree into a new File. Tests feed synthetic
// in-memory trees through this path.
func fromItem(root *item.Node, cfg config) (*File, error) {
	if root == nil {
		return nil, ErrMissingInput
	}
	version, ok := root.Attr(containerVersionAttr)
	if !ok {
		return nil, ErrNotEveH5
	}
	steps, err := containerMapperFor(version, cfg.log)
	if err != nil {
		return nil, err
	}

	f := &File{
		log:      cfg.log,
		joinName: cfg.join,
		snapshot: make(map[string]*Data),
		byID:     make(map[string]*Data),
		groups:   make(map[int][]*Data),
	}
	if err := mapContainer(steps, root, f, cfg.log); err != nil {
		return nil, fmt.Errorf("mapping container: %w", err)
	}
	return f, nil
}

// extractEmbedded reads an embedded scan description from the container's
// user block.
func extractEmbedded(path string) ([]byte, bool, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer r.Close()
	return scml.Extract(r)
}

// UseDescription attaches a scan description to an already-mapped file:
// the description is mapped, position counts reconstructed, entities grouped
// by module, and the skip-averaging transform applied. Callers use this for
// measurements whose description lives in a separate SCML file.
func (f *File) UseDescription(xml []byte) error {
	desc, err := LoadDescription(xml, WithLogger(f.log))
	if err != nil {
		return err
	}
	f.description = desc
	desc.ReconstructPositions(f.log)
	f.groupByModule()
	return f.applySkipAveraging()
}

// groupByModule assigns every mapped entity to the module that declared it.
func (f *File) groupByModule() {
	f.groups = make(map[int][]*Data)
	for _, m := range f.description.Modules {
		for _, id := range m.DeclaredDeviceIDs() {
			if d := f.byID[id]; d != nil && !d.snapshot {
				d.moduleID = m.ID
				f.groups[m.ID] = append(f.groups[m.ID], d)
			}
		}
	}
}

// Close releases the underlying container. Entities loaded before Close stay
// readable; unloaded entities fail their import afterwards.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.h5 != nil {
		return f.h5.Close()
	}
	return nil
}

// Path returns the file path, empty for files mapped from a raw tree.
func (f *File) Path() string { return f.path }

// Metadata returns the global measurement metadata.
func (f *File) Metadata() GlobalMetadata { return f.meta }

// Description returns the mapped scan description, nil when none was found.
func (f *File) Description() *ScanDescription { return f.description }

// Entity returns the live-section entity with the given device id, or nil.
func (f *File) Entity(id string) *Data { return f.byID[id] }

// Snapshot returns the snapshot-section entity for a device id, or nil.
func (f *File) Snapshot(id string) *Data { return f.snapshot[id] }

// PositionTimer returns the position-to-timestamp entity, or nil.
func (f *File) PositionTimer() *Data { return f.posTimer }

// Monitors returns all monitor entities.
func (f *File) Monitors() []*Data { return f.monitors }

// Axes returns all live-section axis entities.
func (f *File) Axes() []*Data { return f.byKind(KindAxis) }

// Channels returns all live-section channel entities.
func (f *File) Channels() []*Data { return f.byKind(KindChannel) }

func (f *File) byKind(k Kind) []*Data {
	var out []*Data
	for _, d := range f.main {
		if d.kind == k {
			out = append(out, d)
		}
	}
	return out
}

// ModuleData returns the entities recorded by one scan module. Empty until
// a description is attached.
func (f *File) ModuleData(id int) []*Data { return f.groups[id] }

// ModuleIDs returns the ids of all modules with grouped entities, ascending.
func (f *File) ModuleIDs() []int {
	ids := make([]int, 0, len(f.groups))
	for id := range f.groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// PreferredChannel returns the measurement's preferred channel entity, nil
// when unset or unmapped.
func (f *File) PreferredChannel() *Data { return f.byID[f.meta.PreferredChannel] }

// PreferredAxis returns the measurement's preferred axis entity, nil when
// unset or unmapped.
func (f *File) PreferredAxis() *Data { return f.byID[f.meta.PreferredAxis] }

// add registers a freshly mapped entity in the right section.
func (f *File) add(d *Data, snapshot bool) {
	if snapshot {
		f.snapshot[d.id] = d
		return
	}
	f.main = append(f.main, d)
	f.register(d)
}

// register indexes a live-section entity by id.
func (f *File) register(d *Data) {
	f.byID[d.id] = d
}

// replaceEntity swaps a live-section entity for its recast form and regroups
// it under the given module.
func (f *File) replaceEntity(old, recast *Data, moduleID int) {
	for i, d := range f.main {
		if d == old {
			f.main[i] = recast
			break
		}
	}
	f.byID[recast.id] = recast
	f.groups[moduleID] = append(f.groups[moduleID], recast)
}

// removeEntity drops a live-section entity entirely.
func (f *File) removeEntity(ent *Data) {
	for i, d := range f.main {
		if d == ent {
			f.main = append(f.main[:i], f.main[i+1:]...)
			break
		}
	}
	delete(f.byID, ent.id)
}
