package evedata

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-evedata/internal/series"
)

// applySkipAveraging undoes the MPSKIP hardware workaround: a module that
// records every individual sub-sample of an averaged readout as its own
// position is rewritten into ordinary averaged channels and axes on its
// parent module, and removed from the module collection.
//
// The transform only applies when a scan description is present and one of
// its modules declares a skip channel; in every other case it logs and does
// nothing, since the feature is opt-in and rare.
func (f *File) applySkipAveraging() error {
	if f.description == nil {
		f.log.Debug("skip averaging: no scan description, nothing to do")
		return nil
	}
	var skip *ScanModule
	for _, m := range f.description.Modules {
		if m.SkipChannelID != "" {
			skip = m
			break
		}
	}
	if skip == nil {
		return nil
	}
	parent := f.description.Modules[skip.ParentID]
	if parent == nil {
		f.log.Warn("skip module has no mapped parent, leaving it untouched",
			zap.Int("module", skip.ID))
		return nil
	}

	skipData := f.Entity(skip.SkipChannelID)
	if skipData == nil {
		f.log.Warn("skip channel has no recorded data, leaving module untouched",
			zap.String("channel", skip.SkipChannelID))
		return nil
	}
	skipPositions, err := skipData.Positions()
	if err != nil {
		return fmt.Errorf("loading skip channel %s: %w", skip.SkipChannelID, err)
	}

	// The parent's true positions: one per contiguous run of skip positions,
	// each the position just before the run started.
	runs := series.SplitRuns(skipPositions, 1)
	parentPositions := make([]int64, len(runs))
	for i, run := range runs {
		parentPositions[i] = run[0] - 1
	}

	for _, id := range skip.DeclaredDeviceIDs() {
		if id == skip.SkipChannelID {
			continue
		}
		ent := f.Entity(id)
		if ent == nil {
			f.log.Warn("skip module device has no recorded data", zap.String("device", id))
			continue
		}
		recast := f.recastSkipDevice(ent, skip, skipData)
		recast.addImportSteps(
			stepKeepPositions(skipPositions),
			stepRegroupByGap(parentPositions, 1),
		)
		recast.moduleID = parent.ID
		f.replaceEntity(ent, recast, parent.ID)
	}

	// Devices already on the parent see only the parent's true positions.
	for _, id := range parent.DeclaredDeviceIDs() {
		if ent := f.Entity(id); ent != nil {
			ent.addImportSteps(stepKeepPositions(parentPositions))
		}
	}

	delete(f.description.Modules, skip.ID)
	delete(f.groups, skip.ID)
	relinkAround(f.description, skip)
	f.removeEntity(skipData)
	f.log.Info("rewrote skip module onto parent",
		zap.Int("module", skip.ID),
		zap.Int("parent", parent.ID),
		zap.Int("positions", len(parentPositions)))
	return nil
}

// recastSkipDevice rebuilds a skip-module entity in its post-transform role:
// readback pseudo-channels become axes, everything else becomes an averaged
// (or normalized-averaged) channel inheriting calibration and limits from
// the skip device.
func (f *File) recastSkipDevice(ent *Data, skip *ScanModule, skipData *Data) *Data {
	meta := *ent.meta
	if isRBV(ent.id) {
		recast := newData(ent.id, KindAxis, 0, &meta)
		recast.importers = ent.importers
		return recast
	}

	if skipMeta := skipData.Metadata(); skipMeta != nil {
		meta.HighLimit = skipMeta.HighLimit
		meta.LowLimit = skipMeta.LowLimit
		meta.DetectorType = skipMeta.DetectorType
		meta.AverageCount = skipMeta.AverageCount
	}
	recast := newData(ent.id, KindChannel, ModeAverage, &meta)
	recast.importers = ent.importers
	for _, decl := range skip.Channels {
		if decl.ID == ent.id && decl.NormalizeID != "" {
			recast.normalized = true
			recast.meta.normalized = true
			recast.normalizeID = decl.NormalizeID
		}
	}
	return recast
}

// addImportSteps appends preprocessing steps to every importer of an entity.
func (d *Data) addImportSteps(steps ...step) {
	for _, imp := range d.importers {
		imp.addSteps(steps...)
	}
}

// relinkAround removes a module from its parent's nested/appended links,
// promoting the removed module's own successor where one exists.
func relinkAround(desc *ScanDescription, removed *ScanModule) {
	for _, m := range desc.Modules {
		if m.NestedID == removed.ID {
			m.NestedID = removed.NestedID
		}
		if m.AppendedID == removed.ID {
			m.AppendedID = removed.AppendedID
		}
	}
}
