package evedata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-evedata/internal/item"
)

// containerSteps is the fixed step sequence of the container-facing mapper.
// Generations override individual steps; runContainerMapping drives the
// sequence against the outermost generation so overrides take effect.
type containerSteps interface {
	mapMetadata(root *item.Node, f *File) error
	mapMonitors(f *File, live *ledger) error
	mapTimestamps(f *File, live *ledger) error
	mapArrayChannels(f *File, l *ledger, section *item.Node, snapshot bool) error
	mapAxes(f *File, l *ledger, section *item.Node, snapshot bool) error
	mapAreaChannels(f *File, l *ledger, section *item.Node, snapshot bool) error
	mapChannels(f *File, l *ledger, section *item.Node, snapshot bool) error
}

// mapContainer populates dst from a raw item tree. The step order is
// load-bearing: later steps only inspect items earlier steps left on the
// ledgers.
func mapContainer(s containerSteps, root *item.Node, dst *File, log *zap.Logger) error {
	if root == nil || dst == nil {
		return ErrMissingInput
	}
	if err := s.mapMetadata(root, dst); err != nil {
		return err
	}

	main := root.Find("c1/main")
	snap := root.Find("c1/snapshot")
	meta := root.Find("c1/meta")
	device := root.Find("device")

	live := newLedger(children(main), children(meta), children(device))
	snapshot := newLedger(children(snap))

	if err := s.mapMonitors(dst, live); err != nil {
		return err
	}
	if err := s.mapTimestamps(dst, live); err != nil {
		return err
	}

	sections := []struct {
		l        *ledger
		node     *item.Node
		snapshot bool
	}{
		{live, main, false},
		{snapshot, snap, true},
	}
	for _, sec := range sections {
		if sec.node == nil {
			continue
		}
		if err := s.mapArrayChannels(dst, sec.l, sec.node, sec.snapshot); err != nil {
			return err
		}
		if err := s.mapAxes(dst, sec.l, sec.node, sec.snapshot); err != nil {
			return err
		}
		if err := s.mapAreaChannels(dst, sec.l, sec.node, sec.snapshot); err != nil {
			return err
		}
		if err := s.mapChannels(dst, sec.l, sec.node, sec.snapshot); err != nil {
			return err
		}
	}

	if rest := live.names(); len(rest) > 0 {
		log.Warn("unmapped items in live section", zap.Strings("names", rest))
	}
	if rest := snapshot.names(); len(rest) > 0 {
		log.Warn("unmapped items in snapshot section", zap.Strings("names", rest))
	}
	return nil
}

func children(n *item.Node) []*item.Node {
	if n == nil {
		return nil
	}
	return n.Children()
}

// containerV5 is the oldest supported container generation and the base all
// later generations build on.
type containerV5 struct {
	log *zap.Logger
}

func (c *containerV5) mapMetadata(root *item.Node, f *File) error {
	attrs, err := root.Attributes()
	if err != nil {
		return fmt.Errorf("reading root attributes: %w", err)
	}
	c.mapCommonMetadata(attrs, f)

	// v5 splits the start timestamp into separate date and time attributes.
	date, time1 := attrs["StartDate"], attrs["StartTime"]
	if date != "" && time1 != "" {
		if t, err := time.Parse("2006-01-02 15:04:05", date+" "+time1); err == nil {
			f.meta.StartTime = t
		} else {
			c.log.Warn("unparseable start time", zap.String("date", date), zap.String("time", time1))
		}
	}
	return nil
}

func (c *containerV5) mapCommonMetadata(attrs map[string]string, f *File) {
	f.meta.EVEH5Version = attrs[containerVersionAttr]
	f.meta.Version = attrs["Version"]
	f.meta.XMLVersion = attrs["XMLversion"]
	f.meta.Location = attrs["Location"]
	f.meta.Comment = attrs["Comment"]
	f.meta.PreferredChannel = attrs["PreferredChannel"]
	f.meta.PreferredAxis = attrs["PreferredAxis"]
}

func (c *containerV5) mapMonitors(f *File, live *ledger) error {
	for _, name := range live.names() {
		n := live.node(name)
		if n == nil || !n.IsLeaf() || !strings.HasPrefix(name, "/device/") {
			continue
		}
		live.claim(name)

		meta := deviceMetadata(n)
		d := newData(n.Base(), KindMonitor, 0, meta)
		d.importers = append(d.importers, newTableImporter(n, nil))
		f.monitors = append(f.monitors, d)
		f.register(d)
	}
	return nil
}

func (c *containerV5) mapTimestamps(f *File, live *ledger) error {
	for _, name := range live.names() {
		if !strings.HasSuffix(name, "/PosCountTimer") {
			continue
		}
		n := live.claim(name)
		d := newData("PosCountTimer", KindChannel, ModeSinglePoint, &Metadata{ID: "PosCountTimer", Name: "PosCountTimer", Unit: "ms"})
		d.importers = append(d.importers, newTableImporter(n, nil))
		f.posTimer = d
		return nil
	}
	return nil
}

func (c *containerV5) mapArrayChannels(f *File, l *ledger, section *item.Node, snapshot bool) error {
	return c.mapSubsetChannels(f, l, section, snapshot, "array", ModeArray)
}

func (c *containerV5) mapAreaChannels(f *File, l *ledger, section *item.Node, snapshot bool) error {
	return c.mapSubsetChannels(f, l, section, snapshot, "area", ModeArea)
}

func (c *containerV5) mapSubsetChannels(f *File, l *ledger, section *item.Node, snapshot bool, dataType string, mode ChannelMode) error {
	for _, name := range l.names() {
		n := l.node(name)
		if n == nil || n.IsLeaf() || !inSection(name, section) {
			continue
		}
		if dt, _ := n.Attr("DataType"); dt != dataType {
			continue
		}
		l.claim(name)

		meta := deviceMetadata(n)
		if roi, ok := n.Attr("ROI"); ok {
			meta.ROIs = parseROIs(roi, c.log)
		}
		d := newData(n.Base(), KindChannel, mode, meta)
		d.snapshot = snapshot
		d.importers = append(d.importers, newSubsetImporter(n, mode == ModeArea))
		f.add(d, snapshot)
	}
	return nil
}

func (c *containerV5) mapAxes(f *File, l *ledger, section *item.Node, snapshot bool) error {
	for _, name := range l.names() {
		n := l.node(name)
		if n == nil || !n.IsLeaf() || !inSection(name, section) {
			continue
		}
		if dt, _ := n.Attr("DeviceType"); dt != "Axis" {
			continue
		}
		l.claim(name)

		d := newData(n.Base(), KindAxis, 0, deviceMetadata(n))
		d.snapshot = snapshot
		d.importers = append(d.importers, newTableImporter(n, nil))
		f.add(d, snapshot)
	}
	return nil
}

func (c *containerV5) mapChannels(f *File, l *ledger, section *item.Node, snapshot bool) error {
	avg := claimAux(l, section, "averagemeta")
	std := claimAux(l, section, "standarddev")
	norm := claimAux(l, section, "normalized")

	for _, name := range l.names() {
		n := l.node(name)
		if n == nil || !n.IsLeaf() || !inSection(name, section) {
			continue
		}
		if dt, _ := n.Attr("DeviceType"); dt != "Channel" {
			continue
		}
		l.claim(name)

		id := n.Base()
		meta := deviceMetadata(n)

		mode := ModeSinglePoint
		if meta.DetectorType == "Interval" {
			mode = ModeInterval
		}

		var avgCount, attempts, stdDev *item.Node
		if avg != nil {
			avgCount = avg.Child(id + "__AverageCount")
			attempts = avg.Child(id + "__Attempts")
		}
		if std != nil {
			stdDev = std.Child(id + "__StandardDeviation")
		}
		if avgCount != nil {
			mode = ModeAverage
		}

		d := newData(id, KindChannel, mode, meta)
		d.snapshot = snapshot
		d.importers = append(d.importers, newTableImporter(n, nil))
		if avgCount != nil {
			d.importers = append(d.importers, newTableImporter(avgCount, map[string]string{
				"PosCounter":   attrDiscard,
				"AverageCount": attrAvgCounts,
			}))
		}
		if attempts != nil {
			d.importers = append(d.importers, newTableImporter(attempts, map[string]string{
				"PosCounter": attrDiscard,
				"Attempts":   attrAttempts,
			}))
		}
		if stdDev != nil {
			d.importers = append(d.importers, newTableImporter(stdDev, map[string]string{
				"PosCounter":        attrDiscard,
				"TriggerIntv":       attrTrigIntv,
				"StandardDeviation": attrStdDevs,
			}))
		}
		if norm != nil {
			c.attachNormalized(d, norm, id)
		}
		f.add(d, snapshot)
	}
	return nil
}

// attachNormalized wires the normalized capability onto a channel when the
// section carries a <id>__<normID> dataset for it.
func (c *containerV5) attachNormalized(d *Data, norm *item.Node, id string) {
	for _, child := range norm.Children() {
		base := child.Base()
		if !strings.HasPrefix(base, id+"__") {
			continue
		}
		d.normalized = true
		d.meta.normalized = true
		d.normalizeID = strings.TrimPrefix(base, id+"__")
		d.importers = append(d.importers, newTableImporter(child, map[string]string{
			"PosCounter": attrDiscard,
			"Normalized": attrNormalized,
		}))
		return
	}
}

// containerV6 replaces the split start timestamp with ISO start and end
// timestamps and adds the preferred normalization channel.
type containerV6 struct {
	containerV5
}

func (c *containerV6) mapMetadata(root *item.Node, f *File) error {
	attrs, err := root.Attributes()
	if err != nil {
		return fmt.Errorf("reading root attributes: %w", err)
	}
	c.mapCommonMetadata(attrs, f)
	f.meta.PreferredNormalizationChannel = attrs["PreferredNormalizationChannel"]

	if v := attrs["StartTimeISO"]; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.meta.StartTime = t
		} else {
			c.log.Warn("unparseable start time", zap.String("value", v))
		}
	}
	if v := attrs["EndTimeISO"]; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.meta.EndTime = t
		} else {
			c.log.Warn("unparseable end time", zap.String("value", v))
		}
	}
	return nil
}

// containerV7 adds the simulation flag.
type containerV7 struct {
	containerV6
}

func (c *containerV7) mapMetadata(root *item.Node, f *File) error {
	if err := c.containerV6.mapMetadata(root, f); err != nil {
		return err
	}
	attrs, err := root.Attributes()
	if err != nil {
		return err
	}
	f.meta.Simulation = attrs["Simulation"] == "yes"
	return nil
}

func deviceMetadata(n *item.Node) *Metadata {
	attrs, _ := n.Attributes()
	meta := &Metadata{
		ID:           n.Base(),
		Name:         attrs["Name"],
		Unit:         attrs["Unit"],
		PV:           attrs["Access"],
		DetectorType: attrs["Detectortype"],
	}
	if v, ok := attrs["HighLimit"]; ok {
		meta.HighLimit, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := attrs["LowLimit"]; ok {
		meta.LowLimit, _ = strconv.ParseFloat(v, 64)
	}
	return meta
}

func claimAux(l *ledger, section *item.Node, base string) *item.Node {
	if section == nil {
		return nil
	}
	return l.claim(section.Name() + "/" + base)
}

func inSection(name string, section *item.Node) bool {
	if section == nil {
		return false
	}
	return strings.HasPrefix(name, section.Name()+"/")
}

func parseROIs(s string, log *zap.Logger) []ROI {
	var rois []ROI
	for _, part := range strings.Split(s, ",") {
		lo, hi, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			log.Warn("unparseable ROI", zap.String("roi", part))
			continue
		}
		l, err1 := strconv.Atoi(lo)
		h, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil {
			log.Warn("unparseable ROI", zap.String("roi", part))
			continue
		}
		rois = append(rois, ROI{Low: l, High: h})
	}
	return rois
}
