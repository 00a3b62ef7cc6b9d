package evedata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-evedata/internal/item"
)

func posTable(name string, pos []int64, vals []float64) *item.Table {
	return &item.Table{Columns: []item.Column{
		{Name: "PosCounter", Ints: pos},
		{Name: name, Floats: vals},
	}}
}

// containerTree builds the synthetic in-memory equivalent of a small
// measurement container for the given schema version.
func containerTree(version string) *item.Node {
	attrs := map[string]string{
		"EVEH5Version":     version,
		"Version":          "1.39",
		"XMLversion":       "9.2",
		"Location":         "TEST",
		"Comment":          "weekly reference scan",
		"PreferredChannel": "SimChan:01",
		"PreferredAxis":    "SimMot:01",
	}
	switch majorVersion(version) {
	case "5":
		attrs["StartDate"] = "2024-03-01"
		attrs["StartTime"] = "08:15:30"
	default:
		attrs["StartTimeISO"] = "2024-03-01T08:15:30Z"
		attrs["EndTimeISO"] = "2024-03-01T09:00:00Z"
		attrs["PreferredNormalizationChannel"] = "SimChan:02"
	}
	if majorVersion(version) == "7" {
		attrs["Simulation"] = "yes"
	}

	b := item.NewBuilder(attrs)

	b.Leaf("/c1/main/SimMot:01", map[string]string{
		"DeviceType": "Axis", "Name": "Motor 1", "Unit": "mm",
		"Access": "SIM:mot1", "HighLimit": "50", "LowLimit": "-50",
	}, posTable("SimMot:01", []int64{1, 2, 3}, []float64{0.1, 0.2, 0.3}))

	b.Leaf("/c1/main/SimChan:01", map[string]string{
		"DeviceType": "Channel", "Name": "Counter 1", "Unit": "counts",
		"Access": "SIM:chan1", "Detectortype": "Standard",
	}, posTable("SimChan:01", []int64{1, 2, 3}, []float64{100, 200, 300}))

	b.Leaf("/c1/main/SimChan:02", map[string]string{
		"DeviceType": "Channel", "Name": "Counter 2", "Detectortype": "Standard",
	}, posTable("SimChan:02", []int64{1, 2, 3}, []float64{10, 20, 30}))
	b.Leaf("/c1/main/averagemeta/SimChan:02__AverageCount", nil, &item.Table{Columns: []item.Column{
		{Name: "PosCounter", Ints: []int64{1, 2, 3}},
		{Name: "AverageCount", Ints: []int64{4, 4, 4}},
	}})
	b.Leaf("/c1/main/averagemeta/SimChan:02__Attempts", nil, &item.Table{Columns: []item.Column{
		{Name: "PosCounter", Ints: []int64{1, 2, 3}},
		{Name: "Attempts", Ints: []int64{4, 5, 4}},
	}})
	b.Leaf("/c1/main/standarddev/SimChan:02__StandardDeviation", nil, &item.Table{Columns: []item.Column{
		{Name: "PosCounter", Ints: []int64{1, 2, 3}},
		{Name: "TriggerIntv", Floats: []float64{0.1, 0.1, 0.1}},
		{Name: "StandardDeviation", Floats: []float64{0.5, 0.6, 0.7}},
	}})

	b.Leaf("/c1/main/normalized/SimChan:01__SimChan:02", nil, &item.Table{Columns: []item.Column{
		{Name: "PosCounter", Ints: []int64{1, 2, 3}},
		{Name: "Normalized", Floats: []float64{10, 10, 10}},
	}})

	b.Group("/c1/main/SimMCA:01", map[string]string{"DataType": "array", "Name": "MCA 1"})
	b.Leaf("/c1/main/SimMCA:01/00000001", nil, &item.Table{Columns: []item.Column{
		{Name: "0", Floats: []float64{1, 2, 3, 4}},
	}})
	b.Leaf("/c1/main/SimMCA:01/00000002", nil, &item.Table{Columns: []item.Column{
		{Name: "0", Floats: []float64{5, 6, 7, 8}},
	}})

	b.Group("/c1/main/SimCam:01", map[string]string{"DataType": "area", "ROI": "0:10, 5:20"})
	b.Leaf("/c1/main/SimCam:01/00000001", nil, &item.Table{
		Columns: []item.Column{{Name: "0", Floats: []float64{1, 2, 3, 4}}},
		Shape:   []int{2, 2},
	})

	b.Leaf("/c1/meta/PosCountTimer", nil, &item.Table{Columns: []item.Column{
		{Name: "PosCounter", Ints: []int64{1, 2, 3}},
		{Name: "PosCountTimer", Ints: []int64{0, 250, 500}},
	}})

	b.Leaf("/device/SimMnt:01", map[string]string{"Name": "Shutter"}, &item.Table{Columns: []item.Column{
		{Name: "mSecsSinceStart", Ints: []int64{10, 300}},
		{Name: "SimMnt:01", Strings: []string{"open", "closed"}},
	}})

	b.Leaf("/c1/snapshot/SimMot:01", map[string]string{
		"DeviceType": "Axis", "Name": "Motor 1", "Unit": "mm",
	}, posTable("SimMot:01", []int64{1}, []float64{0.05}))

	// An item no mapper step recognizes; it must survive on the ledger
	// without failing the run.
	b.Leaf("/c1/main/Bogus:01", map[string]string{"DeviceType": "Gadget"},
		posTable("Bogus:01", []int64{1}, []float64{0}))

	return b.Root()
}

func TestMapContainerV5Metadata(t *testing.T) {
	f, err := fromItem(containerTree("5.0"), defaultConfig())
	require.NoError(t, err)

	meta := f.Metadata()
	assert.Equal(t, "5.0", meta.EVEH5Version)
	assert.Equal(t, "1.39", meta.Version)
	assert.Equal(t, "9.2", meta.XMLVersion)
	assert.Equal(t, "TEST", meta.Location)
	assert.Equal(t, "weekly reference scan", meta.Comment)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 15, 30, 0, time.UTC), meta.StartTime)
	assert.True(t, meta.EndTime.IsZero(), "v5 has no end timestamp")
	assert.Empty(t, meta.PreferredNormalizationChannel)
	assert.False(t, meta.Simulation)
}

func TestMapContainerV6Metadata(t *testing.T) {
	f, err := fromItem(containerTree("6.1"), defaultConfig())
	require.NoError(t, err)

	meta := f.Metadata()
	assert.Equal(t, time.Date(2024, 3, 1, 8, 15, 30, 0, time.UTC), meta.StartTime)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), meta.EndTime)
	assert.Equal(t, "SimChan:02", meta.PreferredNormalizationChannel)
	assert.False(t, meta.Simulation, "simulation flag exists from v7 on")
}

func TestMapContainerV7Metadata(t *testing.T) {
	f, err := fromItem(containerTree("7.0"), defaultConfig())
	require.NoError(t, err)

	assert.True(t, f.Metadata().Simulation)
}

func TestMapContainerEntities(t *testing.T) {
	f, err := fromItem(containerTree("7.0"), defaultConfig())
	require.NoError(t, err)

	axis := f.Entity("SimMot:01")
	require.NotNil(t, axis)
	assert.Equal(t, KindAxis, axis.Kind())
	assert.Equal(t, "Motor 1", axis.Name())
	assert.Equal(t, 50.0, axis.Metadata().HighLimit)
	assert.Equal(t, -50.0, axis.Metadata().LowLimit)
	assert.Equal(t, "SIM:mot1", axis.Metadata().PV)
	vals, err := axis.Values()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vals)

	ch := f.Entity("SimChan:01")
	require.NotNil(t, ch)
	assert.Equal(t, KindChannel, ch.Kind())
	assert.Equal(t, ModeSinglePoint, ch.Mode())
	assert.True(t, ch.Normalized())
	assert.Equal(t, "SimChan:02", ch.NormalizeID())
	norm, err := ch.NormalizedValues()
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10, 10}, norm)

	avg := f.Entity("SimChan:02")
	require.NotNil(t, avg)
	assert.Equal(t, ModeAverage, avg.Mode())
	counts, err := avg.AverageCounts()
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 4, 4}, counts)
	stddevs, err := avg.StdDevs()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.6, 0.7}, stddevs)
	vals, err = avg.Values()
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, vals, "container means stay authoritative")

	mca := f.Entity("SimMCA:01")
	require.NotNil(t, mca)
	assert.Equal(t, ModeArray, mca.Mode())
	arrays, err := mca.Arrays()
	require.NoError(t, err)
	require.Len(t, arrays, 2)
	assert.Equal(t, []float64{1, 2, 3, 4}, arrays[0])
	pos, _ := mca.Positions()
	assert.Equal(t, []int64{1, 2}, pos)

	cam := f.Entity("SimCam:01")
	require.NotNil(t, cam)
	assert.Equal(t, ModeArea, cam.Mode())
	assert.Equal(t, []ROI{{Low: 0, High: 10}, {Low: 5, High: 20}}, cam.Metadata().ROIs)
	areas, err := cam.Areas()
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, 2, areas[0].Rows)
	assert.Equal(t, 2, areas[0].Cols)

	require.Len(t, f.Monitors(), 1)
	mon := f.Monitors()[0]
	assert.Equal(t, "SimMnt:01", mon.ID())
	assert.Equal(t, KindMonitor, mon.Kind())
	strs, err := mon.StringValues()
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "closed"}, strs)

	timer := f.PositionTimer()
	require.NotNil(t, timer)
	tpos, err := timer.Positions()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, tpos)

	snap := f.Snapshot("SimMot:01")
	require.NotNil(t, snap)
	assert.True(t, snap.IsSnapshot())
	assert.NotSame(t, axis, snap, "live and snapshot series are distinct entities")

	assert.Same(t, ch, f.PreferredChannel())
	assert.Same(t, axis, f.PreferredAxis())

	assert.Nil(t, f.Entity("Bogus:01"), "unrecognized items stay unmapped")
}

func TestMapContainerUnsupportedVersion(t *testing.T) {
	b := item.NewBuilder(map[string]string{"EVEH5Version": "4.0"})
	_, err := fromItem(b.Root(), defaultConfig())
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestMapContainerNotEveH5(t *testing.T) {
	b := item.NewBuilder(map[string]string{"Comment": "plain hdf5"})
	_, err := fromItem(b.Root(), defaultConfig())
	assert.ErrorIs(t, err, ErrNotEveH5)
}

func TestMapContainerMissingInput(t *testing.T) {
	_, err := fromItem(nil, defaultConfig())
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestSupportedVersions(t *testing.T) {
	assert.Equal(t, []string{"5", "6", "7"}, SupportedContainerVersions())
	assert.Equal(t, []string{"9.0", "9.1", "9.2"}, SupportedDescriptionVersions())
}
