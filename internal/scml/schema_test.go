package scml

import "testing"

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<scml>
  <version>9.1</version>
  <scan>
    <chain id="1">
      <scanmodules>
        <scanmodule id="1">
          <name>energy scan</name>
          <parent>0</parent>
          <nested>2</nested>
          <classic>
            <valuecount>2</valuecount>
            <smaxis>
              <axisid>SimMot:01</axisid>
              <stepfunction>Positionlist</stepfunction>
              <positionlist>1,2,3</positionlist>
            </smaxis>
            <smchannel>
              <channelid>SimChan:01</channelid>
              <normalizeid>SimChan:02</normalizeid>
              <averagecount>4</averagecount>
            </smchannel>
            <positioning>
              <axisid>SimMot:01</axisid>
              <channelid>SimChan:01</channelid>
              <plugin>CENTER</plugin>
            </positioning>
          </classic>
        </scanmodule>
        <scanmodule id="2">
          <name>snapshot</name>
          <parent>1</parent>
          <save_axis_positions/>
          <save_channel_values/>
        </scanmodule>
      </scanmodules>
    </chain>
  </scan>
  <motors>
    <motor>
      <id>SimMot</id>
      <axis>
        <id>SimMot:01</id>
        <name>Motor 1</name>
        <unit>mm</unit>
        <pv>SIM:mot1</pv>
        <highlimit>50</highlimit>
        <lowlimit>-50</lowlimit>
      </axis>
    </motor>
  </motors>
  <detectors>
    <detector>
      <id>SimDet</id>
      <channel>
        <id>SimChan:01</id>
        <name>Counter 1</name>
        <unit>counts</unit>
        <pv>SIM:chan1</pv>
      </channel>
    </detector>
  </detectors>
</scml>`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Version != "9.1" {
		t.Errorf("version: got %q", doc.Version)
	}
	if len(doc.Scan.Chains) != 1 {
		t.Fatalf("chains: got %d", len(doc.Scan.Chains))
	}
	modules := doc.Scan.Chains[0].Modules
	if len(modules) != 2 {
		t.Fatalf("modules: got %d", len(modules))
	}

	classic := modules[0]
	if classic.Classic == nil {
		t.Fatal("module 1 should be classic")
	}
	if classic.Nested == nil || *classic.Nested != 2 {
		t.Error("module 1 should nest module 2")
	}
	if classic.Classic.ValueCount != 2 {
		t.Errorf("valuecount: got %d", classic.Classic.ValueCount)
	}
	if len(classic.Classic.Axes) != 1 || classic.Classic.Axes[0].PositionList != "1,2,3" {
		t.Errorf("axes: got %+v", classic.Classic.Axes)
	}
	if len(classic.Classic.Channels) != 1 || classic.Classic.Channels[0].NormalizeID != "SimChan:02" {
		t.Errorf("channels: got %+v", classic.Classic.Channels)
	}
	if len(classic.Classic.Positionings) != 1 || classic.Classic.Positionings[0].Plugin != "CENTER" {
		t.Errorf("positionings: got %+v", classic.Classic.Positionings)
	}

	snapshot := modules[1]
	if snapshot.Classic != nil || snapshot.SaveAxisPositions == nil {
		t.Error("module 2 should be a static snapshot")
	}

	if len(doc.Motors) != 1 || len(doc.Motors[0].Axes) != 1 {
		t.Fatalf("motors: got %+v", doc.Motors)
	}
	axis := doc.Motors[0].Axes[0]
	if axis.HighLimit != 50 || axis.LowLimit != -50 {
		t.Errorf("limits: got %v..%v", axis.LowLimit, axis.HighLimit)
	}
}

func TestParseRejectsVersionless(t *testing.T) {
	_, err := Parse([]byte(`<scml><scan/></scml>`))
	if err == nil {
		t.Error("versionless document should fail")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte(`not xml at all`))
	if err == nil {
		t.Error("garbage should fail")
	}
}
