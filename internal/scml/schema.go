package scml

import (
	"encoding/xml"
	"fmt"
)

// Document is the decoded scan description. The structs mirror the XML
// layout; interpreting them into the measurement model is the job of the
// description mappers, not of this package.
type Document struct {
	XMLName   xml.Name   `xml:"scml"`
	Version   string     `xml:"version"`
	Scan      Scan       `xml:"scan"`
	Detectors []Detector `xml:"detectors>detector"`
	Motors    []Motor    `xml:"motors>motor"`
	Devices   []Device   `xml:"devices>device"`
}

// Scan holds the chains of scan modules.
type Scan struct {
	Chains []Chain `xml:"chain"`
}

// Chain is one execution chain of scan modules.
type Chain struct {
	ID      int          `xml:"id,attr"`
	Modules []ScanModule `xml:"scanmodules>scanmodule"`
}

// ScanModule is one declared module. Exactly one of Classic, StaticSnapshot
// and DynamicSnapshot is non-nil.
type ScanModule struct {
	ID       int    `xml:"id,attr"`
	Name     string `xml:"name"`
	Parent   int    `xml:"parent"`
	Appended *int   `xml:"appended"`
	Nested   *int   `xml:"nested"`

	Classic *Classic `xml:"classic"`

	SaveAxisPositions *struct{} `xml:"save_axis_positions"`
	SaveChannelValues *struct{} `xml:"save_channel_values"`

	DynamicAxisPositions *struct{} `xml:"dynamic_axis_positions"`
	DynamicChannelValues *struct{} `xml:"dynamic_channel_values"`
}

// Classic is the main-phase declaration of a classic module.
type Classic struct {
	ValueCount   int           `xml:"valuecount"`
	Axes         []Axis        `xml:"smaxis"`
	Channels     []Channel     `xml:"smchannel"`
	Positionings []Positioning `xml:"positioning"`
}

// Axis is one driven axis with its step function.
type Axis struct {
	AxisID       string  `xml:"axisid"`
	StepFunction string  `xml:"stepfunction"`
	PositionList string  `xml:"positionlist"`
	Start        float64 `xml:"start"`
	Stop         float64 `xml:"stop"`
	StepWidth    float64 `xml:"stepwidth"`
	FileName     string  `xml:"filename"`
	Ref          string  `xml:"ref"`
}

// Channel is one recorded channel.
type Channel struct {
	ChannelID    string `xml:"channelid"`
	NormalizeID  string `xml:"normalizeid"`
	AverageCount int    `xml:"averagecount"`
}

// Positioning is a post-phase positioning declaration.
type Positioning struct {
	AxisID    string `xml:"axisid"`
	ChannelID string `xml:"channelid"`
	Plugin    string `xml:"plugin"`
}

// Detector declares readout devices.
type Detector struct {
	ID       string            `xml:"id"`
	Name     string            `xml:"name"`
	Channels []DeclaredChannel `xml:"channel"`
}

// DeclaredChannel is a channel declaration inside a detector.
type DeclaredChannel struct {
	ID   string `xml:"id"`
	Name string `xml:"name"`
	Unit string `xml:"unit"`
	PV   string `xml:"pv"`
}

// Motor declares set-point devices.
type Motor struct {
	ID   string         `xml:"id"`
	Name string         `xml:"name"`
	Axes []DeclaredAxis `xml:"axis"`
}

// DeclaredAxis is an axis declaration inside a motor.
type DeclaredAxis struct {
	ID        string  `xml:"id"`
	Name      string  `xml:"name"`
	Unit      string  `xml:"unit"`
	PV        string  `xml:"pv"`
	HighLimit float64 `xml:"highlimit"`
	LowLimit  float64 `xml:"lowlimit"`
}

// Device declares auxiliary devices (monitors and options).
type Device struct {
	ID   string `xml:"id"`
	Name string `xml:"name"`
	PV   string `xml:"pv"`
}

// Parse decodes a scan description document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding scan description: %w", err)
	}
	if doc.Version == "" {
		return nil, fmt.Errorf("scan description has no version element")
	}
	return &doc, nil
}
