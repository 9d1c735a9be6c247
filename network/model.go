// Package network turns raw substation and line features into a connected
// bus/branch grid model.
package network

import (
	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/twpayne/go-geom"
)

// RawBus is a substation point as read from the source dataset. Voltage is
// in volts.
type RawBus struct {
	ID                string
	Location          geometry.Point
	Voltage           float64
	DC                bool
	Country           string
	UnderConstruction bool
	Tags              map[string]string
}

// RawLine is a transmission line as read from the source dataset. Voltage
// is in volts, Length in metres.
type RawLine struct {
	ID                string
	Path              geometry.Path
	Voltage           float64
	DC                bool
	Frequency         string
	Circuits          int
	Length            float64
	UnderConstruction bool
	Underground       bool
	Country           string
	Tags              map[string]string
}

// ConsolidatedBus is the single bus of one (station, voltage, polarity)
// combination.
type ConsolidatedBus struct {
	ID                 int
	StationID          int
	Voltage            float64
	DC                 bool
	Location           geometry.Point
	XY                 geometry.Point
	Country            string
	UnderConstruction  bool
	Tags               map[string]string
	Members            []string
	SubstationLV       bool
	SubstationOffshore bool
	Augmented          bool
}

// CorrectedLine is a line whose endpoints have been attached to buses.
type CorrectedLine struct {
	RawLine
	Bus0               int
	Bus1               int
	UnderwaterFraction float64
}

type Transformer struct {
	ID        string
	StationID int
	Bus0      int
	Bus1      int
	Voltage0  float64
	Voltage1  float64
	Country   string
	Path      geometry.Path
}

type Converter struct {
	ID                string
	StationID         int
	Bus0              int
	Bus1              int
	Country           string
	Path              geometry.Path
	Underground       bool
	UnderConstruction bool
}

// Outlines maps an outline key (a country code) to its lon/lat polygon.
type Outlines map[string]geom.T

// Network is the result of Build.
type Network struct {
	Buses         []ConsolidatedBus
	Lines         []CorrectedLine
	Transformers  []Transformer
	Converters    []Converter
	NextStationID int
	Diagnostics   Diagnostics
}

type busClass struct {
	voltage float64
	dc      bool
}

func classOf(voltage float64, dc bool) busClass {
	return busClass{voltage: voltage, dc: dc}
}

func cloneTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
