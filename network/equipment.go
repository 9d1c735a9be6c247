package network

import (
	"fmt"
	"math"
	"sort"

	"github.com/bsaid97/go-grid-topology/geometry"
)

// stationBuses groups bus positions by station, each group sorted by
// ascending voltage. Stations are returned in ascending id order.
func stationBuses(buses []ConsolidatedBus, keep func(ConsolidatedBus) bool) ([]int, map[int][]int) {
	groups := make(map[int][]int)
	for i, b := range buses {
		if keep(b) {
			groups[b.StationID] = append(groups[b.StationID], i)
		}
	}
	stations := make([]int, 0, len(groups))
	for s, idx := range groups {
		stations = append(stations, s)
		sort.SliceStable(idx, func(a, b int) bool { return buses[idx[a]].Voltage < buses[idx[b]].Voltage })
	}
	sort.Ints(stations)
	return stations, groups
}

// Transformers connects the AC buses of every station in a voltage chain:
// N distinct voltages give N-1 transformers between consecutive levels.
func Transformers(buses []ConsolidatedBus) ([]Transformer, Diagnostics) {
	var diags Diagnostics
	stations, groups := stationBuses(buses, func(b ConsolidatedBus) bool { return !b.DC })

	var out []Transformer
	for _, station := range stations {
		idx := groups[station]
		for k := 0; k+1 < len(idx); k++ {
			b0, b1 := buses[idx[k]], buses[idx[k+1]]
			t := Transformer{
				ID:        fmt.Sprintf("transf_%d_%d", station, k),
				StationID: station,
				Bus0:      b0.ID,
				Bus1:      b1.ID,
				Voltage0:  b0.Voltage,
				Voltage1:  b1.Voltage,
				Country:   b0.Country,
				Path:      geometry.Path{b0.Location, b1.Location},
			}
			if b1.Country != b0.Country {
				diags.Add(KindCountryMismatch, SeverityWarning, t.ID,
					"bus %d is in %q, bus %d in %q; using %q", b0.ID, b0.Country, b1.ID, b1.Country, b0.Country)
			}
			out = append(out, t)
		}
	}
	return out, diags
}

// Converters links every DC bus to the AC bus of its station with the
// closest voltage. Equal distances pick the lower AC voltage.
func Converters(buses []ConsolidatedBus) []Converter {
	stations, dcGroups := stationBuses(buses, func(b ConsolidatedBus) bool { return b.DC })
	_, acGroups := stationBuses(buses, func(b ConsolidatedBus) bool { return !b.DC })

	var out []Converter
	for _, station := range stations {
		ac := acGroups[station]
		if len(ac) == 0 {
			continue
		}
		for _, d := range dcGroups[station] {
			dc := buses[d]
			best := ac[0]
			for _, a := range ac[1:] {
				if math.Abs(buses[a].Voltage-dc.Voltage) < math.Abs(buses[best].Voltage-dc.Voltage) {
					best = a
				}
			}
			out = append(out, Converter{
				ID:        fmt.Sprintf("convert_%d_%d", station, dc.ID),
				StationID: station,
				Bus0:      dc.ID,
				Bus1:      buses[best].ID,
				Country:   dc.Country,
				Path:      geometry.Path{dc.Location, buses[best].Location},
			})
		}
	}
	return out
}
