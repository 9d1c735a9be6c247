package network

import (
	"math"
	"sort"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

const (
	// DefaultCountryPathCutoff bounds, in km, the network distance searched
	// for a country donor.
	DefaultCountryPathCutoff = 200.0
	// AugmentedVoltage is the voltage of the bus added to a country that
	// has no network data.
	AugmentedVoltage = 220000.0
)

// sortedKeys returns the outline keys in a stable order.
func (o Outlines) sortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssignCountries fills in missing bus countries. A bus first takes the
// onshore outline containing it; otherwise the country of the closest bus
// by network distance, within cutoffKm, along lines (weighted by length)
// and between buses of the same station (weight zero).
func AssignCountries(buses []ConsolidatedBus, lines []CorrectedLine, onshore Outlines, ops geometry.Ops, cutoffKm float64) ([]ConsolidatedBus, Diagnostics) {
	var diags Diagnostics
	out := make([]ConsolidatedBus, len(buses))
	copy(out, buses)

	keys := onshore.sortedKeys()
	var homeless []int
	for i := range out {
		if out[i].Country != "" {
			continue
		}
		point := out[i].Location.GeomPoint()
		for _, key := range keys {
			inside, err := ops.Contains(onshore[key], point)
			if err != nil {
				diags.AddOutline(KindInvalidGeometry, SeverityWarning, key, "containment test failed: %v", err)
				continue
			}
			if inside {
				out[i].Country = key
				break
			}
		}
		if out[i].Country == "" {
			homeless = append(homeless, i)
		}
	}
	if len(homeless) == 0 {
		return out, diags
	}

	g := busGraph(out, lines)
	for _, i := range homeless {
		shortest := path.DijkstraFrom(simple.Node(int64(out[i].ID)), g)
		best, bestDist := -1, math.Inf(1)
		for j := range out {
			if j == i || out[j].Country == "" {
				continue
			}
			d := shortest.WeightTo(int64(out[j].ID))
			if d <= cutoffKm && d < bestDist {
				best, bestDist = j, d
			}
		}
		if best < 0 {
			diags.Add(KindOutlineMismatch, SeverityWarning, busFeature(out[i]),
				"no country outline contains the bus and no bus with a country within %.0f km", cutoffKm)
			continue
		}
		out[i].Country = out[best].Country
	}
	return out, diags
}

func busGraph(buses []ConsolidatedBus, lines []CorrectedLine) *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for _, b := range buses {
		g.AddNode(simple.Node(int64(b.ID)))
	}
	connect := func(u, v int64, w float64) {
		if u == v || g.Node(u) == nil || g.Node(v) == nil {
			return
		}
		if e := g.WeightedEdge(u, v); e != nil && e.Weight() <= w {
			return
		}
		g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(u), T: simple.Node(v), W: w})
	}
	for _, l := range lines {
		connect(int64(l.Bus0), int64(l.Bus1), l.Length/1000)
	}
	first := make(map[int]int64)
	for _, b := range buses {
		if root, ok := first[b.StationID]; ok {
			connect(root, int64(b.ID), 0)
			continue
		}
		first[b.StationID] = int64(b.ID)
	}
	return g
}

func busFeature(b ConsolidatedBus) string {
	if len(b.Members) > 0 {
		return b.Members[0]
	}
	return "bus"
}

// AugmentMissingCountries adds one AC bus at the outline centroid of every
// configured country that has an outline but no bus. Countries left
// without buses, and bus countries that are not configured, are reported.
func AugmentMissingCountries(buses []ConsolidatedBus, countries []string, onshore Outlines, ops geometry.Ops, projector *geometry.Projector, nextStation int) ([]ConsolidatedBus, int, Diagnostics) {
	var diags Diagnostics
	out := make([]ConsolidatedBus, len(buses))
	copy(out, buses)

	present := make(map[string]bool)
	nextID := 0
	for _, b := range out {
		present[b.Country] = true
		if b.ID >= nextID {
			nextID = b.ID + 1
		}
	}

	for _, country := range countries {
		if present[country] {
			continue
		}
		outline, ok := onshore[country]
		if !ok {
			continue
		}
		centroid, err := ops.Centroid(outline)
		if err != nil {
			diags.AddOutline(KindOutlineMismatch, SeverityWarning, country, "no centroid for augmented bus: %v", err)
			continue
		}
		xy, err := projector.Forward(centroid)
		if err != nil {
			diags.AddOutline(KindInvalidGeometry, SeverityWarning, country, "augmented bus: %v", err)
			continue
		}
		out = append(out, ConsolidatedBus{
			ID:           nextID,
			StationID:    nextStation,
			Voltage:      AugmentedVoltage,
			Location:     centroid,
			XY:           xy,
			Country:      country,
			Tags:         map[string]string{"symbol": "substation", "tag_substation": "transmission"},
			SubstationLV: true,
			Augmented:    true,
		})
		present[country] = true
		diags.AddOutline(KindOutlineMismatch, SeverityInfo, country, "no network data, added bus %d at the outline centroid", nextID)
		nextID++
		nextStation++
	}

	configured := make(map[string]bool, len(countries))
	for _, c := range countries {
		configured[c] = true
		if !present[c] {
			diags.AddOutline(KindOutlineMismatch, SeverityError, c, "country has no buses and no outline")
		}
	}
	var extra []string
	for c := range present {
		if c != "" && !configured[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	for _, c := range extra {
		diags.AddOutline(KindOutlineMismatch, SeverityError, c, "buses are assigned to a country that is not configured")
	}
	return out, nextStation, diags
}

// SetSubstationOffshore flags buses inside the offshore area or at or
// above minVoltage. A nil offshore geometry only applies the voltage rule.
func SetSubstationOffshore(buses []ConsolidatedBus, offshore geom.T, minVoltage float64, ops geometry.Ops) ([]ConsolidatedBus, Diagnostics) {
	var diags Diagnostics
	out := make([]ConsolidatedBus, len(buses))
	copy(out, buses)
	for i := range out {
		out[i].SubstationOffshore = out[i].Voltage >= minVoltage
		if out[i].SubstationOffshore || offshore == nil {
			continue
		}
		inside, err := ops.Contains(offshore, out[i].Location.GeomPoint())
		if err != nil {
			diags.Add(KindInvalidGeometry, SeverityWarning, busFeature(out[i]), "offshore test failed: %v", err)
			continue
		}
		out[i].SubstationOffshore = inside
	}
	return out, diags
}

// UnderwaterFraction sets the share of each line's length that lies inside
// the offshore area.
func UnderwaterFraction(lines []CorrectedLine, offshore geom.T, ops geometry.Ops) ([]CorrectedLine, Diagnostics) {
	var diags Diagnostics
	out := make([]CorrectedLine, len(lines))
	copy(out, lines)
	if offshore == nil {
		return out, diags
	}
	for i := range out {
		ls := out[i].Path.LineString()
		total, err := ops.Length(ls)
		if err != nil || total == 0 {
			continue
		}
		wet, err := ops.Intersection(ls, offshore)
		if err != nil {
			diags.Add(KindInvalidGeometry, SeverityWarning, out[i].ID, "underwater fraction: %v", err)
			continue
		}
		inside, err := ops.Length(wet)
		if err != nil {
			continue
		}
		out[i].UnderwaterFraction = math.Min(1, inside/total)
	}
	return out, diags
}
