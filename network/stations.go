package network

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/utils"
)

// AssignStations gives every point a station id. Points are visited in
// input order; an unassigned point pulls every point within tol into its
// group. The group joins the first already assigned member's station, or
// a fresh id starting at nextID when none is assigned. Membership is not
// transitive: a point assigned earlier keeps its station even when a later
// group reaches it. A tol of zero or less gives every point its own station,
// coincident points included. The returned next is the first unused id.
func AssignStations(xy []geometry.Point, tol float64, nextID int) (ids []int, next int, err error) {
	index, err := utils.NewPointIndex(xy)
	if err != nil {
		return nil, nextID, fmt.Errorf("failed to index buses: %w", err)
	}

	ids = make([]int, len(xy))
	if tol <= 0 {
		for i := range ids {
			ids[i] = nextID
			nextID++
		}
		return ids, nextID, nil
	}
	for i := range ids {
		ids[i] = -1
	}

	for i, p := range xy {
		if ids[i] >= 0 {
			continue
		}
		group, err := index.QueryRadius(p, tol)
		if err != nil {
			return nil, nextID, fmt.Errorf("bus %d: %w", i, err)
		}

		station := -1
		for _, j := range group {
			if ids[j] >= 0 {
				station = ids[j]
				break
			}
		}
		if station < 0 {
			station = nextID
			nextID++
		}

		ids[i] = station
		for _, j := range group {
			if ids[j] < 0 {
				ids[j] = station
			}
		}
	}
	return ids, nextID, nil
}

// ConsolidateOptions controls where merged buses are placed.
type ConsolidateOptions struct {
	// DeltaLon and DeltaLat separate the buses of one station, in degrees.
	DeltaLon  float64
	DeltaLat  float64
	Precision uint
}

func DefaultConsolidateOptions() ConsolidateOptions {
	return ConsolidateOptions{DeltaLon: 0.001, DeltaLat: 0.001, Precision: 4}
}

// validate checks that the offset survives rounding, so that buses of one
// station never share a location.
func (o ConsolidateOptions) validate() error {
	step := math.Max(math.Abs(o.DeltaLon), math.Abs(o.DeltaLat))
	if math.IsNaN(step) || math.IsInf(step, 0) || step < math.Pow10(-int(o.Precision)) {
		return fmt.Errorf("bus offset (%v, %v) vanishes at %d decimals", o.DeltaLon, o.DeltaLat, o.Precision)
	}
	return nil
}

// Consolidate merges all raw buses sharing a station, voltage and polarity
// into one bus. Within a station, the k-th (voltage, polarity) combination
// in ascending voltage order (AC first) is placed at the station mean plus
// k times the configured offset. Bus ids are sequential from zero. Zero
// options mean DefaultConsolidateOptions.
func Consolidate(buses []RawBus, stationIDs []int, opts ConsolidateOptions) ([]ConsolidatedBus, error) {
	if len(buses) != len(stationIDs) {
		return nil, fmt.Errorf("got %d station ids for %d buses", len(stationIDs), len(buses))
	}
	if opts == (ConsolidateOptions{}) {
		opts = DefaultConsolidateOptions()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	members := make(map[int][]int)
	for i, s := range stationIDs {
		if s < 0 {
			return nil, fmt.Errorf("bus %s has no station", buses[i].ID)
		}
		members[s] = append(members[s], i)
	}
	stations := make([]int, 0, len(members))
	for s := range members {
		stations = append(stations, s)
	}
	sort.Ints(stations)

	out := make([]ConsolidatedBus, 0, len(stations))
	for _, station := range stations {
		idx := members[station]

		var lon, lat float64
		for _, i := range idx {
			lon += buses[i].Location.X
			lat += buses[i].Location.Y
		}
		n := float64(len(idx))
		center := utils.RoundPoint(geometry.Point{X: lon / n, Y: lat / n}, opts.Precision)

		groups := make(map[busClass][]int)
		for _, i := range idx {
			c := classOf(buses[i].Voltage, buses[i].DC)
			groups[c] = append(groups[c], i)
		}
		classes := make([]busClass, 0, len(groups))
		for c := range groups {
			classes = append(classes, c)
		}
		sort.Slice(classes, func(a, b int) bool {
			if classes[a].voltage != classes[b].voltage {
				return classes[a].voltage < classes[b].voltage
			}
			return !classes[a].dc && classes[b].dc
		})

		for k, c := range classes {
			location := utils.RoundPoint(geometry.Point{
				X: center.X + float64(k)*opts.DeltaLon,
				Y: center.Y + float64(k)*opts.DeltaLat,
			}, opts.Precision)
			out = append(out, mergeGroup(len(out), station, c, location, buses, groups[c]))
		}
	}
	return out, nil
}

func mergeGroup(id, station int, c busClass, location geometry.Point, buses []RawBus, idx []int) ConsolidatedBus {
	bus := ConsolidatedBus{
		ID:        id,
		StationID: station,
		Voltage:   c.voltage,
		DC:        c.dc,
		Location:  location,
		Members:   make([]string, 0, len(idx)),
	}

	values := make(map[string][]string)
	for _, i := range idx {
		raw := buses[i]
		bus.Members = append(bus.Members, raw.ID)
		bus.UnderConstruction = bus.UnderConstruction || raw.UnderConstruction
		if bus.Country == "" {
			bus.Country = raw.Country
		}
		for k, v := range raw.Tags {
			if v == "" || containsString(values[k], v) {
				continue
			}
			values[k] = append(values[k], v)
		}
	}
	if len(values) > 0 {
		bus.Tags = make(map[string]string, len(values))
		for k, vs := range values {
			bus.Tags[k] = strings.Join(vs, "|")
		}
	}
	return bus
}

func containsString(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

// SetSubstationLV flags the lowest-voltage bus of every station. Stations
// with a single bus are always low voltage.
func SetSubstationLV(buses []ConsolidatedBus) []ConsolidatedBus {
	out := make([]ConsolidatedBus, len(buses))
	copy(out, buses)

	lowest := make(map[int]int)
	for i, b := range out {
		out[i].SubstationLV = false
		j, ok := lowest[b.StationID]
		if !ok || b.Voltage < out[j].Voltage {
			lowest[b.StationID] = i
		}
	}
	for _, i := range lowest {
		out[i].SubstationLV = true
	}
	return out
}
