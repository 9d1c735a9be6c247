package network

import (
	"math"
	"testing"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawBus(id string, lon, lat, voltage float64, dc bool) RawBus {
	return RawBus{ID: id, Location: geometry.Point{X: lon, Y: lat}, Voltage: voltage, DC: dc}
}

func TestAssignStations(t *testing.T) {
	tests := []struct {
		name     string
		xy       []geometry.Point
		tol      float64
		expected []int
		next     int
	}{
		{
			name:     "zero tolerance keeps distinct points apart",
			xy:       []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}},
			tol:      0,
			expected: []int{0, 1, 2},
			next:     3,
		},
		{
			name:     "zero tolerance keeps coincident points apart",
			xy:       []geometry.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 0, Y: 0}},
			tol:      0,
			expected: []int{0, 1, 2},
			next:     3,
		},
		{
			name:     "later members join an assigned neighbour",
			xy:       []geometry.Point{{X: 0, Y: 0}, {X: 400, Y: 0}, {X: 800, Y: 0}},
			tol:      500,
			expected: []int{0, 0, 0},
			next:     1,
		},
		{
			name:     "single pass is not a transitive closure",
			xy:       []geometry.Point{{X: 0, Y: 0}, {X: 1200, Y: 0}, {X: 400, Y: 0}, {X: 800, Y: 0}},
			tol:      500,
			expected: []int{0, 1, 0, 1},
			next:     2,
		},
		{
			name:     "radius is inclusive",
			xy:       []geometry.Point{{X: 0, Y: 0}, {X: 500, Y: 0}},
			tol:      500,
			expected: []int{0, 0},
			next:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, next, err := AssignStations(tt.xy, tt.tol, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids)
			assert.Equal(t, tt.next, next)
		})
	}
}

func TestAssignStationsContinuesFromNextID(t *testing.T) {
	ids, next, err := AssignStations([]geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8}, ids)
	assert.Equal(t, 9, next)

	ids, next, err = AssignStations(nil, 1, 3)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 3, next)
}

func TestConsolidate(t *testing.T) {
	a := rawBus("a", 10, 10, 220000, false)
	a.Tags = map[string]string{"symbol": "substation", "tag_area": "north"}
	a.Country = "NG"
	b := rawBus("b", 10.0002, 10.0002, 220000, false)
	b.Tags = map[string]string{"symbol": "substation", "tag_area": "south"}
	b.UnderConstruction = true
	c := rawBus("c", 10.0001, 10.0001, 400000, false)
	d := rawBus("d", 10.0001, 10.0001, 400000, true)
	far := rawBus("far", 20, 20, 132000, false)

	buses, err := Consolidate([]RawBus{a, b, c, d, far}, []int{0, 0, 0, 0, 1}, DefaultConsolidateOptions())
	require.NoError(t, err)
	require.Len(t, buses, 4)

	for i, bus := range buses {
		assert.Equal(t, i, bus.ID)
	}

	low := buses[0]
	assert.Equal(t, 220000.0, low.Voltage)
	assert.Equal(t, []string{"a", "b"}, low.Members)
	assert.Equal(t, "north|south", low.Tags["tag_area"])
	assert.Equal(t, "substation", low.Tags["symbol"])
	assert.True(t, low.UnderConstruction)
	assert.Equal(t, "NG", low.Country)
	assert.InDelta(t, 10.0001, low.Location.X, 1e-9)
	assert.InDelta(t, 10.0001, low.Location.Y, 1e-9)

	assert.Equal(t, 400000.0, buses[1].Voltage)
	assert.False(t, buses[1].DC)
	assert.InDelta(t, 10.0011, buses[1].Location.X, 1e-9)
	assert.True(t, buses[2].DC, "AC sorts before DC at equal voltage")
	assert.InDelta(t, 10.0021, buses[2].Location.Y, 1e-9)

	seen := map[geometry.Point]bool{}
	for _, bus := range buses[:3] {
		assert.False(t, seen[bus.Location], "buses of one station never share a position")
		seen[bus.Location] = true
		assert.Equal(t, 0, bus.StationID)
	}
	assert.Equal(t, 1, buses[3].StationID)

	_, err = Consolidate([]RawBus{a}, []int{}, DefaultConsolidateOptions())
	assert.Error(t, err)
	_, err = Consolidate([]RawBus{a}, []int{-1}, DefaultConsolidateOptions())
	assert.Error(t, err)
}

func TestConsolidateOffsets(t *testing.T) {
	station := []RawBus{
		rawBus("a", 10, 10, 66000, false),
		rawBus("b", 10, 10, 132000, false),
		rawBus("c", 10, 10, 230000, false),
	}
	ids := []int{0, 0, 0}

	buses, err := Consolidate(station, ids, ConsolidateOptions{})
	require.NoError(t, err)
	defaults, err := Consolidate(station, ids, DefaultConsolidateOptions())
	require.NoError(t, err)
	assert.Equal(t, defaults, buses, "zero options fall back to the defaults")

	seen := map[geometry.Point]bool{}
	for _, bus := range buses {
		assert.False(t, seen[bus.Location])
		seen[bus.Location] = true
	}

	tests := []struct {
		name string
		opts ConsolidateOptions
	}{
		{"zero offset", ConsolidateOptions{Precision: 4}},
		{"offset below precision", ConsolidateOptions{DeltaLon: 0.00001, DeltaLat: 0.00001, Precision: 4}},
		{"offset lost at zero decimals", ConsolidateOptions{DeltaLon: 0.001, DeltaLat: 0.001}},
		{"not a number", ConsolidateOptions{DeltaLon: math.NaN(), Precision: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Consolidate(station, ids, tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestSetSubstationLV(t *testing.T) {
	buses := []ConsolidatedBus{
		{ID: 0, StationID: 0, Voltage: 400000},
		{ID: 1, StationID: 0, Voltage: 132000},
		{ID: 2, StationID: 0, Voltage: 220000},
		{ID: 3, StationID: 1, Voltage: 400000},
	}
	out := SetSubstationLV(buses)
	assert.Equal(t, []bool{false, true, false, true}, []bool{
		out[0].SubstationLV, out[1].SubstationLV, out[2].SubstationLV, out[3].SubstationLV,
	})
	assert.False(t, buses[1].SubstationLV, "input is not modified")
}
