package network

import (
	"testing"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProjector(t *testing.T) *geometry.Projector {
	t.Helper()
	p, err := geometry.NewProjector(geometry.WebMercator)
	require.NoError(t, err)
	return p
}

func projectedBuses(t *testing.T, buses []ConsolidatedBus) []ConsolidatedBus {
	t.Helper()
	p := testProjector(t)
	for i := range buses {
		xy, err := p.Forward(buses[i].Location)
		require.NoError(t, err)
		buses[i].XY = xy
	}
	return buses
}

func TestAssignEndpoints(t *testing.T) {
	buses := projectedBuses(t, []ConsolidatedBus{
		{ID: 0, StationID: 0, Voltage: 220000, Location: geometry.Point{X: 0, Y: 0}},
		{ID: 1, StationID: 1, Voltage: 220000, Location: geometry.Point{X: 0.1, Y: 0}},
		{ID: 2, StationID: 1, Voltage: 400000, Location: geometry.Point{X: 0.101, Y: 0.001}},
		{ID: 3, StationID: 2, Voltage: 500000, DC: true, Location: geometry.Point{X: 0.2, Y: 0}},
	})

	lines := []RawLine{
		{ID: "exact", Voltage: 220000, Path: geometry.Path{{X: 0, Y: 0}, {X: 0.1, Y: 0}}},
		{ID: "short", Voltage: 220000, Path: geometry.Path{{X: 0.001, Y: 0.001}, {X: 0.05, Y: 0}, {X: 0.099, Y: 0}},
			Tags: map[string]string{"tag_type": "line"}},
		{ID: "wrong-class", Voltage: 400000, DC: true, Path: geometry.Path{{X: 0, Y: 0}, {X: 0.1, Y: 0}}},
		{ID: "broken", Voltage: 220000, Path: geometry.Path{{X: 0, Y: 0}}},
	}

	corrected, diags := AssignEndpoints(lines, buses, testProjector(t))
	require.Len(t, corrected, 2)

	exact := corrected[0]
	assert.Equal(t, 0, exact.Bus0)
	assert.Equal(t, 1, exact.Bus1)
	assert.Equal(t, lines[0].Path, exact.Path, "endpoints on buses are kept as is")
	assert.InDelta(t, 11119.5, exact.Length, 1)

	short := corrected[1]
	assert.Equal(t, 0, short.Bus0)
	assert.Equal(t, 1, short.Bus1)
	require.Len(t, short.Path, 5, "both ends extended to the bus locations")
	assert.Equal(t, buses[0].Location, short.Path.Start())
	assert.Equal(t, buses[1].Location, short.Path.End())
	assert.Equal(t, lines[1].Path, short.Path[1:4], "original vertices are never dropped")
	assert.Equal(t, "line", short.Tags["tag_type"])

	assert.Equal(t, 1, diags.Count(KindUnresolvedEndpoint))
	assert.Equal(t, 1, diags.Count(KindInvalidGeometry))
	assert.Equal(t, "wrong-class", diags.Filter(KindUnresolvedEndpoint)[0].Feature)
}

func TestDropSelfLoops(t *testing.T) {
	lines := []CorrectedLine{
		{RawLine: RawLine{ID: "a"}, Bus0: 0, Bus1: 1},
		{RawLine: RawLine{ID: "loop"}, Bus0: 2, Bus1: 2},
	}
	kept, diags := DropSelfLoops(lines)
	require.Len(t, kept, 1)
	assert.Equal(t, "a", kept[0].ID)
	assert.Equal(t, 1, diags.Count(KindSelfLoop))
	for _, l := range kept {
		assert.NotEqual(t, l.Bus0, l.Bus1)
	}
}
