package network

import (
	"testing"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metresToDegrees converts a distance along the equator for the web
// mercator test projection.
func metresToDegrees(m float64) float64 {
	return m / 111319.49
}

func TestSplitOverpassingLines(t *testing.T) {
	buses := []RawBus{
		rawBus("A", 0, 0, 230000, false),
		rawBus("B", 0.01, metresToDegrees(0.5), 230000, false),
		rawBus("C", 0.02, 0, 230000, false),
		rawBus("far", 0.015, metresToDegrees(5), 230000, false),
	}
	line := RawLine{
		ID:       "L",
		Voltage:  230000,
		Circuits: 2,
		Tags:     map[string]string{"tag_type": "line"},
		Path:     geometry.Path{{X: 0, Y: 0}, {X: 0.02, Y: 0}},
	}

	out, diags := SplitOverpassingLines([]RawLine{line}, buses, testProjector(t), DefaultOverpassingTolerance)
	assert.Empty(t, diags)
	require.Len(t, out, 2)

	assert.Equal(t, "L_0", out[0].ID)
	assert.Equal(t, "L_1", out[1].ID)
	assert.Equal(t, geometry.Point{X: 0, Y: 0}, out[0].Path.Start())
	assert.InDelta(t, 0.01, out[0].Path.End().X, 1e-12)
	assert.Equal(t, out[0].Path.End(), out[1].Path.Start())
	assert.Equal(t, geometry.Point{X: 0.02, Y: 0}, out[1].Path.End())

	for _, seg := range out {
		assert.Equal(t, 2, seg.Circuits)
		assert.Equal(t, "line", seg.Tags["tag_type"])
		assert.InDelta(t, geometry.GeodesicLength(seg.Path), seg.Length, 1e-9)
	}
	assert.InDelta(t, geometry.GeodesicLength(line.Path), out[0].Length+out[1].Length, 1e-6)
}

func TestSplitOverpassingLinesIgnoresEndpointBuses(t *testing.T) {
	buses := []RawBus{
		rawBus("A", 0, 0, 230000, false),
		rawBus("A2", metresToDegrees(0.5), 0, 230000, false),
		rawBus("C", 0.02, 0, 230000, false),
	}
	line := RawLine{ID: "L", Voltage: 230000, Path: geometry.Path{{X: 0, Y: 0}, {X: 0.02, Y: 0}}}

	out, _ := SplitOverpassingLines([]RawLine{line}, buses, testProjector(t), DefaultOverpassingTolerance)
	require.Len(t, out, 1)
	assert.Equal(t, "L", out[0].ID)
}

func TestSplitOverpassingLinesDeduplicatesCuts(t *testing.T) {
	buses := []RawBus{
		rawBus("B1", 0.01, 0, 230000, false),
		rawBus("B2", 0.01, 0, 400000, false),
		rawBus("B3", 0.015, 0, 230000, false),
	}
	line := RawLine{ID: "L", Path: geometry.Path{{X: 0, Y: 0}, {X: 0.02, Y: 0}}}

	out, _ := SplitOverpassingLines([]RawLine{line}, buses, testProjector(t), 1)
	require.Len(t, out, 3, "N distinct overpassed positions give N+1 segments")
}

func TestSplitOverpassingLinesWithoutBuses(t *testing.T) {
	line := RawLine{ID: "L", Voltage: 230000, Path: geometry.Path{{X: 0, Y: 0}, {X: 0.02, Y: 0}}}
	out, diags := SplitOverpassingLines([]RawLine{line}, nil, testProjector(t), DefaultOverpassingTolerance)
	assert.Empty(t, diags)
	assert.Equal(t, []RawLine{line}, out)
}
