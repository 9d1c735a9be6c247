package network

import (
	"context"
	"math"
	"testing"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTest(t *testing.T, in Input, opts Options) *Network {
	t.Helper()
	net, err := Build(context.Background(), in, opts, geometry.NewGEOS())
	require.NoError(t, err)
	return net
}

func TestBuildMergesCloseVoltageLevels(t *testing.T) {
	opts := DefaultOptions()
	opts.GroupTolerance = 2000

	net := buildTest(t, Input{Buses: []RawBus{
		rawBus("s1", 3, 6, 220000, false),
		rawBus("s2", 3+metresToDegrees(50), 6, 400000, false),
	}}, opts)

	require.Len(t, net.Buses, 2)
	assert.Equal(t, net.Buses[0].StationID, net.Buses[1].StationID)
	require.Len(t, net.Transformers, 1)
	assert.Equal(t, 220000.0, net.Transformers[0].Voltage0)
	assert.Equal(t, 400000.0, net.Transformers[0].Voltage1)
	assert.Equal(t, 1, net.NextStationID)
}

func TestBuildSynthesisesConverter(t *testing.T) {
	net := buildTest(t, Input{Buses: []RawBus{
		rawBus("ac", 3, 6, 230000, false),
		rawBus("dc", 3, 6, 500000, true),
	}}, DefaultOptions())

	require.Len(t, net.Buses, 2)
	require.Len(t, net.Converters, 1)
	assert.Empty(t, net.Transformers)
	assert.True(t, net.Buses[net.Converters[0].Bus0].DC)
}

func TestBuildSplitsOverpassingLine(t *testing.T) {
	net := buildTest(t, Input{
		Buses: []RawBus{
			rawBus("A", 0, 0, 230000, false),
			rawBus("B", 0.01, metresToDegrees(0.5), 230000, false),
			rawBus("C", 0.02, 0, 230000, false),
		},
		Lines: []RawLine{
			{ID: "AC", Voltage: 230000, Frequency: "50", Path: geometry.Path{{X: 0, Y: 0}, {X: 0.02, Y: 0}}},
		},
	}, DefaultOptions())

	require.Len(t, net.Buses, 3)
	busOf := map[string]int{}
	for _, b := range net.Buses {
		busOf[b.Members[0]] = b.ID
	}
	require.Len(t, net.Lines, 2)
	assert.Equal(t, "AC_0", net.Lines[0].ID)
	assert.Equal(t, [2]int{busOf["A"], busOf["B"]}, [2]int{net.Lines[0].Bus0, net.Lines[0].Bus1})
	assert.Equal(t, "AC_1", net.Lines[1].ID)
	assert.Equal(t, [2]int{busOf["B"], busOf["C"]}, [2]int{net.Lines[1].Bus0, net.Lines[1].Bus1})
}

func TestBuildWithoutGrouping(t *testing.T) {
	opts := DefaultOptions()
	opts.GroupCloseBuses = false

	net := buildTest(t, Input{Buses: []RawBus{
		rawBus("a", 3, 6, 220000, false),
		rawBus("b", 3+metresToDegrees(1), 6, 220000, false),
		rawBus("c", 3+metresToDegrees(2), 6, 220000, false),
	}}, opts)
	require.Len(t, net.Buses, 3)
	assert.Equal(t, 3, net.NextStationID)
	for _, b := range net.Buses {
		assert.True(t, b.SubstationLV)
	}
}

func TestBuildExcludesInvalidFeatures(t *testing.T) {
	net := buildTest(t, Input{
		Buses: []RawBus{
			rawBus("ok", 3, 6, 220000, false),
			rawBus("nan", math.NaN(), 6, 220000, false),
			rawBus("ok2", 3.1, 6, 220000, false),
		},
		Lines: []RawLine{
			{ID: "one-vertex", Voltage: 220000, Path: geometry.Path{{X: 3, Y: 6}}},
			{ID: "other-voltage", Voltage: 132000, Path: geometry.Path{{X: 3, Y: 6}, {X: 3.1, Y: 6}}},
			{ID: "ok", Voltage: 220000, Path: geometry.Path{{X: 3, Y: 6}, {X: 3.1, Y: 6}}},
			{ID: "loop", Voltage: 220000, Path: geometry.Path{{X: 3, Y: 6}, {X: 3.0001, Y: 6}}},
		},
	}, DefaultOptions())

	assert.Len(t, net.Buses, 2)
	require.Len(t, net.Lines, 1)
	assert.Equal(t, "ok", net.Lines[0].ID)
	assert.Equal(t, "50", net.Lines[0].Frequency)
	assert.Equal(t, 2, net.Diagnostics.Count(KindInvalidGeometry))
	assert.Equal(t, 1, net.Diagnostics.Count(KindUnresolvedEndpoint))
	assert.Equal(t, 1, net.Diagnostics.Count(KindSelfLoop))

	for _, l := range net.Lines {
		assert.NotEqual(t, l.Bus0, l.Bus1)
	}
}

func TestBuildAssignsCountriesAndOffshore(t *testing.T) {
	opts := DefaultOptions()
	opts.Countries = []string{"NG", "BJ"}

	a := rawBus("a", 0.5, 0.5, 20000, false)
	net := buildTest(t, Input{
		Buses:    []RawBus{a, rawBus("sea", 1.5, 0.5, 20000, false)},
		Onshore:  Outlines{"NG": square(0, 0, 1, 1), "BJ": square(-3, 0, -1, 2)},
		Offshore: Outlines{"NG": square(1, 0, 2, 1)},
	}, opts)

	require.Len(t, net.Buses, 3)
	assert.Equal(t, "NG", net.Buses[0].Country)
	assert.False(t, net.Buses[0].SubstationOffshore)
	assert.True(t, net.Buses[1].SubstationOffshore)
	assert.True(t, net.Buses[2].Augmented)
	assert.Equal(t, "BJ", net.Buses[2].Country)
	assert.Equal(t, 3, net.NextStationID)
}

func TestBuildRejectsBadCRS(t *testing.T) {
	opts := DefaultOptions()
	opts.DistanceCRS = "+proj=longlat"
	_, err := Build(context.Background(), Input{}, opts, geometry.NewGEOS())
	assert.Error(t, err)
}

func TestBuildHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, Input{}, DefaultOptions(), geometry.NewGEOS())
	assert.ErrorIs(t, err, context.Canceled)
}
