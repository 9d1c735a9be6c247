package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformers(t *testing.T) {
	buses := []ConsolidatedBus{
		{ID: 0, StationID: 0, Voltage: 400000, Country: "NG"},
		{ID: 1, StationID: 0, Voltage: 132000, Country: "NG"},
		{ID: 2, StationID: 0, Voltage: 220000, Country: "BJ"},
		{ID: 3, StationID: 0, Voltage: 500000, DC: true, Country: "NG"},
		{ID: 4, StationID: 1, Voltage: 330000, Country: "NG"},
	}

	transformers, diags := Transformers(buses)
	require.Len(t, transformers, 2, "N AC voltages give N-1 transformers")

	assert.Equal(t, "transf_0_0", transformers[0].ID)
	assert.Equal(t, 1, transformers[0].Bus0)
	assert.Equal(t, 2, transformers[0].Bus1)
	assert.Equal(t, 132000.0, transformers[0].Voltage0)
	assert.Equal(t, 220000.0, transformers[0].Voltage1)
	assert.Equal(t, "NG", transformers[0].Country)

	assert.Equal(t, "transf_0_1", transformers[1].ID)
	assert.Equal(t, 2, transformers[1].Bus0)
	assert.Equal(t, 0, transformers[1].Bus1)
	assert.Equal(t, "BJ", transformers[1].Country)

	assert.Equal(t, 2, diags.Count(KindCountryMismatch))
}

func TestConverters(t *testing.T) {
	t.Run("one converter per DC bus to the closest AC voltage", func(t *testing.T) {
		buses := []ConsolidatedBus{
			{ID: 0, StationID: 0, Voltage: 230000},
			{ID: 1, StationID: 0, Voltage: 400000},
			{ID: 2, StationID: 0, Voltage: 350000, DC: true},
			{ID: 3, StationID: 0, Voltage: 200000, DC: true},
		}
		converters := Converters(buses)
		require.Len(t, converters, 2)
		assert.Equal(t, "convert_0_3", converters[0].ID)
		assert.Equal(t, 3, converters[0].Bus0)
		assert.Equal(t, 0, converters[0].Bus1)
		assert.Equal(t, "convert_0_2", converters[1].ID)
		assert.Equal(t, 1, converters[1].Bus1)
		assert.False(t, converters[1].Underground)
	})

	t.Run("equal distance picks the lower AC voltage", func(t *testing.T) {
		buses := []ConsolidatedBus{
			{ID: 0, StationID: 0, Voltage: 400000},
			{ID: 1, StationID: 0, Voltage: 200000},
			{ID: 2, StationID: 0, Voltage: 300000, DC: true},
		}
		converters := Converters(buses)
		require.Len(t, converters, 1)
		assert.Equal(t, 1, converters[0].Bus1)
	})

	t.Run("no AC bus means no converter", func(t *testing.T) {
		buses := []ConsolidatedBus{
			{ID: 0, StationID: 0, Voltage: 500000, DC: true},
			{ID: 1, StationID: 1, Voltage: 400000},
		}
		assert.Empty(t, Converters(buses))
	})
}
