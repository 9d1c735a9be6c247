package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebaseVoltage(t *testing.T) {
	levels := []float64{220, 300, 380}
	tests := []struct {
		in, out float64
	}{
		{100, 100},
		{110, 220},
		{250, 220},
		{260, 300},
		{330, 300},
		{340, 380},
		{350, 380},
		{765, 380},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, RebaseVoltage(tt.in, levels, 110), "rebase %v kV", tt.in)
	}
	assert.Equal(t, 250.0, RebaseVoltage(250, nil, 110))
}

func TestACFrequency(t *testing.T) {
	lines := []RawLine{
		{Frequency: "60"},
		{Frequency: "50"},
		{Frequency: "60"},
		{Frequency: "0"},
		{Frequency: "0"},
		{Frequency: "0"},
		{Frequency: "16.7", DC: true},
	}
	assert.Equal(t, "60", ACFrequency(lines))
	assert.Equal(t, DefaultFrequency, ACFrequency(nil))
	assert.Equal(t, "50", ACFrequency([]RawLine{{Frequency: "60"}, {Frequency: "50"}}))

	filled := FillFrequency([]RawLine{{}, {Frequency: "60"}, {DC: true, Frequency: "50"}}, "50")
	assert.Equal(t, []string{"50", "60", "0"}, []string{filled[0].Frequency, filled[1].Frequency, filled[2].Frequency})
}

func TestForceAC(t *testing.T) {
	buses, lines := ForceAC(
		[]RawBus{{ID: "a", DC: true}},
		[]RawLine{{ID: "l", DC: true, Frequency: "0"}},
	)
	assert.False(t, buses[0].DC)
	assert.False(t, lines[0].DC)
	assert.Equal(t, "50", lines[0].Frequency)
}
