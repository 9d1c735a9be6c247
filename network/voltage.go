package network

import (
	"math"
	"sort"
)

// DefaultFrequency is used for AC lines when the data carries none.
const DefaultFrequency = "50"

// ForceAC turns every bus and line into AC at the default frequency.
func ForceAC(buses []RawBus, lines []RawLine) ([]RawBus, []RawLine) {
	outBuses := make([]RawBus, len(buses))
	for i, b := range buses {
		b.DC = false
		outBuses[i] = b
	}
	outLines := make([]RawLine, len(lines))
	for i, l := range lines {
		l.DC = false
		l.Frequency = DefaultFrequency
		outLines[i] = l
	}
	return outBuses, outLines
}

// ACFrequency is the most common frequency of the AC lines, ignoring
// missing and "0" values. Equal counts pick the lexically smaller value.
func ACFrequency(lines []RawLine) string {
	counts := make(map[string]int)
	for _, l := range lines {
		if l.DC || l.Frequency == "" || l.Frequency == "0" {
			continue
		}
		counts[l.Frequency]++
	}
	if len(counts) == 0 {
		return DefaultFrequency
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return values[i] < values[j]
	})
	return values[0]
}

// FillFrequency sets missing AC line frequencies to freq and clears the
// frequency of DC lines.
func FillFrequency(lines []RawLine, freq string) []RawLine {
	out := make([]RawLine, len(lines))
	for i, l := range lines {
		switch {
		case l.DC:
			l.Frequency = "0"
		case l.Frequency == "" || l.Frequency == "0":
			l.Frequency = freq
		}
		out[i] = l
	}
	return out
}

// RebaseVoltage snaps v to the closest of the sorted levels, splitting at
// the midpoints between consecutive levels. Voltages below vMin are
// returned unchanged. Units are whatever the caller uses consistently.
func RebaseVoltage(v float64, levels []float64, vMin float64) float64 {
	if len(levels) == 0 || v < vMin || math.IsNaN(v) {
		return v
	}
	for k := 0; k+1 < len(levels); k++ {
		if v < (levels[k]+levels[k+1])/2 {
			return levels[k]
		}
	}
	return levels[len(levels)-1]
}
