package network

import (
	"fmt"
	"math"
	"sort"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/bsaid97/go-grid-topology/utils"
)

// DefaultOverpassingTolerance is the bus-to-line distance, in metres, below
// which a line passing through a substation is split there.
const DefaultOverpassingTolerance = 1.0

// SplitOverpassingLines splits every line at the substations it passes
// through. A bus counts when it lies within tol of the line and farther
// than tol from both endpoints. A line crossing N such buses becomes N+1
// segments named <id>_0 .. <id>_N that inherit every other attribute.
func SplitOverpassingLines(lines []RawLine, buses []RawBus, projector *geometry.Projector, tol float64) ([]RawLine, Diagnostics) {
	var diags Diagnostics

	points := make([]geometry.Point, 0, len(buses))
	for _, b := range buses {
		xy, err := projector.Forward(b.Location)
		if err != nil {
			diags.Add(KindInvalidGeometry, SeverityWarning, b.ID, "bus ignored for line splitting: %v", err)
			continue
		}
		points = append(points, xy)
	}
	index, err := utils.NewPointIndex(points)
	if err != nil {
		diags.Add(KindInvalidGeometry, SeverityError, "", "failed to index buses: %v", err)
		return lines, diags
	}
	if index.Len() == 0 {
		return lines, diags
	}

	out := make([]RawLine, 0, len(lines))
	split := 0
	for _, line := range lines {
		xy, err := projector.ForwardPath(line.Path)
		if err != nil || xy.Validate() != nil {
			out = append(out, line)
			continue
		}
		cuts, err := overpassedBuses(xy, index, tol)
		if err != nil {
			diags.Add(KindInvalidGeometry, SeverityWarning, line.ID, "line not split: %v", err)
			out = append(out, line)
			continue
		}
		if len(cuts) == 0 {
			out = append(out, line)
			continue
		}

		parts := geometry.SplitPath(line.Path, cuts)
		for k, part := range parts {
			segment := line
			segment.ID = fmt.Sprintf("%s_%d", line.ID, k)
			segment.Path = part
			segment.Tags = cloneTags(line.Tags)
			segment.Length = geometry.GeodesicLength(part)
			out = append(out, segment)
		}
		split++
	}
	logger.Debug("Split overpassing lines", "lines", split, "segments", len(out)-len(lines)+split)
	return out, diags
}

// overpassedBuses returns the positions along xy of the buses the line
// passes through, sorted and without duplicates.
func overpassedBuses(xy geometry.Path, index *utils.PointIndex, tol float64) ([]geometry.Location, error) {
	bounds, _ := geometry.BoundsOf(xy...)
	candidates, err := index.QueryBounds(bounds, tol)
	if err != nil {
		return nil, err
	}

	start, end := xy.Start(), xy.End()
	total := geometry.PathLength(xy)
	cuts := make([]geometry.Location, 0)
	for _, i := range candidates {
		p := index.Point(i)
		if p.DistanceTo(start) <= tol || p.DistanceTo(end) <= tol {
			continue
		}
		loc := geometry.ProjectOnPath(xy, p)
		if loc.Dist > tol || loc.Along <= 0 || loc.Along >= total {
			continue
		}
		cuts = append(cuts, loc)
	}

	sort.SliceStable(cuts, func(i, j int) bool { return cuts[i].Along < cuts[j].Along })
	unique := cuts[:0]
	for _, c := range cuts {
		if len(unique) > 0 && math.Abs(unique[len(unique)-1].Along-c.Along) <= 1e-9 {
			continue
		}
		unique = append(unique, c)
	}
	return unique, nil
}
