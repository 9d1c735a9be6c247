// Package regions partitions country and offshore outlines into one
// service region per bus.
package regions

import (
	"errors"
	"fmt"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/network"
	"github.com/twpayne/go-geom"
)

type Kind string

const (
	Onshore  Kind = "onshore"
	Offshore Kind = "offshore"
)

// Region is the part of an outline served by one bus.
type Region struct {
	BusID   int
	Outline string
	Kind    Kind
	Country string
	// Geometry is a lon/lat Polygon or MultiPolygon.
	Geometry geom.T
	// Area is the geodesic area in m².
	Area float64
	X, Y float64
}

// Seed is the location a region grows from.
type Seed struct {
	BusID    int
	Location geometry.Point
}

type Options struct {
	// Multiplier places the four guard points this many bounding-box spans
	// away from the outline.
	Multiplier float64
	// MinArea discards regions not larger than this many m².
	MinArea float64
}

func DefaultOptions() Options {
	return Options{Multiplier: 5, MinArea: 1e-2}
}

var errNoSeeds = errors.New("outline has no seeds")

// Partition splits outline into one region per distinct seed location, each
// region being the part of the outline closer to its seed than to any
// other. Seeds sharing a location collapse onto the first of them.
func Partition(ops geometry.Ops, outline geom.T, seeds []Seed, opts Options) ([]Region, network.Diagnostics, error) {
	var diags network.Diagnostics
	if outline == nil {
		return nil, diags, fmt.Errorf("nil outline: %w", geometry.ErrInvalidGeometry)
	}
	if len(seeds) == 0 {
		return nil, diags, fmt.Errorf("%w: %w", network.ErrTessellationFailure, errNoSeeds)
	}

	if !ops.IsValid(outline) {
		reason := ops.ValidReason(outline)
		fixed, err := ops.MakeValid(outline)
		if err != nil {
			return nil, diags, fmt.Errorf("outline is invalid (%s) and could not be repaired: %w", reason, err)
		}
		diags.Add(network.KindInvalidGeometry, network.SeverityInfo, "", "outline repaired: %s", reason)
		outline = fixed
	}
	outlineBounds, ok := geometry.BoundsOfGeom(outline)
	if !ok {
		return nil, diags, fmt.Errorf("empty outline: %w", geometry.ErrInvalidGeometry)
	}

	distinct := make([]Seed, 0, len(seeds))
	firstAt := make(map[geometry.Point]int)
	for _, s := range seeds {
		if !s.Location.IsFinite() {
			diags.Add(network.KindInvalidGeometry, network.SeverityWarning, busName(s.BusID), "seed location is not finite")
			continue
		}
		if first, dup := firstAt[s.Location]; dup {
			diags.Add(network.KindDuplicateSeed, network.SeverityInfo, busName(s.BusID),
				"shares its location with bus %d and gets no region", distinct[first].BusID)
			continue
		}
		firstAt[s.Location] = len(distinct)
		distinct = append(distinct, s)
	}
	if len(distinct) == 0 {
		return nil, diags, fmt.Errorf("%w: %w", network.ErrTessellationFailure, errNoSeeds)
	}

	if len(distinct) == 1 {
		return []Region{newRegion(distinct[0], outline)}, diags, nil
	}

	cells, err := voronoiCells(ops, distinct, outlineBounds, opts.Multiplier)
	if err != nil {
		return nil, diags, fmt.Errorf("%w: %v", network.ErrTessellationFailure, err)
	}

	regions := make([]Region, 0, len(distinct))
	for i, s := range distinct {
		cell := cells[i]
		if cell == nil {
			diags.Add(network.KindTessellationFailure, network.SeverityWarning, busName(s.BusID), "no voronoi cell contains the seed")
			continue
		}
		clipped, err := ops.Intersection(cell, outline)
		if err != nil {
			diags.Add(network.KindInvalidGeometry, network.SeverityWarning, busName(s.BusID), "clip failed: %v", err)
			continue
		}
		region := geometry.Polygonal(clipped)
		if region != nil && !ops.IsValid(region) {
			fixed, err := ops.MakeValid(region)
			if err != nil {
				diags.Add(network.KindInvalidGeometry, network.SeverityWarning, busName(s.BusID), "region discarded: %v", err)
				continue
			}
			region = geometry.Polygonal(fixed)
		}
		if region == nil {
			diags.Add(network.KindEmptyRegion, network.SeverityInfo, busName(s.BusID), "cell does not intersect the outline")
			continue
		}
		r := newRegion(s, region)
		if r.Area <= opts.MinArea {
			diags.Add(network.KindEmptyRegion, network.SeverityInfo, busName(s.BusID), "region of %.3g m² discarded", r.Area)
			continue
		}
		regions = append(regions, r)
	}
	return regions, diags, nil
}

func newRegion(s Seed, g geom.T) Region {
	return Region{
		BusID:    s.BusID,
		Geometry: g,
		Area:     geometry.GeodesicArea(g),
		X:        s.Location.X,
		Y:        s.Location.Y,
	}
}

func busName(id int) string {
	return fmt.Sprintf("bus %d", id)
}

// voronoiCells returns the cell of each seed, in seed order. A seed that
// does not lie in its own cell gets nil.
func voronoiCells(ops geometry.Ops, seeds []Seed, outline geometry.Bounds, multiplier float64) ([]geom.T, error) {
	points := make([]geometry.Point, len(seeds))
	for i, s := range seeds {
		points[i] = s.Location
	}

	frame := outline
	for _, p := range points {
		frame = frame.Extend(p)
	}
	spanX, spanY := frame.Width(), frame.Height()
	if spanX == 0 {
		spanX = spanY
	}
	if spanY == 0 {
		spanY = spanX
	}
	guard := geometry.Bounds{
		Min: geometry.Point{X: frame.Min.X - multiplier*spanX, Y: frame.Min.Y - multiplier*spanY},
		Max: geometry.Point{X: frame.Max.X + multiplier*spanX, Y: frame.Max.Y + multiplier*spanY},
	}
	sites := append(points[:len(points):len(points)],
		guard.Min,
		geometry.Point{X: guard.Max.X, Y: guard.Min.Y},
		guard.Max,
		geometry.Point{X: guard.Min.X, Y: guard.Max.Y},
	)
	envelope := geometry.Bounds{
		Min: geometry.Point{X: guard.Min.X - spanX, Y: guard.Min.Y - spanY},
		Max: geometry.Point{X: guard.Max.X + spanX, Y: guard.Max.Y + spanY},
	}

	diagram, err := ops.Voronoi(sites, envelope)
	if err != nil {
		return nil, err
	}
	if len(diagram) < len(points) {
		return nil, fmt.Errorf("voronoi diagram has %d cells for %d seeds", len(diagram), len(points))
	}

	cells := make([]geom.T, len(seeds))
	for i, p := range points {
		inside, err := ops.Contains(diagram[i], p.GeomPoint())
		if err != nil {
			return nil, err
		}
		if inside {
			cells[i] = diagram[i]
		}
	}
	return cells, nil
}
