package utils

import (
	"fmt"
	"math"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/twpayne/go-geom"
)

// PRECISION is the number of decimals kept on written lon/lat coordinates.
var PRECISION uint = 7

// TruncateGeometry rounds every coordinate of a polygonal geometry to
// precision decimals. Rings that collapse below four vertices are dropped.
func TruncateGeometry(g geom.T, precision uint) (geom.T, error) {
	if g == nil {
		return nil, fmt.Errorf(`geometry is nil`)
	}

	switch t := g.(type) {
	case *geom.Polygon:
		polygon := TruncateSinglePolygon(t, precision)
		if polygon == nil {
			return nil, fmt.Errorf("polygon collapsed during truncation: %w", geometry.ErrInvalidGeometry)
		}
		return polygon, nil
	case *geom.MultiPolygon:
		out := geom.NewMultiPolygon(geom.XY)
		for i := range t.NumPolygons() {
			if polygon := TruncateSinglePolygon(t.Polygon(i), precision); polygon != nil {
				if err := out.Push(polygon); err != nil {
					return nil, fmt.Errorf("failed to rebuild multipolygon: %v", err)
				}
			}
		}
		if out.NumPolygons() == 0 {
			return nil, fmt.Errorf("multipolygon collapsed during truncation: %w", geometry.ErrInvalidGeometry)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported geometry %T", g)
}

// TruncateSinglePolygon returns nil when the exterior ring collapses.
func TruncateSinglePolygon(polygon *geom.Polygon, precision uint) *geom.Polygon {
	if polygon.NumLinearRings() == 0 {
		return nil
	}
	rings := make([][]geom.Coord, 0, polygon.NumLinearRings())
	for r := range polygon.NumLinearRings() {
		ring := truncateRing(polygon.LinearRing(r).Coords(), precision)
		if len(ring) < 4 {
			if r == 0 {
				return nil
			}
			continue
		}
		rings = append(rings, ring)
	}

	out, err := geom.NewPolygon(geom.XY).SetCoords(rings)
	if err != nil {
		return nil
	}
	return out
}

func truncateRing(coords []geom.Coord, precision uint) []geom.Coord {
	ring := make([]geom.Coord, 0, len(coords))
	for _, c := range coords {
		next := geom.Coord{RoundFloat(c.X(), precision), RoundFloat(c.Y(), precision)}
		if len(ring) > 0 && ring[len(ring)-1].Equal(geom.XY, next) {
			continue
		}
		ring = append(ring, next)
	}
	return ring
}

// RoundPoint rounds both coordinates of p.
func RoundPoint(p geometry.Point, precision uint) geometry.Point {
	return geometry.Point{X: RoundFloat(p.X, precision), Y: RoundFloat(p.Y, precision)}
}

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
