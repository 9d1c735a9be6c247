package geometry

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"
)

// EarthRadius is the mean earth radius in metres.
const EarthRadius = 6371008.8

// GeodesicArea returns the area of the polygonal parts of a lon/lat geometry
// in square metres.
func GeodesicArea(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonArea(t)
	case *geom.MultiPolygon:
		total := 0.0
		for i := 0; i < t.NumPolygons(); i++ {
			total += polygonArea(t.Polygon(i))
		}
		return total
	case *geom.GeometryCollection:
		total := 0.0
		for _, part := range t.Geoms() {
			total += GeodesicArea(part)
		}
		return total
	}
	return 0
}

func polygonArea(p *geom.Polygon) float64 {
	area := 0.0
	for i := 0; i < p.NumLinearRings(); i++ {
		a := ringArea(p.LinearRing(i).Coords())
		if i == 0 {
			area += a
		} else {
			area -= a
		}
	}
	return math.Max(area, 0)
}

func ringArea(coords []geom.Coord) float64 {
	if n := len(coords); n > 1 && coords[0].Equal(geom.XY, coords[n-1]) {
		coords = coords[:n-1]
	}
	if len(coords) < 3 {
		return 0
	}
	points := make([]s2.Point, len(coords))
	for i, c := range coords {
		points[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(c.Y(), c.X()))
	}
	loop := s2.LoopFromPoints(points)
	loop.Normalize()
	return loop.Area() * EarthRadius * EarthRadius
}

// GeodesicLength is the great-circle length of a lon/lat path in metres.
func GeodesicLength(path Path) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		a := s2.LatLngFromDegrees(path[i-1].Y, path[i-1].X)
		b := s2.LatLngFromDegrees(path[i].Y, path[i].X)
		total += a.Distance(b).Radians() * EarthRadius
	}
	return total
}
