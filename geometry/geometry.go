// Package geometry holds the planar value types used by the grid builder and
// the operations that need a computational-geometry engine.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

// ErrInvalidGeometry is returned for empty, degenerate or non-finite input.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Point is a 2-D coordinate. Depending on context it holds lon/lat degrees
// or projected metres.
type Point struct {
	X float64
	Y float64
}

func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func (p Point) Equal(q Point) bool {
	return p.X == q.X && p.Y == q.Y
}

func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func (p Point) Coord() geom.Coord {
	return geom.Coord{p.X, p.Y}
}

// GeomPoint returns p as a go-geom point.
func (p Point) GeomPoint() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{p.X, p.Y})
}

// Path is an ordered polyline.
type Path []Point

// Validate fails with ErrInvalidGeometry when the path has fewer than two
// vertices or a non-finite coordinate.
func (p Path) Validate() error {
	if len(p) < 2 {
		return fmt.Errorf("path has %d vertices: %w", len(p), ErrInvalidGeometry)
	}
	for i, pt := range p {
		if !pt.IsFinite() {
			return fmt.Errorf("vertex %d is not finite: %w", i, ErrInvalidGeometry)
		}
	}
	return nil
}

func (p Path) Start() Point { return p[0] }

func (p Path) End() Point { return p[len(p)-1] }

func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// LineString converts p into a go-geom line string.
func (p Path) LineString() *geom.LineString {
	flat := make([]float64, 0, 2*len(p))
	for _, pt := range p {
		flat = append(flat, pt.X, pt.Y)
	}
	return geom.NewLineStringFlat(geom.XY, flat)
}

// PathFromCoords builds a path from go-geom coordinates, dropping any
// dimension beyond XY.
func PathFromCoords(coords []geom.Coord) Path {
	path := make(Path, 0, len(coords))
	for _, c := range coords {
		path = append(path, Point{X: c.X(), Y: c.Y()})
	}
	return path
}

// Bounds is an axis-aligned rectangle.
type Bounds struct {
	Min Point
	Max Point
}

// BoundsOf returns the bounds of the given points. ok is false for an empty
// input.
func BoundsOf(points ...Point) (b Bounds, ok bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b = Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}
	return b, true
}

func (b Bounds) Extend(p Point) Bounds {
	return Bounds{
		Min: Point{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y)},
		Max: Point{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y)},
	}
}

func (b Bounds) Width() float64 { return b.Max.X - b.Min.X }

func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

// Polygon returns the rectangle as a closed go-geom polygon.
func (b Bounds) Polygon() *geom.Polygon {
	flat := []float64{
		b.Min.X, b.Min.Y,
		b.Max.X, b.Min.Y,
		b.Max.X, b.Max.Y,
		b.Min.X, b.Max.Y,
		b.Min.X, b.Min.Y,
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// BoundsOfGeom converts go-geom bounds. ok is false for empty geometries.
func BoundsOfGeom(g geom.T) (Bounds, bool) {
	if g == nil {
		return Bounds{}, false
	}
	gb := g.Bounds()
	if gb == nil || gb.IsEmpty() {
		return Bounds{}, false
	}
	return Bounds{
		Min: Point{X: gb.Min(0), Y: gb.Min(1)},
		Max: Point{X: gb.Max(0), Y: gb.Max(1)},
	}, true
}

// Polygonal keeps only the areal parts of g. It returns nil when nothing
// areal is left.
func Polygonal(g geom.T) geom.T {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil
		}
		return t
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return nil
		}
		return t
	case *geom.GeometryCollection:
		mp := geom.NewMultiPolygon(geom.XY)
		for _, part := range t.Geoms() {
			switch p := Polygonal(part).(type) {
			case *geom.Polygon:
				_ = mp.Push(p)
			case *geom.MultiPolygon:
				for i := 0; i < p.NumPolygons(); i++ {
					_ = mp.Push(p.Polygon(i))
				}
			}
		}
		switch mp.NumPolygons() {
		case 0:
			return nil
		case 1:
			return mp.Polygon(0)
		}
		return mp
	}
	return nil
}
