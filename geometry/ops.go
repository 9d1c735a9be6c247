package geometry

import "github.com/twpayne/go-geom"

// Ops is the set of computational-geometry operations the pipeline needs
// beyond planar point and polyline math.
type Ops interface {
	IsValid(g geom.T) bool
	ValidReason(g geom.T) string
	MakeValid(g geom.T) (geom.T, error)
	Intersection(a, b geom.T) (geom.T, error)
	Union(gs []geom.T) (geom.T, error)
	Distance(a, b geom.T) (float64, error)
	Contains(a, b geom.T) (bool, error)
	Centroid(g geom.T) (Point, error)
	Length(g geom.T) (float64, error)
	Area(g geom.T) (float64, error)
	// Voronoi returns one cell per site, in site order. Sites must be
	// distinct. Cells cover at least env.
	Voronoi(sites []Point, env Bounds) ([]geom.T, error)
}
