package utils

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/dhconnelly/rtreego"
)

// ErrEmptyIndex is returned by nearest-neighbour queries on an empty index.
var ErrEmptyIndex = errors.New("spatial index is empty")

// pointExtent is the half-width of the rectangle stored for each point.
const pointExtent = 1e-9

type indexedPoint struct {
	rect  rtreego.Rect
	index int
	point geometry.Point
}

func (p *indexedPoint) Bounds() rtreego.Rect {
	return p.rect
}

// PointIndex answers radius and nearest-neighbour queries over a set of
// planar points. Results are positions in insertion order.
type PointIndex struct {
	tree   *rtreego.Rtree
	points []geometry.Point
}

func NewPointIndex(points []geometry.Point) (*PointIndex, error) {
	si := &PointIndex{
		tree:   rtreego.NewTree(2, 25, 50),
		points: make([]geometry.Point, 0, len(points)),
	}
	if err := si.Append(points...); err != nil {
		return nil, err
	}
	return si, nil
}

// Append inserts points after the existing ones. Nothing is inserted when
// one of them is not finite.
func (si *PointIndex) Append(points ...geometry.Point) error {
	for i, p := range points {
		if !p.IsFinite() {
			return fmt.Errorf("point %d: %w", len(si.points)+i, geometry.ErrInvalidGeometry)
		}
	}
	for _, p := range points {
		si.tree.Insert(&indexedPoint{
			rect:  rtreego.Point{p.X, p.Y}.ToRect(pointExtent),
			index: len(si.points),
			point: p,
		})
		si.points = append(si.points, p)
	}
	return nil
}

func (si *PointIndex) Len() int {
	return len(si.points)
}

func (si *PointIndex) Point(i int) geometry.Point {
	return si.points[i]
}

// QueryRadius returns, in ascending order, every index whose point lies at
// distance <= r from p.
func (si *PointIndex) QueryRadius(p geometry.Point, r float64) ([]int, error) {
	if !p.IsFinite() || math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return nil, fmt.Errorf("radius query at (%v, %v) r=%v: %w", p.X, p.Y, r, geometry.ErrInvalidGeometry)
	}
	if len(si.points) == 0 {
		return nil, nil
	}

	rect := rtreego.Point{p.X, p.Y}.ToRect(r + pointExtent)
	matches := make([]int, 0)
	for _, hit := range si.tree.SearchIntersect(rect) {
		candidate := hit.(*indexedPoint)
		if candidate.point.DistanceTo(p) <= r {
			matches = append(matches, candidate.index)
		}
	}
	sort.Ints(matches)
	return matches, nil
}

// QueryBounds returns, in ascending order, every index whose point lies
// inside b grown by margin on each side.
func (si *PointIndex) QueryBounds(b geometry.Bounds, margin float64) ([]int, error) {
	if !b.Min.IsFinite() || !b.Max.IsFinite() || math.IsNaN(margin) || margin < 0 {
		return nil, fmt.Errorf("bounds query: %w", geometry.ErrInvalidGeometry)
	}
	if len(si.points) == 0 {
		return nil, nil
	}
	grow := margin + pointExtent
	rect, err := rtreego.NewRect(
		rtreego.Point{b.Min.X - grow, b.Min.Y - grow},
		[]float64{b.Width() + 2*grow, b.Height() + 2*grow},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build query rectangle: %v", err)
	}
	matches := make([]int, 0)
	for _, hit := range si.tree.SearchIntersect(rect) {
		candidate := hit.(*indexedPoint)
		q := candidate.point
		if q.X >= b.Min.X-margin && q.X <= b.Max.X+margin && q.Y >= b.Min.Y-margin && q.Y <= b.Max.Y+margin {
			matches = append(matches, candidate.index)
		}
	}
	sort.Ints(matches)
	return matches, nil
}

// QueryNearest returns the index of the closest point to p. Equidistant
// points resolve to the lowest index.
func (si *PointIndex) QueryNearest(p geometry.Point) (int, error) {
	if !p.IsFinite() {
		return -1, fmt.Errorf("nearest query at (%v, %v): %w", p.X, p.Y, geometry.ErrInvalidGeometry)
	}
	if len(si.points) == 0 {
		return -1, ErrEmptyIndex
	}

	hit := si.tree.NearestNeighbor(rtreego.Point{p.X, p.Y})
	if hit == nil {
		return -1, ErrEmptyIndex
	}
	first := hit.(*indexedPoint)

	// the tree measures distance to the stored rectangles, so re-rank the
	// neighbourhood on exact point distance
	candidates, err := si.QueryRadius(p, first.point.DistanceTo(p)+4*pointExtent)
	if err != nil {
		return -1, err
	}
	best, bestDist := first.index, first.point.DistanceTo(p)
	for _, i := range candidates {
		d := si.points[i].DistanceTo(p)
		if d < bestDist || (d == bestDist && i < best) {
			best, bestDist = i, d
		}
	}
	return best, nil
}
