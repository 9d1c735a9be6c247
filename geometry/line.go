package geometry

import (
	"math"
	"sort"
)

// Location is a position on a path, expressed as a fraction T along
// segment Segment (from vertex Segment to vertex Segment+1).
type Location struct {
	Segment int
	T       float64
	// Along is the distance from the path start to the located point.
	Along float64
	// Dist is the distance from the query point to the path.
	Dist  float64
	Point Point
}

// PathLength is the planar length of path.
func PathLength(path Path) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i-1].DistanceTo(path[i])
	}
	return total
}

// ProjectOnPath returns the point of path closest to p. On ties the
// earliest segment wins.
func ProjectOnPath(path Path, p Point) Location {
	best := Location{Dist: math.Inf(1)}
	if len(path) == 1 {
		return Location{Point: path[0], Dist: path[0].DistanceTo(p)}
	}
	along := 0.0
	for i := 0; i+1 < len(path); i++ {
		a, b := path[i], path[i+1]
		dx, dy := b.X-a.X, b.Y-a.Y
		length2 := dx*dx + dy*dy
		t := 0.0
		if length2 > 0 {
			t = ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / length2
			t = math.Max(0, math.Min(1, t))
		}
		q := Point{X: a.X + t*dx, Y: a.Y + t*dy}
		length := math.Sqrt(length2)
		if d := q.DistanceTo(p); d < best.Dist {
			best = Location{Segment: i, T: t, Along: along + t*length, Dist: d, Point: q}
		}
		along += length
	}
	return best
}

// DistanceToPath is the planar distance from p to the nearest point of path.
func DistanceToPath(path Path, p Point) float64 {
	return ProjectOnPath(path, p).Dist
}

// PointAt interpolates the location on path. The path does not need to be
// the one the location was computed on, only to share its vertex count.
func PointAt(path Path, loc Location) Point {
	if loc.Segment+1 >= len(path) {
		return path[len(path)-1]
	}
	a, b := path[loc.Segment], path[loc.Segment+1]
	if loc.T <= 0 {
		return a
	}
	if loc.T >= 1 {
		return b
	}
	return Point{X: a.X + loc.T*(b.X-a.X), Y: a.Y + loc.T*(b.Y-a.Y)}
}

// SplitPath cuts path at every location and returns len(cuts)+1 parts when
// all cuts are distinct interior points. Cuts at the same position or at an
// end of the path produce no extra part.
func SplitPath(path Path, cuts []Location) []Path {
	sorted := make([]Location, len(cuts))
	copy(sorted, cuts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Segment != sorted[j].Segment {
			return sorted[i].Segment < sorted[j].Segment
		}
		return sorted[i].T < sorted[j].T
	})

	parts := make([]Path, 0, len(sorted)+1)
	current := Path{path[0]}
	vertex := 0
	for _, loc := range sorted {
		for vertex < loc.Segment && vertex+1 < len(path) {
			vertex++
			current = appendDistinct(current, path[vertex])
		}
		cut := PointAt(path, loc)
		current = appendDistinct(current, cut)
		if len(current) < 2 {
			continue
		}
		parts = append(parts, current)
		current = Path{cut}
	}
	for vertex+1 < len(path) {
		vertex++
		current = appendDistinct(current, path[vertex])
	}
	switch {
	case len(current) >= 2:
		parts = append(parts, current)
	case len(parts) == 0:
		parts = append(parts, path.Clone())
	}
	return parts
}

func appendDistinct(path Path, p Point) Path {
	if len(path) > 0 && path[len(path)-1].Equal(p) {
		return path
	}
	return append(path, p)
}
