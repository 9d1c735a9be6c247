package geometry

import (
	"fmt"

	"github.com/ctessum/geom/proj"
)

const (
	// LonLat is the reference system of every input and output coordinate.
	LonLat = "+proj=longlat"
	// WebMercator is the default metric system for distance computations.
	WebMercator = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
)

// Projector converts lon/lat coordinates into a metric reference system so
// that tolerances can be expressed in metres.
type Projector struct {
	crs     string
	forward proj.Transformer
}

func NewProjector(distanceCRS string) (*Projector, error) {
	src, err := proj.Parse(LonLat)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lon/lat reference: %v", err)
	}
	dst, err := proj.Parse(distanceCRS)
	if err != nil {
		return nil, fmt.Errorf("failed to parse distance crs %q: %v", distanceCRS, err)
	}
	if dst.Name == "longlat" {
		return nil, fmt.Errorf("distance crs %q is not metric", distanceCRS)
	}
	forward, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform to %q: %v", distanceCRS, err)
	}
	return &Projector{crs: distanceCRS, forward: forward}, nil
}

func (p *Projector) CRS() string { return p.crs }

// Forward projects a lon/lat point.
func (p *Projector) Forward(pt Point) (Point, error) {
	if !pt.IsFinite() {
		return Point{}, fmt.Errorf("point (%v, %v): %w", pt.X, pt.Y, ErrInvalidGeometry)
	}
	x, y, err := p.forward(pt.X, pt.Y)
	if err != nil {
		return Point{}, fmt.Errorf("failed to project (%v, %v): %v", pt.X, pt.Y, err)
	}
	out := Point{X: x, Y: y}
	if !out.IsFinite() {
		return Point{}, fmt.Errorf("projection of (%v, %v) is not finite: %w", pt.X, pt.Y, ErrInvalidGeometry)
	}
	return out, nil
}

func (p *Projector) ForwardPath(path Path) (Path, error) {
	out := make(Path, len(path))
	for i, pt := range path {
		xy, err := p.Forward(pt)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		out[i] = xy
	}
	return out, nil
}
