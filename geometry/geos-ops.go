package geometry

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// GEOS implements Ops on top of libgeos. Each value owns its own GEOS
// context, so callers running in parallel should create one per worker.
// Intermediate geometries are released by the garbage collector.
type GEOS struct {
	ctx *geos.Context
}

func NewGEOS() *GEOS {
	return &GEOS{ctx: geos.NewContext()}
}

// recoverGEOS turns a GEOS panic (e.g. a topology exception) into an error.
func recoverGEOS(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("geos %s: %v", op, r)
	}
}

func (o *GEOS) toGEOS(g geom.T) (*geos.Geom, error) {
	if g == nil {
		return nil, fmt.Errorf("nil geometry: %w", ErrInvalidGeometry)
	}
	data, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, fmt.Errorf("failed to encode geometry: %v", err)
	}
	gg, err := o.ctx.NewGeomFromWKB(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode geometry: %v", err)
	}
	return gg, nil
}

func fromGEOS(g *geos.Geom) (geom.T, error) {
	if g == nil {
		return nil, fmt.Errorf("geos returned no geometry")
	}
	if g.IsEmpty() {
		return geom.NewGeometryCollection(), nil
	}
	t, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("failed to decode geos result: %v", err)
	}
	return t, nil
}

func (o *GEOS) IsValid(g geom.T) (valid bool) {
	defer func() {
		if recover() != nil {
			valid = false
		}
	}()
	gg, err := o.toGEOS(g)
	if err != nil {
		return false
	}
	return gg.IsValid()
}

func (o *GEOS) ValidReason(g geom.T) (reason string) {
	defer func() {
		if r := recover(); r != nil {
			reason = fmt.Sprint(r)
		}
	}()
	gg, err := o.toGEOS(g)
	if err != nil {
		return err.Error()
	}
	return gg.IsValidReason()
}

func (o *GEOS) MakeValid(g geom.T) (result geom.T, err error) {
	defer recoverGEOS("make valid", &err)
	gg, err := o.toGEOS(g)
	if err != nil {
		return nil, err
	}
	if gg.IsValid() {
		return g, nil
	}
	fixed := gg.MakeValidWithParams(geos.MakeValidStructure, geos.MakeValidDiscardCollapsed)
	if fixed == nil {
		return nil, fmt.Errorf("make valid returned nothing: %w", ErrInvalidGeometry)
	}
	return fromGEOS(fixed)
}

func (o *GEOS) Intersection(a, b geom.T) (result geom.T, err error) {
	defer recoverGEOS("intersection", &err)
	ga, err := o.toGEOS(a)
	if err != nil {
		return nil, err
	}
	gb, err := o.toGEOS(b)
	if err != nil {
		return nil, err
	}
	out := ga.Intersection(gb)
	if out == nil {
		return nil, fmt.Errorf("intersection failed")
	}
	return fromGEOS(out)
}

// Union dissolves gs with a pairwise cascade.
func (o *GEOS) Union(gs []geom.T) (result geom.T, err error) {
	defer recoverGEOS("union", &err)
	if len(gs) == 0 {
		return geom.NewGeometryCollection(), nil
	}
	parts := make([]*geos.Geom, 0, len(gs))
	for _, g := range gs {
		gg, err := o.toGEOS(g)
		if err != nil {
			return nil, err
		}
		parts = append(parts, gg)
	}
	merged := cascadedUnion(parts)
	return fromGEOS(merged)
}

// cascadedUnion merges geometries pairwise, halving the batch each level.
func cascadedUnion(geometries []*geos.Geom) *geos.Geom {
	if len(geometries) == 1 {
		return geometries[0]
	}

	mid := len(geometries) / 2
	left := cascadedUnion(geometries[:mid])
	right := cascadedUnion(geometries[mid:])

	return left.Union(right)
}

func (o *GEOS) Distance(a, b geom.T) (d float64, err error) {
	defer recoverGEOS("distance", &err)
	ga, err := o.toGEOS(a)
	if err != nil {
		return 0, err
	}
	gb, err := o.toGEOS(b)
	if err != nil {
		return 0, err
	}
	return ga.Distance(gb), nil
}

func (o *GEOS) Contains(a, b geom.T) (ok bool, err error) {
	defer recoverGEOS("contains", &err)
	ga, err := o.toGEOS(a)
	if err != nil {
		return false, err
	}
	gb, err := o.toGEOS(b)
	if err != nil {
		return false, err
	}
	return ga.Contains(gb), nil
}

func (o *GEOS) Centroid(g geom.T) (p Point, err error) {
	defer recoverGEOS("centroid", &err)
	gg, err := o.toGEOS(g)
	if err != nil {
		return Point{}, err
	}
	c := gg.Centroid()
	if c == nil || c.IsEmpty() {
		return Point{}, fmt.Errorf("empty centroid: %w", ErrInvalidGeometry)
	}
	t, err := fromGEOS(c)
	if err != nil {
		return Point{}, err
	}
	pt, ok := t.(*geom.Point)
	if !ok {
		return Point{}, fmt.Errorf("centroid is a %T", t)
	}
	return Point{X: pt.X(), Y: pt.Y()}, nil
}

func (o *GEOS) Length(g geom.T) (l float64, err error) {
	defer recoverGEOS("length", &err)
	gg, err := o.toGEOS(g)
	if err != nil {
		return 0, err
	}
	return gg.Length(), nil
}

func (o *GEOS) Area(g geom.T) (a float64, err error) {
	defer recoverGEOS("area", &err)
	gg, err := o.toGEOS(g)
	if err != nil {
		return 0, err
	}
	return gg.Area(), nil
}

func (o *GEOS) Voronoi(sites []Point, env Bounds) (cells []geom.T, err error) {
	defer recoverGEOS("voronoi", &err)
	if len(sites) < 2 {
		return nil, fmt.Errorf("voronoi needs at least 2 sites, got %d", len(sites))
	}
	flat := make([]float64, 0, 2*len(sites))
	for i, s := range sites {
		if !s.IsFinite() {
			return nil, fmt.Errorf("site %d: %w", i, ErrInvalidGeometry)
		}
		flat = append(flat, s.X, s.Y)
	}
	gs, err := o.toGEOS(geom.NewMultiPointFlat(geom.XY, flat))
	if err != nil {
		return nil, err
	}
	genv, err := o.toGEOS(env.Polygon())
	if err != nil {
		return nil, err
	}

	diagram := gs.VoronoiDiagram(genv, 0, geos.VoronoiDiagramFlagPreserveOrder)
	if diagram == nil {
		return nil, fmt.Errorf("voronoi diagram failed")
	}
	if n := diagram.NumGeometries(); n != len(sites) {
		return nil, fmt.Errorf("voronoi diagram has %d cells for %d sites", n, len(sites))
	}

	cells = make([]geom.T, 0, len(sites))
	for i := range diagram.NumGeometries() {
		cell, err := fromGEOS(diagram.Geometry(i))
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

var _ Ops = (*GEOS)(nil)
