package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestGEOSIntersectionAndUnion(t *testing.T) {
	ops := NewGEOS()

	inter, err := ops.Intersection(square(0, 0, 2, 2), square(1, 1, 3, 3))
	require.NoError(t, err)
	area, err := ops.Area(inter)
	require.NoError(t, err)
	assert.InDelta(t, 1, area, 1e-9)

	union, err := ops.Union([]geom.T{square(0, 0, 1, 1), square(1, 0, 2, 1), square(2, 0, 3, 1)})
	require.NoError(t, err)
	area, err = ops.Area(union)
	require.NoError(t, err)
	assert.InDelta(t, 3, area, 1e-9)

	empty, err := ops.Intersection(square(0, 0, 1, 1), square(5, 5, 6, 6))
	require.NoError(t, err)
	assert.Nil(t, Polygonal(empty))
}

func TestGEOSMakeValid(t *testing.T) {
	ops := NewGEOS()
	bowtie := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0},
	}})
	require.False(t, ops.IsValid(bowtie))
	assert.NotEmpty(t, ops.ValidReason(bowtie))

	fixed, err := ops.MakeValid(bowtie)
	require.NoError(t, err)
	assert.True(t, ops.IsValid(fixed))
	area, err := ops.Area(fixed)
	require.NoError(t, err)
	assert.InDelta(t, 2, area, 1e-9)

	valid := square(0, 0, 1, 1)
	same, err := ops.MakeValid(valid)
	require.NoError(t, err)
	assert.Same(t, valid, same)
}

func TestGEOSPredicates(t *testing.T) {
	ops := NewGEOS()
	sq := square(0, 0, 2, 2)

	in, err := ops.Contains(sq, Point{1, 1}.GeomPoint())
	require.NoError(t, err)
	assert.True(t, in)
	out, err := ops.Contains(sq, Point{3, 1}.GeomPoint())
	require.NoError(t, err)
	assert.False(t, out)

	d, err := ops.Distance(sq, Point{5, 1}.GeomPoint())
	require.NoError(t, err)
	assert.InDelta(t, 3, d, 1e-12)

	c, err := ops.Centroid(sq)
	require.NoError(t, err)
	assert.InDelta(t, 1, c.X, 1e-12)
	assert.InDelta(t, 1, c.Y, 1e-12)

	l, err := ops.Length(Path{{0, 0}, {3, 4}}.LineString())
	require.NoError(t, err)
	assert.InDelta(t, 5, l, 1e-12)
}

func TestGEOSVoronoi(t *testing.T) {
	ops := NewGEOS()
	sites := []Point{{0, 0}, {10, 0}, {5, 8}}
	cells, err := ops.Voronoi(sites, Bounds{Min: Point{-100, -100}, Max: Point{100, 100}})
	require.NoError(t, err)
	require.Len(t, cells, 3)

	total := 0.0
	for i, c := range cells {
		a, err := ops.Area(c)
		require.NoError(t, err)
		total += a

		own, err := ops.Contains(c, sites[i].GeomPoint())
		require.NoError(t, err)
		assert.True(t, own, "cell %d belongs to site %d", i, i)
	}
	assert.InDelta(t, 200*200, total, 1e-6)

	// order follows the sites, not the sweep
	reversed := []Point{sites[2], sites[1], sites[0]}
	cells, err = ops.Voronoi(reversed, Bounds{Min: Point{-100, -100}, Max: Point{100, 100}})
	require.NoError(t, err)
	for i, c := range cells {
		own, err := ops.Contains(c, reversed[i].GeomPoint())
		require.NoError(t, err)
		assert.True(t, own)
	}

	_, err = ops.Voronoi(sites[:1], Bounds{Max: Point{1, 1}})
	assert.Error(t, err)
}

func TestGEOSNilGeometry(t *testing.T) {
	ops := NewGEOS()
	_, err := ops.Area(nil)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
	assert.False(t, ops.IsValid(nil))
}
