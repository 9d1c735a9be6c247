package utils

import (
	"math"
	"testing"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRadius(t *testing.T) {
	index, err := NewPointIndex([]geometry.Point{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 10, Y: 0}, {X: 0, Y: 5.0001}})
	require.NoError(t, err)
	require.Equal(t, 4, index.Len())

	t.Run("inclusive boundary", func(t *testing.T) {
		hits, err := index.QueryRadius(geometry.Point{X: 0, Y: 0}, 5)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, hits)
	})

	t.Run("zero radius matches coincident points", func(t *testing.T) {
		hits, err := index.QueryRadius(geometry.Point{X: 3, Y: 4}, 0)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, hits)
	})

	t.Run("always contains the query point itself", func(t *testing.T) {
		for i := range index.Len() {
			hits, err := index.QueryRadius(index.Point(i), 0.5)
			require.NoError(t, err)
			assert.Contains(t, hits, i)
		}
	})

	t.Run("invalid queries", func(t *testing.T) {
		_, err := index.QueryRadius(geometry.Point{X: math.NaN(), Y: 0}, 1)
		assert.ErrorIs(t, err, geometry.ErrInvalidGeometry)
		_, err = index.QueryRadius(geometry.Point{X: 0, Y: 0}, -1)
		assert.ErrorIs(t, err, geometry.ErrInvalidGeometry)
	})
}

func TestQueryNearest(t *testing.T) {
	index, err := NewPointIndex([]geometry.Point{{X: 5, Y: 5}, {X: 1, Y: 0}, {X: -1, Y: 0}, {X: 1, Y: 0}})
	require.NoError(t, err)

	nearest, err := index.QueryNearest(geometry.Point{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, nearest, "ties resolve to the lowest index")

	nearest, err = index.QueryNearest(geometry.Point{X: 4, Y: 4})
	require.NoError(t, err)
	assert.Equal(t, 0, nearest)

	empty, err := NewPointIndex(nil)
	require.NoError(t, err)
	_, err = empty.QueryNearest(geometry.Point{X: 0, Y: 0})
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestAppendAndBounds(t *testing.T) {
	index, err := NewPointIndex([]geometry.Point{{X: 0, Y: 0}})
	require.NoError(t, err)

	require.NoError(t, index.Append(geometry.Point{X: 2, Y: 2}, geometry.Point{X: 5, Y: 5}))
	assert.Equal(t, 3, index.Len())

	err = index.Append(geometry.Point{X: 1, Y: 1}, geometry.Point{X: math.Inf(1), Y: 0})
	assert.ErrorIs(t, err, geometry.ErrInvalidGeometry)
	assert.Equal(t, 3, index.Len(), "rejected batch is not partially inserted")

	hits, err := index.QueryBounds(geometry.Bounds{Min: geometry.Point{X: 1, Y: 1}, Max: geometry.Point{X: 3, Y: 3}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, hits)

	hits, err = index.QueryBounds(geometry.Bounds{Min: geometry.Point{X: 1, Y: 1}, Max: geometry.Point{X: 3, Y: 1}}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, hits)

	_, err = NewPointIndex([]geometry.Point{{X: math.NaN(), Y: 0}})
	assert.ErrorIs(t, err, geometry.ErrInvalidGeometry)
}
