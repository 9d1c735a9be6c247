package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/bsaid97/go-grid-topology/network"
	"github.com/bsaid97/go-grid-topology/utils"
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
)

// ReadOutlineShapefile reads polygon records from an ESRI shapefile, keyed
// by the nameField attribute. Clockwise rings start a new polygon and
// counter-clockwise rings are holes of the polygon before them.
func ReadOutlineShapefile(path, nameField string) (network.Outlines, error) {
	if nameField == "" {
		nameField = DefaultNameProperty
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %v", err)
	}
	defer reader.Close()

	column := -1
	for i, field := range reader.Fields() {
		if strings.EqualFold(fieldName(field), nameField) {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, fmt.Errorf("shapefile %s has no %q field", filepath.Base(path), nameField)
	}

	outlines := make(network.Outlines)
	for reader.Next() {
		n, shape := reader.Shape()
		name := strings.TrimSpace(reader.ReadAttribute(n, column))
		polygon, ok := shape.(*shp.Polygon)
		if !ok {
			logger.Warn("Skipping non-polygon shapefile record", "record", n, "name", name)
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("record %d has an empty %q field", n, nameField)
		}
		g, err := shapePolygon(polygon)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", n, name, err)
		}
		if err := addOutline(outlines, name, g); err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", n, name, err)
		}
	}
	return outlines, nil
}

func fieldName(field shp.Field) string {
	return strings.TrimRight(string(field.Name[:]), "\x00")
}

func shapePolygon(p *shp.Polygon) (geom.T, error) {
	var polygons [][][]geom.Coord
	for i := range p.Parts {
		start := int(p.Parts[i])
		end := len(p.Points)
		if i+1 < len(p.Parts) {
			end = int(p.Parts[i+1])
		}
		if start >= end || end > len(p.Points) {
			return nil, fmt.Errorf("part %d is out of range: %w", i, geometry.ErrInvalidGeometry)
		}
		ring := make([]geom.Coord, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, geom.Coord{pt.X, pt.Y})
		}
		if utils.RingArea(ring) <= 0 || len(polygons) == 0 {
			polygons = append(polygons, [][]geom.Coord{ring})
			continue
		}
		last := len(polygons) - 1
		polygons[last] = append(polygons[last], ring)
	}
	if len(polygons) == 0 {
		return nil, fmt.Errorf("no rings: %w", geometry.ErrInvalidGeometry)
	}

	if len(polygons) == 1 {
		return geom.NewPolygon(geom.XY).SetCoords(reorient(polygons[0]))
	}
	multi := geom.NewMultiPolygon(geom.XY)
	for _, rings := range polygons {
		polygon, err := geom.NewPolygon(geom.XY).SetCoords(reorient(rings))
		if err != nil {
			return nil, err
		}
		if err := multi.Push(polygon); err != nil {
			return nil, err
		}
	}
	return multi, nil
}

// reorient turns shapefile rings into the GeoJSON orientation, exterior
// counter-clockwise.
func reorient(rings [][]geom.Coord) [][]geom.Coord {
	for i, ring := range rings {
		ccw := utils.RingArea(ring) > 0
		if (i == 0) != ccw {
			for a, b := 0, len(ring)-1; a < b; a, b = a+1, b-1 {
				ring[a], ring[b] = ring[b], ring[a]
			}
		}
	}
	return rings
}

// ReadOutlinesFile reads outlines from a .shp or a GeoJSON file.
func ReadOutlinesFile(path, nameProperty string) (network.Outlines, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return ReadOutlineShapefile(path, nameProperty)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open outlines: %v", err)
	}
	defer file.Close()
	return ReadOutlines(file, nameProperty)
}

