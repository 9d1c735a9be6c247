package utils

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
)

// ShapeFeature is one shapefile record.
type ShapeFeature struct {
	Geometry   geom.T
	Properties map[string]any
}

// ShapefileLayer is written as <Name>.shp, <Name>.shx and <Name>.dbf.
type ShapefileLayer struct {
	Name     string
	Features []ShapeFeature
}

type ZipEntry struct {
	Name string
	Data []byte
}

// GenerateShapefileZip creates a zip file containing the given entries
// followed by the components of every layer
func GenerateShapefileZip(entries []ZipEntry, layers []ShapefileLayer) ([]byte, error) {
	var zipBuffer bytes.Buffer
	zipWriter := zip.NewWriter(&zipBuffer)

	for _, entry := range entries {
		file, err := zipWriter.Create(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s in zip: %v", entry.Name, err)
		}
		if _, err := file.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s to zip: %v", entry.Name, err)
		}
	}

	for _, layer := range layers {
		if len(layer.Features) == 0 {
			logger.Debug("Skipping empty shapefile layer", "layer", layer.Name)
			continue
		}
		if err := addShapefileToZip(zipWriter, layer); err != nil {
			return nil, fmt.Errorf("failed to add shapefile %s to zip: %v", layer.Name, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %v", err)
	}

	return zipBuffer.Bytes(), nil
}

// addShapefileToZip creates shapefile components and adds them to the zip
func addShapefileToZip(zipWriter *zip.Writer, layer ShapefileLayer) error {
	tempDir, err := os.MkdirTemp("", "shapefile_")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	shapefilePath := filepath.Join(tempDir, layer.Name+".shp")
	if err := WriteShapefile(shapefilePath, layer.Features); err != nil {
		return fmt.Errorf("failed to generate shapefile: %v", err)
	}

	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		filePath := strings.TrimSuffix(shapefilePath, ".shp") + ext
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			continue
		}

		fileContent, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read shapefile component %s: %v", ext, err)
		}

		zipFile, err := zipWriter.Create(layer.Name + ext)
		if err != nil {
			return fmt.Errorf("failed to create %s file in zip: %v", ext, err)
		}
		if _, err := zipFile.Write(fileContent); err != nil {
			return fmt.Errorf("failed to write %s data to zip: %v", ext, err)
		}
	}

	return nil
}

// WriteShapefile writes features to path. All features must share one
// shape family (points, lines or polygons). Attribute columns are the union
// of all property keys, in sorted order.
func WriteShapefile(path string, features []ShapeFeature) error {
	if len(features) == 0 {
		return fmt.Errorf("no features to write to shapefile")
	}

	shapeType, err := shapeTypeOf(features[0].Geometry)
	if err != nil {
		return err
	}

	writer, err := shp.Create(path, shapeType)
	if err != nil {
		return fmt.Errorf("failed to create shapefile: %v", err)
	}
	defer writer.Close()

	fields, keys := createFieldsFromProperties(features)
	if err := writer.SetFields(fields); err != nil {
		return fmt.Errorf("failed to set shapefile fields: %v", err)
	}

	row := 0
	for i, feature := range features {
		featureType, err := shapeTypeOf(feature.Geometry)
		if err != nil || featureType != shapeType {
			logger.Warn("Skipping shapefile feature", "feature", i, "err", err)
			continue
		}
		shape, err := toShape(feature.Geometry)
		if err != nil {
			logger.Warn("Skipping shapefile feature", "feature", i, "err", err)
			continue
		}
		writer.Write(shape)
		if err := writeAttributesToShapefile(writer, feature.Properties, fields, keys, row); err != nil {
			logger.Warn("Failed to write shapefile attributes", "feature", i, "err", err)
		}
		row++
	}

	return nil
}

func shapeTypeOf(g geom.T) (shp.ShapeType, error) {
	switch g.(type) {
	case *geom.Point:
		return shp.POINT, nil
	case *geom.LineString, *geom.MultiLineString:
		return shp.POLYLINE, nil
	case *geom.Polygon, *geom.MultiPolygon:
		return shp.POLYGON, nil
	default:
		return shp.NULL, fmt.Errorf("unsupported geometry type: %T", g)
	}
}

func toShape(g geom.T) (shp.Shape, error) {
	switch g := g.(type) {
	case *geom.Point:
		return &shp.Point{X: g.X(), Y: g.Y()}, nil
	case *geom.LineString:
		return shp.NewPolyLine([][]shp.Point{shapePoints(g.Coords(), false)}), nil
	case *geom.MultiLineString:
		var parts [][]shp.Point
		for i := range g.NumLineStrings() {
			parts = append(parts, shapePoints(g.LineString(i).Coords(), false))
		}
		return shp.NewPolyLine(parts), nil
	case *geom.Polygon:
		polygon := shp.Polygon(*shp.NewPolyLine(polygonParts(g)))
		return &polygon, nil
	case *geom.MultiPolygon:
		var parts [][]shp.Point
		for i := range g.NumPolygons() {
			parts = append(parts, polygonParts(g.Polygon(i))...)
		}
		polygon := shp.Polygon(*shp.NewPolyLine(parts))
		return &polygon, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type: %T", g)
	}
}

// polygonParts orders rings the shapefile way: exterior clockwise, holes
// counter-clockwise.
func polygonParts(p *geom.Polygon) [][]shp.Point {
	parts := make([][]shp.Point, 0, p.NumLinearRings())
	for i := range p.NumLinearRings() {
		coords := p.LinearRing(i).Coords()
		clockwise := i == 0
		parts = append(parts, shapePoints(coords, (RingArea(coords) > 0) == clockwise))
	}
	return parts
}

func shapePoints(coords []geom.Coord, reverse bool) []shp.Point {
	points := make([]shp.Point, len(coords))
	for i, c := range coords {
		j := i
		if reverse {
			j = len(coords) - 1 - i
		}
		points[j] = shp.Point{X: c.X(), Y: c.Y()}
	}
	return points
}

// RingArea is the signed shoelace area of a ring, positive when the ring
// is counter-clockwise.
func RingArea(coords []geom.Coord) float64 {
	area := 0.0
	for i := 0; i+1 < len(coords); i++ {
		area += coords[i].X()*coords[i+1].Y() - coords[i+1].X()*coords[i].Y()
	}
	return area / 2
}

// createFieldsFromProperties analyzes properties to create DBF fields
func createFieldsFromProperties(features []ShapeFeature) ([]shp.Field, []string) {
	samples := make(map[string]any)
	for _, feature := range features {
		for key, value := range feature.Properties {
			if _, seen := samples[key]; !seen || samples[key] == nil {
				samples[key] = value
			}
		}
	}

	keys := make([]string, 0, len(samples))
	for key := range samples {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make([]shp.Field, 0, len(keys))
	for _, key := range keys {
		// DBF field names are limited to 10 characters
		fieldName := key
		if len(fieldName) > 10 {
			fieldName = fieldName[:10]
		}

		switch value := samples[key].(type) {
		case string:
			length := len(value)
			if length < 50 {
				length = 50
			}
			if length > 254 {
				length = 254
			}
			fields = append(fields, shp.StringField(fieldName, uint8(length)))
		case float64:
			fields = append(fields, shp.FloatField(fieldName, 24, 6))
		case int, int32, int64:
			fields = append(fields, shp.NumberField(fieldName, 15))
		case bool:
			fields = append(fields, shp.StringField(fieldName, 5))
		default:
			fields = append(fields, shp.StringField(fieldName, 100))
		}
	}

	if len(fields) == 0 {
		fields = append(fields, shp.NumberField("ID", 10))
	}

	return fields, keys
}

// writeAttributesToShapefile writes feature properties as DBF attributes
func writeAttributesToShapefile(writer *shp.Writer, properties map[string]any, fields []shp.Field, keys []string, row int) error {
	if len(keys) == 0 {
		return writer.WriteAttribute(row, 0, row+1)
	}

	for i, field := range fields {
		value, found := properties[keys[i]]
		var err error
		switch {
		case !found || value == nil:
			if field.Fieldtype == 'C' {
				err = writer.WriteAttribute(row, i, "")
			} else {
				err = writer.WriteAttribute(row, i, 0)
			}
		case field.Fieldtype == 'N':
			switch v := value.(type) {
			case int:
				err = writer.WriteAttribute(row, i, v)
			case int32:
				err = writer.WriteAttribute(row, i, int(v))
			case int64:
				err = writer.WriteAttribute(row, i, int(v))
			default:
				err = writer.WriteAttribute(row, i, 0)
			}
		case field.Fieldtype == 'F':
			if v, ok := value.(float64); ok {
				err = writer.WriteAttribute(row, i, v)
			} else {
				err = writer.WriteAttribute(row, i, 0.0)
			}
		default:
			err = writer.WriteAttribute(row, i, fmt.Sprintf("%v", value))
		}
		if err != nil {
			return fmt.Errorf("field %s: %v", keys[i], err)
		}
	}

	return nil
}
