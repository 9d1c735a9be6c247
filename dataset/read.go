// Package dataset reads raw grid features and writes the derived network
// tables and region layers.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/network"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// DefaultNameProperty is the outline property holding the country code.
const DefaultNameProperty = "name"

var busProperties = map[string]bool{
	"bus_id": true, "voltage": true, "dc": true, "country": true, "under_construction": true,
}

var lineProperties = map[string]bool{
	"line_id": true, "voltage": true, "dc": true, "country": true, "under_construction": true,
	"tag_frequency": true, "frequency": true, "circuits": true, "length": true, "underground": true,
}

func decodeFeatures(r io.Reader) ([]*geojson.Feature, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature collection: %v", err)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode feature collection: %v", err)
	}
	return fc.Features, nil
}

// ReadSubstations decodes a GeoJSON collection of substation points.
// Voltages are in volts. Features without a point geometry are reported
// and skipped.
func ReadSubstations(r io.Reader) ([]network.RawBus, network.Diagnostics, error) {
	features, err := decodeFeatures(r)
	if err != nil {
		return nil, nil, err
	}

	var diags network.Diagnostics
	buses := make([]network.RawBus, 0, len(features))
	for i, f := range features {
		id := featureID(f, "bus_id", i)
		point, ok := f.Geometry.(*geom.Point)
		if !ok || point.Empty() {
			diags.Add(network.KindInvalidGeometry, network.SeverityWarning, id, "substation geometry is %T, not a point", f.Geometry)
			continue
		}
		buses = append(buses, network.RawBus{
			ID:                id,
			Location:          geometry.Point{X: point.X(), Y: point.Y()},
			Voltage:           propFloat(f.Properties, "voltage"),
			DC:                propBool(f.Properties, "dc"),
			Country:           propString(f.Properties, "country"),
			UnderConstruction: propBool(f.Properties, "under_construction"),
			Tags:              extraTags(f.Properties, busProperties),
		})
	}
	return buses, diags, nil
}

// ReadLines decodes a GeoJSON collection of line features. The parts of a
// MultiLineString are chained into one path.
func ReadLines(r io.Reader) ([]network.RawLine, network.Diagnostics, error) {
	features, err := decodeFeatures(r)
	if err != nil {
		return nil, nil, err
	}

	var diags network.Diagnostics
	lines := make([]network.RawLine, 0, len(features))
	for i, f := range features {
		id := featureID(f, "line_id", i)
		var path geometry.Path
		switch g := f.Geometry.(type) {
		case *geom.LineString:
			path = geometry.PathFromCoords(g.Coords())
		case *geom.MultiLineString:
			path = mergeParts(g)
		default:
			diags.Add(network.KindInvalidGeometry, network.SeverityWarning, id, "line geometry is %T, not a linestring", f.Geometry)
			continue
		}

		frequency := propString(f.Properties, "tag_frequency")
		if frequency == "" {
			frequency = propString(f.Properties, "frequency")
		}
		circuits := 1
		if c := propFloatOr(f.Properties, "circuits", 1); c >= 1 {
			circuits = int(c)
		}
		lines = append(lines, network.RawLine{
			ID:                id,
			Path:              path,
			Voltage:           propFloat(f.Properties, "voltage"),
			DC:                propBool(f.Properties, "dc"),
			Frequency:         strings.TrimSuffix(frequency, ".0"),
			Circuits:          circuits,
			Length:            propFloatOr(f.Properties, "length", 0),
			UnderConstruction: propBool(f.Properties, "under_construction"),
			Underground:       propBool(f.Properties, "underground"),
			Country:           propString(f.Properties, "country"),
			Tags:              extraTags(f.Properties, lineProperties),
		})
	}
	return lines, diags, nil
}

func mergeParts(mls *geom.MultiLineString) geometry.Path {
	var path geometry.Path
	for i := range mls.NumLineStrings() {
		part := geometry.PathFromCoords(mls.LineString(i).Coords())
		if len(path) > 0 && len(part) > 0 && path.End().Equal(part.Start()) {
			part = part[1:]
		}
		path = append(path, part...)
	}
	return path
}

// ReadOutlines decodes a GeoJSON collection of polygons keyed by the
// nameProperty of each feature. Features sharing a key are combined.
func ReadOutlines(r io.Reader, nameProperty string) (network.Outlines, error) {
	features, err := decodeFeatures(r)
	if err != nil {
		return nil, err
	}
	if nameProperty == "" {
		nameProperty = DefaultNameProperty
	}

	outlines := make(network.Outlines)
	for i, f := range features {
		name := propString(f.Properties, nameProperty)
		if name == "" {
			return nil, fmt.Errorf("outline %d has no %q property", i, nameProperty)
		}
		if err := addOutline(outlines, name, f.Geometry); err != nil {
			return nil, fmt.Errorf("outline %s: %w", name, err)
		}
	}
	return outlines, nil
}

func addOutline(outlines network.Outlines, name string, g geom.T) error {
	var polygons []*geom.Polygon
	switch g := g.(type) {
	case *geom.Polygon:
		polygons = append(polygons, g)
	case *geom.MultiPolygon:
		for i := range g.NumPolygons() {
			polygons = append(polygons, g.Polygon(i))
		}
	default:
		return fmt.Errorf("geometry is %T, not a polygon: %w", g, geometry.ErrInvalidGeometry)
	}

	existing, ok := outlines[name]
	if !ok && len(polygons) == 1 {
		outlines[name] = polygons[0]
		return nil
	}

	var merged []*geom.Polygon
	switch e := existing.(type) {
	case *geom.Polygon:
		merged = append(merged, e)
	case *geom.MultiPolygon:
		for i := range e.NumPolygons() {
			merged = append(merged, e.Polygon(i))
		}
	}
	multi := geom.NewMultiPolygon(geom.XY)
	for _, p := range append(merged, polygons...) {
		if err := multi.Push(p); err != nil {
			return err
		}
	}
	outlines[name] = multi
	return nil
}

func featureID(f *geojson.Feature, key string, index int) string {
	if id := propString(f.Properties, key); id != "" {
		return id
	}
	if f.ID != "" {
		return f.ID
	}
	return strconv.Itoa(index)
}

func propString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// propFloat returns NaN when key is missing or not numeric.
func propFloat(props map[string]any, key string) float64 {
	return propFloatOr(props, key, math.NaN())
}

func propFloatOr(props map[string]any, key string, fallback float64) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fallback
		}
		return f
	default:
		return fallback
	}
}

func propBool(props map[string]any, key string) bool {
	switch v := props[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		return false
	}
}

func extraTags(props map[string]any, known map[string]bool) map[string]string {
	var tags map[string]string
	for key := range props {
		if known[key] {
			continue
		}
		value := propString(props, key)
		if value == "" {
			continue
		}
		if tags == nil {
			tags = make(map[string]string)
		}
		tags[key] = value
	}
	return tags
}
