package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/bsaid97/go-grid-topology/network"
	"github.com/bsaid97/go-grid-topology/regions"
	"github.com/bsaid97/go-grid-topology/utils"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Output is everything one run produces.
type Output struct {
	Network     *network.Network
	Regions     []regions.Region
	Diagnostics network.Diagnostics
}

func regionProperties(r regions.Region) map[string]any {
	return map[string]any{
		"name":    strconv.Itoa(r.BusID),
		"country": r.Country,
		"kind":    string(r.Kind),
		"outline": r.Outline,
		"area":    r.Area,
		"x":       r.X,
		"y":       r.Y,
	}
}

func regionGeometry(r regions.Region) geom.T {
	g, err := utils.TruncateGeometry(r.Geometry, utils.PRECISION)
	if err != nil {
		return r.Geometry
	}
	return g
}

// WriteRegions writes regions as a GeoJSON feature collection with
// coordinates rounded to utils.PRECISION decimals.
func WriteRegions(w io.Writer, rs []regions.Region) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(rs))}
	for _, r := range rs {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.Itoa(r.BusID),
			Geometry:   regionGeometry(r),
			Properties: regionProperties(r),
		})
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("failed to encode regions: %v", err)
	}
	_, err = w.Write(data)
	return err
}

func regionLayer(name string, rs []regions.Region) utils.ShapefileLayer {
	layer := utils.ShapefileLayer{Name: name, Features: make([]utils.ShapeFeature, 0, len(rs))}
	for _, r := range rs {
		layer.Features = append(layer.Features, utils.ShapeFeature{
			Geometry:   regionGeometry(r),
			Properties: regionProperties(r),
		})
	}
	return layer
}

func WriteDiagnostics(w io.Writer, diags network.Diagnostics) error {
	if diags == nil {
		diags = network.Diagnostics{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(diags)
}

// Artifacts renders every output file of a run. Tables and GeoJSON layers
// come back as entries, region shapefiles as layers.
func Artifacts(out Output, opts TableOptions) ([]utils.ZipEntry, []utils.ShapefileLayer, error) {
	net := out.Network
	if net == nil {
		net = &network.Network{}
	}
	onshore, offshore := regions.ByKind(out.Regions)

	diags := append(network.Diagnostics(nil), out.Diagnostics...)
	if collisions := RebaseCollisions(net.Buses, opts); len(collisions) > 0 {
		collisions.Log()
		diags.Merge(collisions)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"buses.csv", func(w io.Writer) error { return WriteBuses(w, net.Buses, opts) }},
		{"lines.csv", func(w io.Writer) error { return WriteLines(w, net.Lines, opts) }},
		{"transformers.csv", func(w io.Writer) error { return WriteTransformers(w, net.Transformers, opts) }},
		{"converters.csv", func(w io.Writer) error { return WriteConverters(w, net.Converters) }},
		{"regions_onshore.geojson", func(w io.Writer) error { return WriteRegions(w, onshore) }},
		{"regions_offshore.geojson", func(w io.Writer) error { return WriteRegions(w, offshore) }},
		{"diagnostics.json", func(w io.Writer) error { return WriteDiagnostics(w, diags) }},
	}

	entries := make([]utils.ZipEntry, 0, len(files))
	for _, f := range files {
		var buf bytes.Buffer
		if err := f.write(&buf); err != nil {
			return nil, nil, fmt.Errorf("failed to write %s: %v", f.name, err)
		}
		entries = append(entries, utils.ZipEntry{Name: f.name, Data: buf.Bytes()})
	}

	layers := []utils.ShapefileLayer{
		regionLayer("regions_onshore", onshore),
		regionLayer("regions_offshore", offshore),
	}
	return entries, layers, nil
}

// Bundle packs all artifacts into one zip archive.
func Bundle(out Output, opts TableOptions) ([]byte, error) {
	entries, layers, err := Artifacts(out, opts)
	if err != nil {
		return nil, err
	}
	return utils.GenerateShapefileZip(entries, layers)
}

// WriteDir writes all artifacts into dir, creating it if needed.
func WriteDir(dir string, out Output, opts TableOptions) error {
	entries, layers, err := Artifacts(out, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}
	for _, entry := range entries {
		if err := os.WriteFile(filepath.Join(dir, entry.Name), entry.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %v", entry.Name, err)
		}
	}
	for _, layer := range layers {
		if len(layer.Features) == 0 {
			continue
		}
		if err := utils.WriteShapefile(filepath.Join(dir, layer.Name+".shp"), layer.Features); err != nil {
			return fmt.Errorf("failed to write %s shapefile: %v", layer.Name, err)
		}
	}
	logger.Info("Outputs written", "dir", dir, "files", len(entries))
	return nil
}
