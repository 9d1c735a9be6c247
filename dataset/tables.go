package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/network"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Tables carry voltages in kV and lengths in km.
const unitFactor = 1000

// TableOptions controls how voltages are written. When VoltageLevels is
// set, every voltage of at least MinRebaseVoltage is snapped to the
// closest level. Both are in kV.
type TableOptions struct {
	VoltageLevels    []float64
	MinRebaseVoltage float64
}

func (o TableOptions) voltage(v float64) float64 {
	return network.RebaseVoltage(v/unitFactor, o.VoltageLevels, o.MinRebaseVoltage)
}

// RebaseCollisions reports every station where rebasing maps two voltages
// of the same polarity onto one level.
func RebaseCollisions(buses []network.ConsolidatedBus, opts TableOptions) network.Diagnostics {
	var diags network.Diagnostics
	if len(opts.VoltageLevels) == 0 {
		return diags
	}

	type level struct {
		station int
		dc      bool
		kv      float64
	}
	first := make(map[level]float64)
	for _, b := range buses {
		key := level{station: b.StationID, dc: b.DC, kv: opts.voltage(b.Voltage)}
		v, ok := first[key]
		if !ok {
			first[key] = b.Voltage
			continue
		}
		if v != b.Voltage {
			diags.Add(network.KindRebaseCollision, network.SeverityWarning, fmt.Sprintf("station %d", b.StationID),
				"%s kV and %s kV are both written as %s kV", formatFloat(v/unitFactor), formatFloat(b.Voltage/unitFactor), formatFloat(key.kv))
		}
	}
	return diags
}

type tableWriter struct {
	w   *csv.Writer
	err error
}

func newTableWriter(w io.Writer, header ...string) *tableWriter {
	t := &tableWriter{w: csv.NewWriter(w)}
	t.row(header...)
	return t
}

func (t *tableWriter) row(values ...string) {
	if t.err != nil {
		return
	}
	t.err = t.w.Write(values)
}

func (t *tableWriter) close() error {
	if t.err != nil {
		return t.err
	}
	t.w.Flush()
	return t.w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func formatWKT(g geom.T) string {
	s, err := wkt.Marshal(g)
	if err != nil {
		return ""
	}
	return s
}

func pathWKT(p geometry.Path) string {
	if len(p) < 2 {
		return ""
	}
	return formatWKT(p.LineString())
}

func WriteBuses(w io.Writer, buses []network.ConsolidatedBus, opts TableOptions) error {
	t := newTableWriter(w,
		"bus_id", "station_id", "voltage", "dc", "symbol", "under_construction",
		"tag_substation", "tag_area", "lon", "lat", "x", "y", "country",
		"substation_lv", "substation_off", "augmented", "members", "geometry")
	for _, b := range buses {
		symbol := b.Tags["symbol"]
		if symbol == "" {
			symbol = "substation"
		}
		t.row(
			strconv.Itoa(b.ID),
			strconv.Itoa(b.StationID),
			formatFloat(opts.voltage(b.Voltage)),
			formatBool(b.DC),
			symbol,
			formatBool(b.UnderConstruction),
			b.Tags["tag_substation"],
			b.Tags["tag_area"],
			formatFloat(b.Location.X),
			formatFloat(b.Location.Y),
			formatFloat(b.XY.X),
			formatFloat(b.XY.Y),
			b.Country,
			formatBool(b.SubstationLV),
			formatBool(b.SubstationOffshore),
			formatBool(b.Augmented),
			strings.Join(b.Members, "|"),
			formatWKT(b.Location.GeomPoint()),
		)
	}
	return t.close()
}

func WriteLines(w io.Writer, lines []network.CorrectedLine, opts TableOptions) error {
	t := newTableWriter(w,
		"line_id", "bus0", "bus1", "voltage", "circuits", "length", "underground",
		"under_construction", "tag_type", "tag_frequency", "dc", "country",
		"underwater_fraction", "geometry")
	for _, l := range lines {
		t.row(
			l.ID,
			strconv.Itoa(l.Bus0),
			strconv.Itoa(l.Bus1),
			formatFloat(opts.voltage(l.Voltage)),
			strconv.Itoa(l.Circuits),
			formatFloat(l.Length/unitFactor),
			formatBool(l.Underground),
			formatBool(l.UnderConstruction),
			l.Tags["tag_type"],
			l.Frequency,
			formatBool(l.DC),
			l.Country,
			formatFloat(l.UnderwaterFraction),
			pathWKT(l.Path),
		)
	}
	return t.close()
}

func WriteTransformers(w io.Writer, transformers []network.Transformer, opts TableOptions) error {
	t := newTableWriter(w,
		"line_id", "bus0", "bus1", "voltage_bus0", "voltage_bus1", "station_id", "country", "geometry")
	for _, tr := range transformers {
		t.row(
			tr.ID,
			strconv.Itoa(tr.Bus0),
			strconv.Itoa(tr.Bus1),
			formatFloat(opts.voltage(tr.Voltage0)),
			formatFloat(opts.voltage(tr.Voltage1)),
			strconv.Itoa(tr.StationID),
			tr.Country,
			pathWKT(tr.Path),
		)
	}
	return t.close()
}

func WriteConverters(w io.Writer, converters []network.Converter) error {
	t := newTableWriter(w,
		"converter_id", "bus0", "bus1", "station_id", "underground", "under_construction", "country", "geometry")
	for _, c := range converters {
		t.row(
			c.ID,
			strconv.Itoa(c.Bus0),
			strconv.Itoa(c.Bus1),
			strconv.Itoa(c.StationID),
			formatBool(c.Underground),
			formatBool(c.UnderConstruction),
			c.Country,
			pathWKT(c.Path),
		)
	}
	return t.close()
}
