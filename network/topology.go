package network

import (
	"fmt"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/utils"
)

// classIndex holds the buses of one (voltage, polarity) class.
type classIndex struct {
	index *utils.PointIndex
	buses []int
}

func (c *classIndex) nearest(p geometry.Point) (int, error) {
	pos, err := c.index.QueryNearest(p)
	if err != nil {
		return -1, err
	}
	return c.buses[pos], nil
}

func indexByClass(buses []ConsolidatedBus) (map[busClass]*classIndex, error) {
	classes := make(map[busClass]*classIndex)
	points := make(map[busClass][]geometry.Point)
	for i, b := range buses {
		c := classOf(b.Voltage, b.DC)
		ci, ok := classes[c]
		if !ok {
			ci = &classIndex{}
			classes[c] = ci
		}
		ci.buses = append(ci.buses, i)
		points[c] = append(points[c], b.XY)
	}
	for c, ci := range classes {
		index, err := utils.NewPointIndex(points[c])
		if err != nil {
			return nil, fmt.Errorf("failed to index %.0f V buses: %w", c.voltage, err)
		}
		ci.index = index
	}
	return classes, nil
}

// AssignEndpoints attaches both ends of every line to the nearest bus of
// the same voltage and polarity. When the bus does not sit on the raw
// endpoint, a connecting segment to the bus location is added; the line is
// never shortened. Lines without candidate buses are excluded.
func AssignEndpoints(lines []RawLine, buses []ConsolidatedBus, projector *geometry.Projector) ([]CorrectedLine, Diagnostics) {
	var diags Diagnostics
	classes, err := indexByClass(buses)
	if err != nil {
		diags.Add(KindInvalidGeometry, SeverityError, "", "%v", err)
		return nil, diags
	}

	corrected := make([]CorrectedLine, 0, len(lines))
	for _, line := range lines {
		if err := line.Path.Validate(); err != nil {
			diags.Add(KindInvalidGeometry, SeverityWarning, line.ID, "line excluded: %v", err)
			continue
		}
		xy, err := projector.ForwardPath(line.Path)
		if err != nil {
			diags.Add(KindInvalidGeometry, SeverityWarning, line.ID, "line excluded: %v", err)
			continue
		}

		ci, ok := classes[classOf(line.Voltage, line.DC)]
		if !ok {
			diags.Add(KindUnresolvedEndpoint, SeverityWarning, line.ID,
				"no bus at %.0f V (dc=%t), line excluded", line.Voltage, line.DC)
			continue
		}
		b0, err := ci.nearest(xy.Start())
		if err != nil {
			diags.Add(KindUnresolvedEndpoint, SeverityWarning, line.ID, "bus0: %v", err)
			continue
		}
		b1, err := ci.nearest(xy.End())
		if err != nil {
			diags.Add(KindUnresolvedEndpoint, SeverityWarning, line.ID, "bus1: %v", err)
			continue
		}

		path := line.Path.Clone()
		if start := buses[b0].Location; !path.Start().Equal(start) {
			path = append(geometry.Path{start}, path...)
		}
		if end := buses[b1].Location; !path.End().Equal(end) {
			path = append(path, end)
		}

		out := CorrectedLine{RawLine: line, Bus0: buses[b0].ID, Bus1: buses[b1].ID}
		out.Tags = cloneTags(line.Tags)
		out.Path = path
		out.Length = geometry.GeodesicLength(path)
		corrected = append(corrected, out)
	}
	return corrected, diags
}

// DropSelfLoops removes lines whose two ends attach to the same bus.
func DropSelfLoops(lines []CorrectedLine) ([]CorrectedLine, Diagnostics) {
	var diags Diagnostics
	kept := make([]CorrectedLine, 0, len(lines))
	for _, line := range lines {
		if line.Bus0 == line.Bus1 {
			diags.Add(KindSelfLoop, SeverityInfo, line.ID, "both ends attach to bus %d, line dropped", line.Bus0)
			continue
		}
		kept = append(kept, line)
	}
	return kept, diags
}
