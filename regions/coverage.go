package regions

import (
	"fmt"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/twpayne/go-geom"
)

// CoverageReport compares a set of regions with the outline they came
// from. Areas are planar, in squared outline units.
type CoverageReport struct {
	RegionCount  int
	OverlapCount int
	OverlapArea  float64
	OutlineArea  float64
	CoveredArea  float64
	GapArea      float64
}

// CheckCoverage counts region pairs overlapping by more than tol and the
// part of the outline no region covers.
func CheckCoverage(ops geometry.Ops, outline geom.T, regions []Region, tol float64) (CoverageReport, error) {
	report := CoverageReport{RegionCount: len(regions)}

	outlineArea, err := ops.Area(outline)
	if err != nil {
		return report, fmt.Errorf("failed to measure outline: %v", err)
	}
	report.OutlineArea = outlineArea

	bounds := make([]geometry.Bounds, len(regions))
	for i, r := range regions {
		bounds[i], _ = geometry.BoundsOfGeom(r.Geometry)
	}

	parts := make([]geom.T, 0, len(regions))
	for i := 0; i < len(regions); i++ {
		parts = append(parts, regions[i].Geometry)
		for j := i + 1; j < len(regions); j++ {
			if !overlapping(bounds[i], bounds[j]) {
				continue
			}
			inter, err := ops.Intersection(regions[i].Geometry, regions[j].Geometry)
			if err != nil {
				return report, fmt.Errorf("failed to intersect regions %d and %d: %v", regions[i].BusID, regions[j].BusID, err)
			}
			area, err := ops.Area(inter)
			if err != nil {
				return report, err
			}
			if area > tol {
				report.OverlapCount++
				report.OverlapArea += area
				logger.Debug("Overlap detected", "bus_i", regions[i].BusID, "bus_j", regions[j].BusID, "area", area)
			}
		}
	}

	if len(parts) > 0 {
		union, err := ops.Union(parts)
		if err != nil {
			return report, fmt.Errorf("failed to dissolve regions: %v", err)
		}
		covered, err := ops.Intersection(union, outline)
		if err != nil {
			return report, fmt.Errorf("failed to clip regions: %v", err)
		}
		if report.CoveredArea, err = ops.Area(covered); err != nil {
			return report, err
		}
	}
	report.GapArea = report.OutlineArea - report.CoveredArea

	logger.Debug("Coverage validation finished",
		"regions", report.RegionCount,
		"overlaps", report.OverlapCount,
		"overlap_area", report.OverlapArea,
		"gap_area", report.GapArea)
	return report, nil
}

func overlapping(a, b geometry.Bounds) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X && a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y
}
