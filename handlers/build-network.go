package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/bsaid97/go-grid-topology/config"
	"github.com/bsaid97/go-grid-topology/dataset"
	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/bsaid97/go-grid-topology/network"
	"github.com/bsaid97/go-grid-topology/regions"
)

// Sources are the raw inputs of one run. Outlines may be nil.
type Sources struct {
	Substations io.Reader
	Lines       io.Reader
	Onshore     network.Outlines
	Offshore    network.Outlines
}

// coverageTolerance is the overlap area, in squared degrees, below which
// two regions are considered adjacent.
const coverageTolerance = 1e-12

// BuildNetwork runs the full pipeline: network topology, then one region
// partition per outline.
func BuildNetwork(ctx context.Context, cfg config.Config, src Sources) (dataset.Output, error) {
	var out dataset.Output
	var diags network.Diagnostics

	if src.Substations == nil {
		return out, fmt.Errorf("substations are required")
	}
	buses, d, err := dataset.ReadSubstations(src.Substations)
	if err != nil {
		return out, fmt.Errorf("failed to read substations: %v", err)
	}
	diags.Merge(d)

	var lines []network.RawLine
	if src.Lines != nil {
		lines, d, err = dataset.ReadLines(src.Lines)
		if err != nil {
			return out, fmt.Errorf("failed to read lines: %v", err)
		}
		diags.Merge(d)
	}
	logger.Info("Inputs read", "substations", len(buses), "lines", len(lines),
		"onshore_outlines", len(src.Onshore), "offshore_outlines", len(src.Offshore))

	net, err := network.Build(ctx, network.Input{
		Buses:    buses,
		Lines:    lines,
		Onshore:  src.Onshore,
		Offshore: src.Offshore,
	}, cfg.NetworkOptions(), geometry.NewGEOS())
	if err != nil {
		return out, fmt.Errorf("failed to build network: %w", err)
	}
	diags.Merge(net.Diagnostics)
	out.Network = net

	if len(src.Onshore) > 0 || len(src.Offshore) > 0 {
		jobs, d := regions.Jobs(net.Buses, src.Onshore, src.Offshore, cfg.Countries)
		diags.Merge(d)

		rs, d, err := regions.Build(ctx, newOps, jobs, cfg.RegionOptions(), cfg.Workers)
		if err != nil {
			return out, fmt.Errorf("failed to build regions: %w", err)
		}
		diags.Merge(d)
		out.Regions = rs

		if cfg.Debug {
			logCoverage(jobs, rs)
		}
	}

	out.Diagnostics = diags
	diags.Log()
	logger.Info("Network built",
		"buses", len(net.Buses),
		"lines", len(net.Lines),
		"transformers", len(net.Transformers),
		"converters", len(net.Converters),
		"regions", len(out.Regions))
	return out, nil
}

func newOps() geometry.Ops { return geometry.NewGEOS() }

func logCoverage(jobs []regions.Job, rs []regions.Region) {
	byOutline := make(map[string][]regions.Region)
	for _, r := range rs {
		byOutline[r.Outline] = append(byOutline[r.Outline], r)
	}
	ops := newOps()
	for _, job := range jobs {
		report, err := regions.CheckCoverage(ops, job.Outline, byOutline[job.Key], coverageTolerance)
		if err != nil {
			logger.Warn("Coverage check failed", "outline", job.Key, "err", err)
			continue
		}
		logger.Debug("Coverage",
			"outline", job.Key,
			"regions", report.RegionCount,
			"overlaps", report.OverlapCount,
			"gap_area", report.GapArea)
	}
}

// BuildNetworkZip runs BuildNetwork and bundles every artifact into a zip.
func BuildNetworkZip(ctx context.Context, cfg config.Config, src Sources) ([]byte, error) {
	out, err := BuildNetwork(ctx, cfg, src)
	if err != nil {
		return nil, err
	}
	return dataset.Bundle(out, cfg.TableOptions())
}
