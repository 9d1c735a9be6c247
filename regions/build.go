package regions

import (
	"context"
	"sort"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/bsaid97/go-grid-topology/network"
	"github.com/bsaid97/go-grid-topology/utils"
	"github.com/twpayne/go-geom"
)

// Job is one outline to partition.
type Job struct {
	Key     string
	Kind    Kind
	Country string
	Outline geom.T
	Seeds   []Seed
}

type jobResult struct {
	regions []Region
	diags   network.Diagnostics
}

// Jobs plans one onshore job per configured country, seeded with its low
// voltage buses, and one offshore job per country with an offshore outline,
// seeded with its offshore buses. Outlines of countries that are not
// configured are reported, not partitioned.
func Jobs(buses []network.ConsolidatedBus, onshore, offshore network.Outlines, countries []string) ([]Job, network.Diagnostics) {
	var diags network.Diagnostics
	var jobs []Job

	for _, country := range countries {
		outline, ok := onshore[country]
		if !ok {
			diags.AddOutline(network.KindOutlineMismatch, network.SeverityWarning, country, "no onshore outline, country skipped")
			continue
		}
		var lv, off []Seed
		for _, b := range buses {
			if b.Country != country {
				continue
			}
			if b.SubstationLV {
				lv = append(lv, Seed{BusID: b.ID, Location: b.Location})
			}
			if b.SubstationOffshore {
				off = append(off, Seed{BusID: b.ID, Location: b.Location})
			}
		}
		if len(lv) == 0 {
			diags.AddOutline(network.KindOutlineMismatch, network.SeverityWarning, country, "no low voltage buses found, country skipped")
			continue
		}
		jobs = append(jobs, Job{Key: country, Kind: Onshore, Country: country, Outline: outline, Seeds: lv})

		shape, ok := offshore[country]
		if !ok {
			diags.AddOutline(network.KindOutlineMismatch, network.SeverityInfo, country, "no offshore outline")
			continue
		}
		if len(off) == 0 {
			diags.AddOutline(network.KindOutlineMismatch, network.SeverityInfo, country, "no offshore substations found")
			continue
		}
		jobs = append(jobs, Job{Key: country + "-offshore", Kind: Offshore, Country: country, Outline: shape, Seeds: off})
	}

	configured := make(map[string]bool, len(countries))
	for _, c := range countries {
		configured[c] = true
	}
	for _, key := range unconfigured(onshore, configured) {
		diags.AddOutline(network.KindOutlineMismatch, network.SeverityInfo, key, "country is not configured, no regions built")
	}
	for _, key := range unconfigured(offshore, configured) {
		diags.AddOutline(network.KindOutlineMismatch, network.SeverityInfo, key+"-offshore", "country is not configured, no regions built")
	}
	return jobs, diags
}

func unconfigured(outlines network.Outlines, configured map[string]bool) []string {
	var keys []string
	for key := range outlines {
		if !configured[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Build partitions every job on a pool of workers. newOps is called once
// per job so that no geometry engine is shared. A failing job is reported
// in the diagnostics and does not affect the others. Regions are sorted by
// outline key, then bus id.
func Build(ctx context.Context, newOps func() geometry.Ops, jobs []Job, opts Options, workers int) ([]Region, network.Diagnostics, error) {
	pp := utils.NewParallelProcessor(workers)
	logger.Info("Partitioning outlines", "jobs", len(jobs), "workers", pp.NumWorkers)

	results, err := utils.ProcessBatch(ctx, pp, jobs, func(ctx context.Context, job Job) (jobResult, error) {
		if err := ctx.Err(); err != nil {
			return jobResult{}, err
		}
		regions, diags, err := Partition(newOps(), job.Outline, job.Seeds, opts)
		for i := range diags {
			diags[i].Outline = job.Key
		}
		if err != nil {
			return jobResult{diags: diags}, err
		}
		for i := range regions {
			regions[i].Outline = job.Key
			regions[i].Kind = job.Kind
			regions[i].Country = job.Country
		}
		return jobResult{regions: regions, diags: diags}, nil
	}, "Region partitioning")
	if err != nil {
		return nil, nil, err
	}

	var all []Region
	var diags network.Diagnostics
	for _, r := range results {
		job := jobs[r.Index]
		diags.Merge(r.Value.diags)
		if r.Err != nil {
			diags.AddOutline(network.KindTessellationFailure, network.SeverityError, job.Key, "outline skipped: %v", r.Err)
			continue
		}
		all = append(all, r.Value.regions...)
		logger.Debug("Outline partitioned", "outline", job.Key, "seeds", len(job.Seeds), "regions", len(r.Value.regions))
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Outline != all[j].Outline {
			return all[i].Outline < all[j].Outline
		}
		return all[i].BusID < all[j].BusID
	})
	return all, diags, nil
}

// ByKind splits regions into onshore and offshore.
func ByKind(regions []Region) (onshore, offshore []Region) {
	for _, r := range regions {
		if r.Kind == Offshore {
			offshore = append(offshore, r)
		} else {
			onshore = append(onshore, r)
		}
	}
	return onshore, offshore
}
