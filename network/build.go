package network

import (
	"context"
	"fmt"
	"math"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/twpayne/go-geom"
)

// Input is everything Build reads. Outlines are optional.
type Input struct {
	Buses    []RawBus
	Lines    []RawLine
	Onshore  Outlines
	Offshore Outlines
}

type Options struct {
	Countries   []string
	DistanceCRS string

	ForceAC               bool
	SplitOverpassingLines bool
	OverpassingTolerance  float64
	GroupCloseBuses       bool
	// GroupTolerance is the station clustering radius in metres.
	GroupTolerance float64
	Consolidate    ConsolidateOptions

	// MinVoltageOffshore is in volts.
	MinVoltageOffshore  float64
	CountryPathCutoffKm float64
}

func DefaultOptions() Options {
	return Options{
		DistanceCRS:           geometry.WebMercator,
		SplitOverpassingLines: true,
		OverpassingTolerance:  DefaultOverpassingTolerance,
		GroupCloseBuses:       true,
		GroupTolerance:        500,
		Consolidate:           DefaultConsolidateOptions(),
		MinVoltageOffshore:    35000,
		CountryPathCutoffKm:   DefaultCountryPathCutoff,
	}
}

const buildStages = 9

func stage(n int, name string, keyvals ...any) {
	logger.Info(fmt.Sprintf("Stage %d/%d: %s", n, buildStages, name), keyvals...)
}

// Build derives the grid model from raw substations and lines. Features
// that cannot be used are excluded and reported in Network.Diagnostics;
// only configuration problems and cancellation return an error.
func Build(ctx context.Context, in Input, opts Options, ops geometry.Ops) (*Network, error) {
	projector, err := geometry.NewProjector(opts.DistanceCRS)
	if err != nil {
		return nil, fmt.Errorf("invalid distance crs: %v", err)
	}

	var diags Diagnostics

	stage(1, "validating input", "buses", len(in.Buses), "lines", len(in.Lines), "crs", projector.CRS())
	buses, xy, lines := validateInput(in.Buses, in.Lines, projector, &diags)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage(2, "normalising polarity and frequency", "force_ac", opts.ForceAC)
	if opts.ForceAC {
		buses, lines = ForceAC(buses, lines)
	}
	lines = FillFrequency(lines, ACFrequency(lines))

	stage(3, "splitting overpassing lines", "enabled", opts.SplitOverpassingLines)
	if opts.SplitOverpassingLines {
		var d Diagnostics
		lines, d = SplitOverpassingLines(lines, buses, projector, opts.OverpassingTolerance)
		diags.Merge(d)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage(4, "clustering stations", "tolerance", opts.GroupTolerance, "enabled", opts.GroupCloseBuses)
	tol := 0.0
	if opts.GroupCloseBuses {
		tol = opts.GroupTolerance
	}
	stationIDs, nextStation, err := AssignStations(xy, tol, 0)
	if err != nil {
		return nil, fmt.Errorf("station clustering failed: %w", err)
	}

	stage(5, "consolidating buses", "stations", nextStation)
	consolidated, err := Consolidate(buses, stationIDs, opts.Consolidate)
	if err != nil {
		return nil, fmt.Errorf("bus consolidation failed: %w", err)
	}
	for i := range consolidated {
		p, err := projector.Forward(consolidated[i].Location)
		if err != nil {
			return nil, fmt.Errorf("bus %d: %w", consolidated[i].ID, err)
		}
		consolidated[i].XY = p
	}
	consolidated = SetSubstationLV(consolidated)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage(6, "assigning line endpoints", "buses", len(consolidated))
	corrected, d := AssignEndpoints(lines, consolidated, projector)
	diags.Merge(d)
	corrected, d = DropSelfLoops(corrected)
	diags.Merge(d)

	stage(7, "assigning countries", "outlines", len(in.Onshore))
	if len(in.Onshore) > 0 {
		consolidated, d = AssignCountries(consolidated, corrected, in.Onshore, ops, opts.CountryPathCutoffKm)
		diags.Merge(d)
		if len(opts.Countries) > 0 {
			consolidated, nextStation, d = AugmentMissingCountries(consolidated, opts.Countries, in.Onshore, ops, projector, nextStation)
			diags.Merge(d)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage(8, "offshore substations and underwater lines", "outlines", len(in.Offshore))
	offshore, err := dissolveOutlines(in.Offshore, ops)
	if err != nil {
		diags.AddOutline(KindInvalidGeometry, SeverityWarning, "offshore", "failed to dissolve offshore outlines: %v", err)
		offshore = nil
	}
	consolidated, d = SetSubstationOffshore(consolidated, offshore, opts.MinVoltageOffshore, ops)
	diags.Merge(d)
	corrected, d = UnderwaterFraction(corrected, offshore, ops)
	diags.Merge(d)

	stage(9, "synthesising transformers and converters")
	transformers, d := Transformers(consolidated)
	diags.Merge(d)
	converters := Converters(consolidated)

	logger.Info("Network built",
		"buses", len(consolidated),
		"lines", len(corrected),
		"transformers", len(transformers),
		"converters", len(converters),
		"diagnostics", len(diags))

	return &Network{
		Buses:         consolidated,
		Lines:         corrected,
		Transformers:  transformers,
		Converters:    converters,
		NextStationID: nextStation,
		Diagnostics:   diags,
	}, nil
}

// validateInput drops unusable features and returns the kept buses with
// their projected positions.
func validateInput(buses []RawBus, lines []RawLine, projector *geometry.Projector, diags *Diagnostics) ([]RawBus, []geometry.Point, []RawLine) {
	validBuses := make([]RawBus, 0, len(buses))
	xy := make([]geometry.Point, 0, len(buses))
	for _, b := range buses {
		if !b.Location.IsFinite() {
			diags.Add(KindInvalidGeometry, SeverityWarning, b.ID, "bus excluded: location is not finite")
			continue
		}
		if b.Location.Y < -90 || b.Location.Y > 90 || b.Location.X < -180 || b.Location.X > 180 {
			diags.Add(KindInvalidGeometry, SeverityWarning, b.ID, "bus excluded: (%v, %v) is not a lon/lat position", b.Location.X, b.Location.Y)
			continue
		}
		if !validVoltage(b.Voltage) {
			diags.Add(KindInvalidGeometry, SeverityWarning, b.ID, "bus excluded: voltage %v is not usable", b.Voltage)
			continue
		}
		p, err := projector.Forward(b.Location)
		if err != nil {
			diags.Add(KindInvalidGeometry, SeverityWarning, b.ID, "bus excluded: %v", err)
			continue
		}
		validBuses = append(validBuses, b)
		xy = append(xy, p)
	}
	validLines := make([]RawLine, 0, len(lines))
	for _, l := range lines {
		if err := l.Path.Validate(); err != nil {
			diags.Add(KindInvalidGeometry, SeverityWarning, l.ID, "line excluded: %v", err)
			continue
		}
		if !validVoltage(l.Voltage) {
			diags.Add(KindInvalidGeometry, SeverityWarning, l.ID, "line excluded: voltage %v is not usable", l.Voltage)
			continue
		}
		if _, err := projector.ForwardPath(l.Path); err != nil {
			diags.Add(KindInvalidGeometry, SeverityWarning, l.ID, "line excluded: %v", err)
			continue
		}
		validLines = append(validLines, l)
	}
	return validBuses, xy, validLines
}

func validVoltage(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// dissolveOutlines returns nil for an empty set.
func dissolveOutlines(outlines Outlines, ops geometry.Ops) (geom.T, error) {
	if len(outlines) == 0 {
		return nil, nil
	}
	parts := make([]geom.T, 0, len(outlines))
	for _, key := range outlines.sortedKeys() {
		g := outlines[key]
		if !ops.IsValid(g) {
			fixed, err := ops.MakeValid(g)
			if err != nil {
				return nil, fmt.Errorf("outline %s: %w", key, err)
			}
			g = fixed
		}
		parts = append(parts, g)
	}
	return ops.Union(parts)
}
