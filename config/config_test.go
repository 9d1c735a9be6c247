package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func mapEnv(values map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := parse(nil, noEnv)
	require.NoError(t, err)

	assert.Equal(t, geometry.WebMercator, cfg.CRS.DistanceCRS)
	assert.True(t, cfg.BuildOSMNetwork.SplitOverpassingLines)
	assert.Equal(t, 1.0, cfg.BuildOSMNetwork.OverpassingLinesTolerance)
	assert.True(t, cfg.BuildOSMNetwork.GroupCloseBuses)
	assert.Equal(t, 500.0, cfg.BuildOSMNetwork.GroupToleranceBuses)
	assert.Equal(t, 200.0, cfg.BaseNetwork.CountryPathCutoffKm)
	assert.Equal(t, 5.0, cfg.BusRegions.Multiplier)

	opts := cfg.NetworkOptions()
	assert.Equal(t, 35000.0, opts.MinVoltageOffshore)
	assert.Equal(t, 500.0, opts.GroupTolerance)
}

func TestParseScenario(t *testing.T) {
	doc := []byte(`
countries: [NG, BJ]
build_osm_network:
  force_ac: true
  group_tolerance_buses: 250
base_network:
  min_voltage_substation_offshore: 51
  min_voltage_rebase_voltage: 110
electricity:
  voltages: [220, 300, 380]
bus_regions:
  multiplier: 3
`)
	cfg, err := parse(doc, noEnv)
	require.NoError(t, err)

	assert.Equal(t, []string{"NG", "BJ"}, cfg.Countries)
	assert.True(t, cfg.BuildOSMNetwork.ForceAC)
	assert.True(t, cfg.BuildOSMNetwork.SplitOverpassingLines, "unset keys keep their defaults")

	opts := cfg.NetworkOptions()
	assert.Equal(t, []string{"NG", "BJ"}, opts.Countries)
	assert.Equal(t, 250.0, opts.GroupTolerance)
	assert.Equal(t, 51000.0, opts.MinVoltageOffshore)

	assert.Equal(t, 3.0, cfg.RegionOptions().Multiplier)

	tables := cfg.TableOptions()
	assert.Equal(t, []float64{220, 300, 380}, tables.VoltageLevels)
	assert.Equal(t, 110.0, tables.MinRebaseVoltage)
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := parse([]byte("countries: [NG]\n"), mapEnv(map[string]string{
		"GRID_COUNTRIES":             "TG, BJ",
		"GRID_GROUP_CLOSE_BUSES":     "false",
		"GRID_GROUP_TOLERANCE_BUSES": "1000",
		"GRID_WORKERS":               "4",
		"GRID_OUTPUT_DIR":            "/tmp/out",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"TG", "BJ"}, cfg.Countries)
	assert.False(t, cfg.BuildOSMNetwork.GroupCloseBuses)
	assert.Equal(t, 1000.0, cfg.BuildOSMNetwork.GroupToleranceBuses)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "/tmp/out", cfg.Outputs.Dir)

	_, err = parse(nil, mapEnv(map[string]string{"GRID_WORKERS": "many"}))
	assert.ErrorContains(t, err, "GRID_WORKERS")
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"negative tolerance", "build_osm_network:\n  group_tolerance_buses: -1\n"},
		{"zero multiplier", "bus_regions:\n  multiplier: 0\n"},
		{"descending voltages", "electricity:\n  voltages: [380, 220]\n"},
		{"geographic crs", "crs:\n  distance_crs: \"+proj=longlat\"\n"},
		{"empty country", "countries: [NG, \"\"]\n"},
		{"bad yaml", "countries: [NG\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse([]byte(tt.doc), noEnv)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("countries: [NG]\nworkers: 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"NG"}, cfg.Countries)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
