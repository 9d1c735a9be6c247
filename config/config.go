// Package config loads a grid topology scenario from YAML, applies
// environment overrides and validates the result.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bsaid97/go-grid-topology/dataset"
	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/bsaid97/go-grid-topology/network"
	"github.com/bsaid97/go-grid-topology/regions"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GRID_"

type Config struct {
	Countries       []string        `yaml:"countries" validate:"dive,required"`
	CRS             CRS             `yaml:"crs"`
	BuildOSMNetwork BuildOSMNetwork `yaml:"build_osm_network"`
	BaseNetwork     BaseNetwork     `yaml:"base_network"`
	Electricity     Electricity     `yaml:"electricity"`
	BusRegions      BusRegions      `yaml:"bus_regions"`
	Inputs          Inputs          `yaml:"inputs"`
	Outputs         Outputs         `yaml:"outputs"`
	Workers         int             `yaml:"workers" validate:"gte=0"`
	Debug           bool            `yaml:"debug"`
}

type CRS struct {
	DistanceCRS string `yaml:"distance_crs" validate:"required"`
}

type BuildOSMNetwork struct {
	ForceAC                   bool    `yaml:"force_ac"`
	SplitOverpassingLines     bool    `yaml:"split_overpassing_lines"`
	OverpassingLinesTolerance float64 `yaml:"overpassing_lines_tolerance" validate:"gte=0"`
	GroupCloseBuses           bool    `yaml:"group_close_buses"`
	GroupToleranceBuses       float64 `yaml:"group_tolerance_buses" validate:"gte=0"`
}

// BaseNetwork voltages are in kV.
type BaseNetwork struct {
	MinVoltageSubstationOffshore float64 `yaml:"min_voltage_substation_offshore" validate:"gte=0"`
	MinVoltageRebaseVoltage      float64 `yaml:"min_voltage_rebase_voltage" validate:"gte=0"`
	CountryPathCutoffKm          float64 `yaml:"country_path_cutoff_km" validate:"gt=0"`
}

type Electricity struct {
	// Voltages are the rebase levels in kV, ascending.
	Voltages []float64 `yaml:"voltages" validate:"dive,gt=0"`
}

type BusRegions struct {
	Multiplier float64 `yaml:"multiplier" validate:"gt=0"`
	MinArea    float64 `yaml:"min_area" validate:"gte=0"`
}

type Inputs struct {
	Substations    string `yaml:"substations"`
	Lines          string `yaml:"lines"`
	CountryShapes  string `yaml:"country_shapes"`
	OffshoreShapes string `yaml:"offshore_shapes"`
	NameProperty   string `yaml:"name_property"`
}

type Outputs struct {
	Dir string `yaml:"dir" validate:"required"`
}

// Default returns the settings of the reference workflow.
func Default() Config {
	return Config{
		CRS: CRS{DistanceCRS: geometry.WebMercator},
		BuildOSMNetwork: BuildOSMNetwork{
			SplitOverpassingLines:     true,
			OverpassingLinesTolerance: network.DefaultOverpassingTolerance,
			GroupCloseBuses:           true,
			GroupToleranceBuses:       500,
		},
		BaseNetwork: BaseNetwork{
			MinVoltageSubstationOffshore: 35,
			MinVoltageRebaseVoltage:      0,
			CountryPathCutoffKm:          network.DefaultCountryPathCutoff,
		},
		BusRegions: BusRegions{Multiplier: 5, MinArea: 1e-2},
		Inputs:     Inputs{NameProperty: dataset.DefaultNameProperty},
		Outputs:    Outputs{Dir: "resources"},
	}
}

// LoadEnv reads a .env file into the environment when one exists.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}
}

// Load reads path on top of the defaults, then applies GRID_* overrides
// and validates. An empty path uses the defaults alone.
func Load(path string) (Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("failed to read config: %v", err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (Config, error) {
	return parse(data, os.LookupEnv)
}

func parse(data []byte, lookup lookupFunc) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %v", err)
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for i := 1; i < len(c.Electricity.Voltages); i++ {
		if c.Electricity.Voltages[i] <= c.Electricity.Voltages[i-1] {
			return fmt.Errorf("invalid config: electricity.voltages must be ascending")
		}
	}
	if _, err := geometry.NewProjector(c.CRS.DistanceCRS); err != nil {
		return fmt.Errorf("invalid config: crs.distance_crs: %v", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	env := envReader{lookup: lookup}

	if v, ok := lookup(EnvPrefix + "COUNTRIES"); ok {
		c.Countries = splitList(v)
	}
	env.setString("DISTANCE_CRS", &c.CRS.DistanceCRS)
	env.setBool("FORCE_AC", &c.BuildOSMNetwork.ForceAC)
	env.setBool("SPLIT_OVERPASSING_LINES", &c.BuildOSMNetwork.SplitOverpassingLines)
	env.setFloat("OVERPASSING_LINES_TOLERANCE", &c.BuildOSMNetwork.OverpassingLinesTolerance)
	env.setBool("GROUP_CLOSE_BUSES", &c.BuildOSMNetwork.GroupCloseBuses)
	env.setFloat("GROUP_TOLERANCE_BUSES", &c.BuildOSMNetwork.GroupToleranceBuses)
	env.setFloat("MIN_VOLTAGE_SUBSTATION_OFFSHORE", &c.BaseNetwork.MinVoltageSubstationOffshore)
	env.setFloat("MIN_VOLTAGE_REBASE_VOLTAGE", &c.BaseNetwork.MinVoltageRebaseVoltage)
	env.setFloat("COUNTRY_PATH_CUTOFF_KM", &c.BaseNetwork.CountryPathCutoffKm)
	env.setFloat("BUS_REGIONS_MULTIPLIER", &c.BusRegions.Multiplier)
	env.setFloat("BUS_REGIONS_MIN_AREA", &c.BusRegions.MinArea)
	env.setString("SUBSTATIONS", &c.Inputs.Substations)
	env.setString("LINES", &c.Inputs.Lines)
	env.setString("COUNTRY_SHAPES", &c.Inputs.CountryShapes)
	env.setString("OFFSHORE_SHAPES", &c.Inputs.OffshoreShapes)
	env.setString("OUTPUT_DIR", &c.Outputs.Dir)
	env.setInt("WORKERS", &c.Workers)
	env.setBool("DEBUG", &c.Debug)
	return env.err
}

type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(EnvPrefix + key)
	return strings.TrimSpace(v), ok
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) setBool(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
		return
	}
	*dst = b
}

func (e *envReader) setFloat(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.err = fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
		return
	}
	*dst = f
}

func (e *envReader) setInt(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
		return
	}
	*dst = n
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// NetworkOptions converts the scenario into network build options. kV
// settings become volts.
func (c Config) NetworkOptions() network.Options {
	opts := network.DefaultOptions()
	opts.Countries = append([]string(nil), c.Countries...)
	opts.DistanceCRS = c.CRS.DistanceCRS
	opts.ForceAC = c.BuildOSMNetwork.ForceAC
	opts.SplitOverpassingLines = c.BuildOSMNetwork.SplitOverpassingLines
	opts.OverpassingTolerance = c.BuildOSMNetwork.OverpassingLinesTolerance
	opts.GroupCloseBuses = c.BuildOSMNetwork.GroupCloseBuses
	opts.GroupTolerance = c.BuildOSMNetwork.GroupToleranceBuses
	opts.MinVoltageOffshore = c.BaseNetwork.MinVoltageSubstationOffshore * 1000
	opts.CountryPathCutoffKm = c.BaseNetwork.CountryPathCutoffKm
	return opts
}

func (c Config) RegionOptions() regions.Options {
	return regions.Options{Multiplier: c.BusRegions.Multiplier, MinArea: c.BusRegions.MinArea}
}

func (c Config) TableOptions() dataset.TableOptions {
	return dataset.TableOptions{
		VoltageLevels:    append([]float64(nil), c.Electricity.Voltages...),
		MinRebaseVoltage: c.BaseNetwork.MinVoltageRebaseVoltage,
	}
}
