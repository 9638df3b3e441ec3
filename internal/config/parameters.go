package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/wildstyl3r/quench/internal/constants"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Model      string   `yaml:"Model"`
	OutputDir  string   `yaml:"OutputDir"`
	Threads    int      `yaml:"Threads"`
	InputUnits []string `yaml:"InputUnits"`

	Physics  Physics  `yaml:"Physics"`
	Light    Light    `yaml:"Light"`
	Detector Detector `yaml:"Detector"`

	isDefinedMap map[string]struct{}
}

type Physics struct {
	BoxAlpha float64 `yaml:"BoxAlpha"`
	BoxBeta  float64 `yaml:"BoxBeta"` // [(kV/cm)(g/cm^2)/MeV], never converted
	BirksAb  float64 `yaml:"BirksAb"`
	BirksKb  float64 `yaml:"BirksKb"` // [(kV/cm)(g/cm^2)/MeV], never converted
	WIon     float64 `yaml:"WIon"`    // [MeV]
}

type Light struct {
	WPh           float64 `yaml:"WPh"` // [MeV]
	ScintPrescale float64 `yaml:"ScintPrescale"`
}

type Detector struct {
	EField            float64 `yaml:"EField"`     // [kV/cm]
	LArDensity        float64 `yaml:"LArDensity"` // [g/cm^3], never converted
	VDrift            float64 `yaml:"VDrift"`     // [cm/us]
	ElectronLifetime  float64 `yaml:"ElectronLifetime"`
	DefaultPlaneIndex int     `yaml:"DefaultPlaneIndex"`
	// [[x_min, x_max], [y_min, y_max], [z_anode, z_far]] per readout plane
	TPCBorders [][][]float64 `yaml:"TPCBorders"`
}

func Default() Config {
	return Config{
		Model: "birks",
		Physics: Physics{
			BoxAlpha: constants.BoxAlpha,
			BoxBeta:  constants.BoxBeta,
			BirksAb:  constants.BirksAb,
			BirksKb:  constants.BirksKb,
			WIon:     constants.WIon,
		},
		Light: Light{
			WPh:           constants.WPh,
			ScintPrescale: constants.ScintPrescale,
		},
		Detector: Detector{
			EField:            constants.EField,
			LArDensity:        constants.LArDensity,
			VDrift:            constants.VDrift,
			ElectronLifetime:  constants.ElectronLifetime,
			DefaultPlaneIndex: constants.DefaultPlaneIndex,
		},
		isDefinedMap: map[string]struct{}{},
	}
}

// Keys are matched case-insensitively, the same way toml assigns fields.
func (c *Config) isDefined(path ...string) bool {
	_, some := c.isDefinedMap[definedKey(path...)]
	return some
}

func definedKey(path ...string) string {
	return strings.ToLower(strings.Join(path, "#"))
}

// LoadConfig reads a TOML or YAML file over the defaults. A name without
// extension is looked up as TOML.
func LoadConfig(configFileName string) (Config, error) {
	if filepath.Ext(configFileName) == "" {
		configFileName += ".toml"
	}
	data, err := os.ReadFile(configFileName)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(configFileName)) {
	case ".yaml", ".yml":
		err = config.decodeYAML(data)
	default:
		err = config.decodeTOML(data)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", configFileName, err)
	}

	if err := config.unify(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", configFileName, err)
	}
	return config, nil
}

func (c *Config) decodeTOML(data []byte) error {
	meta, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown keys %v", ErrInvalidConfig, undecoded)
	}
	for _, key := range meta.Keys() {
		c.isDefinedMap[definedKey(key...)] = struct{}{}
	}
	return nil
}

func (c *Config) decodeYAML(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	var keys map[string]any
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return err
	}
	for key, value := range keys {
		c.isDefinedMap[definedKey(key)] = struct{}{}
		if section, ok := value.(map[string]any); ok {
			for field := range section {
				c.isDefinedMap[definedKey(key, field)] = struct{}{}
			}
		}
	}
	return nil
}

var valueUnits = map[string][]UnitElement{
	"WIon": {
		{Class: Energy, Power: 1},
	},
	"WPh": {
		{Class: Energy, Power: 1},
	},
	"EField": {
		{Class: Voltage, Power: 1},
		{Class: Length, Power: -1},
	},
	"VDrift": {
		{Class: Length, Power: 1},
		{Class: Time, Power: -1},
	},
	"ElectronLifetime": {
		{Class: Time, Power: 1},
	},
}

var borderUnits = []UnitElement{{Class: Length, Power: 1}}

// unify converts every value given in the file into internal units and
// validates the result. Defaults are already internal.
func (c *Config) unify() error {
	units, err := checkUnits(c.InputUnits)
	if err != nil {
		return err
	}
	c.InputUnits = units

	for section, value := range map[string]any{
		"Physics":  &c.Physics,
		"Light":    &c.Light,
		"Detector": &c.Detector,
	} {
		sectionReflect := reflect.ValueOf(value).Elem()
		for name, classes := range valueUnits {
			field := sectionReflect.FieldByName(name)
			if field.IsValid() && field.CanFloat() && c.isDefined(section, name) {
				field.SetFloat(Internal(field.Float(), classes, c.InputUnits, true))
			}
		}
	}

	if c.isDefined("Detector", "TPCBorders") {
		for _, plane := range c.Detector.TPCBorders {
			for _, bounds := range plane {
				for i := range bounds {
					bounds[i] = Internal(bounds[i], borderUnits, c.InputUnits, true)
				}
			}
		}
	}

	if c.Threads <= 0 {
		c.Threads = runtime.NumCPU()
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	var problems []string
	positive := map[string]float64{
		"Physics.WIon":              c.Physics.WIon,
		"Light.WPh":                 c.Light.WPh,
		"Detector.EField":           c.Detector.EField,
		"Detector.LArDensity":       c.Detector.LArDensity,
		"Detector.VDrift":           c.Detector.VDrift,
		"Detector.ElectronLifetime": c.Detector.ElectronLifetime,
	}
	for name, value := range positive {
		if !(value > 0) {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %v", name, value))
		}
	}
	for i, plane := range c.Detector.TPCBorders {
		if len(plane) != 3 {
			problems = append(problems, fmt.Sprintf("TPCBorders[%d]: expected 3 axes, got %d", i, len(plane)))
			continue
		}
		for axis, bounds := range plane {
			if len(bounds) != 2 {
				problems = append(problems, fmt.Sprintf("TPCBorders[%d][%d]: expected 2 bounds, got %d", i, axis, len(bounds)))
			} else if axis < 2 && bounds[0] > bounds[1] {
				problems = append(problems, fmt.Sprintf("TPCBorders[%d][%d]: min %v above max %v", i, axis, bounds[0], bounds[1]))
			}
		}
	}
	if 0 <= c.Detector.DefaultPlaneIndex && c.Detector.DefaultPlaneIndex < len(c.Detector.TPCBorders) {
		problems = append(problems, fmt.Sprintf("DefaultPlaneIndex %d collides with a readout plane", c.Detector.DefaultPlaneIndex))
	}
	if len(problems) > 0 {
		slices.Sort(problems)
		return fmt.Errorf("%w:\n\t%s", ErrInvalidConfig, strings.Join(problems, "\n\t"))
	}
	return nil
}

// Parameters is the read-only view of a configuration consumed by the
// recombination kernel. All values are in internal units.
type Parameters struct {
	EField            float64
	LArDensity        float64
	WIon              float64
	WPh               float64
	ScintPrescale     float64
	BoxAlpha          float64
	BoxBeta           float64
	BirksAb           float64
	BirksKb           float64
	VDrift            float64
	ElectronLifetime  float64
	DefaultPlaneIndex int
	TPCBorders        [][3][2]float64

	_inputUnits []string
	_threads    int
}

func (c *Config) Parameters() Parameters {
	p := Parameters{
		EField:            c.Detector.EField,
		LArDensity:        c.Detector.LArDensity,
		WIon:              c.Physics.WIon,
		WPh:               c.Light.WPh,
		ScintPrescale:     c.Light.ScintPrescale,
		BoxAlpha:          c.Physics.BoxAlpha,
		BoxBeta:           c.Physics.BoxBeta,
		BirksAb:           c.Physics.BirksAb,
		BirksKb:           c.Physics.BirksKb,
		VDrift:            c.Detector.VDrift,
		ElectronLifetime:  c.Detector.ElectronLifetime,
		DefaultPlaneIndex: c.Detector.DefaultPlaneIndex,
		TPCBorders:        make([][3][2]float64, len(c.Detector.TPCBorders)),
		_inputUnits:       slices.Clone(c.InputUnits),
		_threads:          c.Threads,
	}
	for i, plane := range c.Detector.TPCBorders {
		for axis := range min(3, len(plane)) {
			copy(p.TPCBorders[i][axis][:], plane[axis])
		}
	}
	return p
}

func DefaultParameters() Parameters {
	c := Default()
	c.InputUnits = defaultUnits
	c.Threads = runtime.NumCPU()
	return c.Parameters()
}

func (p *Parameters) InputUnits() []string {
	return p._inputUnits
}

func (p *Parameters) Threads() int {
	return p._threads
}

func (p *Parameters) SetThreads(threads int) {
	p._threads = threads
}
