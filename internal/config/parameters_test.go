package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/quench/internal/constants"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "quench.toml", `Model = "box"`)
	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "box", config.Model)
	assert.Equal(t, []string{"cm", "MeV", "us", "kV"}, config.InputUnits)
	assert.Equal(t, constants.EField, config.Detector.EField)
	assert.Equal(t, constants.ElectronLifetime, config.Detector.ElectronLifetime)
	assert.Equal(t, constants.DefaultPlaneIndex, config.Detector.DefaultPlaneIndex)
	assert.Equal(t, constants.BirksKb, config.Physics.BirksKb)
	assert.Positive(t, config.Threads)
}

func TestLoadConfig_WithoutExtension(t *testing.T) {
	path := writeConfig(t, "detector.toml", `Threads = 3`)
	config, err := LoadConfig(path[:len(path)-len(".toml")])
	require.NoError(t, err)
	assert.Equal(t, 3, config.Threads)
}

func TestLoadConfig_UnitConversion(t *testing.T) {
	path := writeConfig(t, "quench.toml", `
InputUnits = ["mm", "V", "ns"]

[Detector]
EField = 500.0
VDrift = 0.001648
TPCBorders = [
  [[-300.0, 300.0], [-620.0, 620.0], [0.0, -300.0]],
]
`)
	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.InEpsilon(t, 5., config.Detector.EField, 1e-12)
	assert.InEpsilon(t, 0.1648, config.Detector.VDrift, 1e-12)
	// not given in the file: stays in internal units
	assert.Equal(t, constants.ElectronLifetime, config.Detector.ElectronLifetime)
	assert.Equal(t, constants.WIon, config.Physics.WIon)

	parameters := config.Parameters()
	require.Len(t, parameters.TPCBorders, 1)
	assert.InDelta(t, -30., parameters.TPCBorders[0][0][0], 1e-9)
	assert.InDelta(t, 62., parameters.TPCBorders[0][1][1], 1e-9)
	assert.InDelta(t, -30., parameters.TPCBorders[0][2][1], 1e-9)
	assert.Equal(t, []string{"mm", "V", "ns", "MeV"}, parameters.InputUnits())
}

func TestLoadConfig_UnitConversionAnyCase(t *testing.T) {
	path := writeConfig(t, "quench.toml", `
inputunits = ["mm", "V", "ns", "keV"]

[physics]
wion = 0.0236

[detector]
efield = 500.0
electronlifetime = 2.2e6
tpcborders = [
  [[-300.0, 300.0], [-620.0, 620.0], [0.0, -300.0]],
]
`)
	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.InEpsilon(t, 5., config.Detector.EField, 1e-12)
	assert.InEpsilon(t, constants.ElectronLifetime, config.Detector.ElectronLifetime, 1e-12)
	assert.InEpsilon(t, constants.WIon, config.Physics.WIon, 1e-12)

	parameters := config.Parameters()
	require.Len(t, parameters.TPCBorders, 1)
	assert.InDelta(t, -30., parameters.TPCBorders[0][0][0], 1e-9)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "quench.yaml", `
Model: data
InputUnits: [m]
Light:
  ScintPrescale: 0.25
Detector:
  DefaultPlaneIndex: -1
  TPCBorders:
    - [[0, 1], [0, 1], [0.5, 0]]
    - [[1, 2], [0, 1], [0.5, 1]]
`)
	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "data", config.Model)
	assert.Equal(t, 0.25, config.Light.ScintPrescale)
	assert.Equal(t, constants.WPh, config.Light.WPh)
	assert.Equal(t, -1, config.Detector.DefaultPlaneIndex)

	parameters := config.Parameters()
	require.Len(t, parameters.TPCBorders, 2)
	assert.InDelta(t, 100., parameters.TPCBorders[1][0][0], 1e-9)
	assert.InDelta(t, 50., parameters.TPCBorders[0][2][0], 1e-9)
}

func TestLoadConfig_UnknownKeys(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "quench.toml", "[Detector]\nEFeld = 0.5\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(writeConfig(t, "quench.yml", "Detector:\n  EFeld: 0.5\n"))
	assert.Error(t, err)
}

func TestLoadConfig_Units(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "quench.toml", `InputUnits = ["mm", "cm"]`))
	assert.ErrorIs(t, err, ErrUnitConflict)

	_, err = LoadConfig(writeConfig(t, "quench.toml", `InputUnits = ["furlong"]`))
	assert.ErrorIs(t, err, ErrUnitConflict)

	config, err := LoadConfig(writeConfig(t, "quench.toml", `InputUnits = ["µs"]`))
	require.NoError(t, err)
	assert.Contains(t, config.InputUnits, "us")
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nothing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	config := Default()
	require.NoError(t, config.Validate())

	config.Detector.TPCBorders = [][][]float64{{{0, 1}, {0, 1}, {1, 0}}}
	require.NoError(t, config.Validate(), "z bounds may come in either order")

	for name, broken := range map[string]func(c *Config){
		"x reversed":    func(c *Config) { c.Detector.TPCBorders[0][0] = []float64{1, 0} },
		"two axes":      func(c *Config) { c.Detector.TPCBorders[0] = c.Detector.TPCBorders[0][:2] },
		"three bounds":  func(c *Config) { c.Detector.TPCBorders[0][1] = []float64{0, 1, 2} },
		"plane clash":   func(c *Config) { c.Detector.DefaultPlaneIndex = 0 },
		"zero field":    func(c *Config) { c.Detector.EField = 0 },
		"negative WIon": func(c *Config) { c.Physics.WIon = -1 },
		"NaN lifetime":  func(c *Config) { c.Detector.ElectronLifetime = math.NaN() },
	} {
		config := Default()
		config.Detector.TPCBorders = [][][]float64{{{0, 1}, {0, 1}, {0, 1}}}
		broken(&config)
		assert.ErrorIs(t, config.Validate(), ErrInvalidConfig, name)
	}
}

func TestParameters_Copy(t *testing.T) {
	config := Default()
	config.Detector.TPCBorders = [][][]float64{{{0, 1}, {2, 3}, {5, 4}}}
	parameters := config.Parameters()

	config.Detector.TPCBorders[0][0][0] = 10
	assert.Equal(t, [3][2]float64{{0, 1}, {2, 3}, {5, 4}}, parameters.TPCBorders[0])
	assert.Equal(t, constants.BoxAlpha, parameters.BoxAlpha)

	parameters.SetThreads(7)
	assert.Equal(t, 7, parameters.Threads())
}

func TestDefaultParameters(t *testing.T) {
	parameters := DefaultParameters()
	assert.Equal(t, []string{"cm", "MeV", "us", "kV"}, parameters.InputUnits())
	assert.Positive(t, parameters.Threads())
	assert.Empty(t, parameters.TPCBorders)
}
