package config

import (
	"errors"
	"fmt"

	"github.com/wildstyl3r/quench/internal/utils"
)

var ErrUnitConflict = errors.New("unit conflict")

var unitToInternal = map[string]float64{
	"mm":  0.1,  // [cm]
	"cm":  1,    // [cm]
	"m":   100,  // [cm]
	"eV":  1e-6, // [MeV]
	"keV": 1e-3, // [MeV]
	"MeV": 1,    // [MeV]
	"GeV": 1e3,  // [MeV]
	"ns":  1e-3, // [us]
	"us":  1,    // [us]
	"ms":  1e3,  // [us]
	"s":   1e6,  // [us]
	"V":   1e-3, // [kV]
	"kV":  1,    // [kV]
}

type UnitClass int

const (
	Length UnitClass = iota
	Energy
	Time
	Voltage
)

var unitsInClass = map[UnitClass][]string{
	Length:  {"mm", "cm", "m"},
	Energy:  {"eV", "keV", "MeV", "GeV"},
	Time:    {"ns", "us", "ms", "s"},
	Voltage: {"V", "kV"},
}

var classesOfUnits = map[string]UnitClass{
	"mm":  Length,
	"cm":  Length,
	"m":   Length,
	"eV":  Energy,
	"keV": Energy,
	"MeV": Energy,
	"GeV": Energy,
	"ns":  Time,
	"us":  Time,
	"ms":  Time,
	"s":   Time,
	"V":   Voltage,
	"kV":  Voltage,
}

type UnitElement = struct {
	Class UnitClass
	Power int
}

var defaultUnits = []string{"cm", "MeV", "us", "kV"}

// checkUnits accepts at most one unit per class and fills the missing
// classes from defaultUnits.
func checkUnits(units []string) (extended []string, err error) {
	classes := map[UnitClass]struct{}{}
	var conflicts []string
	for _, unit := range units {
		class, known := classesOfUnits[normalizeUnit(unit)]
		if !known {
			return nil, fmt.Errorf("%w: unknown unit %q", ErrUnitConflict, unit)
		}
		if _, some := classes[class]; some {
			conflicts = append(conflicts, unit)
		} else {
			classes[class] = struct{}{}
			extended = append(extended, normalizeUnit(unit))
		}
	}
	if len(conflicts) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnitConflict, conflicts)
	}
	for _, unit := range defaultUnits {
		if _, some := classes[classesOfUnits[unit]]; !some {
			extended = append(extended, unit)
		}
	}
	return extended, nil
}

func normalizeUnit(unit string) string {
	if unit == "µs" || unit == "μs" {
		return "us"
	}
	return unit
}

// Internal converts v measured in units into the internal unit system
// (direct) or back from it.
func Internal(v float64, classes []UnitElement, units []string, direct bool) float64 {
	for i := range classes {
		uc := classes[i]
		unit := utils.Intersect(unitsInClass[uc.Class], units)
		if unit == nil {
			continue
		}
		absPower := utils.IntAbs(uc.Power)
		if direct == (uc.Power > 0) {
			for range absPower {
				v *= unitToInternal[*unit]
			}
		} else {
			for range absPower {
				v /= unitToInternal[*unit]
			}
		}
	}
	return v
}
