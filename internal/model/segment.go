package model

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/wildstyl3r/quench/internal/config"
	"github.com/wildstyl3r/quench/internal/utils"
)

// Segment is one straight piece of a particle track.
type Segment struct {
	DEdx       float64 // [MeV/cm]
	DE         float64 // [MeV]
	X, Y, Z    float64 // [cm]
	PixelPlane int

	NElectrons float64
	NPhotons   float64
}

var (
	energyUnits   = []config.UnitElement{{Class: config.Energy, Power: 1}}
	lengthUnits   = []config.UnitElement{{Class: config.Length, Power: 1}}
	stoppingUnits = []config.UnitElement{{Class: config.Energy, Power: 1}, {Class: config.Length, Power: -1}}
)

// ReadSegments parses rows of "dEdx dE x y z [pixel_plane]" given in the
// input units of parameters.
func ReadSegments(r io.Reader, parameters config.Parameters) ([]Segment, error) {
	rows, err := utils.ReadFloatRows(r, 5, 6)
	if err != nil {
		return nil, err
	}
	units := parameters.InputUnits()
	segments := make([]Segment, len(rows))
	for i, row := range rows {
		segments[i] = Segment{
			DEdx:       config.Internal(row[0], stoppingUnits, units, true),
			DE:         config.Internal(row[1], energyUnits, units, true),
			X:          config.Internal(row[2], lengthUnits, units, true),
			Y:          config.Internal(row[3], lengthUnits, units, true),
			Z:          config.Internal(row[4], lengthUnits, units, true),
			PixelPlane: parameters.DefaultPlaneIndex,
		}
		if len(row) == 6 {
			if row[5] != math.Trunc(row[5]) {
				return nil, fmt.Errorf("segment %d: pixel plane %v is not an integer", i, row[5])
			}
			if row[5] < math.MinInt32 || row[5] > math.MaxInt32 {
				return nil, fmt.Errorf("segment %d: pixel plane %v out of range", i, row[5])
			}
			segments[i].PixelPlane = int(row[5])
		}
	}
	return segments, nil
}

func ReadSegmentsFile(path string, parameters config.Parameters) ([]Segment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening segments: %w", err)
	}
	defer file.Close()

	segments, err := ReadSegments(file, parameters)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return segments, nil
}

var segmentColumns = []string{"segment", "dEdx (MeV/cm)", "dE (MeV)", "x (cm)", "y (cm)", "z (cm)", "pixel_plane", "n_electrons", "n_photons"}

func SegmentsCSV(segments []Segment) utils.CSV {
	rows := make(utils.CSV, len(segments))
	for i, s := range segments {
		rows[i] = []string{
			strconv.Itoa(i),
			strconv.FormatFloat(s.DEdx, 'g', -1, 64),
			strconv.FormatFloat(s.DE, 'g', -1, 64),
			strconv.FormatFloat(s.X, 'g', -1, 64),
			strconv.FormatFloat(s.Y, 'g', -1, 64),
			strconv.FormatFloat(s.Z, 'g', -1, 64),
			strconv.Itoa(s.PixelPlane),
			strconv.FormatFloat(s.NElectrons, 'g', -1, 64),
			strconv.FormatFloat(s.NPhotons, 'g', -1, 64),
		}
	}
	return rows
}

func WriteSegments(w io.Writer, segments []Segment) error {
	return utils.WriteCSV(w, SegmentsCSV(segments), segmentColumns)
}

func SaveSegments(outputPath, name string, segments []Segment) error {
	return utils.WriteAsCSV(SegmentsCSV(segments), outputPath, name, segmentColumns)
}
