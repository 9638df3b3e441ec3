package model

import (
	"sort"
	"strconv"

	"github.com/wildstyl3r/quench/internal/constants"
	"github.com/wildstyl3r/quench/internal/utils"
)

type DataExtractor struct {
	model    *Model
	kind     Kind
	segments int

	TotalDE        float64
	TotalElectrons float64
	TotalPhotons   float64

	survival    []float64
	planeCounts map[int]int
}

func NewDataExtractor(model *Model, segments []Segment, kind Kind) *DataExtractor {
	de := DataExtractor{
		model:       model,
		kind:        kind,
		segments:    len(segments),
		planeCounts: map[int]int{},
	}

	deposits := make([]float64, len(segments))
	electrons := make([]float64, len(segments))
	photons := make([]float64, len(segments))
	for i, s := range segments {
		deposits[i] = s.DE
		electrons[i] = s.NElectrons
		photons[i] = s.NPhotons
		if s.DE > 0 {
			de.survival = append(de.survival, s.NElectrons*model.Parameters.WIon/s.DE)
		}
		if kind == Data {
			de.planeCounts[s.PixelPlane]++
		}
	}
	de.TotalDE = utils.SumSlice(deposits)
	de.TotalElectrons = utils.SumSlice(electrons)
	de.TotalPhotons = utils.SumSlice(photons)
	return &de
}

// Survival returns the mean surviving fraction and its 95% half width.
func (de *DataExtractor) Survival() (mean, halfWidth float64) {
	return utils.Average(de.survival), utils.ConfidenceHalfWidth(de.survival, constants.Quantile95)
}

func (de *DataExtractor) PlaneCount(plane int) int {
	return de.planeCounts[plane]
}

func (de *DataExtractor) Rows() utils.CSV {
	mean, halfWidth := de.Survival()
	rows := utils.CSV{
		{"model", de.kind.String()},
		{"segments", strconv.Itoa(de.segments)},
		{"total_dE (MeV)", formatFloat(de.TotalDE)},
		{"total_electrons", formatFloat(de.TotalElectrons)},
		{"total_photons", formatFloat(de.TotalPhotons)},
		{"survival_mean", formatFloat(mean)},
		{"survival_conf_interval", formatFloat(halfWidth)},
	}
	var planes utils.CSV
	for plane, count := range de.planeCounts {
		label := "no_plane"
		if plane != de.model.Parameters.DefaultPlaneIndex {
			label = "plane_" + strconv.Itoa(plane)
		}
		planes = append(planes, []string{label, strconv.Itoa(count)})
	}
	sort.Sort(planes)
	return append(rows, planes...)
}

func (de *DataExtractor) Save(outputPath, name string) error {
	return utils.WriteAsCSV(de.Rows(), outputPath, name, []string{"quantity", "value"})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
