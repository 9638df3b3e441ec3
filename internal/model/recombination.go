package model

import (
	"fmt"
	"math"
)

// Recombination returns the surviving electron fraction of one segment and
// the readout plane it belongs to. The plane is only looked up by the Data
// model, the other models return seg.PixelPlane unchanged.
func (m *Model) Recombination(seg Segment, kind Kind) (recomb float64, plane int, err error) {
	plane = seg.PixelPlane
	switch kind {
	case Box:
		recomb = m.box(seg.DEdx)
	case Birks:
		recomb = m.birks(seg.DEdx)
	case Data:
		plane = m.PlaneOf(seg.X, seg.Y, seg.Z)
		// no plane: every electron is lost
		if plane != m.Parameters.DefaultPlaneIndex {
			recomb = m.lifetime(seg.Z, plane)
		}
	default:
		return 0, plane, fmt.Errorf("%w: %v", ErrInvalidModel, kind)
	}

	if math.IsNaN(recomb) || math.IsInf(recomb, 0) {
		return recomb, plane, ErrInvalidRecombination
	}
	return recomb, plane, nil
}

// Baller, 2013 JINST 8 P08005
func (m *Model) box(dEdx float64) float64 {
	csi := m.Parameters.BoxBeta * dEdx / m.fieldDensity
	if csi == 0 {
		return math.NaN()
	}
	return math.Max(0, math.Log(m.Parameters.BoxAlpha+csi)/csi)
}

// Amoruso, et al NIM A 523 (2004) 275
func (m *Model) birks(dEdx float64) float64 {
	return m.Parameters.BirksAb / (1 + m.Parameters.BirksKb*dEdx/m.fieldDensity)
}

// lifetime grows with the distance to the anode of the plane, undoing the
// attenuation already applied on the way anode -> volume.
func (m *Model) lifetime(z float64, plane int) float64 {
	driftDistance := math.Abs(z - m.planes[plane].Anode())
	driftTime := driftDistance / m.Parameters.VDrift
	return math.Exp(driftTime / m.Parameters.ElectronLifetime)
}
