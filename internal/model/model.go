package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wildstyl3r/quench/internal/config"
	"github.com/wildstyl3r/quench/internal/constants"
)

var (
	ErrInvalidModel         = errors.New("invalid recombination model")
	ErrInvalidRecombination = errors.New("invalid recombination value")
)

// SegmentError reports the segment that stopped a batch.
type SegmentError struct {
	Index  int
	Recomb float64
	Err    error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d: %v (recombination = %v)", e.Index, e.Err, e.Recomb)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}

// Kind selects the recombination model.
type Kind int

const (
	Box Kind = iota + 1
	Birks
	Data
)

var kindNames = map[Kind]string{
	Box:   "box",
	Birks: "birks",
	Data:  "data",
}

func (k Kind) String() string {
	if name, some := kindNames[k]; some {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) Valid() bool {
	_, some := kindNames[k]
	return some
}

func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if strings.EqualFold(strings.TrimSpace(name), kindName) {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (expected box, birks or data)", ErrInvalidModel, name)
}

// Plane is a readout plane bounding box:
// [[x_min, x_max], [y_min, y_max], [z_anode, z_far]].
type Plane [3][2]float64

// Contains reports whether the point lies in the box padded by tol on every
// axis. The z bounds may come in either order.
func (p Plane) Contains(x, y, z, tol float64) bool {
	return p[0][0]-tol <= x && x <= p[0][1]+tol &&
		p[1][0]-tol <= y && y <= p[1][1]+tol &&
		min(p[2][1]-tol, p[2][0]-tol) <= z && z <= max(p[2][1]+tol, p[2][0]+tol)
}

func (p Plane) Anode() float64 {
	return p[2][0]
}

type Model struct {
	Parameters config.Parameters

	fieldDensity float64 // E_FIELD * LAR_DENSITY
	planes       []Plane
	logger       *zap.Logger
}

// NewModel takes its own copy of the plane table, so the caller may not
// change the geometry under a running batch.
func NewModel(parameters config.Parameters, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := Model{
		Parameters:   parameters,
		fieldDensity: parameters.EField * parameters.LArDensity,
		planes:       make([]Plane, len(parameters.TPCBorders)),
		logger:       logger,
	}
	for i := range parameters.TPCBorders {
		m.planes[i] = Plane(parameters.TPCBorders[i])
	}
	m.Parameters.TPCBorders = slices.Clone(parameters.TPCBorders)
	return m
}

// PlaneOf returns the first plane in table order whose padded box holds the
// point, or DefaultPlaneIndex.
func (m *Model) PlaneOf(x, y, z float64) int {
	for ip, plane := range m.planes {
		if plane.Contains(x, y, z, constants.PlaneTolerance) {
			return ip
		}
	}
	return m.Parameters.DefaultPlaneIndex
}

// Outputs turns a surviving fraction into electron and photon counts.
func (m *Model) Outputs(recomb, dE float64) (nElectrons, nPhotons float64) {
	nElectrons = recomb * dE / m.Parameters.WIon
	nPhotons = (dE/m.Parameters.WPh - nElectrons) * m.Parameters.ScintPrescale
	return
}

type quenched struct {
	nElectrons float64
	nPhotons   float64
	plane      int
}

const minChunk = 256

// Quench evaluates the recombination model for every segment in parallel.
//
// Lanes write into a scratch buffer; segments are only updated after the
// whole batch succeeded. On error no segment is modified and the returned
// error wraps ErrInvalidModel, ErrInvalidRecombination (as *SegmentError) or
// the context error. With several failing segments in parallel any one of
// them may be reported.
func (m *Model) Quench(ctx context.Context, segments []Segment, kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidModel, kind)
	}
	startTime := time.Now()

	threads := max(1, m.Parameters.Threads())
	chunk := max(minChunk, (len(segments)+4*threads-1)/(4*threads))
	results := make([]quenched, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for from := 0; from < len(segments); from += chunk {
		to := min(from+chunk, len(segments))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := from; i < to; i++ {
				recomb, plane, err := m.Recombination(segments[i], kind)
				if err != nil {
					return &SegmentError{Index: i, Recomb: recomb, Err: err}
				}
				results[i].nElectrons, results[i].nPhotons = m.Outputs(recomb, segments[i].DE)
				results[i].plane = plane
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Error("quenching aborted",
			zap.Stringer("model", kind),
			zap.Int("segments", len(segments)),
			zap.Error(err))
		return err
	}

	for i := range segments {
		segments[i].NElectrons = results[i].nElectrons
		segments[i].NPhotons = results[i].nPhotons
		if kind == Data {
			segments[i].PixelPlane = results[i].plane
		}
	}
	m.logger.Debug("quenching done",
		zap.Stringer("model", kind),
		zap.Int("segments", len(segments)),
		zap.Int("threads", threads),
		zap.Duration("elapsed", time.Since(startTime)))
	return nil
}
