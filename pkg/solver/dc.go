package solver

import (
	"fmt"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/mat"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

// DCLinear solves the linearized approximation: the slack row and column
// are stripped from the real part of the admittance matrix and the
// remaining (k-1)x(k-1) system is factored once to yield the bus angles.
// Magnitudes are not solved for: voltage-controlled buses keep the
// magnitude of the prepared initial vector, every other bus is set to
// one per unit.
type DCLinear struct {
	v       []complex128
	va, vm  []float64
	elapsed time.Duration
}

func (d *DCLinear) Kind() Kind { return KindDC }

func (d *DCLinear) Solve(y *matrix.Admittance, vInit []complex128, s *matrix.Injection,
	cls *network.Classification, maxIter int, tol float64) (bool, error) {
	start := time.Now()
	defer func() { d.elapsed = time.Since(start) }()

	nb := y.Size()
	if len(vInit) != nb || s.Size() != nb {
		return false, fmt.Errorf("%w: solver inputs do not match the %d-bus system", network.ErrInvalidArgument, nb)
	}
	slack := cls.SlackSolverID
	slackVa := cmplx.Phase(vInit[slack])

	va := make([]float64, nb)
	if nb > 1 {
		angles, err := d.solveReduced(y, s, slack, nb)
		if err != nil {
			return false, err
		}
		for b := 0; b < nb; b++ {
			if b == slack {
				continue
			}
			va[b] = angles[reducedIndex(b, slack)]
		}
	}

	vm := make([]float64, nb)
	for b := 0; b < nb; b++ {
		va[b] += slackVa
		vm[b] = 1.0
	}
	vm[slack] = cmplx.Abs(vInit[slack])
	for _, b := range cls.PV {
		vm[b] = cmplx.Abs(vInit[b])
	}

	v := make([]complex128, nb)
	for b := 0; b < nb; b++ {
		v[b] = cmplx.Rect(vm[b], va[b])
	}
	d.v, d.va, d.vm = v, va, vm
	return true, nil
}

// solveReduced builds, factors and solves the slack-stripped system.
func (d *DCLinear) solveReduced(y *matrix.Admittance, s *matrix.Injection, slack, nb int) ([]float64, error) {
	red, err := matrix.NewReducedSystem(nb - 1)
	if err != nil {
		return nil, err
	}
	defer red.Destroy()

	for _, t := range y.Triplets() {
		if t.Row == slack || t.Col == slack {
			continue
		}
		red.AddElement(reducedIndex(t.Row, slack), reducedIndex(t.Col, slack), real(t.Val))
	}
	for b := 0; b < nb; b++ {
		if b == slack {
			continue
		}
		red.AddRHS(reducedIndex(b, slack), real(s.At(b)))
	}

	if err := red.Factor(); err != nil {
		return nil, err
	}
	return red.Solve()
}

// reducedIndex shifts a solver bus id past the removed slack row/column.
func reducedIndex(busID, slack int) int {
	if busID > slack {
		return busID - 1
	}
	return busID
}

func (d *DCLinear) Voltage() []complex128 { return d.v }
func (d *DCLinear) Angle() []float64      { return d.va }
func (d *DCLinear) Magnitude() []float64  { return d.vm }
func (d *DCLinear) Jacobian() *mat.Dense  { return nil }

func (d *DCLinear) ElapsedTime() time.Duration { return d.elapsed }

func (d *DCLinear) Reset() {
	d.v, d.va, d.vm = nil, nil, nil
	d.elapsed = 0
}
