package solver

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

// Kind selects one of the closed set of solver strategies.
type Kind int

const (
	KindNewtonRaphson Kind = iota
	KindDC
)

func (k Kind) String() string {
	switch k {
	case KindNewtonRaphson:
		return "newton-raphson"
	case KindDC:
		return "dc"
	}
	return "unknown"
}

// Strategy drives one powerflow computation in solver space. Solve
// returns whether the computation converged; a strategy never retries on
// its own.
type Strategy interface {
	Kind() Kind
	Solve(y *matrix.Admittance, vInit []complex128, s *matrix.Injection,
		cls *network.Classification, maxIter int, tol float64) (bool, error)
	// Voltage, Angle and Magnitude expose the last converged solution in
	// solver space.
	Voltage() []complex128
	Angle() []float64
	Magnitude() []float64
	// Jacobian returns the last Newton Jacobian, nil for linear strategies.
	Jacobian() *mat.Dense
	ElapsedTime() time.Duration
	Reset()
}

// New returns a fresh strategy of the given kind.
func New(kind Kind) Strategy {
	switch kind {
	case KindDC:
		return &DCLinear{}
	default:
		return &NewtonRaphson{}
	}
}
