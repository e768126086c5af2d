package solver

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

// twoBusSystem is a lossless line (x = 0.1 pu) from the slack bus 0 to a
// PQ bus 1 drawing 0.5 pu active power. The exact solution satisfies
// sin(2*theta1) = -0.1 and vm1 = cos(theta1).
func twoBusSystem(ac bool) (*matrix.Admittance, *matrix.Injection, *network.Classification) {
	y := matrix.NewAdmittance(2)
	if ac {
		ys := complex(0, -10) // 1/(j*0.1)
		y.AddComplex(0, 0, ys)
		y.AddComplex(1, 1, ys)
		y.AddComplex(0, 1, -ys)
		y.AddComplex(1, 0, -ys)
	} else {
		y.AddComplex(0, 0, 10)
		y.AddComplex(1, 1, 10)
		y.AddComplex(0, 1, -10)
		y.AddComplex(1, 0, -10)
	}
	s := matrix.NewInjection(2)
	s.Add(1, -0.5)

	cls := network.NewClassification(2, 0)
	cls.Finalize()
	return y, s, cls
}

func TestNewtonRaphsonTwoBus(t *testing.T) {
	y, s, cls := twoBusSystem(true)
	nr := New(KindNewtonRaphson)

	conv, err := nr.Solve(y, []complex128{1, 1}, s, cls, 20, 1e-10)
	require.NoError(t, err)
	require.True(t, conv)

	// slack bus pinned to its initial voltage
	assert.InDelta(t, 0, nr.Angle()[0], 1e-12)
	assert.InDelta(t, 1, nr.Magnitude()[0], 1e-12)

	// analytic solution
	assert.InDelta(t, -0.0500838, nr.Angle()[1], 1e-6)
	assert.InDelta(t, 0.9987463, nr.Magnitude()[1], 1e-6)

	// the converged voltage reproduces the injection at the PQ bus
	v := nr.Voltage()
	sCalc := v[1] * cmplx.Conj(y.MulVec(v)[1])
	assert.InDelta(t, -0.5, real(sCalc), 1e-8)
	assert.InDelta(t, 0, imag(sCalc), 1e-8)

	assert.NotNil(t, nr.Jacobian())
	assert.Greater(t, nr.ElapsedTime().Nanoseconds(), int64(0))
}

func TestNewtonRaphsonIterationBudget(t *testing.T) {
	y, s, cls := twoBusSystem(true)
	nr := New(KindNewtonRaphson)

	conv, err := nr.Solve(y, []complex128{1, 1}, s, cls, 0, 1e-10)
	require.NoError(t, err)
	assert.False(t, conv)
}

func TestNewtonRaphsonNonFiniteGuess(t *testing.T) {
	// a NaN voltage makes every mismatch NaN; that must never satisfy
	// the tolerance check
	y, s, cls := twoBusSystem(true)
	nr := New(KindNewtonRaphson)

	conv, _ := nr.Solve(y, []complex128{1, cmplx.NaN()}, s, cls, 20, 1e-10)
	assert.False(t, conv)
}

func TestNewtonRaphsonSingularJacobian(t *testing.T) {
	// a PQ bus with no admittance at all yields a zero Jacobian row
	y := matrix.NewAdmittance(2)
	y.AddComplex(0, 0, complex(0, -10))
	s := matrix.NewInjection(2)
	s.Add(1, -0.5)
	cls := network.NewClassification(2, 0)
	cls.Finalize()

	nr := New(KindNewtonRaphson)
	conv, err := nr.Solve(y, []complex128{1, 1}, s, cls, 10, 1e-10)
	assert.False(t, conv)
	require.Error(t, err)
	assert.ErrorIs(t, err, network.ErrSingularMatrix)
}

func TestDCTwoBus(t *testing.T) {
	y, s, cls := twoBusSystem(false)
	dc := New(KindDC)

	// slack initial voltage carries a nonzero angle and magnitude
	vInit := []complex128{cmplx.Rect(1.02, 0.02), 1}
	conv, err := dc.Solve(y, vInit, s, cls, 1, 1e-8)
	require.NoError(t, err)
	require.True(t, conv)

	// theta1 = theta_slack + P1 / b01
	assert.InDelta(t, 0.02, dc.Angle()[0], 1e-12)
	assert.InDelta(t, -0.03, dc.Angle()[1], 1e-12)

	// DC keeps unit magnitude except where a setpoint pins it
	assert.InDelta(t, 1.02, dc.Magnitude()[0], 1e-12)
	assert.InDelta(t, 1, dc.Magnitude()[1], 1e-12)

	assert.Nil(t, dc.Jacobian())
}

func TestDCSingleBus(t *testing.T) {
	y := matrix.NewAdmittance(1)
	s := matrix.NewInjection(1)
	cls := network.NewClassification(1, 0)
	cls.Finalize()

	dc := New(KindDC)
	conv, err := dc.Solve(y, []complex128{1}, s, cls, 1, 1e-8)
	require.NoError(t, err)
	assert.True(t, conv)
	assert.InDelta(t, 0, dc.Angle()[0], 1e-12)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "newton-raphson", KindNewtonRaphson.String())
	assert.Equal(t, "dc", KindDC.String())
}
