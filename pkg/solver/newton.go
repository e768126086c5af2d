package solver

import (
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/mat"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

// NewtonRaphson solves the AC power-balance equations in polar form.
// Unknowns are the voltage angles at PV and PQ buses and the voltage
// magnitudes at PQ buses; the Jacobian is assembled dense and factored
// with gonum on every iteration.
type NewtonRaphson struct {
	v       []complex128
	va, vm  []float64
	jac     *mat.Dense
	elapsed time.Duration
}

func (n *NewtonRaphson) Kind() Kind { return KindNewtonRaphson }

func (n *NewtonRaphson) Solve(y *matrix.Admittance, vInit []complex128, s *matrix.Injection,
	cls *network.Classification, maxIter int, tol float64) (bool, error) {
	start := time.Now()
	defer func() { n.elapsed = time.Since(start) }()

	nb := y.Size()
	if len(vInit) != nb || s.Size() != nb {
		return false, fmt.Errorf("%w: solver inputs do not match the %d-bus system", network.ErrInvalidArgument, nb)
	}

	v := append([]complex128(nil), vInit...)
	va := make([]float64, nb)
	vm := make([]float64, nb)
	for i, vi := range v {
		va[i] = cmplx.Phase(vi)
		vm[i] = cmplx.Abs(vi)
	}
	sbus := s.Values()

	pvpq := make([]int, 0, len(cls.PV)+len(cls.PQ))
	pvpq = append(pvpq, cls.PV...)
	pvpq = append(pvpq, cls.PQ...)
	nPVPQ := len(pvpq)
	nPQ := len(cls.PQ)
	nUnknown := nPVPQ + nPQ

	// bus id -> position in the unknown vector
	posVa := make([]int, nb)
	posVm := make([]int, nb)
	for i := range posVa {
		posVa[i], posVm[i] = -1, -1
	}
	for pos, b := range pvpq {
		posVa[b] = pos
	}
	for pos, b := range cls.PQ {
		posVm[b] = nPVPQ + pos
	}

	converged := false
	for iter := 0; iter <= maxIter; iter++ {
		iBus := y.MulVec(v)

		// math.Max propagates NaN, so a non-finite mismatch (NaN in the
		// guess, overflow mid-iteration) can never satisfy the tolerance
		f := make([]float64, nUnknown)
		maxMismatch := 0.0
		for _, b := range pvpq {
			mis := v[b]*cmplx.Conj(iBus[b]) - sbus[b]
			f[posVa[b]] = real(mis)
			maxMismatch = math.Max(maxMismatch, math.Abs(real(mis)))
			if posVm[b] >= 0 {
				f[posVm[b]] = imag(mis)
				maxMismatch = math.Max(maxMismatch, math.Abs(imag(mis)))
			}
		}

		if maxMismatch <= tol {
			converged = true
			break
		}
		if iter == maxIter || nUnknown == 0 {
			break
		}

		if err := n.step(y, v, vm, va, iBus, pvpq, cls.PQ, posVa, posVm, f); err != nil {
			n.store(v, va, vm)
			return false, err
		}
	}

	n.store(v, va, vm)
	return converged, nil
}

// step assembles the polar Jacobian, solves for the Newton update and
// applies it in place to va, vm and v.
func (n *NewtonRaphson) step(y *matrix.Admittance, v []complex128, vm, va []float64,
	iBus []complex128, pvpq, pq []int, posVa, posVm []int, f []float64) error {
	nb := len(v)
	nPVPQ := len(pvpq)
	nUnknown := nPVPQ + len(pq)

	vnorm := make([]complex128, nb)
	for i, vi := range v {
		if vm[i] != 0 {
			vnorm[i] = vi / complex(vm[i], 0)
		}
	}

	// partial derivatives of the injected power, dense
	dSdVa := make([][]complex128, nb)
	dSdVm := make([][]complex128, nb)
	for i := range dSdVa {
		dSdVa[i] = make([]complex128, nb)
		dSdVm[i] = make([]complex128, nb)
	}
	for _, t := range y.Triplets() {
		dSdVa[t.Row][t.Col] -= 1i * v[t.Row] * cmplx.Conj(t.Val*v[t.Col])
		dSdVm[t.Row][t.Col] += v[t.Row] * cmplx.Conj(t.Val*vnorm[t.Col])
	}
	for i := 0; i < nb; i++ {
		dSdVa[i][i] += 1i * v[i] * cmplx.Conj(iBus[i])
		dSdVm[i][i] += cmplx.Conj(iBus[i]) * vnorm[i]
	}

	jac := mat.NewDense(nUnknown, nUnknown, nil)
	for r, bi := range pvpq {
		for c, bj := range pvpq {
			jac.Set(r, c, real(dSdVa[bi][bj]))
		}
		for c, bj := range pq {
			jac.Set(r, nPVPQ+c, real(dSdVm[bi][bj]))
		}
	}
	for r, bi := range pq {
		for c, bj := range pvpq {
			jac.Set(nPVPQ+r, c, imag(dSdVa[bi][bj]))
		}
		for c, bj := range pq {
			jac.Set(nPVPQ+r, nPVPQ+c, imag(dSdVm[bi][bj]))
		}
	}
	n.jac = jac

	var dx mat.VecDense
	if err := dx.SolveVec(jac, mat.NewVecDense(nUnknown, f)); err != nil {
		return fmt.Errorf("%w: jacobian factorization failed: %v", network.ErrSingularMatrix, err)
	}

	for _, b := range pvpq {
		va[b] -= dx.AtVec(posVa[b])
	}
	for _, b := range pq {
		vm[b] -= dx.AtVec(posVm[b])
	}
	for i := range v {
		v[i] = cmplx.Rect(vm[i], va[i])
	}
	return nil
}

func (n *NewtonRaphson) store(v []complex128, va, vm []float64) {
	n.v, n.va, n.vm = v, va, vm
}

func (n *NewtonRaphson) Voltage() []complex128 { return n.v }
func (n *NewtonRaphson) Angle() []float64      { return n.va }
func (n *NewtonRaphson) Magnitude() []float64  { return n.vm }
func (n *NewtonRaphson) Jacobian() *mat.Dense  { return n.jac }

func (n *NewtonRaphson) ElapsedTime() time.Duration { return n.elapsed }

func (n *NewtonRaphson) Reset() {
	n.v, n.va, n.vm, n.jac = nil, nil, nil, nil
	n.elapsed = 0
}
